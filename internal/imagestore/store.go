// Package imagestore keeps captured slip images on disk, addressed by
// opaque references handed out at save time.
package imagestore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const maxImageSize = 10 << 20 // 10 MB

var allowedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true,
}

// References are uuid.ext, nothing else resolves.
var refRe = regexp.MustCompile(`^[a-f0-9-]{36}\.[a-z]+$`)

// Store is the image surface the capture workflow depends on.
type Store interface {
	Save(data []byte, ext string) (string, error)
	Read(ref string) ([]byte, error)
	Delete(ref string) error
}

// FS implements Store backed by a local directory.
type FS struct {
	root string
}

// NewFS creates a store rooted at the given directory. The directory
// must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("imagestore: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("imagestore: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("imagestore: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Save writes image bytes under a fresh reference and returns it.
// The write is atomic: tmp file, fsync, rename.
func (f *FS) Save(data []byte, ext string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("imagestore: empty image")
	}
	if len(data) > maxImageSize {
		return "", fmt.Errorf("imagestore: image too large: %d bytes (max %d)", len(data), maxImageSize)
	}
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("imagestore: unsupported extension: %s", ext)
	}

	ref := uuid.New().String() + ext
	abs := filepath.Join(f.root, ref)

	tmp, err := os.CreateTemp(f.root, ".raido-tmp-*")
	if err != nil {
		return "", fmt.Errorf("imagestore: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("imagestore: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("imagestore: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("imagestore: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return "", fmt.Errorf("imagestore: rename: %w", err)
	}
	success = true
	return ref, nil
}

// Read returns the bytes stored under ref.
func (f *FS) Read(ref string) ([]byte, error) {
	abs, err := f.safePath(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("imagestore: read %s: %w", ref, err)
	}
	return data, nil
}

// Delete removes the image under ref.
func (f *FS) Delete(ref string) error {
	abs, err := f.safePath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("imagestore: delete %s: %w", ref, err)
	}
	return nil
}

// safePath resolves a reference against the root and rejects anything
// that is not a reference this store could have issued.
func (f *FS) safePath(ref string) (string, error) {
	if !refRe.MatchString(ref) {
		return "", fmt.Errorf("imagestore: invalid reference: %s", ref)
	}
	abs := filepath.Join(f.root, ref)
	if filepath.Dir(abs) != f.root {
		return "", fmt.Errorf("imagestore: reference escapes root: %s", ref)
	}
	return abs, nil
}
