package imagestore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func tempStore(t *testing.T) *FS {
	t.Helper()
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestSaveAndRead(t *testing.T) {
	s := tempStore(t)
	data := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}
	ref, err := s.Save(data, ".jpg")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(ref, ".jpg") {
		t.Errorf("ref = %q, want .jpg suffix", ref)
	}
	got, err := s.Read(ref)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("content mismatch: got %v", got)
	}
}

func TestSaveIssuesDistinctRefs(t *testing.T) {
	s := tempStore(t)
	a, _ := s.Save([]byte("one"), "png")
	b, _ := s.Save([]byte("one"), "png")
	if a == b {
		t.Errorf("same ref %q for two saves", a)
	}
}

func TestSaveNormalizesExtension(t *testing.T) {
	s := tempStore(t)
	ref, err := s.Save([]byte("x"), "PNG")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasSuffix(ref, ".png") {
		t.Errorf("ref = %q", ref)
	}
}

func TestSaveRejectsBadInput(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Save(nil, ".png"); err == nil {
		t.Error("empty image accepted")
	}
	if _, err := s.Save([]byte("x"), ".exe"); err == nil {
		t.Error("unsupported extension accepted")
	}
}

func TestDelete(t *testing.T) {
	s := tempStore(t)
	ref, _ := s.Save([]byte("bye"), ".png")
	if err := s.Delete(ref); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read(ref); err == nil {
		t.Error("expected error reading deleted image")
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempStore(t)
	cases := []string{
		"../../etc/passwd",
		"../outside.png",
		"/etc/shadow",
		"plain.png",
	}
	for _, ref := range cases {
		if _, err := s.Read(ref); err == nil {
			t.Errorf("expected error for reference %q", ref)
		}
		if err := s.Delete(ref); err == nil {
			t.Errorf("expected delete error for %q", ref)
		}
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := tempStore(t)
	if _, err := s.Save([]byte("data"), ".webp"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".raido-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS("/tmp/raido-does-not-exist-" + t.Name()); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "raido-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}
