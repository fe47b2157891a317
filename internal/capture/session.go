// Package capture implements the workflow that turns a slip image into
// a confirmed record via an external recognition step.
package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// State names the workflow position of a capture session.
type State string

// Workflow states. Confirmed and Cancelled are terminal for a capture
// instance and immediately reset the session to idle, so they are
// never observed as a stored state.
const (
	StateIdle          State = "idle"
	StateTypeSelected  State = "type_selected"
	StateAwaitingImage State = "awaiting_image"
	StateRecognizing   State = "recognizing"
	StateReviewing     State = "reviewing"
)

// Inserter is the repository surface a confirmed draft is committed to.
type Inserter interface {
	Insert(s models.Slip) models.Slip
}

// Config bounds the recognition call and sets the review warning
// threshold.
type Config struct {
	Timeout       time.Duration // recognition deadline; 0 means 30s
	LowConfidence float64       // warn below this percentage; 0 means 90
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.LowConfidence <= 0 {
		c.LowConfidence = 90
	}
	return c
}

// Session is a capture workflow instance. The mutex plus the state
// field enforce the transition rules: in particular, a second image
// cannot be submitted while a recognition call is outstanding, because
// the recognizing state itself rejects it.
type Session struct {
	cfg  Config
	rec  Recognizer
	repo Inserter

	mu        sync.Mutex
	state     State
	slipType  models.SlipType
	imageRef  string
	fields    Fields
	gen       uint64 // bumped on cancel/rescan/re-select so a late recognition result is ignored
	onDiscard func(ref string)
}

// NewSession creates an idle capture session.
func NewSession(rec Recognizer, repo Inserter, cfg Config) *Session {
	return &Session{
		cfg:   cfg.withDefaults(),
		rec:   rec,
		repo:  repo,
		state: StateIdle,
	}
}

// OnDiscard registers fn to receive preview refs the session no longer
// needs, so their stored images can be removed. Pass nil to disable.
func (s *Session) OnDiscard(fn func(ref string)) {
	s.mu.Lock()
	s.onDiscard = fn
	s.mu.Unlock()
}

// dropImage clears the stored preview ref and returns a function that
// reports it to the discard callback. Call with the lock held, run the
// result after unlocking.
func (s *Session) dropImage() func() {
	ref := s.imageRef
	s.imageRef = ""
	if ref == "" || s.onDiscard == nil {
		return func() {}
	}
	cb := s.onDiscard
	return func() { cb(ref) }
}

// Snapshot is a read-only view of the session for rendering.
type Snapshot struct {
	State         State           `json:"state"`
	SlipType      models.SlipType `json:"slip_type,omitempty"`
	ImageRef      string          `json:"image_ref,omitempty"`
	Fields        Fields          `json:"fields"`
	LowConfidence bool            `json:"low_confidence"`
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:         s.state,
		SlipType:      s.slipType,
		ImageRef:      s.imageRef,
		Fields:        s.fields,
		LowConfidence: s.state == StateReviewing && s.fields.Confidence < s.cfg.LowConfidence,
	}
}

// State returns the current workflow state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SelectType chooses the slip type for the capture. Re-selecting from
// awaiting-image or reviewing is permitted and discards any in-progress
// recognition output. Not allowed while a recognition call is
// outstanding.
func (s *Session) SelectType(t models.SlipType) error {
	if !t.Valid() {
		return fmt.Errorf("unknown slip type %q", t)
	}
	s.mu.Lock()
	if s.state == StateRecognizing {
		s.mu.Unlock()
		return apperr.ErrInvalidState
	}
	s.gen++
	s.slipType = t
	s.fields = Fields{}
	s.state = StateTypeSelected
	notify := s.dropImage()
	s.mu.Unlock()
	notify()
	return nil
}

// AttachImage submits an acquired image for recognition and blocks
// until the collaborator resolves or the configured timeout elapses.
// ref is the stored preview reference for the image. On success the
// session moves to reviewing and the recognized fields are returned;
// on failure the session falls back to awaiting-image and no partial
// draft is kept.
func (s *Session) AttachImage(ctx context.Context, image []byte, ref string) (Fields, error) {
	s.mu.Lock()
	switch s.state {
	case StateTypeSelected, StateAwaitingImage:
	default:
		s.mu.Unlock()
		return Fields{}, apperr.ErrInvalidState
	}
	s.gen++
	gen := s.gen
	slipType := s.slipType
	s.imageRef = ref
	s.state = StateRecognizing
	s.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	fields, err := s.rec.Recognize(rctx, image, slipType)
	cancel()

	s.mu.Lock()
	if s.gen != gen {
		// The capture was cancelled or re-targeted while the call was
		// in flight; the result must not resurrect the draft.
		s.mu.Unlock()
		return Fields{}, apperr.ErrInvalidState
	}
	if err != nil {
		s.fields = Fields{}
		s.state = StateAwaitingImage
		notify := s.dropImage()
		s.mu.Unlock()
		notify()
		return Fields{}, fmt.Errorf("%w: %v", apperr.ErrRecognitionFailed, err)
	}
	s.fields = fields
	s.state = StateReviewing
	s.mu.Unlock()
	return fields, nil
}

// SetFields replaces the editable draft fields during review. The
// confidence score is kept from the recognition result.
func (s *Session) SetFields(f Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReviewing {
		return apperr.ErrNoEdit
	}
	f.Confidence = s.fields.Confidence
	s.fields = f
	return nil
}

// Confirm validates the reviewed draft, commits it to the repository
// with OCR provenance, and resets the session. A validation failure
// leaves the session in reviewing so the user can correct the fields.
func (s *Session) Confirm() (models.Slip, error) {
	s.mu.Lock()
	if s.state != StateReviewing {
		s.mu.Unlock()
		return models.Slip{}, apperr.ErrInvalidState
	}

	f := s.fields
	if err := (validation.Errors{
		"trip_number":    validation.Validate(strings.TrimSpace(f.TripNumber), validation.Required),
		"vehicle_number": validation.Validate(strings.TrimSpace(f.VehicleNumber), validation.Required),
	}).Filter(); err != nil {
		s.mu.Unlock()
		return models.Slip{}, err
	}

	date := f.Date
	if date == "" {
		date = models.Today()
	}
	notes := f.Notes
	if strings.TrimSpace(notes) == "" {
		notes = fmt.Sprintf("OCR Confidence: %.0f%%", f.Confidence)
	}

	slip := s.repo.Insert(models.Slip{
		Type:          s.slipType,
		Date:          date,
		TripNumber:    strings.TrimSpace(f.TripNumber),
		VehicleNumber: strings.TrimSpace(f.VehicleNumber),
		DriverName:    strings.TrimSpace(f.DriverName),
		Amount:        f.Amount,
		Quantity:      f.Quantity,
		Location:      strings.TrimSpace(f.Location),
		Notes:         notes,
		OCRProcessed:  true,
	})

	notify := s.reset()
	s.mu.Unlock()
	notify()
	return slip, nil
}

// Rescan discards the recognition output and preview and returns to
// awaiting-image.
func (s *Session) Rescan() error {
	s.mu.Lock()
	if s.state != StateReviewing {
		s.mu.Unlock()
		return apperr.ErrInvalidState
	}
	s.gen++
	s.fields = Fields{}
	s.state = StateAwaitingImage
	notify := s.dropImage()
	s.mu.Unlock()
	notify()
	return nil
}

// Cancel discards the entire draft and returns to idle. Cancelling
// while a recognition call is in flight defers: the eventual result is
// ignored.
func (s *Session) Cancel() {
	s.mu.Lock()
	notify := s.reset()
	s.mu.Unlock()
	notify()
}

// reset must be called with the lock held. The returned func reports
// the discarded preview ref and must run after unlocking.
func (s *Session) reset() func() {
	s.gen++
	s.slipType = ""
	s.fields = Fields{}
	s.state = StateIdle
	return s.dropImage()
}
