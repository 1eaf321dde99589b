package mask

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/teslashibe/go-lantern/internal/log"
	"github.com/teslashibe/go-lantern/pkg/frame"
)

// ErrNoFrame is returned by UpdateMask when no frame is available.
var ErrNoFrame = errors.New("mask: no frame to derive mask from")

// Store owns the active mask, its persistence and change notifications.
// It is used from the tracker loop only.
type Store struct {
	path      string
	fallback  image.Point
	active    image.Point // current frame size, zero until a camera is ready
	generator Generator
	logger    *slog.Logger

	mask      *Mask
	observers []observer
	nextID    int
}

type observer struct {
	id int
	fn func(*Mask)
}

// NewStore creates a store persisting to path. Until a mask is loaded the
// active mask is an opaque fallbackW x fallbackH mask.
func NewStore(path string, fallbackW, fallbackH int, gen Generator) *Store {
	if gen == nil {
		gen = OpaqueGenerator
	}
	return &Store{
		path:      path,
		fallback:  image.Pt(fallbackW, fallbackH),
		generator: gen,
		logger:    log.Component("mask"),
		mask:      Opaque(fallbackW, fallbackH),
	}
}

// OnChange registers fn to be called with the new mask after every change.
// The returned func removes the observer.
func (s *Store) OnChange(fn func(*Mask)) func() {
	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify() {
	obs := append([]observer(nil), s.observers...)
	for _, o := range obs {
		o.fn(s.mask)
	}
}

// Mask returns the active mask. Callers must not retain it across ticks.
func (s *Store) Mask() *Mask {
	return s.mask
}

// Path returns the persistence path.
func (s *Store) Path() string {
	return s.path
}

// SetGenerator changes the policy used by UpdateMask.
func (s *Store) SetGenerator(g Generator) {
	if g != nil {
		s.generator = g
	}
}

// LoadOrDefault loads the persisted mask, resized to active when known.
// Without a readable file it creates an opaque mask sized to active, or to
// the fallback resolution when no camera is ready (active is zero).
// Observers are notified in every case. It reports whether a file was loaded.
func (s *Store) LoadOrDefault(active image.Point) bool {
	if active.X > 0 && active.Y > 0 {
		s.active = active
	}

	m, err := s.load()
	switch {
	case err == nil:
		if s.active != (image.Point{}) {
			m = m.Resized(s.active.X, s.active.Y)
		}
		s.mask = m
		s.logger.Info("mask loaded", "path", s.path, "size", m.String())
	case errors.Is(err, fs.ErrNotExist):
		s.mask = s.defaultMask()
		s.logger.Info("no saved mask, using default", "size", s.mask.String())
	default:
		s.mask = s.defaultMask()
		s.logger.Warn("unreadable mask, using default", "path", s.path, "error", err)
	}

	s.notify()
	return err == nil
}

func (s *Store) defaultMask() *Mask {
	if s.active != (image.Point{}) {
		return Opaque(s.active.X, s.active.Y)
	}
	return Opaque(s.fallback.X, s.fallback.Y)
}

func (s *Store) load() (*Mask, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("decode %s: empty image", s.path)
	}
	return FromImage(img), nil
}

// SetMask replaces the active mask with img, resized to the active frame.
func (s *Store) SetMask(img image.Image) error {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return fmt.Errorf("mask: empty image")
	}

	m := FromImage(img)
	if s.active != (image.Point{}) && (m.Width() != s.active.X || m.Height() != s.active.Y) {
		m = m.Resized(s.active.X, s.active.Y)
	}
	s.mask = m
	s.notify()
	return nil
}

// Resize adapts the mask to a new frame size, typically after a camera change.
func (s *Store) Resize(w, h int) {
	s.active = image.Pt(w, h)
	if s.mask.Width() != w || s.mask.Height() != h {
		s.logger.Info("resizing mask", "from", s.mask.String(), "width", w, "height", h)
		s.mask = s.mask.Resized(w, h)
	}
	s.notify()
}

// UpdateMask regenerates the mask from f using the configured generator.
func (s *Store) UpdateMask(f *frame.Frame) error {
	if f == nil {
		return ErrNoFrame
	}
	m := New(f.Width, f.Height, 0)
	s.generator(f, m)
	s.active = image.Pt(f.Width, f.Height)
	s.mask = m
	s.logger.Info("mask regenerated", "size", m.String(), "coverage", m.Coverage())
	s.notify()
	return nil
}

// Save writes the active mask as PNG. The file is written to a temp path
// and renamed so a crash never leaves a truncated mask behind.
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create mask directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := s.writePNG(tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename mask: %w", err)
	}
	s.logger.Info("mask saved", "path", s.path, "size", s.mask.String())
	return nil
}

func (s *Store) writePNG(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mask file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close mask file: %w", cerr)
		}
	}()

	if err := png.Encode(f, s.mask.img); err != nil {
		return fmt.Errorf("encode mask: %w", err)
	}
	return nil
}

// EncodePNG returns the active mask as PNG bytes.
func (s *Store) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, s.mask.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
