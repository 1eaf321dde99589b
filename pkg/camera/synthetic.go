package camera

import (
	"math"
	"sync"
	"time"
)

// Synthetic is a generated device: a dark scene with one bright blob
// sweeping horizontally. It reports 0x0 for the first Warmup polls of
// Width, like real cameras do while they negotiate a format.
type Synthetic struct {
	name   string
	width  int
	height int

	Warmup     int           // Width polls reporting 0 after Start
	Period     time.Duration // Full left-right-left sweep
	FPS        float64       // Frame sequence rate
	BlobRadius int
	Background uint8
	Now        func() time.Time

	mu      sync.Mutex
	started bool
	start   time.Time
	polls   int
}

// NewSynthetic creates a w x h synthetic device.
func NewSynthetic(name string, w, h int) *Synthetic {
	return &Synthetic{
		name:       name,
		width:      w,
		height:     h,
		Warmup:     3,
		Period:     4 * time.Second,
		FPS:        30,
		BlobRadius: max(2, w/40),
		Background: 16,
		Now:        time.Now,
	}
}

// SyntheticOpener returns an Opener producing w x h synthetic devices.
func SyntheticOpener(w, h int) Opener {
	return func(name string) (Device, error) {
		return NewSynthetic(name, w, h), nil
	}
}

func (s *Synthetic) Name() string { return s.name }

func (s *Synthetic) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	s.start = s.Now()
	s.polls = 0
	return nil
}

func (s *Synthetic) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}

func (s *Synthetic) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return 0
	}
	if s.polls < s.Warmup {
		s.polls++
		return 0
	}
	return s.width
}

func (s *Synthetic) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.warm() {
		return 0
	}
	return s.height
}

func (s *Synthetic) warm() bool {
	return s.started && s.polls >= s.Warmup
}

// FrameSeq advances at FPS from Start.
func (s *Synthetic) FrameSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.warm() {
		return 0
	}
	return uint64(s.Now().Sub(s.start).Seconds()*s.FPS) + 1
}

// BlobX returns the normalized horizontal blob position at the current time.
func (s *Synthetic) BlobX() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobX()
}

func (s *Synthetic) blobX() float64 {
	if s.Period <= 0 {
		return 0.5
	}
	phase := s.Now().Sub(s.start).Seconds() / s.Period.Seconds()
	return 0.5 + 0.4*math.Sin(2*math.Pi*phase)
}

// ReadPixels renders the current frame as RGBA into dst.
func (s *Synthetic) ReadPixels(dst []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.warm() {
		return ErrNotReady
	}
	if err := checkBuffer(dst, s.width, s.height); err != nil {
		return err
	}

	cx := int(s.blobX() * float64(s.width))
	cy := s.height / 2
	r := s.BlobRadius
	r2 := r * r

	for y := 0; y < s.height; y++ {
		row := dst[y*s.width*4 : (y+1)*s.width*4]
		for x := 0; x < s.width; x++ {
			v := s.Background
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r2 {
				v = 255
			}
			i := x * 4
			row[i], row[i+1], row[i+2], row[i+3] = v, v, v, 255
		}
	}
	return nil
}
