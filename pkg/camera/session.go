package camera

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/teslashibe/go-lantern/internal/log"
)

// State is the lifecycle state of a Session.
type State int

const (
	Uninitialized State = iota
	Selecting
	Initializing
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Selecting:
		return "selecting"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Error:
		return "error"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Info describes the active camera once it is ready.
type Info struct {
	Name      string  `json:"name"`
	SessionID string  `json:"session_id"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Ratio     float64 `json:"ratio"`
}

type subscriber struct {
	id int
	fn func(Info)
}

// Session owns the active capture device and its become-ready sequence.
//
// A Session is driven by Tick from a single goroutine and is not safe for
// concurrent use. Readiness is polled once per tick and never blocks.
type Session struct {
	config Config
	enum   Enumerator
	open   Opener
	logger *slog.Logger

	state   State
	device  Device
	info    Info
	lastSeq uint64
	updated bool
	lastErr error

	subscribers []subscriber
	nextSubID   int
}

// NewSession creates a session with no device selected.
func NewSession(cfg Config, enum Enumerator, open Opener) *Session {
	return &Session{
		config: cfg,
		enum:   enum,
		open:   open,
		logger: log.Component("camera"),
	}
}

// Subscribe registers fn to be called each time a camera becomes ready
// or changes resolution. The returned func removes the subscription.
func (s *Session) Subscribe(fn func(Info)) func() {
	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})

	return func() {
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

// Devices returns the enumerated device names.
func (s *Session) Devices() ([]string, error) {
	return s.enum.Devices()
}

// SelectDevice switches to the named device. Selecting the active device is
// a no-op. An empty name selects Config.DefaultIndex.
func (s *Session) SelectDevice(name string) error {
	if name == "" {
		return s.SelectIndex(s.config.DefaultIndex)
	}
	if s.device != nil && name == s.info.Name {
		return nil
	}

	names, err := s.enumerate()
	if err != nil {
		return err
	}
	for _, n := range names {
		if n == name {
			return s.start(name)
		}
	}

	s.logger.Warn("camera not found, keeping current", "requested", name, "current", s.info.Name)
	return fmt.Errorf("%w: %q", ErrDeviceNotFound, name)
}

// SelectIndex switches to the device at index, wrapping modulo the device
// count. A blacklisted device at that index is skipped in favor of the next.
func (s *Session) SelectIndex(index int) error {
	names, err := s.enumerate()
	if err != nil {
		return err
	}

	n := len(names)
	index = ((index % n) + n) % n
	if s.config.IsBlacklisted(names[index]) {
		s.logger.Debug("skipping blacklisted camera", "name", names[index])
		index = (index + 1) % n
	}

	name := names[index]
	if s.device != nil && name == s.info.Name {
		return nil
	}
	return s.start(name)
}

func (s *Session) enumerate() ([]string, error) {
	names, err := s.enum.Devices()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, err)
	}
	if len(names) == 0 {
		return nil, ErrCameraUnavailable
	}
	return names, nil
}

// start stops the current device and starts name. Any pending readiness
// wait for the previous device is abandoned with it.
func (s *Session) start(name string) error {
	s.state = Selecting
	s.stopDevice()

	dev, err := s.open(name)
	if err != nil {
		return s.fail(fmt.Errorf("open camera %q: %w", name, err))
	}
	if err := dev.Start(); err != nil {
		if serr := dev.Stop(); serr != nil {
			s.logger.Warn("failed to stop camera", "name", name, "error", serr)
		}
		return s.fail(fmt.Errorf("start camera %q: %w", name, err))
	}

	s.device = dev
	s.info = Info{Name: name, SessionID: uuid.NewString()}
	s.lastSeq = dev.FrameSeq()
	s.lastErr = nil
	s.state = Initializing

	s.logger.Info("starting camera", "name", name, "session", s.info.SessionID)
	return nil
}

func (s *Session) fail(err error) error {
	s.state = Error
	s.lastErr = err
	s.logger.Error("camera selection failed", "error", err)
	return err
}

func (s *Session) stopDevice() {
	s.updated = false
	if s.device == nil {
		return
	}
	if err := s.device.Stop(); err != nil {
		s.logger.Warn("failed to stop camera", "name", s.info.Name, "error", err)
	}
	s.device = nil
	s.info = Info{}
}

// Stop releases the active device.
func (s *Session) Stop() {
	s.stopDevice()
	s.state = Uninitialized
}

// Tick polls the active device. While initializing it checks readiness;
// once ready it records whether a new frame arrived since the last tick.
// A device reporting a capture error is released and the session enters
// Error.
func (s *Session) Tick() {
	s.updated = false
	if s.device == nil {
		return
	}
	if f, ok := s.device.(Faulter); ok {
		if err := f.Err(); err != nil {
			name := s.info.Name
			s.stopDevice()
			s.fail(fmt.Errorf("camera %q: %w", name, err))
			return
		}
	}

	w, h := s.device.Width(), s.device.Height()
	switch s.state {
	case Initializing:
		if w > s.config.MinReadyWidth {
			s.becomeReady(w, h)
		}
	case Ready:
		if w > s.config.MinReadyWidth && (w != s.info.Width || h != s.info.Height) {
			s.logger.Info("camera resolution changed", "from", fmt.Sprintf("%dx%d", s.info.Width, s.info.Height), "to", fmt.Sprintf("%dx%d", w, h))
			s.becomeReady(w, h)
		}
	}

	if s.state == Ready {
		if seq := s.device.FrameSeq(); seq != s.lastSeq {
			s.lastSeq = seq
			s.updated = true
		}
	}
}

func (s *Session) becomeReady(w, h int) {
	s.info.Width = w
	s.info.Height = h
	s.info.Ratio = 0
	if h > 0 {
		s.info.Ratio = float64(w) / float64(h)
	}
	s.state = Ready

	s.logger.Info("camera ready", "name", s.info.Name, "width", w, "height", h)

	info := s.info
	subs := append([]subscriber(nil), s.subscribers...)
	for _, sub := range subs {
		sub.fn(info)
	}
}

// FrameUpdatedThisTick reports whether the device produced a new frame
// since the previous tick.
func (s *Session) FrameUpdatedThisTick() bool {
	return s.device != nil && s.updated
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Ready reports whether the active device is ready.
func (s *Session) Ready() bool {
	return s.device != nil && s.state == Ready
}

// Info returns the active camera description. Width, Height and Ratio are
// zero until the camera is ready.
func (s *Session) Info() Info {
	return s.info
}

// Device returns the active device, or nil.
func (s *Session) Device() Device {
	return s.device
}

// LastError returns the error that moved the session into Error, if any.
func (s *Session) LastError() error {
	return s.lastErr
}

// Config returns the session configuration.
func (s *Session) Config() Config {
	return s.config
}
