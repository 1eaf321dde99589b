package tracking

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-lantern/internal/log"
	"github.com/teslashibe/go-lantern/pkg/camera"
	"github.com/teslashibe/go-lantern/pkg/debug"
	"github.com/teslashibe/go-lantern/pkg/detector"
	"github.com/teslashibe/go-lantern/pkg/frame"
	"github.com/teslashibe/go-lantern/pkg/mask"
	"github.com/teslashibe/go-lantern/pkg/metrics"
	"github.com/teslashibe/go-lantern/pkg/motion"
	"github.com/teslashibe/go-lantern/pkg/prefs"
)

// MaskInfo summarizes the active mask.
type MaskInfo struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Coverage float64 `json:"coverage"`
}

// Snapshot is the published tracker output for one tick.
type Snapshot struct {
	Position      float64     `json:"position"`       // smoothed, [0, 1]
	RawPosition   float64     `json:"raw_position"`   // latest detection
	Speed         float64     `json:"speed"`          // raw speed, units/s
	SmoothedSpeed float64     `json:"smoothed_speed"` // filtered speed
	Found         bool        `json:"found"`          // last frame carried brightness
	Invert        bool        `json:"invert"`
	Ready         bool        `json:"ready"`
	State         string      `json:"state"`
	Camera        camera.Info `json:"camera"`
	Mask          MaskInfo    `json:"mask"`
	DetectionSeq  uint64      `json:"detection_seq"` // increments per debug render
	Frames        uint64      `json:"frames"`        // frames processed
	Clock         float64     `json:"clock"`         // seconds of tick time
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Event types delivered to OnEvent listeners.
const (
	EventCamera = "camera"
	EventMask   = "mask"
	EventInvert = "invert"
)

// Event reports a discrete change in the pipeline.
type Event struct {
	Type   string       `json:"type"`
	Camera *camera.Info `json:"camera,omitempty"`
	Mask   *MaskInfo    `json:"mask,omitempty"`
	Invert *bool        `json:"invert,omitempty"`
	Time   time.Time    `json:"time"`
}

type command struct {
	fn   func(*Tracker) error
	done chan error
}

// Tracker runs the camera -> detector -> smoother pipeline on one goroutine.
//
// Everything except Snapshot and Submit must be called from the loop
// goroutine: either inside Run via Submit, or directly when the caller
// drives Tick itself.
type Tracker struct {
	config Config
	logger *slog.Logger

	session  *camera.Session
	acquirer *frame.Acquirer
	masks    *mask.Store
	detector *detector.Detector
	smoother *motion.Smoother
	metrics  *metrics.Metrics
	prefs    prefs.Store

	clock  float64
	frame  *frame.Frame // last acquired frame, owned by the acquirer
	result detector.Result
	frames uint64

	commands chan command

	mu       sync.RWMutex
	snapshot Snapshot

	snapshotListeners []func(Snapshot)
	eventListeners    []func(Event)

	unsubscribe []func()
}

// New creates a tracker over session and masks.
func New(cfg Config, session *camera.Session, masks *mask.Store) (*Tracker, error) {
	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid tracking config: %v", problems)
	}

	acquirer, err := frame.NewAcquirer(cfg.Orientation)
	if err != nil {
		return nil, err
	}

	if cfg.MaskPolicy == "" {
		cfg.MaskPolicy = "opaque"
	}
	gen, err := mask.Policy(cfg.MaskPolicy)
	if err != nil {
		return nil, err
	}
	masks.SetGenerator(gen)

	t := &Tracker{
		config:   cfg,
		logger:   log.Component("tracker"),
		session:  session,
		acquirer: acquirer,
		masks:    masks,
		detector: detector.New(cfg.Detector),
		smoother: motion.NewSmoother(cfg.Motion),
		commands: make(chan command, 16),
	}

	t.unsubscribe = append(t.unsubscribe,
		session.Subscribe(t.onCameraReady),
		masks.OnChange(t.onMaskChange),
	)
	return t, nil
}

// SetMetrics attaches a metrics sink.
func (t *Tracker) SetMetrics(m *metrics.Metrics) {
	t.metrics = m
}

// SetPrefs attaches the preference store used to persist camera and
// invert changes.
func (t *Tracker) SetPrefs(s prefs.Store) {
	t.prefs = s
}

// OnSnapshot registers fn to receive every published snapshot.
// Listeners run on the loop goroutine and must not block.
func (t *Tracker) OnSnapshot(fn func(Snapshot)) {
	t.snapshotListeners = append(t.snapshotListeners, fn)
}

// OnEvent registers fn to receive camera, mask and invert events.
// Listeners run on the loop goroutine and must not block.
func (t *Tracker) OnEvent(fn func(Event)) {
	t.eventListeners = append(t.eventListeners, fn)
}

// Start loads the mask and selects the configured camera. An unknown
// configured camera falls back to the default index.
func (t *Tracker) Start() error {
	t.masks.LoadOrDefault(image.Point{})

	err := t.session.SelectDevice(t.config.CameraName)
	if errors.Is(err, camera.ErrDeviceNotFound) {
		t.logger.Warn("configured camera missing, using default", "camera", t.config.CameraName)
		err = t.session.SelectIndex(t.session.Config().DefaultIndex)
	}
	t.publish()
	return err
}

// Run ticks the pipeline until ctx is cancelled, then releases the camera.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.config.TickInterval)
	defer ticker.Stop()

	t.logger.Info("tracker started", "tick", t.config.TickInterval)
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			t.Close()
			t.logger.Info("tracker stopped")
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			t.Tick(dt)
		}
	}
}

// Close stops the camera and detaches from the session and mask store.
func (t *Tracker) Close() {
	for _, unsub := range t.unsubscribe {
		unsub()
	}
	t.unsubscribe = nil
	t.session.Stop()
}

// Submit runs fn on the loop goroutine during the next tick and waits for
// its result.
func (t *Tracker) Submit(ctx context.Context, fn func(*Tracker) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case t.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) drainCommands() {
	for {
		select {
		case cmd := <-t.commands:
			err := cmd.fn(t)
			debug.Log("tracker command", "error", err)
			cmd.done <- err
		default:
			return
		}
	}
}

// Tick advances the pipeline by dt.
func (t *Tracker) Tick(dt time.Duration) {
	start := time.Now()

	t.drainCommands()

	secs := dt.Seconds()
	if secs > 0 {
		t.clock += secs
	}

	t.session.Tick()
	if t.session.FrameUpdatedThisTick() {
		t.processFrame()
	}

	t.smoother.Step(secs)
	t.publish()
	t.metrics.ObserveTick(time.Since(start))
}

func (t *Tracker) processFrame() {
	f, err := t.acquirer.Acquire(t.session.Device())
	if err != nil {
		t.metrics.ObserveFrame(false, err)
		debug.DetectLog("frame acquisition failed", "error", err)
		return
	}
	t.frame = f

	m := t.masks.Mask()
	if m == nil || m.Width() != f.Width || m.Height() != f.Height {
		t.masks.Resize(f.Width, f.Height)
		m = t.masks.Mask()
	}

	res, err := t.detector.Detect(f, m, t.config.Invert)
	t.metrics.ObserveFrame(res.Found, err)
	if err != nil {
		t.logger.Warn("detection failed", "error", err)
		return
	}

	t.result = res
	t.frames++
	t.smoother.Observe(res.Position, t.clock)

	debug.DetectLog("detection", "position", res.Position, "found", res.Found, "weight", res.Weight)
}

func (t *Tracker) publish() {
	info := t.session.Info()
	m := t.masks.Mask()

	s := Snapshot{
		Position:      t.smoother.Position(),
		RawPosition:   t.smoother.RawPosition(),
		Speed:         t.smoother.Speed(),
		SmoothedSpeed: t.smoother.SmoothedSpeed(),
		Found:         t.result.Found,
		Invert:        t.config.Invert,
		Ready:         t.session.Ready(),
		State:         t.session.State().String(),
		Camera:        info,
		DetectionSeq:  t.detector.DebugSeq(),
		Frames:        t.frames,
		Clock:         t.clock,
		UpdatedAt:     time.Now(),
	}
	if m != nil {
		s.Mask = maskInfo(m)
	}

	t.mu.Lock()
	t.snapshot = s
	t.mu.Unlock()

	t.metrics.SetSignals(s.Position, s.RawPosition, s.Speed, s.Ready)
	for _, fn := range t.snapshotListeners {
		fn(s)
	}
}

// Snapshot returns the latest published output. Safe from any goroutine.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

func (t *Tracker) emit(e Event) {
	e.Time = time.Now()
	for _, fn := range t.eventListeners {
		fn(e)
	}
}

func (t *Tracker) onCameraReady(info camera.Info) {
	w, h := t.acquirer.Orientation().Size(info.Width, info.Height)
	t.frame = nil
	t.masks.Resize(w, h)
	t.metrics.CameraChanged()
	t.emit(Event{Type: EventCamera, Camera: &info})
}

func (t *Tracker) onMaskChange(m *mask.Mask) {
	mi := maskInfo(m)
	t.metrics.MaskChanged()
	t.emit(Event{Type: EventMask, Mask: &mi})
}

func maskInfo(m *mask.Mask) MaskInfo {
	return MaskInfo{Width: m.Width(), Height: m.Height(), Coverage: m.Coverage()}
}

// Config returns the active configuration.
func (t *Tracker) Config() Config {
	return t.config
}

// Invert reports whether output is mirrored.
func (t *Tracker) Invert() bool {
	return t.config.Invert
}

// SetInvert changes output mirroring. Changing it resets the smoother so
// the indicator does not glide across the whole range.
func (t *Tracker) SetInvert(v bool) {
	if v == t.config.Invert {
		return
	}
	t.config.Invert = v
	t.smoother.Reset()
	t.persist(KeyInvert, v)

	t.logger.Info("invert changed", "invert", v)
	t.emit(Event{Type: EventInvert, Invert: &v})
	t.publish()
}

// SelectCamera switches to the named device and remembers the choice.
func (t *Tracker) SelectCamera(name string) error {
	if err := t.session.SelectDevice(name); err != nil {
		return err
	}
	t.config.CameraName = t.session.Info().Name
	t.persist(KeyCameraName, t.config.CameraName)
	t.publish()
	return nil
}

// SelectCameraIndex switches to the device at index (wrapping).
func (t *Tracker) SelectCameraIndex(index int) error {
	if err := t.session.SelectIndex(index); err != nil {
		return err
	}
	t.config.CameraName = t.session.Info().Name
	t.persist(KeyCameraName, t.config.CameraName)
	t.publish()
	return nil
}

// Cameras lists the available devices.
func (t *Tracker) Cameras() ([]string, error) {
	return t.session.Devices()
}

// UpdateMask regenerates the mask from the most recent frame. The new
// mask is visible in Snapshot on return.
func (t *Tracker) UpdateMask() error {
	if err := t.masks.UpdateMask(t.frame); err != nil {
		return err
	}
	t.publish()
	return nil
}

// SetMask replaces the mask with img. The new mask is visible in Snapshot
// on return.
func (t *Tracker) SetMask(img image.Image) error {
	if err := t.masks.SetMask(img); err != nil {
		return err
	}
	t.publish()
	return nil
}

// SaveMask persists the mask.
func (t *Tracker) SaveMask() error {
	return t.masks.Save()
}

// MaskPNG encodes the active mask.
func (t *Tracker) MaskPNG() ([]byte, error) {
	return t.masks.EncodePNG()
}

// DebugField returns a copy of the last rendered debug field and its
// sequence number, or nil before the first render.
func (t *Tracker) DebugField() (*image.Gray, uint64) {
	return t.detector.DebugField()
}

func (t *Tracker) persist(key string, value any) {
	if t.prefs == nil {
		return
	}
	if err := t.prefs.Set(key, value); err != nil {
		t.logger.Warn("failed to save preference", "key", key, "error", err)
	}
}
