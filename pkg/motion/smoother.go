package motion

import "math"

// Config holds the smoothing time constants in seconds.
type Config struct {
	SmoothTime      float64 // position filter
	SpeedSmoothTime float64 // speed filter
}

// DefaultConfig matches a nearly raw but jitter-free position.
func DefaultConfig() Config {
	return Config{
		SmoothTime:      0.01,
		SpeedSmoothTime: 0.1,
	}
}

// Smoother holds the smoothing state for one tracked signal.
//
// Observe is called on ticks with a new detection and updates the raw speed.
// Step is called every tick and moves the smoothed values toward the latest
// raw ones, interpolating between sparse detections.
type Smoother struct {
	config Config

	smoothedPosition float64
	positionVelocity float64

	lastRawPosition        float64
	lastDetectionTimestamp float64
	rawSpeed               float64

	smoothedSpeed float64
	speedVelocity float64
}

// NewSmoother creates a smoother at rest at position 0.
func NewSmoother(cfg Config) *Smoother {
	return &Smoother{config: cfg}
}

// Config returns the active time constants.
func (s *Smoother) Config() Config {
	return s.config
}

// SetSmoothTime changes the position time constant.
func (s *Smoother) SetSmoothTime(t float64) {
	s.config.SmoothTime = t
}

// SetSpeedSmoothTime changes the speed time constant.
func (s *Smoother) SetSpeedSmoothTime(t float64) {
	s.config.SpeedSmoothTime = t
}

// Observe records a new raw detection at time now (seconds). The speed is
// only updated when time has advanced since the previous detection.
func (s *Smoother) Observe(position, now float64) {
	dt := now - s.lastDetectionTimestamp
	if dt > 0 && !math.IsInf(dt, 0) {
		s.rawSpeed = (position - s.lastRawPosition) / dt
	}
	s.lastRawPosition = position
	s.lastDetectionTimestamp = now
}

// Step advances the smoothed position and speed by dt seconds.
func (s *Smoother) Step(dt float64) {
	s.smoothedPosition = SmoothDamp(s.smoothedPosition, s.lastRawPosition, &s.positionVelocity, s.config.SmoothTime, 0, dt)
	s.smoothedSpeed = SmoothDamp(s.smoothedSpeed, s.rawSpeed, &s.speedVelocity, s.config.SpeedSmoothTime, 0, dt)
}

// Reset returns every signal and filter state to zero.
func (s *Smoother) Reset() {
	*s = Smoother{config: s.config}
}

// Position returns the smoothed position.
func (s *Smoother) Position() float64 {
	return s.smoothedPosition
}

// Speed returns the raw speed from the last two detections.
func (s *Smoother) Speed() float64 {
	return s.rawSpeed
}

// SmoothedSpeed returns the filtered speed.
func (s *Smoother) SmoothedSpeed() float64 {
	return s.smoothedSpeed
}

// RawPosition returns the last observed raw position.
func (s *Smoother) RawPosition() float64 {
	return s.lastRawPosition
}

// Velocity returns the position filter's internal velocity.
func (s *Smoother) Velocity() float64 {
	return s.positionVelocity
}

// LastDetection returns the timestamp of the last Observe.
func (s *Smoother) LastDetection() float64 {
	return s.lastDetectionTimestamp
}
