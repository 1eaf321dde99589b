package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveFrame(t *testing.T) {
	m := New()
	m.ObserveFrame(true, nil)
	m.ObserveFrame(false, nil)
	m.ObserveFrame(false, errors.New("boom"))

	if got := testutil.ToFloat64(m.FramesProcessed); got != 2 {
		t.Errorf("FramesProcessed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.EmptyFrames); got != 1 {
		t.Errorf("EmptyFrames = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DetectErrors); got != 1 {
		t.Errorf("DetectErrors = %v, want 1", got)
	}
}

func TestSignalsAndTicks(t *testing.T) {
	m := New()
	m.SetSignals(0.4, 0.5, -0.2, true)
	m.ObserveTick(2 * time.Millisecond)
	m.CameraChanged()
	m.MaskChanged()
	m.MaskChanged()

	if got := testutil.ToFloat64(m.Position); got != 0.4 {
		t.Errorf("Position = %v", got)
	}
	if got := testutil.ToFloat64(m.CameraReady); got != 1 {
		t.Errorf("CameraReady = %v", got)
	}
	if got := testutil.ToFloat64(m.Ticks); got != 1 {
		t.Errorf("Ticks = %v", got)
	}
	if got := testutil.ToFloat64(m.MaskChanges); got != 2 {
		t.Errorf("MaskChanges = %v", got)
	}

	if n, err := testutil.GatherAndCount(m.Registry()); err != nil || n == 0 {
		t.Errorf("expected gathered metrics, got %d (%v)", n, err)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTick(time.Millisecond)
	m.ObserveFrame(true, nil)
	m.SetSignals(0, 0, 0, false)
	m.CameraChanged()
	m.MaskChanged()
}
