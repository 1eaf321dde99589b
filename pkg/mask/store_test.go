package mask

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-lantern/pkg/frame"
)

func newTestStore(t *testing.T) (*Store, *int) {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "mask.png"), 512, 512, nil)
	changes := 0
	s.OnChange(func(*Mask) { changes++ })
	return s, &changes
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	s, changes := newTestStore(t)

	loaded := s.LoadOrDefault(image.Point{})
	assert.False(t, loaded)
	assert.Equal(t, 512, s.Mask().Width())
	assert.Equal(t, 512, s.Mask().Height())
	assert.InDelta(t, 1.0, s.Mask().Coverage(), 1e-9, "default mask must be pass-through")
	assert.Equal(t, 1, *changes)

	loaded = s.LoadOrDefault(image.Pt(640, 480))
	assert.False(t, loaded)
	assert.Equal(t, 640, s.Mask().Width())
	assert.Equal(t, 480, s.Mask().Height())
	assert.Equal(t, 2, *changes)
}

func TestLoadOrDefault_CorruptFileFallsBack(t *testing.T) {
	s, changes := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("definitely not a png"), 0644))

	loaded := s.LoadOrDefault(image.Pt(320, 240))
	assert.False(t, loaded)
	assert.Equal(t, 320, s.Mask().Width())
	assert.InDelta(t, 1.0, s.Mask().Coverage(), 1e-9)
	assert.Equal(t, 1, *changes)
}

func TestSaveThenLoad_PreservesWeights(t *testing.T) {
	s, _ := newTestStore(t)
	s.Resize(8, 4)

	m := New(8, 4, 0)
	m.Set(3, 1, 200)
	m.Set(7, 3, 255)
	require.NoError(t, s.SetMask(m.img))
	require.NoError(t, s.Save())

	_, err := os.Stat(s.Path() + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not be left behind")

	other := NewStore(s.Path(), 512, 512, nil)
	require.True(t, other.LoadOrDefault(image.Pt(8, 4)))
	assert.Equal(t, uint8(200), other.Mask().At(3, 1))
	assert.Equal(t, uint8(255), other.Mask().At(7, 3))
	assert.Equal(t, uint8(0), other.Mask().At(0, 0))
}

func TestLoadOrDefault_ResizesToActiveFrame(t *testing.T) {
	s, _ := newTestStore(t)
	s.Resize(4, 4)
	require.NoError(t, s.Save())

	other := NewStore(s.Path(), 512, 512, nil)
	require.True(t, other.LoadOrDefault(image.Pt(16, 8)))
	assert.Equal(t, 16, other.Mask().Width())
	assert.Equal(t, 8, other.Mask().Height())
}

func TestSetMask_ConvertsAndResizes(t *testing.T) {
	s, changes := newTestStore(t)
	s.Resize(10, 10)

	// Color source: left half white, right half black
	src := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 10; x++ {
			src.Set(x, y, color.White)
		}
		for x := 10; x < 20; x++ {
			src.Set(x, y, color.Black)
		}
	}

	require.NoError(t, s.SetMask(src))
	m := s.Mask()
	assert.Equal(t, 10, m.Width())
	assert.Equal(t, 10, m.Height())
	assert.Equal(t, uint8(255), m.At(0, 5))
	assert.Equal(t, uint8(0), m.At(9, 5))
	assert.Equal(t, 2, *changes)

	assert.Error(t, s.SetMask(image.NewGray(image.Rect(0, 0, 0, 0))))
}

func TestUpdateMask_BackgroundPolicy(t *testing.T) {
	s, changes := newTestStore(t)
	s.SetGenerator(BackgroundGenerator(0.5))

	f := frame.New(4, 2)
	f.Set(1, 0, 255, 255, 255) // a lamp in the background
	f.Set(2, 1, 40, 40, 40)

	require.NoError(t, s.UpdateMask(f))
	m := s.Mask()
	assert.Equal(t, uint8(0), m.At(1, 0), "bright background must be masked out")
	assert.Equal(t, uint8(255), m.At(2, 1))
	assert.Equal(t, uint8(255), m.At(0, 0))
	assert.Equal(t, 1, *changes)

	assert.ErrorIs(t, s.UpdateMask(nil), ErrNoFrame)
}

func TestPolicy(t *testing.T) {
	g, err := Policy("opaque")
	require.NoError(t, err)

	m := New(3, 3, 0)
	g(frame.New(3, 3), m)
	assert.InDelta(t, 1.0, m.Coverage(), 1e-9)

	_, err = Policy("nope")
	assert.Error(t, err)
}

func TestOnChange_Unsubscribe(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "mask.png"), 8, 8, nil)
	n := 0
	unsub := s.OnChange(func(*Mask) { n++ })
	s.Resize(4, 4)
	unsub()
	s.Resize(2, 2)
	assert.Equal(t, 1, n)
}

func TestEncodePNG(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "mask.png"), 8, 8, nil)
	data, err := s.EncodePNG()
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}
