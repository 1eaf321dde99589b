package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teslashibe/go-lantern/pkg/camera"
	"github.com/teslashibe/go-lantern/pkg/mask"
	"github.com/teslashibe/go-lantern/pkg/metrics"
	"github.com/teslashibe/go-lantern/pkg/tracking"
)

type testServer struct {
	server   *Server
	tracker  *tracking.Tracker
	maskPath string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	session := camera.NewSession(camera.DefaultConfig(),
		camera.StaticEnumerator{"cam0", "cam1"}, camera.SyntheticOpener(160, 40))
	maskPath := filepath.Join(t.TempDir(), "mask.png")
	masks := mask.NewStore(maskPath, 512, 512, nil)

	cfg := tracking.DefaultConfig()
	cfg.TickInterval = time.Millisecond
	tr, err := tracking.New(cfg, session, masks)
	require.NoError(t, err)

	m := metrics.New()
	tr.SetMetrics(m)
	s := NewServer("0", tr, m)

	require.NoError(t, tr.Start())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return &testServer{server: s, tracker: tr, maskPath: maskPath}
}

func (ts *testServer) do(t *testing.T, method, path string, body io.Reader) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := ts.server.App().Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (ts *testServer) waitReady(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		return ts.tracker.Snapshot().Frames > 0
	}, 5*time.Second, 5*time.Millisecond)
}

func TestServer_Status(t *testing.T) {
	ts := newTestServer(t)
	ts.waitReady(t)

	resp, body := ts.do(t, http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var snap tracking.Snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.True(t, snap.Ready)
	assert.Equal(t, "ready", snap.State)
	assert.Equal(t, "cam0", snap.Camera.Name)
	assert.Equal(t, 160, snap.Camera.Width)
	assert.GreaterOrEqual(t, snap.Position, 0.0)
	assert.LessOrEqual(t, snap.Position, 1.0)
}

func TestServer_Cameras(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodGet, "/api/cameras", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"cameras":["cam0","cam1"],"active":"cam0"}`, string(body))
}

func TestServer_SelectCamera(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"missing name", `{"name":"nope"}`, http.StatusNotFound},
		{"empty", `{}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
		{"by index", `{"index":3}`, http.StatusOK},
		{"by name", `{"name":"cam0"}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.do(t, http.MethodPost, "/api/camera", strings.NewReader(tt.body))
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}

func TestServer_SelectCameraByIndexSwitches(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/camera", strings.NewReader(`{"index":1}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Eventually(t, func() bool {
		snap := ts.tracker.Snapshot()
		return snap.Ready && snap.Camera.Name == "cam1"
	}, 5*time.Second, 5*time.Millisecond)
}

func TestServer_Invert(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/invert", strings.NewReader(`{"invert":true}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"invert":true}`, string(body))
	assert.Eventually(t, func() bool { return ts.tracker.Snapshot().Invert }, time.Second, time.Millisecond)

	// empty body toggles
	resp, body = ts.do(t, http.MethodPost, "/api/invert", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"invert":false}`, string(body))
}

func TestServer_Tuning(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/tuning", strings.NewReader(`{"smooth_time":0.25}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var params tracking.TuningParams
	require.NoError(t, json.Unmarshal(body, &params))
	assert.Equal(t, 0.25, params.SmoothTime)

	resp, _ = ts.do(t, http.MethodPost, "/api/tuning", strings.NewReader(`{"mask_policy":"chroma"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/tuning", strings.NewReader(`{"smooth_time":-1}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// an explicit zero resets the threshold
	resp, body = ts.do(t, http.MethodPost, "/api/tuning", strings.NewReader(`{"threshold":0}`))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	params = tracking.TuningParams{}
	require.NoError(t, json.Unmarshal(body, &params))
	assert.Equal(t, 0.0, params.Threshold)
	assert.Equal(t, 0.25, params.SmoothTime)

	resp, body = ts.do(t, http.MethodGet, "/api/tuning", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &params))
	assert.Equal(t, "opaque", params.MaskPolicy)
}

func TestServer_MaskRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ts.waitReady(t)

	resp, body := ts.do(t, http.MethodGet, "/api/mask", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 160, 40), img.Bounds())

	// left half only, uploaded at a different size
	upload := image.NewGray(image.Rect(0, 0, 8, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			upload.Pix[y*upload.Stride+x] = 255
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, upload))

	req := httptest.NewRequest(http.MethodPut, "/api/mask", &buf)
	req.Header.Set("Content-Type", "image/png")
	resp, err = ts.server.App().Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// the response already reflects the uploaded mask
	var info tracking.MaskInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, 0.5, info.Coverage)
	assert.Equal(t, 160, info.Width)
	assert.Equal(t, 40, info.Height)

	resp, _ = ts.do(t, http.MethodPost, "/api/mask/save", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_, err = os.Stat(ts.maskPath)
	assert.NoError(t, err)
}

func TestServer_PutMaskRejectsGarbage(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPut, "/api/mask", strings.NewReader("not a png"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_UpdateMask(t *testing.T) {
	ts := newTestServer(t)
	ts.waitReady(t)

	resp, body := ts.do(t, http.MethodPost, "/api/mask/update", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var info tracking.MaskInfo
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, 160, info.Width)
	assert.Equal(t, 40, info.Height)
}

func TestServer_DebugPNG(t *testing.T) {
	ts := newTestServer(t)
	ts.waitReady(t)

	resp, body := ts.do(t, http.MethodGet, "/api/debug.png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	img, err := png.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())

	// a cached frame is served again without re-encoding
	_, seq, err := ts.server.debugImage(context.Background())
	require.NoError(t, err)
	again, seq2, err := ts.server.debugImage(context.Background())
	require.NoError(t, err)
	if seq == seq2 {
		assert.Same(t, &ts.server.debugPNG[0], &again[0])
	}
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t)
	ts.waitReady(t)

	resp, body := ts.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "lantern_ticks_total")
	assert.Contains(t, string(body), "lantern_frames_processed_total")
}

func TestServer_WebSocketRequiresUpgrade(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/ws/position", "/ws/events", "/ws/debug"} {
		resp, _ := ts.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode, path)
	}
}
