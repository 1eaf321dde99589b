// Package web serves the tracker's HTTP API, websocket feeds and metrics.
package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/teslashibe/go-lantern/internal/log"
	"github.com/teslashibe/go-lantern/pkg/debug"
	"github.com/teslashibe/go-lantern/pkg/hub"
	"github.com/teslashibe/go-lantern/pkg/metrics"
	"github.com/teslashibe/go-lantern/pkg/tracking"
)

const (
	// commandTimeout bounds how long a request waits for the tracker loop
	commandTimeout = 2 * time.Second

	// debugStreamInterval is how often /ws/debug checks for a new frame
	debugStreamInterval = 100 * time.Millisecond
)

// Server is the tracker's web server
type Server struct {
	app     *fiber.App
	port    string
	logger  *slog.Logger
	tracker *tracking.Tracker

	// Hubs for websocket broadcast
	positionHub *hub.Hub
	eventHub    *hub.Hub
	debugHub    *hub.Hub

	// Debug PNG cache, keyed by detection sequence
	debugMu  sync.Mutex
	debugSeq uint64
	debugPNG []byte
}

// NewServer creates the server and subscribes it to tracker output. It
// must be called before the tracker loop starts.
func NewServer(port string, tr *tracking.Tracker, m *metrics.Metrics) *Server {
	s := &Server{
		port:        port,
		logger:      log.Component("web"),
		tracker:     tr,
		positionHub: hub.New("position"),
		eventHub:    hub.New("events"),
		debugHub:    hub.New("debug"),
	}

	tr.OnSnapshot(func(snap tracking.Snapshot) {
		if s.positionHub.ClientCount() == 0 {
			return
		}
		if err := s.positionHub.BroadcastJSON(snap); err != nil {
			s.logger.Warn("failed to encode snapshot", "error", err)
		}
	})
	tr.OnEvent(func(e tracking.Event) {
		if err := s.eventHub.BroadcastJSON(e); err != nil {
			s.logger.Warn("failed to encode event", "error", err)
		}
	})

	app := fiber.New(fiber.Config{
		AppName:               "Lantern",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	// CORS for local development
	app.Use(cors.New())
	if debug.Enabled {
		app.Use(logger.New())
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/cameras", s.handleCameras)
	api.Post("/camera", s.handleSelectCamera)
	api.Post("/invert", s.handleInvert)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)
	api.Get("/mask", s.handleGetMask)
	api.Put("/mask", s.handlePutMask)
	api.Post("/mask/update", s.handleUpdateMask)
	api.Post("/mask/save", s.handleSaveMask)
	api.Get("/debug.png", s.handleDebugPNG)

	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/position", websocket.New(s.serve(s.positionHub)))
	app.Get("/ws/events", websocket.New(s.serve(s.eventHub)))
	app.Get("/ws/debug", websocket.New(s.serve(s.debugHub)))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hubs and listens until the server is shut down. The hubs
// stop when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("web server listening", "url", "http://localhost:"+s.port)

	s.runHubs(ctx)
	go s.streamDebug(ctx)

	return s.app.Listen(":" + s.port)
}

func (s *Server) runHubs(ctx context.Context) {
	go s.positionHub.Run(ctx)
	go s.eventHub.Run(ctx)
	go s.debugHub.Run(ctx)
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) serve(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		hub.Serve(h, c)
	}
}

// streamDebug pushes a debug PNG to /ws/debug clients whenever a new
// detection has rendered one.
func (s *Server) streamDebug(ctx context.Context) {
	ticker := time.NewTicker(debugStreamInterval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.debugHub.ClientCount() == 0 {
				continue
			}
			if seq := s.tracker.Snapshot().DetectionSeq; seq == last {
				continue
			}
			cctx, cancel := context.WithTimeout(ctx, commandTimeout)
			data, seq, err := s.debugImage(cctx)
			cancel()
			if err != nil {
				continue
			}
			last = seq
			s.debugHub.BroadcastBinary(data)
		}
	}
}
