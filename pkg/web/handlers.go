package web

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"

	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/go-lantern/pkg/camera"
	"github.com/teslashibe/go-lantern/pkg/mask"
	"github.com/teslashibe/go-lantern/pkg/tracking"
)

var errNoDebugFrame = errors.New("no debug frame rendered yet")

// errorHandler maps pipeline errors to HTTP statuses
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, camera.ErrDeviceNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, camera.ErrCameraUnavailable):
		code = fiber.StatusServiceUnavailable
	case errors.Is(err, mask.ErrNoFrame), errors.Is(err, errNoDebugFrame):
		code = fiber.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		code = fiber.StatusGatewayTimeout
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// submit runs fn on the tracker loop, bounded by commandTimeout
func (s *Server) submit(c *fiber.Ctx, fn func(*tracking.Tracker) error) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), commandTimeout)
	defer cancel()
	return s.tracker.Submit(ctx, fn)
}

// handleStatus returns the latest tracker snapshot
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.tracker.Snapshot())
}

// handleCameras lists available devices and the active one
func (s *Server) handleCameras(c *fiber.Ctx) error {
	var names []string
	err := s.submit(c, func(t *tracking.Tracker) error {
		var err error
		names, err = t.Cameras()
		return err
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"cameras": names,
		"active":  s.tracker.Snapshot().Camera.Name,
	})
}

// SelectCameraRequest selects a camera by name or by (wrapping) index
type SelectCameraRequest struct {
	Name  string `json:"name"`
	Index *int   `json:"index"`
}

func (s *Server) handleSelectCamera(c *fiber.Ctx) error {
	var req SelectCameraRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Name == "" && req.Index == nil {
		return fiber.NewError(fiber.StatusBadRequest, "name or index required")
	}

	err := s.submit(c, func(t *tracking.Tracker) error {
		if req.Index != nil {
			return t.SelectCameraIndex(*req.Index)
		}
		return t.SelectCamera(req.Name)
	})
	if err != nil {
		return err
	}
	return c.JSON(s.tracker.Snapshot())
}

// InvertRequest sets inversion; an empty body toggles it
type InvertRequest struct {
	Invert *bool `json:"invert"`
}

func (s *Server) handleInvert(c *fiber.Ctx) error {
	var req InvertRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	var invert bool
	err := s.submit(c, func(t *tracking.Tracker) error {
		invert = !t.Invert()
		if req.Invert != nil {
			invert = *req.Invert
		}
		t.SetInvert(invert)
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"invert": invert})
}

func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	var params tracking.TuningParams
	err := s.submit(c, func(t *tracking.Tracker) error {
		params = t.GetTuningParams()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(params)
}

func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var req tracking.TuningUpdate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var params tracking.TuningParams
	err := s.submit(c, func(t *tracking.Tracker) error {
		if err := t.SetTuningParams(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		params = t.GetTuningParams()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(params)
}

// handleGetMask returns the active mask as PNG
func (s *Server) handleGetMask(c *fiber.Ctx) error {
	var data []byte
	err := s.submit(c, func(t *tracking.Tracker) error {
		var err error
		data, err = t.MaskPNG()
		return err
	})
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(data)
}

// handlePutMask replaces the mask with a PNG request body
func (s *Server) handlePutMask(c *fiber.Ctx) error {
	img, err := png.Decode(bytes.NewReader(c.Body()))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "body must be a PNG image")
	}

	err = s.submit(c, func(t *tracking.Tracker) error {
		if err := t.SetMask(img); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(s.tracker.Snapshot().Mask)
}

// handleUpdateMask regenerates the mask from the current frame
func (s *Server) handleUpdateMask(c *fiber.Ctx) error {
	if err := s.submit(c, (*tracking.Tracker).UpdateMask); err != nil {
		return err
	}
	return c.JSON(s.tracker.Snapshot().Mask)
}

func (s *Server) handleSaveMask(c *fiber.Ctx) error {
	if err := s.submit(c, (*tracking.Tracker).SaveMask); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"saved": true})
}

// handleDebugPNG returns the weighted intensity field of the last detection
func (s *Server) handleDebugPNG(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), commandTimeout)
	defer cancel()

	data, _, err := s.debugImage(ctx)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(data)
}

// debugImage returns the debug field as PNG. The field is copied on the
// tracker loop and encoded at most once per detection sequence.
func (s *Server) debugImage(ctx context.Context) ([]byte, uint64, error) {
	seq := s.tracker.Snapshot().DetectionSeq

	s.debugMu.Lock()
	defer s.debugMu.Unlock()

	if s.debugPNG != nil && s.debugSeq == seq {
		return s.debugPNG, s.debugSeq, nil
	}

	var field *image.Gray
	err := s.tracker.Submit(ctx, func(t *tracking.Tracker) error {
		field, seq = t.DebugField()
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if field == nil {
		return nil, 0, errNoDebugFrame
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, field); err != nil {
		return nil, 0, err
	}
	s.debugPNG, s.debugSeq = buf.Bytes(), seq
	return s.debugPNG, seq, nil
}
