package web

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/teslashibe/go-recognition/pkg/frame"
	"github.com/teslashibe/go-recognition/pkg/hub"
	"github.com/teslashibe/go-recognition/pkg/oracle"
	"github.com/teslashibe/go-recognition/pkg/present"
)

// ModelInfo describes a selectable network.
type ModelInfo struct {
	Name         string `json:"name"`
	Architecture string `json:"architecture"`
	Filename     string `json:"filename"`
	Active       bool   `json:"active"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":     "ok",
		"model":      s.classifier.Model().String(),
		"clients":    s.feed.ClientCount(),
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"request_id": requestIDOf(c),
	})
}

func (s *Server) handleModels(c *fiber.Ctx) error {
	active := s.classifier.Model()
	models := make([]ModelInfo, 0, len(oracle.Models()))
	for _, m := range oracle.Models() {
		models = append(models, ModelInfo{
			Name:         m.String(),
			Architecture: m.Architecture(),
			Filename:     m.Filename(),
			Active:       m == active,
		})
	}
	return c.JSON(fiber.Map{"models": models, "request_id": requestIDOf(c)})
}

func (s *Server) handleLatest(c *fiber.Ctx) error {
	ev, ok := s.Latest()
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no classification yet")
	}
	return c.JSON(fiber.Map{"event": ev, "request_id": requestIDOf(c)})
}

// handleClassify decodes the multipart "image" field and runs the pipeline on it.
func (s *Server) handleClassify(c *fiber.Ctx) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing multipart field \"image\"")
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read upload")
	}
	defer f.Close()

	// Header first: a small compressed upload can declare a huge image.
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot decode image: "+err.Error())
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > s.maxPixels/cfg.Height {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, s.maxPixels))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot read upload")
	}

	img, format, err := image.Decode(f)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "cannot decode image: "+err.Error())
	}

	result, err := s.classifier.Classify(c.UserContext(), frame.FromImage(img))
	if err != nil {
		return err
	}

	s.logger.Info("classified upload",
		"request_id", requestIDOf(c),
		"file", fh.Filename,
		"format", format,
		"elapsed", result.Elapsed)

	return c.JSON(fiber.Map{
		"classification": result,
		"request_id":     requestIDOf(c),
	})
}

func (s *Server) handlePredictionsWS(conn *websocket.Conn) {
	client, err := hub.NewClient(s.feed, conn)
	if err != nil {
		s.logger.Debug("rejecting websocket", "error", err)
		conn.Close()
		return
	}
	client.Run()
}

// handleError maps domain errors onto status codes.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	var apiErr *oracle.APIError
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, frame.ErrShape):
		code = fiber.StatusUnprocessableEntity
	case errors.Is(err, present.ErrLabelMismatch), errors.Is(err, oracle.ErrBadOutput):
		code = fiber.StatusBadGateway
	case errors.As(err, &apiErr):
		code = fiber.StatusBadGateway
	}

	if code >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "path", c.Path(), "request_id", requestIDOf(c), "error", err)
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error(), RequestID: requestIDOf(c)})
}
