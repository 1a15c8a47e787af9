// Package web serves classification over HTTP and streams live results
// over a websocket.
package web

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-recognition/internal/log"
	"github.com/teslashibe/go-recognition/pkg/frame"
	"github.com/teslashibe/go-recognition/pkg/hub"
	"github.com/teslashibe/go-recognition/pkg/oracle"
	"github.com/teslashibe/go-recognition/pkg/pipeline"
)

const (
	// DefaultBodyLimit caps uploaded images.
	DefaultBodyLimit = 16 * 1024 * 1024
	// DefaultMaxPixels caps the decoded size of an upload (about 6000x4000).
	DefaultMaxPixels = 24_000_000
)

// Classifier is the part of the pipeline the server needs.
type Classifier interface {
	Classify(ctx context.Context, img frame.RawImage) (pipeline.Classification, error)
	Model() oracle.Model
}

// Event is the websocket payload for one classification.
type Event struct {
	Type           string                  `json:"type"`
	ID             string                  `json:"id"`
	Classification pipeline.Classification `json:"classification"`
}

// Server is the HTTP API and prediction feed.
type Server struct {
	app        *fiber.App
	addr       string
	classifier Classifier
	feed       *hub.Hub
	logger     *slog.Logger
	started    time.Time
	maxPixels  int

	latest   *Event
	latestMu sync.RWMutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxPixels sets the largest width*height accepted by /api/classify.
// Values <= 0 keep DefaultMaxPixels.
func WithMaxPixels(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPixels = n
		}
	}
}

// NewServer builds the app and routes. Nothing listens until Start.
func NewServer(addr string, classifier Classifier, opts ...Option) *Server {
	s := &Server{
		addr:       addr,
		classifier: classifier,
		started:    time.Now(),
		maxPixels:  DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = log.Or(s.logger).With("component", "web")
	s.feed = hub.New("predictions", s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "go-recognition",
		DisableStartupMessage: true,
		BodyLimit:             DefaultBodyLimit,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(requestID)

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/models", s.handleModels)
	api.Get("/latest", s.handleLatest)
	api.Post("/classify", s.handleClassify)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/predictions", websocket.New(s.handlePredictionsWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the prediction feed.
func (s *Server) Hub() *hub.Hub {
	return s.feed
}

// Publish records c as the latest classification and broadcasts it.
// Its signature matches pipeline.Observer.
func (s *Server) Publish(c pipeline.Classification) {
	ev := &Event{Type: "classification", ID: uuid.NewString(), Classification: c}

	s.latestMu.Lock()
	s.latest = ev
	s.latestMu.Unlock()

	if err := s.feed.BroadcastJSON(ev); err != nil {
		s.logger.Warn("encode classification event", "error", err)
	}
}

// Latest returns the most recent event, if any.
func (s *Server) Latest() (Event, bool) {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	if s.latest == nil {
		return Event{}, false
	}
	return *s.latest, true
}

// Start runs the hub and listens on the configured address until ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go s.feed.Run(ctx)
	go func() {
		<-ctx.Done()
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Warn("shutdown", "error", err)
		}
	}()

	s.logger.Info("web server listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// StartAsync runs Start in a goroutine and logs its failure.
func (s *Server) StartAsync(ctx context.Context) {
	go func() {
		if err := s.Start(ctx); err != nil {
			s.logger.Error("web server stopped", "error", err)
		}
	}()
}

// requestID tags every request and response with a uuid.
func requestID(c *fiber.Ctx) error {
	id := c.Get(fiber.HeaderXRequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals("request_id", id)
	c.Set(fiber.HeaderXRequestID, id)
	return c.Next()
}

func requestIDOf(c *fiber.Ctx) string {
	id, _ := c.Locals("request_id").(string)
	return id
}
