// Package server exposes the ingestion pipeline over HTTP. It owns
// request parsing, auth, and status mapping only; all backup semantics
// live in the backup package.
package server

import (
	"github.com/gofiber/fiber/v2"

	"pbserver/internal/backup"
	"pbserver/internal/identity"
)

// APIVersion is reported by the health and status endpoints.
const APIVersion = "1.0.0"

// maxUploadBytes caps a single upload request body. Videos from phones
// run large; 1 GiB leaves ample headroom.
const maxUploadBytes = 1 << 30

// Server wires the HTTP routes to the ingestion pipeline.
type Server struct {
	app         *fiber.App
	service     *backup.Service
	ident       *identity.Identity
	serviceName string
	logger      backup.Logger
}

// New creates the HTTP server around the given pipeline and identity.
func New(service *backup.Service, ident *identity.Identity, serviceName string, logger backup.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		BodyLimit:             maxUploadBytes,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		app:         app,
		service:     service,
		ident:       ident,
		serviceName: serviceName,
		logger:      logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Use(RequestLogger(s.logger))

	s.app.Get("/", s.handleRoot)
	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/api/status", s.handleStatus)

	files := s.app.Group("/api/files", APIKey(s.ident.APIKey, s.logger))
	files.Post("/check", s.handleCheck)
	files.Post("/upload", s.handleUpload)
	files.Get("/stats", s.handleStats)
}

// Listen serves requests on addr until the app is shut down.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server, draining in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":    s.serviceName,
		"version": APIVersion,
		"status":  "running",
	})
}
