// Package api exposes import, transactions and recurring templates over HTTP.
package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/tally-dev/tally/internal/app"
	"github.com/tally-dev/tally/internal/buildinfo"
	"github.com/tally-dev/tally/internal/logger"
)

// maxUploadBytes caps statement uploads.
const maxUploadBytes = 32 << 20

// Server holds the HTTP handlers.
type Server struct {
	rt  *app.Runtime
	log zerolog.Logger
}

// New builds the fiber app with all routes registered.
func New(rt *app.Runtime, log zerolog.Logger) *fiber.App {
	s := &Server{rt: rt, log: log}

	f := fiber.New(fiber.Config{
		AppName:               "tally",
		BodyLimit:             maxUploadBytes,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	f.Use(s.requestLogger)

	f.Get("/api/health", s.handleHealth)
	f.Post("/api/import", s.handleImport)
	f.Get("/api/transactions", s.handleTransactions)
	f.Get("/api/recurring", s.handleListTemplates)
	f.Post("/api/recurring", s.handleCreateTemplate)
	f.Post("/api/recurring/process", s.handleProcess)
	f.Get("/api/recurring/upcoming", s.handleUpcoming)
	f.Get("/api/categories/suggest", s.handleSuggest)
	return f
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// handleError renders every error as {"error": "..."}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		log := logger.FromContext(c.UserContext())
		log.Error().Err(err).Msg("request failed")
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// requestLogger logs every request and stores a request-scoped logger in
// the user context for handlers.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	reqLog := s.log.With().Str("method", c.Method()).Str("path", c.Path()).Logger()
	c.SetUserContext(logger.WithContext(c.UserContext(), reqLog))

	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		status = fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
	}

	reqLog.Info().
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("HTTP request")
	return err
}
