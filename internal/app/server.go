package app

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"image-annotator/internal/config"
	"image-annotator/internal/export"
	"image-annotator/internal/project"
)

// Source yields the export texts served by the preview server. *State and
// *Snapshot both satisfy it.
type Source interface {
	XML() (string, error)
	JSON() (string, error)
}

// ============================================================
// Project Snapshot
// ============================================================

// Snapshot is the export of a project file as of its last load.
type Snapshot struct {
	path   string
	logger *slog.Logger

	mu   sync.RWMutex
	xml  string
	json string
}

// LoadSnapshot reads a project file and renders its exports.
func LoadSnapshot(path string, log *slog.Logger) (*Snapshot, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Snapshot{path: path, logger: log}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the project file. On failure the previous exports stay.
func (s *Snapshot) Reload() error {
	f, err := project.Load(s.path)
	if err != nil {
		return err
	}
	settings, err := f.Settings()
	if err != nil {
		return err
	}
	shapes, err := f.Shapes(nil)
	if err != nil {
		return err
	}
	xml, err := export.XML(settings, shapes)
	if err != nil {
		return err
	}
	js, err := export.JSON(shapes)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.xml, s.json = xml, js
	s.mu.Unlock()
	s.logger.Info("project snapshot loaded", "path", s.path, "shapes", len(shapes))
	return nil
}

// XML implements Source.
func (s *Snapshot) XML() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.xml, nil
}

// JSON implements Source.
func (s *Snapshot) JSON() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.json, nil
}

// ============================================================
// Preview Server
// ============================================================

// NewPreviewServer serves the exports of src over HTTP.
func NewPreviewServer(src Source, cfg config.ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		AppName:      "TEI Preview",
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	app.Get("/health/live", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/tei.xml", func(c fiber.Ctx) error {
		text, err := src.XML()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		c.Type("xml", "utf-8")
		return c.SendString(text)
	})

	app.Get("/objects.json", func(c fiber.Ctx) error {
		text, err := src.JSON()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set("Content-Type", "application/json; charset=utf-8")
		return c.SendString(text)
	})

	return app
}
