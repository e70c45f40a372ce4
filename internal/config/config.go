// Package config loads editor settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"image-annotator/internal/shape"
)

// Config is the root configuration.
type Config struct {
	Appearance          shape.Appearance `yaml:"appearance"`
	TemporaryAppearance shape.Appearance `yaml:"temporary_appearance"`
	Canvas              CanvasConfig     `yaml:"canvas"`
	DeepZoom            DeepZoomConfig   `yaml:"deepzoom"`
	Logger              LoggerConfig     `yaml:"logger"`
	Server              ServerConfig     `yaml:"server"`
}

// CanvasConfig tunes the fixed-canvas pan/zoom renderer.
type CanvasConfig struct {
	ScaleSensitivity float64 `yaml:"scale_sensitivity"`
	MinScale         float64 `yaml:"min_scale"`
	MaxScale         float64 `yaml:"max_scale"`
	ZoomStep         float64 `yaml:"zoom_step"`
	FitMargin        float64 `yaml:"fit_margin"`
	PointRadius      float64 `yaml:"point_radius"`
}

// DeepZoomConfig tunes the tiled viewer.
type DeepZoomConfig struct {
	ZoomPerClick    float64       `yaml:"zoom_per_click"`
	ZoomOutPerClick float64       `yaml:"zoom_out_per_click"`
	MinZoom         float64       `yaml:"min_zoom"`
	MaxZoom         float64       `yaml:"max_zoom"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
}

// LoggerConfig selects log level, format and destination.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ServerConfig is used by the export preview server.
type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	WatchInterval time.Duration `yaml:"watch_interval"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Appearance:          shape.DefaultAppearance,
		TemporaryAppearance: shape.DefaultTemporaryAppearance,
		Canvas: CanvasConfig{
			ScaleSensitivity: 50,
			MinScale:         0.1,
			MaxScale:         2,
			ZoomStep:         10,
			FitMargin:        100,
			PointRadius:      shape.PointRadius,
		},
		DeepZoom: DeepZoomConfig{
			ZoomPerClick:    1.25,
			ZoomOutPerClick: 0.75,
			MinZoom:         0.5,
			MaxZoom:         10,
			FetchTimeout:    15 * time.Second,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Server: ServerConfig{
			Addr:          ":3000",
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  10 * time.Second,
			WatchInterval: 2 * time.Second,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			ApplyEnvOverrides(cfg)
			return cfg, cfg.Validate()
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	ApplyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides lets a few settings be changed without a file.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ANNOTATOR_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("ANNOTATOR_LOG_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("ANNOTATOR_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}

// Validate rejects settings the editor cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Canvas.MinScale <= 0 || c.Canvas.MaxScale < c.Canvas.MinScale {
		errs = append(errs, fmt.Errorf("canvas: scale range [%g, %g] is invalid", c.Canvas.MinScale, c.Canvas.MaxScale))
	}
	if c.Canvas.ScaleSensitivity <= 0 {
		errs = append(errs, errors.New("canvas: scale_sensitivity must be positive"))
	}
	if c.DeepZoom.MinZoom <= 0 || c.DeepZoom.MaxZoom < c.DeepZoom.MinZoom {
		errs = append(errs, fmt.Errorf("deepzoom: zoom range [%g, %g] is invalid", c.DeepZoom.MinZoom, c.DeepZoom.MaxZoom))
	}
	if c.DeepZoom.ZoomPerClick <= 1 || c.DeepZoom.ZoomOutPerClick <= 0 || c.DeepZoom.ZoomOutPerClick >= 1 {
		errs = append(errs, errors.New("deepzoom: zoom_per_click must be > 1 and zoom_out_per_click in (0, 1)"))
	}
	if c.Appearance.LineWidth < 0 || c.TemporaryAppearance.LineWidth < 0 {
		errs = append(errs, errors.New("appearance: line_width must not be negative"))
	}
	return errors.Join(errs...)
}
