// Package project reads and writes saved annotation sessions.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"image-annotator/internal/editor"
	annimage "image-annotator/internal/image"
	"image-annotator/internal/shape"
	"image-annotator/internal/version"
	"image-annotator/pkg/geometry"
)

// Extension is the project file suffix.
const Extension = ".ima"

// ErrNoBackground is returned when a project names no background image.
var ErrNoBackground = errors.New("project has no background")

// File is a saved session. Objects holds the JSON dump of every shape in
// paint order. Canvas projects embed the background as a data URL, deep-zoom
// projects keep its descriptor URL.
type File struct {
	Objects        []json.RawMessage `json:"objects"`
	Mode           editor.Mode       `json:"mode"`
	FileName       string            `json:"fileName"`
	BackgroundURL  string            `json:"backgroundURL,omitempty"`
	BackgroundData string            `json:"backgroundData,omitempty"`
	FileVersion    string            `json:"fileVersion"`

	// Source size, so headless tools can export without decoding.
	SourceWidth  int `json:"sourceWidth,omitempty"`
	SourceHeight int `json:"sourceHeight,omitempty"`
}

// New builds a project from the session state. background is a data URL in
// canvas mode and a descriptor URL in deep-zoom mode.
func New(mode editor.Mode, settings annimage.Settings, background string, shapes []shape.Shape) (*File, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	f := &File{
		Objects:      make([]json.RawMessage, 0, len(shapes)),
		Mode:         mode,
		FileName:     settings.FileName,
		FileVersion:  version.Version,
		SourceWidth:  settings.SourceWidth,
		SourceHeight: settings.SourceHeight,
	}
	if mode == editor.ModeDeepZoom {
		f.BackgroundURL = background
	} else {
		f.BackgroundData = background
	}
	for _, s := range shapes {
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", s.ID(), err)
		}
		f.Objects = append(f.Objects, data)
	}
	return f, nil
}

// Load reads a project file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open project: %w", err)
	}
	return Parse(data)
}

// Parse decodes and checks a project document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse project: %w", err)
	}
	if f.Mode == "" {
		f.Mode = editor.ModeCanvas
	}
	if !f.Mode.Valid() {
		return nil, fmt.Errorf("failed to parse project: unknown mode %q", f.Mode)
	}
	return &f, nil
}

// Save writes the project to path.
func (f *File) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode project: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// Shapes rebuilds the saved shapes in order. A nil tr keeps each shape's
// recorded scale. A shape whose id repeats an earlier one is re-keyed.
func (f *File) Shapes(tr geometry.Transform) ([]shape.Shape, error) {
	out := make([]shape.Shape, 0, len(f.Objects))
	seen := make(map[string]struct{}, len(f.Objects))
	for i, raw := range f.Objects {
		s, err := shape.Decode(raw, tr)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		if _, dup := seen[s.ID()]; dup {
			shape.Rekey(s)
		}
		seen[s.ID()] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// Background decodes the embedded background of a canvas project.
func (f *File) Background() (*annimage.Layer, error) {
	if f.BackgroundData == "" {
		return nil, ErrNoBackground
	}
	return annimage.LoadDataURL(f.BackgroundData, f.FileName)
}

// Settings describes the background for export. The recorded size is used
// when present; otherwise an embedded background is decoded to measure it.
func (f *File) Settings() (annimage.Settings, error) {
	s := annimage.Settings{
		SourceWidth:  f.SourceWidth,
		SourceHeight: f.SourceHeight,
		FileName:     f.FileName,
		URL:          f.BackgroundURL,
	}
	if s.SourceWidth > 0 && s.SourceHeight > 0 {
		return s, nil
	}
	layer, err := f.Background()
	if err != nil {
		return s, err
	}
	s.SourceWidth, s.SourceHeight = layer.Width(), layer.Height()
	return s, nil
}

// DefaultName suggests a project file name for a background file name.
func DefaultName(fileName string) string {
	stem := fileName
	if i := strings.LastIndex(stem, "."); i > 0 {
		stem = stem[:i]
	}
	if stem == "" {
		stem = "untitled"
	}
	return stem + Extension
}
