// Package image loads background images and describes them for export.
package image

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNotDataURL is returned when a string is not a base64 data URL.
var ErrNotDataURL = errors.New("not a base64 data URL")

// Settings describes the loaded background. It drives the export surface bounds.
type Settings struct {
	SourceWidth  int    `json:"sourceWidth"`
	SourceHeight int    `json:"sourceHeight"`
	FileName     string `json:"fileName"`
	URL          string `json:"url,omitempty"`
}

// Layer is a decoded background image and the bytes it came from.
type Layer struct {
	FileName string
	MIME     string
	Image    image.Image
	data     []byte
}

// Load reads and decodes an image file, honouring EXIF orientation.
func Load(path string) (*Layer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return Decode(data, FileName(path))
}

// Decode decodes raw image bytes.
func Decode(data []byte, fileName string) (*Layer, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return &Layer{
		FileName: fileName,
		MIME:     detectMIME(data, fileName),
		Image:    img,
		data:     data,
	}, nil
}

// LoadDataURL decodes a "data:<mime>;base64,<payload>" string.
func LoadDataURL(dataURL, fileName string) (*Layer, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return nil, ErrNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URL: %w", err)
	}
	return Decode(data, fileName)
}

// DataURL re-encodes the source bytes for embedding in a project file.
func (l *Layer) DataURL() string {
	return "data:" + l.MIME + ";base64," + base64.StdEncoding.EncodeToString(l.data)
}

// Width returns the image width in pixels.
func (l *Layer) Width() int {
	if l == nil || l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (l *Layer) Height() int {
	if l == nil || l.Image == nil {
		return 0
	}
	return l.Image.Bounds().Dy()
}

// Settings returns the export description of the layer.
func (l *Layer) Settings() Settings {
	return Settings{SourceWidth: l.Width(), SourceHeight: l.Height(), FileName: l.FileName}
}

// FileName returns the last path element of a local path or URL. Windows
// separators win when present.
func FileName(path string) string {
	i := strings.LastIndex(path, `\`)
	if i < 0 {
		i = strings.LastIndex(path, "/")
	}
	return path[i+1:]
}

var extMIME = map[string]string{
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

func detectMIME(data []byte, fileName string) string {
	if m := http.DetectContentType(data); strings.HasPrefix(m, "image/") {
		return m
	}
	if m, ok := extMIME[strings.ToLower(filepath.Ext(fileName))]; ok {
		return m
	}
	return "application/octet-stream"
}

// SupportedFormats returns the extensions the decoder understands.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}
}

// IsSupportedFormat checks the extension of path.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range SupportedFormats() {
		if ext == f {
			return true
		}
	}
	return false
}
