// Package export derives the TEI facsimile XML and the JSON dump from the
// live annotation list. Nothing is cached; callers re-run it after every change.
package export

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/alecthomas/chroma/v2/quick"

	annimage "image-annotator/internal/image"
	"image-annotator/internal/shape"
)

const facsimileTemplate = `<facsimile>
  <surface ulx="0" uly="0" lrx="{{.Width}}" lry="{{.Height}}">
    <graphic url="/{{attr .FileName}}"/>
{{range .Zones}}    <zone xml:id="{{attr .ID}}" {{if .Polygon}}points="{{.Points}}"{{else}}ulx="{{.Box.X}}" uly="{{.Box.Y}}" lrx="{{.Box.RX}}" lry="{{.Box.RY}}"{{end}}/>
{{end}}  </surface>
</facsimile>
`

var facsimile = template.Must(template.New("facsimile").Funcs(template.FuncMap{
	"attr": escapeAttr,
}).Parse(facsimileTemplate))

type zone struct {
	ID      string
	Polygon bool
	Points  string
	Box     shape.ScaledRect
}

type document struct {
	Width    int
	Height   int
	FileName string
	Zones    []zone
}

type boxed interface {
	Scaled() shape.ScaledRect
}

type pointed interface {
	PointsString() string
}

// ZoneID builds the identifier of the index-th zone (1-based). The stem is
// the file name up to its first dot, and only its last three characters
// (runes) are kept.
func ZoneID(fileName string, index int) string {
	stem := fileName
	if i := strings.Index(stem, "."); i >= 0 {
		stem = stem[:i]
	}
	if r := []rune(stem); len(r) > 3 {
		stem = string(r[len(r)-3:])
	}
	return fmt.Sprintf("fol-%s--%d", stem, index)
}

// WriteXML renders the facsimile for settings and shapes, in paint order.
// Shapes that are neither boxes nor point lists are skipped but still count
// toward the zone numbering.
func WriteXML(w io.Writer, settings annimage.Settings, shapes []shape.Shape) error {
	doc := document{
		Width:    settings.SourceWidth,
		Height:   settings.SourceHeight,
		FileName: settings.FileName,
	}
	for i, s := range shapes {
		z := zone{ID: ZoneID(settings.FileName, i+1)}
		switch v := s.(type) {
		case boxed:
			z.Box = v.Scaled()
		case pointed:
			z.Polygon = true
			z.Points = v.PointsString()
		default:
			continue
		}
		doc.Zones = append(doc.Zones, z)
	}
	if err := facsimile.Execute(w, doc); err != nil {
		return fmt.Errorf("failed to render facsimile: %w", err)
	}
	return nil
}

// XML returns the facsimile as a string.
func XML(settings annimage.Settings, shapes []shape.Shape) (string, error) {
	var buf bytes.Buffer
	if err := WriteXML(&buf, settings, shapes); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// JSON returns the indented dump of shapes. An empty list yields "[]".
func JSON(shapes []shape.Shape) (string, error) {
	if shapes == nil {
		shapes = []shape.Shape{}
	}
	data, err := json.MarshalIndent(shapes, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode shapes: %w", err)
	}
	return string(data), nil
}

func escapeAttr(s string) string {
	var b strings.Builder
	// strings.Builder never fails
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// Highlight writes source coloured for a 256-colour terminal. lexer is a
// chroma lexer name such as "xml" or "json".
func Highlight(w io.Writer, source, lexer string) error {
	if err := quick.Highlight(w, source, lexer, "terminal256", "monokai"); err != nil {
		return fmt.Errorf("failed to highlight %s: %w", lexer, err)
	}
	return nil
}
