package project

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-annotator/internal/editor"
	annimage "image-annotator/internal/image"
	"image-annotator/internal/shape"
	"image-annotator/internal/version"
	"image-annotator/pkg/geometry"
)

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func sampleShapes(t *testing.T) []shape.Shape {
	t.Helper()
	r := shape.NewRectangle(geometry.NewRect(10, 20, 30, 40), geometry.ScaleTransform(2), shape.DefaultAppearance)
	p, ok := shape.NewPolygon([]geometry.Point2D{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 5, Y: 8}}, geometry.ScaleTransform(0.5), shape.DefaultAppearance)
	require.True(t, ok)
	return []shape.Shape{r, p}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	shapes := sampleShapes(t)
	settings := annimage.Settings{SourceWidth: 6, SourceHeight: 4, FileName: "leaf-007.png"}
	f, err := New(editor.ModeCanvas, settings, pngDataURL(t, 6, 4), shapes)
	require.NoError(t, err)
	assert.Equal(t, version.Version, f.FileVersion)
	assert.Empty(t, f.BackgroundURL)

	path := filepath.Join(t.TempDir(), DefaultName(settings.FileName))
	assert.Equal(t, "leaf-007.ima", filepath.Base(path))
	require.NoError(t, f.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, editor.ModeCanvas, loaded.Mode)
	assert.Equal(t, "leaf-007.png", loaded.FileName)

	got, err := loaded.Shapes(nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range shapes {
		assert.Equal(t, shapes[i].ID(), got[i].ID())
		assert.Equal(t, shapes[i].Kind(), got[i].Kind())
	}
	assert.Equal(t, shapes[0].(*shape.Rectangle).Scaled(), got[0].(*shape.Rectangle).Scaled())
	assert.Equal(t, shapes[1].(*shape.Polygon).PointsString(), got[1].(*shape.Polygon).PointsString())

	layer, err := loaded.Background()
	require.NoError(t, err)
	assert.Equal(t, 6, layer.Width())
}

func TestDeepZoomProjectKeepsURL(t *testing.T) {
	settings := annimage.Settings{SourceWidth: 4000, SourceHeight: 3000, FileName: "scan.dzi"}
	f, err := New(editor.ModeDeepZoom, settings, "https://example.org/scan.dzi", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/scan.dzi", f.BackgroundURL)
	assert.Empty(t, f.BackgroundData)
	assert.NotNil(t, f.Objects)

	s, err := f.Settings()
	require.NoError(t, err)
	assert.Equal(t, 4000, s.SourceWidth)

	_, err = f.Background()
	assert.ErrorIs(t, err, ErrNoBackground)
}

func TestSettingsMeasuresEmbeddedBackground(t *testing.T) {
	f := &File{FileName: "a.png", BackgroundData: pngDataURL(t, 9, 3)}
	s, err := f.Settings()
	require.NoError(t, err)
	assert.Equal(t, annimage.Settings{SourceWidth: 9, SourceHeight: 3, FileName: "a.png"}, s)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("{"))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"mode":"Paper"}`))
	assert.Error(t, err)

	f, err := Parse([]byte(`{"objects":[{"name":"Circle"}]}`))
	require.NoError(t, err)
	assert.Equal(t, editor.ModeCanvas, f.Mode)
	_, err = f.Shapes(nil)
	assert.ErrorIs(t, err, shape.ErrUnknownShape)
}

func TestShapesRekeysDuplicateIDs(t *testing.T) {
	f, err := Parse([]byte(`{"objects":[
		{"name":"Rectangle","id":"a","x":1,"y":2,"width":3,"height":4,"scale":1},
		{"name":"Rectangle","id":"a","x":5,"y":6,"width":7,"height":8,"scale":1},
		{"name":"Rectangle","id":"b","x":9,"y":9,"width":1,"height":1,"scale":1}
	]}`))
	require.NoError(t, err)
	got, err := f.Shapes(nil)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].ID())
	assert.NotEqual(t, "a", got[1].ID())
	assert.True(t, strings.HasPrefix(got[1].ID(), "Rectangle-"), got[1].ID())
	assert.Equal(t, "b", got[2].ID())
	assert.Equal(t, shape.ScaledRect{X: 5, Y: 6, RX: 12, RY: 14, Width: 7, Height: 8}, got[1].(*shape.Rectangle).Scaled())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ima"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewRejectsUnknownMode(t *testing.T) {
	_, err := New("Paper", annimage.Settings{}, "", nil)
	assert.Error(t, err)
}

func TestDefaultName(t *testing.T) {
	assert.Equal(t, "untitled.ima", DefaultName(""))
	assert.Equal(t, "scan.tar.ima", DefaultName("scan.tar.gz"))
	assert.Equal(t, ".hidden.ima", DefaultName(".hidden"))
}
