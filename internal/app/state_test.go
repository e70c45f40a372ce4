package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-annotator/internal/config"
	"image-annotator/internal/editor"
	"image-annotator/internal/project"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{G: 200, A: 255})
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func newTestState(t *testing.T) *State {
	t.Helper()
	s := NewState(config.Defaults(), testLogger())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func loadedState(t *testing.T) *State {
	t.Helper()
	s := newTestState(t)
	require.NoError(t, s.LoadImage(writePNG(t, t.TempDir(), "folio-321.png", 200, 150)))
	return s
}

func drawRectangle(s *State, x0, y0, x1, y1 float64) {
	_ = s.SetTool(editor.ToolRectangle)
	s.Dispatch(editor.Down(x0, y0))
	s.Dispatch(editor.Drag(x1, y1))
	s.Dispatch(editor.Up(x1, y1))
}

func TestLoadImageSizesSurfaces(t *testing.T) {
	s := newTestState(t)
	var loaded []interface{}
	s.On(EventImageLoaded, func(data interface{}) { loaded = append(loaded, data) })

	assert.False(t, s.Ready())
	require.NoError(t, s.LoadImage(writePNG(t, t.TempDir(), "folio-321.png", 200, 150)))
	assert.True(t, s.Ready())
	assert.Equal(t, editor.ModeCanvas, s.Mode())

	settings := s.Settings()
	assert.Equal(t, 200, settings.SourceWidth)
	assert.Equal(t, 150, settings.SourceHeight)
	assert.Equal(t, "folio-321.png", settings.FileName)
	w, h := s.Canvas().Storage().Size()
	assert.Equal(t, 200, w)
	assert.Equal(t, 150, h)
	assert.Len(t, loaded, 1)
	assert.False(t, s.Modified())
}

func TestLoadImageMissingFile(t *testing.T) {
	s := newTestState(t)
	err := s.LoadImage(filepath.Join(t.TempDir(), "nope.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, s.Ready())
}

func TestLoadImageAsyncInstallsBeforeCallback(t *testing.T) {
	s := newTestState(t)
	path := writePNG(t, t.TempDir(), "a.png", 20, 10)
	done := make(chan error, 1)
	s.LoadImageAsync(path, func(err error) {
		if err == nil && s.Settings().SourceWidth != 20 {
			err = errors.New("settings not populated")
		}
		done <- err
	})
	require.NoError(t, <-done)
	assert.True(t, s.Ready())
}

func TestNewImageClearsShapes(t *testing.T) {
	s := loadedState(t)
	drawRectangle(s, 10, 10, 50, 50)
	require.Equal(t, 1, s.Collection().Len())

	require.NoError(t, s.LoadImage(writePNG(t, t.TempDir(), "b.png", 40, 40)))
	assert.Zero(t, s.Collection().Len())
}

func TestDispatchDrawsAndSwitchesToCursor(t *testing.T) {
	s := loadedState(t)
	var tools []editor.Tool
	s.On(EventToolChanged, func(data interface{}) { tools = append(tools, data.(editor.Tool)) })
	changes := 0
	s.On(EventShapesChanged, func(interface{}) { changes++ })

	drawRectangle(s, 10, 20, 60, 80)
	assert.Equal(t, editor.ToolCursor, s.Tool())
	assert.Equal(t, []editor.Tool{editor.ToolRectangle, editor.ToolCursor}, tools)
	assert.Equal(t, 1, changes)
	assert.True(t, s.Modified())

	xml, err := s.XML()
	require.NoError(t, err)
	assert.Contains(t, xml, `<zone xml:id="fol-321--1" ulx="10" uly="20" lrx="60" lry="80"/>`)
}

func TestPolygonToolReselectCloses(t *testing.T) {
	s := loadedState(t)
	require.NoError(t, s.SetTool(editor.ToolPath))
	for _, p := range [][2]float64{{10, 10}, {90, 10}, {50, 70}} {
		s.Dispatch(editor.Down(p[0], p[1]))
	}
	assert.Equal(t, 3, s.Pending())
	require.NoError(t, s.SetTool(editor.ToolPath))
	assert.Zero(t, s.Pending())
	require.Equal(t, 1, s.Collection().Len())

	xml, err := s.XML()
	require.NoError(t, err)
	assert.Contains(t, xml, `points="10,10 90,10 50,70"`)
}

func TestSetToolRejectsUnknown(t *testing.T) {
	s := newTestState(t)
	assert.Error(t, s.SetTool("lasso"))
	assert.Equal(t, editor.ToolHand, s.Tool())
}

func TestZoomChangesRendererScale(t *testing.T) {
	s := newTestState(t)
	assert.ErrorIs(t, s.ZoomIn(0, 0), ErrNoBackend)
	assert.ErrorIs(t, s.FitToView(800, 600), ErrNoBackend)

	s = loadedState(t)
	require.NoError(t, s.ZoomIn(0, 0))
	assert.InDelta(t, 1.2, s.Canvas().Renderer().Scale(), 1e-9)
	require.NoError(t, s.ZoomOut(0, 0))
	assert.InDelta(t, 0.96, s.Canvas().Renderer().Scale(), 1e-9)
	require.NoError(t, s.FitToView(500, 400))
	assert.InDelta(t, 2, s.Canvas().Renderer().Scale(), 1e-9)
}

func TestScaledShapeExportsImagePixels(t *testing.T) {
	s := loadedState(t)
	require.NoError(t, s.ZoomIn(0, 0))
	drawRectangle(s, 12, 24, 60, 72)

	xml, err := s.XML()
	require.NoError(t, err)
	assert.Contains(t, xml, `ulx="10" uly="20" lrx="50" lry="60"`)
}

func TestRectangleSurvivesZoomMidDrag(t *testing.T) {
	s := loadedState(t)
	require.NoError(t, s.SetTool(editor.ToolRectangle))
	s.Dispatch(editor.Down(10, 20))
	require.NoError(t, s.ZoomIn(0, 0))
	s.Dispatch(editor.Drag(60, 80))
	s.Dispatch(editor.Up(72, 96))

	xml, err := s.XML()
	require.NoError(t, err)
	assert.Contains(t, xml, `ulx="10" uly="20" lrx="60" lry="80"`)
}

func TestPolygonSurvivesZoomBetweenClicks(t *testing.T) {
	s := loadedState(t)
	require.NoError(t, s.SetTool(editor.ToolPath))
	s.Dispatch(editor.Down(10, 10))
	require.NoError(t, s.ZoomIn(0, 0))
	// image (100,10) and (50,80) at scale 1.2
	s.Dispatch(editor.Down(120, 12))
	s.Dispatch(editor.Down(60, 96))
	require.NoError(t, s.SetTool(editor.ToolCursor))

	xml, err := s.XML()
	require.NoError(t, err)
	assert.Contains(t, xml, `points="10,10 100,10 50,80"`)
}

func TestExportIgnoresViewChanges(t *testing.T) {
	s := loadedState(t)
	drawRectangle(s, 10, 20, 60, 80)
	require.NoError(t, s.SetTool(editor.ToolPath))
	for _, p := range [][2]float64{{100, 10}, {150, 10}, {120, 60}} {
		s.Dispatch(editor.Down(p[0], p[1]))
	}
	require.NoError(t, s.SetTool(editor.ToolCursor))
	want, err := s.XML()
	require.NoError(t, err)

	require.NoError(t, s.ZoomIn(30, 40))
	require.NoError(t, s.ZoomIn(30, 40))
	s.Canvas().Renderer().PanBy(-25, 17)
	got, err := s.XML()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.FitToView(1000, 900))
	got, err = s.XML()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadImageWhileDrawing(t *testing.T) {
	s := loadedState(t)
	path := writePNG(t, t.TempDir(), "folio-322.png", 300, 200)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			assert.NoError(t, s.LoadImage(path))
		}
	}()
	for i := 0; i < 50; i++ {
		drawRectangle(s, 10, 10, 40, 40)
	}
	wg.Wait()
	assert.Equal(t, 300, s.Settings().SourceWidth)
	w, h := s.Canvas().StorageRaster().Size()
	assert.Equal(t, []int{300, 200}, []int{w, h})
}

func TestLoadProjectKeepsDuplicateIDs(t *testing.T) {
	s := loadedState(t)
	drawRectangle(s, 10, 20, 60, 80)
	path := filepath.Join(t.TempDir(), "session.ima")
	require.NoError(t, s.SaveProject(path))

	f, err := project.Load(path)
	require.NoError(t, err)
	f.Objects = append(f.Objects, f.Objects[0])
	require.NoError(t, f.Save(path))

	other := newTestState(t)
	require.NoError(t, other.LoadProject(context.Background(), path))
	shapes := other.Collection().Shapes()
	require.Len(t, shapes, 2)
	assert.NotEqual(t, shapes[0].ID(), shapes[1].ID())
	xml, err := other.XML()
	require.NoError(t, err)
	assert.Contains(t, xml, `<zone xml:id="fol-321--1" ulx="10" uly="20" lrx="60" lry="80"/>`)
	assert.Contains(t, xml, `<zone xml:id="fol-321--2" ulx="10" uly="20" lrx="60" lry="80"/>`)
}

func TestSetColour(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.SetColour("#ff8000"))
	a := s.Appearance()
	assert.Equal(t, "rgba(255, 128, 0, 0.5)", a.FillStyle)
	assert.Equal(t, "rgba(255, 128, 0, 1)", a.StrokeStyle)
	assert.Equal(t, 3.0, a.LineWidth)
	assert.Error(t, s.SetColour("orange"))
}

func TestCopyXML(t *testing.T) {
	s := loadedState(t)
	var copied string
	s.copyText = func(text string) error { copied = text; return nil }
	s.noClipboard = func() bool { return false }
	require.NoError(t, s.CopyXML())
	assert.True(t, strings.HasPrefix(copied, "<facsimile>"))

	s.noClipboard = func() bool { return true }
	assert.ErrorIs(t, s.CopyXML(), ErrClipboardUnavailable)
}

func TestCanvasProjectRoundTrip(t *testing.T) {
	s := loadedState(t)
	drawRectangle(s, 10, 20, 60, 80)
	require.NoError(t, s.SetTool(editor.ToolPath))
	for _, p := range [][2]float64{{100, 10}, {150, 10}, {120, 60}} {
		s.Dispatch(editor.Down(p[0], p[1]))
	}
	require.NoError(t, s.SetTool(editor.ToolHand))
	want, err := s.XML()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "session.ima")
	require.NoError(t, s.SaveProject(path))
	assert.False(t, s.Modified())
	assert.Equal(t, path, s.ProjectPath())

	other := newTestState(t)
	loaded := false
	other.On(EventProjectLoaded, func(interface{}) { loaded = true })
	require.NoError(t, other.LoadProject(context.Background(), path))
	assert.True(t, loaded)
	assert.Equal(t, 2, other.Collection().Len())
	got, err := other.XML()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, other.Modified())
}

func TestSaveProjectNeedsBackground(t *testing.T) {
	s := newTestState(t)
	assert.ErrorIs(t, s.SaveProject(filepath.Join(t.TempDir(), "x.ima")), ErrNoBackend)
}

const dzi = `<?xml version="1.0" encoding="UTF-8"?>
<Image xmlns="http://schemas.microsoft.com/deepzoom/2008" TileSize="254" Overlap="1" Format="jpg">
  <Size Width="4000" Height="3000"/>
</Image>`

func openDeepZoom(t *testing.T) *State {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, dzi)
	}))
	t.Cleanup(srv.Close)
	s := newTestState(t)
	require.NoError(t, s.OpenDeepZoom(context.Background(), srv.URL+"/scan.dzi"))
	return s
}

// moveViewport zooms by 2 around the origin and pans by (-40, -20) screen pixels.
func moveViewport(s *State) {
	vp := s.Viewport()
	pan, zoom := vp.Navigation()
	vp.SetNavigation(true, true)
	vp.ZoomBy(2, 0, 0)
	vp.PanBy(-40, -20)
	vp.SetNavigation(pan, zoom)
}

func TestDeepZoomPolygonSurvivesViewChange(t *testing.T) {
	s := openDeepZoom(t)
	require.NoError(t, s.SetTool(editor.ToolPath))
	s.Dispatch(editor.Down(80, 60))
	moveViewport(s)
	// 1600 screen pixels per 4000 image pixels, shifted by (-40, -20)
	s.Dispatch(editor.Down(280, 20))
	s.Dispatch(editor.Down(120, 220))
	require.NoError(t, s.SetTool(editor.ToolCursor))

	xml, err := s.XML()
	require.NoError(t, err)
	assert.Contains(t, xml, `points="400,300 800,100 400,600"`)
}

func TestDeepZoomExportIgnoresViewChanges(t *testing.T) {
	s := openDeepZoom(t)
	drawRectangle(s, 0, 0, 80, 60)
	want, err := s.XML()
	require.NoError(t, err)

	moveViewport(s)
	got, err := s.XML()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.SetTool(editor.ToolRectangle))
	s.Dispatch(editor.Down(280, 20))
	s.Dispatch(editor.Drag(300, 40))
	s.Dispatch(editor.Up(440, 220))
	got, err = s.XML()
	require.NoError(t, err)
	assert.Contains(t, got, `<zone xml:id="fol-can--2" ulx="800" uly="100" lrx="1200" lry="600"/>`)
}

func TestDeepZoomSessionRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, dzi)
	}))
	t.Cleanup(srv.Close)
	url := srv.URL + "/scan.dzi"

	s := newTestState(t)
	require.NoError(t, s.OpenDeepZoom(context.Background(), url))
	assert.Equal(t, editor.ModeDeepZoom, s.Mode())
	assert.Equal(t, "scan.dzi", s.Settings().FileName)
	assert.Nil(t, s.Background())

	drawRectangle(s, 0, 0, 80, 60)
	require.Equal(t, 1, s.Collection().Len())
	assert.Len(t, s.Viewport().Overlays(), 1)
	want, err := s.XML()
	require.NoError(t, err)
	assert.Contains(t, want, `<zone xml:id="fol-can--1" ulx="0" uly="0" lrx="400" lry="300"/>`)

	path := filepath.Join(t.TempDir(), "scan.ima")
	require.NoError(t, s.SaveProject(path))

	other := newTestState(t)
	require.NoError(t, other.LoadProject(context.Background(), path))
	assert.Equal(t, editor.ModeDeepZoom, other.Mode())
	got, err := other.XML()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Len(t, other.Viewport().Overlays(), 1)
}
