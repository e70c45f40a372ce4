// Package mainwindow provides the main application window.
package mainwindow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"image-annotator/internal/app"
	"image-annotator/internal/editor"
	annimage "image-annotator/internal/image"
	"image-annotator/internal/project"
	"image-annotator/internal/version"
	"image-annotator/pkg/colorutil"
	"image-annotator/ui/canvas"
	"image-annotator/ui/panels"
	"image-annotator/ui/prefs"
)

const appTitle = "Image Annotator"

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app       fyne.App
	state     *app.State
	prefs     *prefs.Prefs
	logger    *slog.Logger
	canvas    *canvas.EditorCanvas
	sidePanel *panels.SidePanel
	statusBar *widget.Label
	position  *widget.Label

	watchMu sync.Mutex
	watcher *app.FileWatcher
}

// New creates the main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs, logger *slog.Logger) *MainWindow {
	win := fyneApp.NewWindow(appTitle)

	mw := &MainWindow{
		Window: win,
		app:    fyneApp,
		state:  state,
		prefs:  p,
		logger: logger,
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()
	mw.restorePreferences()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.New(mw.state, mw.logger)
	mw.sidePanel = panels.NewSidePanel(mw.state, mw.canvas)
	mw.sidePanel.SetWindow(mw.Window)

	mw.statusBar = widget.NewLabel("Ready")
	mw.position = widget.NewLabel("")
	mw.canvas.OnPointer(func(x, y float64) {
		mw.position.SetText(fmt.Sprintf("%.0f, %.0f", x, y))
	})

	canvasArea := container.NewBorder(
		mw.createToolbar(), // top
		nil,                // bottom
		nil,                // left
		nil,                // right
		mw.canvas,          // center
	)

	split := container.NewHSplit(mw.sidePanel.Container(), canvasArea)
	split.SetOffset(0.3)

	status := container.NewBorder(nil, nil, nil, mw.position, mw.statusBar)
	content := container.NewBorder(
		nil,                         // top
		container.NewPadded(status), // bottom
		nil,                         // left
		nil,                         // right
		split,                       // center
	)

	mw.SetContent(content)
	mw.Canvas().SetOnTypedKey(mw.onKey)
	mw.SetCloseIntercept(mw.onClose)
}

// createToolbar creates the toolbar with zoom controls.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	return container.NewHBox(
		widget.NewLabel("Zoom:"),
		widget.NewButton("-", mw.onZoomOut),
		widget.NewButton("+", mw.onZoomIn),
		widget.NewButton("Fit", mw.onFit),
		widget.NewSeparator(),
		widget.NewButton("Copy XML", mw.onCopyXML),
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mw.onOpenImage),
		fyne.NewMenuItem("Open Deep-Zoom URL...", mw.onOpenURL),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Open Project...", mw.onOpenProject),
		fyne.NewMenuItem("Save Project", mw.onSaveProject),
		fyne.NewMenuItem("Save Project As...", mw.onSaveProjectAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", mw.onClose),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Copy XML", mw.onCopyXML),
		fyne.NewMenuItem("Close Polygon", mw.onClosePolygon),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Clear Shapes", mw.onClearShapes),
	)

	toolItems := make([]*fyne.MenuItem, 0, len(editor.Tools()))
	for _, t := range editor.Tools() {
		toolItems = append(toolItems, fyne.NewMenuItem(t.Label(), func() { mw.selectTool(t) }))
	}
	toolsMenu := fyne.NewMenu("Tools", toolItems...)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", mw.onZoomIn),
		fyne.NewMenuItem("Zoom Out", mw.onZoomOut),
		fyne.NewMenuItem("Fit to Window", mw.onFit),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, toolsMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for session events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventImageLoaded, func(data interface{}) {
		if settings, ok := data.(annimage.Settings); ok {
			mw.SetTitle(appTitle + " - " + settings.FileName)
			mw.updateStatus(fmt.Sprintf("Loaded %s (%d x %d)", settings.FileName, settings.SourceWidth, settings.SourceHeight))
		}
		mw.canvas.FitToWindow()
		mw.canvas.Refresh()
	})

	mw.state.On(app.EventProjectLoaded, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle(appTitle + " - " + filepath.Base(path))
			mw.updateStatus("Project loaded: " + path)
			mw.watchProject(path)
		}
	})

	mw.state.On(app.EventProjectSaved, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle(appTitle + " - " + filepath.Base(path))
			mw.updateStatus("Project saved: " + path)
			mw.watchProject(path)
		}
	})

	mw.state.On(app.EventModified, func(data interface{}) {
		modified, _ := data.(bool)
		title := strings.TrimSuffix(mw.Title(), " *")
		if modified {
			title += " *"
		}
		mw.SetTitle(title)
	})

	mw.state.On(app.EventToolChanged, func(data interface{}) {
		if t, ok := data.(editor.Tool); ok {
			mw.updateStatus("Tool: " + t.Label())
		}
	})

	mw.state.On(app.EventModeChanged, func(data interface{}) {
		mw.canvas.Refresh()
	})

	mw.state.On(app.EventAppearanceChanged, func(data interface{}) {
		if hex, err := mw.stateColour(); err == nil {
			mw.prefs.SetString(prefs.KeyLastColour, hex)
		}
	})
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// showError reports err in a dialog and in the log.
func (mw *MainWindow) showError(action string, err error) {
	mw.logger.Error(action+" failed", "error", err)
	dialog.ShowError(err, mw.Window)
}

// ============================================================================
// Preferences
// ============================================================================

func (mw *MainWindow) restorePreferences() {
	w := mw.prefs.Float(prefs.KeyWindowWidth, 1280)
	h := mw.prefs.Float(prefs.KeyWindowHeight, 800)
	mw.Resize(fyne.NewSize(float32(w), float32(h)))

	if hex := mw.prefs.String(prefs.KeyLastColour, ""); hex != "" {
		if err := mw.state.SetColour(hex); err != nil {
			mw.logger.Warn("ignoring saved colour", "colour", hex, "error", err)
		}
	}
}

// SavePreferences writes the window preferences to disk.
func (mw *MainWindow) SavePreferences() {
	size := mw.Canvas().Size()
	if size.Width > 0 && size.Height > 0 {
		mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
		mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	}
	if err := mw.prefs.Save(); err != nil {
		mw.logger.Warn("failed to save preferences", "error", err)
	}
}

func (mw *MainWindow) stateColour() (string, error) {
	return colorutil.ToHex(mw.state.Appearance().StrokeStyle)
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefs.KeyLastDirectory, "")
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir saves the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefs.KeyLastDirectory, filepath.Dir(filePath))
}

// ============================================================================
// Project watching
// ============================================================================

// watchProject offers a reload when the project file changes on disk.
func (mw *MainWindow) watchProject(path string) {
	mw.watchMu.Lock()
	defer mw.watchMu.Unlock()
	if mw.watcher != nil {
		if mw.watcher.Path() == path {
			// A save moves the baseline so our own write is not reported
			_ = mw.watcher.Check()
			return
		}
		mw.watcher.Stop()
		mw.watcher = nil
	}

	w, err := app.NewFileWatcher(path, mw.state.Config().Server.WatchInterval)
	if err != nil {
		mw.logger.Warn("project watch disabled", "path", path, "error", err)
		return
	}
	w.OnChange(func() {
		mw.logger.Info("project changed on disk", "path", path)
		dialog.ShowConfirm("Project Changed",
			"The project file was changed by another program.\nReload it?",
			func(ok bool) {
				if ok {
					mw.loadProject(path)
				}
			}, mw.Window)
	})
	w.Start()
	mw.watcher = w
}

// StopWatching stops the project watcher.
func (mw *MainWindow) StopWatching() {
	mw.watchMu.Lock()
	defer mw.watchMu.Unlock()
	if mw.watcher != nil {
		mw.watcher.Stop()
		mw.watcher = nil
	}
}

// ============================================================================
// Actions
// ============================================================================

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.LoadImage(path)
	}, mw.Window)

	fd.SetFilter(storage.NewExtensionFileFilter(annimage.SupportedFormats()))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// LoadImage decodes path in the background and shows it when ready.
func (mw *MainWindow) LoadImage(path string) {
	mw.updateStatus("Loading " + filepath.Base(path) + "...")
	mw.state.LoadImageAsync(path, func(err error) {
		if err != nil {
			mw.showError("load image", err)
			return
		}
		mw.sidePanel.Refresh()
	})
}

func (mw *MainWindow) onOpenURL() {
	entry := widget.NewEntry()
	entry.SetPlaceHolder("https://example.org/image.dzi")
	entry.SetText(mw.prefs.String(prefs.KeyLastURL, ""))

	items := []*widget.FormItem{widget.NewFormItem("Descriptor URL", entry)}
	dialog.ShowForm("Open Deep-Zoom Image", "Open", "Cancel", items, func(ok bool) {
		url := strings.TrimSpace(entry.Text)
		if !ok || url == "" {
			return
		}
		mw.prefs.SetString(prefs.KeyLastURL, url)
		mw.OpenURL(url)
	}, mw.Window)
}

// OpenURL fetches a deep-zoom descriptor in the background and opens it.
func (mw *MainWindow) OpenURL(url string) {
	mw.updateStatus("Fetching " + url + "...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mw.state.Config().DeepZoom.FetchTimeout)
		defer cancel()
		if err := mw.state.OpenDeepZoom(ctx, url); err != nil {
			mw.showError("open deep-zoom image", err)
			mw.updateStatus("Ready")
		}
	}()
}

func (mw *MainWindow) onOpenProject() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		mw.loadProject(path)
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{project.Extension}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// LoadProject opens a saved project, fetching a deep-zoom background if needed.
func (mw *MainWindow) LoadProject(path string) { mw.loadProject(path) }

func (mw *MainWindow) loadProject(path string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mw.state.Config().DeepZoom.FetchTimeout)
		defer cancel()
		if err := mw.state.LoadProject(ctx, path); err != nil {
			mw.showError("open project", err)
			return
		}
		mw.sidePanel.Refresh()
		mw.canvas.Refresh()
	}()
}

func (mw *MainWindow) onSaveProject() {
	path := mw.state.ProjectPath()
	if path == "" {
		mw.onSaveProjectAs()
		return
	}
	if err := mw.state.SaveProject(path); err != nil {
		mw.showError("save project", err)
	}
}

func (mw *MainWindow) onSaveProjectAs() {
	if !mw.state.Ready() {
		mw.showError("save project", app.ErrNoBackend)
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != project.Extension {
			path += project.Extension
		}
		mw.saveLastDir(path)
		if err := mw.state.SaveProject(path); err != nil {
			mw.showError("save project", err)
		}
	}, mw.Window)
	fd.SetFileName(project.DefaultName(mw.state.Settings().FileName))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onCopyXML() {
	err := mw.state.CopyXML()
	switch {
	case errors.Is(err, app.ErrClipboardUnavailable):
		// fall back to the window clipboard
		text, xerr := mw.state.XML()
		if xerr != nil {
			mw.showError("copy xml", xerr)
			return
		}
		mw.Clipboard().SetContent(text)
	case err != nil:
		mw.showError("copy xml", err)
		return
	}
	mw.updateStatus("XML copied to clipboard")
}

func (mw *MainWindow) onClosePolygon() {
	if mw.state.ClosePolygon() {
		mw.updateStatus("Polygon added")
	}
	mw.sidePanel.Refresh()
	mw.canvas.Refresh()
}

func (mw *MainWindow) onClearShapes() {
	if mw.state.Collection().Len() == 0 {
		return
	}
	dialog.ShowConfirm("Clear Shapes", "Remove every shape?", func(ok bool) {
		if !ok {
			return
		}
		mw.state.Reset()
		mw.canvas.Refresh()
	}, mw.Window)
}

func (mw *MainWindow) selectTool(t editor.Tool) {
	if err := mw.state.SetTool(t); err != nil {
		mw.showError("select tool", err)
		return
	}
	mw.sidePanel.Refresh()
	mw.canvas.Refresh()
}

func (mw *MainWindow) onZoomIn()  { mw.zoom(true) }
func (mw *MainWindow) onZoomOut() { mw.zoom(false) }

func (mw *MainWindow) zoom(in bool) {
	x, y := mw.canvas.Centre()
	var err error
	if in {
		err = mw.state.ZoomIn(x, y)
	} else {
		err = mw.state.ZoomOut(x, y)
	}
	if err != nil {
		mw.updateStatus(err.Error())
		return
	}
	mw.canvas.Refresh()
}

func (mw *MainWindow) onFit() {
	mw.canvas.FitToWindow()
}

func (mw *MainWindow) onKey(ev *fyne.KeyEvent) {
	switch ev.Name {
	case fyne.KeyReturn, fyne.KeyEnter:
		mw.onClosePolygon()
	case fyne.KeyEscape:
		mw.selectTool(editor.ToolCursor)
	case fyne.KeyPlus, fyne.KeyEqual:
		mw.onZoomIn()
	case fyne.KeyMinus:
		mw.onZoomOut()
	}
}

func (mw *MainWindow) onClose() {
	quit := func() {
		mw.StopWatching()
		mw.SavePreferences()
		mw.app.Quit()
	}
	if !mw.state.Modified() {
		quit()
		return
	}
	dialog.ShowConfirm("Unsaved Changes", "Quit without saving the project?", func(ok bool) {
		if ok {
			quit()
		}
	}, mw.Window)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+appTitle,
		fmt.Sprintf("%s v%s\n\n"+
			"Draw rectangle and polygon zones over an image\n"+
			"and export them as a TEI facsimile.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			appTitle, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
