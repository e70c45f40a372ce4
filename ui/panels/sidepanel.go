// Package panels provides the side panels of the main window.
package panels

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"

	"image-annotator/internal/app"
	"image-annotator/ui/canvas"
)

// SidePanel holds the tool palette and the export views in tabs.
type SidePanel struct {
	state     *app.State
	container *container.AppTabs

	tools *ToolsPanel
	xml   *CodePanel
	json  *CodePanel
}

// NewSidePanel creates the side panel for state.
func NewSidePanel(state *app.State, ec *canvas.EditorCanvas) *SidePanel {
	sp := &SidePanel{state: state}

	sp.tools = NewToolsPanel(state, ec)
	sp.xml = NewCodePanel(state.XML)
	sp.json = NewCodePanel(state.JSON)

	sp.container = container.NewAppTabs(
		container.NewTabItem("Tools", sp.tools.Container()),
		container.NewTabItem("XML", sp.xml.Container()),
		container.NewTabItem("JSON", sp.json.Container()),
	)
	sp.container.SetTabLocation(container.TabLocationTop)

	state.On(app.EventShapesChanged, func(interface{}) { sp.Refresh() })
	state.On(app.EventImageLoaded, func(interface{}) { sp.Refresh() })
	state.On(app.EventToolChanged, func(interface{}) { sp.tools.Refresh() })
	return sp
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.tools.SetWindow(w)
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// Refresh re-derives the export views and the tool state.
func (sp *SidePanel) Refresh() {
	sp.xml.Refresh()
	sp.json.Refresh()
	sp.tools.Refresh()
}
