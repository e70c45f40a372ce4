package panels

import (
	"fmt"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"image-annotator/internal/app"
	"image-annotator/internal/editor"
	"image-annotator/pkg/colorutil"
	"image-annotator/ui/canvas"
)

// ToolsPanel selects the active tool and the paint for new shapes.
type ToolsPanel struct {
	state *app.State
	ec    *canvas.EditorCanvas
	win   fyne.Window

	tools    *widget.RadioGroup
	swatch   *widget.Label
	pending  *widget.Label
	shapes   *widget.Label
	closeBtn *widget.Button

	// labels maps radio labels back to tools
	labels   map[string]editor.Tool
	updating bool
}

// NewToolsPanel creates the tool palette.
func NewToolsPanel(state *app.State, ec *canvas.EditorCanvas) *ToolsPanel {
	tp := &ToolsPanel{
		state:  state,
		ec:     ec,
		labels: make(map[string]editor.Tool),
	}

	var names []string
	for _, t := range editor.Tools() {
		names = append(names, t.Label())
		tp.labels[t.Label()] = t
	}
	tp.tools = widget.NewRadioGroup(names, tp.onSelect)
	tp.tools.Required = true

	tp.swatch = widget.NewLabel("")
	tp.pending = widget.NewLabel("")
	tp.shapes = widget.NewLabel("")
	tp.closeBtn = widget.NewButton("Close Polygon", func() {
		tp.state.ClosePolygon()
		tp.ec.Refresh()
		tp.Refresh()
	})

	tp.Refresh()
	return tp
}

// SetWindow sets the parent window for the colour picker.
func (tp *ToolsPanel) SetWindow(w fyne.Window) { tp.win = w }

// Container returns the panel container.
func (tp *ToolsPanel) Container() fyne.CanvasObject {
	colourBtn := widget.NewButton("Colour...", tp.onPickColour)
	return container.NewVBox(
		widget.NewLabelWithStyle("Tool", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		tp.tools,
		tp.closeBtn,
		tp.pending,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Appearance", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(colourBtn, tp.swatch),
		widget.NewSeparator(),
		tp.shapes,
	)
}

// Refresh syncs the palette with the session.
func (tp *ToolsPanel) Refresh() {
	tp.updating = true
	tp.tools.SetSelected(tp.state.Tool().Label())
	tp.updating = false

	if hex, err := colorutil.ToHex(tp.state.Appearance().StrokeStyle); err == nil {
		tp.swatch.SetText(hex)
	}
	n := tp.state.Pending()
	tp.pending.SetText(fmt.Sprintf("Pending points: %d", n))
	if n >= 3 {
		tp.closeBtn.Enable()
	} else {
		tp.closeBtn.Disable()
	}
	tp.shapes.SetText(fmt.Sprintf("Shapes: %d", tp.state.Collection().Len()))
}

func (tp *ToolsPanel) onSelect(label string) {
	if tp.updating {
		return
	}
	t, ok := tp.labels[label]
	if !ok {
		return
	}
	if err := tp.state.SetTool(t); err != nil && tp.win != nil {
		dialog.ShowError(err, tp.win)
	}
	tp.ec.Refresh()
}

func (tp *ToolsPanel) onPickColour() {
	if tp.win == nil {
		return
	}
	picker := dialog.NewColorPicker("Shape Colour", "Choose the colour for new shapes", func(c color.Color) {
		if err := tp.state.SetColour(colorutil.FromColor(c)); err != nil {
			dialog.ShowError(err, tp.win)
			return
		}
		tp.Refresh()
	}, tp.win)
	picker.Advanced = true
	picker.Show()
}
