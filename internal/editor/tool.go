// Package editor turns pointer events into annotation edits. The active tool
// is always passed in by the caller; the controller never stores it.
package editor

// Tool is an interaction mode. Exactly one is active at a time.
type Tool string

const (
	ToolHand      Tool = "hand"
	ToolCursor    Tool = "cursor"
	ToolRectangle Tool = "rectangleDrawing"
	ToolPath      Tool = "pathDrawing"
	ToolErasing   Tool = "erasing"
	ToolZoom      Tool = "zoom"
)

// DefaultTool is the tool selected at startup.
const DefaultTool = ToolHand

// Tools lists every tool in toolbar order.
func Tools() []Tool {
	return []Tool{ToolHand, ToolCursor, ToolRectangle, ToolPath, ToolErasing, ToolZoom}
}

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	for _, known := range Tools() {
		if t == known {
			return true
		}
	}
	return false
}

// Label is a short human name for toolbars.
func (t Tool) Label() string {
	switch t {
	case ToolHand:
		return "Hand"
	case ToolCursor:
		return "Move"
	case ToolRectangle:
		return "Rectangle"
	case ToolPath:
		return "Polygon"
	case ToolErasing:
		return "Eraser"
	case ToolZoom:
		return "Zoom"
	default:
		return string(t)
	}
}

// Cursor names, using CSS cursor keywords.
const (
	CursorDefault  = "default"
	CursorGrab     = "grab"
	CursorGrabbing = "grabbing"
	CursorZoomIn   = "zoom-in"
	CursorZoomOut  = "zoom-out"
	CursorCross    = "crosshair"
	CursorMove     = "move"
	CursorPointer  = "pointer"
)

type cursorPair struct{ normal, alt string }

var toolCursors = map[Tool]cursorPair{
	ToolHand:      {CursorGrab, CursorGrabbing},
	ToolCursor:    {CursorDefault, CursorMove},
	ToolRectangle: {CursorCross, CursorCross},
	ToolPath:      {CursorCross, CursorCross},
	ToolErasing:   {CursorPointer, CursorPointer},
	ToolZoom:      {CursorZoomIn, CursorZoomOut},
}

// CursorFor returns the cursor shown for t. alt selects the variant used
// while Ctrl is held or a gesture is in progress.
func CursorFor(t Tool, alt bool) string {
	p, ok := toolCursors[t]
	if !ok {
		return CursorDefault
	}
	if alt {
		return p.alt
	}
	return p.normal
}
