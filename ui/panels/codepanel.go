package panels

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// CodePanel shows a derived export text in a monospace, read-only view.
type CodePanel struct {
	source func() (string, error)
	text   *widget.RichText
	scroll *container.Scroll
}

// NewCodePanel creates a view over source.
func NewCodePanel(source func() (string, error)) *CodePanel {
	cp := &CodePanel{source: source}
	cp.text = widget.NewRichText(codeSegment(""))
	cp.text.Wrapping = fyne.TextWrapOff
	cp.scroll = container.NewScroll(cp.text)
	cp.Refresh()
	return cp
}

// Container returns the panel container.
func (cp *CodePanel) Container() fyne.CanvasObject {
	return cp.scroll
}

// Text returns the text currently shown.
func (cp *CodePanel) Text() string {
	return cp.text.String()
}

// Refresh re-derives the text from the source.
func (cp *CodePanel) Refresh() {
	text, err := cp.source()
	if err != nil {
		text = "error: " + err.Error()
	}
	cp.text.Segments = []widget.RichTextSegment{codeSegment(text)}
	cp.text.Refresh()
}

func codeSegment(text string) *widget.TextSegment {
	return &widget.TextSegment{Style: widget.RichTextStyleCodeBlock, Text: text}
}
