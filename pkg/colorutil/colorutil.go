// Package colorutil converts the CSS colour strings stored on shapes.
package colorutil

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Fallback is used by callers that must paint something when a style cannot be parsed.
var Fallback = color.NRGBA{R: 0, G: 0, B: 0, A: 255}

// Parse understands "#rgb", "#rrggbb", "rgb(r, g, b)" and "rgba(r, g, b[, a])".
// A missing alpha means fully opaque.
func Parse(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(expandShortHex(s))
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid hex colour %q: %w", s, err)
		}
		r, g, b := c.RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
	}

	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return color.NRGBA{}, fmt.Errorf("unsupported colour %q", s)
	}
	fn := s[:open]
	if fn != "rgb" && fn != "rgba" {
		return color.NRGBA{}, fmt.Errorf("unsupported colour function %q", fn)
	}

	parts := strings.Split(s[open+1:len(s)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("colour %q needs 3 or 4 components", s)
	}

	var channels [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, err)
		}
		channels[i] = clampByte(v)
	}

	alpha := uint8(255)
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("colour %q: %w", s, err)
		}
		alpha = clampByte(a * 255)
	}

	return color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: alpha}, nil
}

// MustParse is Parse with Fallback on error.
func MustParse(s string) color.NRGBA {
	c, err := Parse(s)
	if err != nil {
		return Fallback
	}
	return c
}

// HexToRGBA renders a picker hex value as "rgba(r, g, b, alpha)".
func HexToRGBA(hex string, alpha float64) (string, error) {
	c, err := colorful.Hex(expandShortHex(strings.TrimSpace(hex)))
	if err != nil {
		return "", fmt.Errorf("invalid hex colour %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(alpha, 'f', -1, 64)), nil
}

// ToHex renders any parseable style as "#rrggbb", dropping alpha.
func ToHex(s string) (string, error) {
	c, err := Parse(s)
	if err != nil {
		return "", err
	}
	cf, _ := colorful.MakeColor(color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
	return cf.Hex(), nil
}

// FromColor renders c as "#rrggbb", dropping alpha.
func FromColor(c color.Color) string {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	cf, _ := colorful.MakeColor(color.NRGBA{R: n.R, G: n.G, B: n.B, A: 255})
	return cf.Hex()
}

func expandShortHex(s string) string {
	if len(s) != 4 || s[0] != '#' {
		return s
	}
	return string([]byte{'#', s[1], s[1], s[2], s[2], s[3], s[3]})
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
