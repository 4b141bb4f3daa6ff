package state

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseColor accepts #rgb, #rrggbb, #rrggbbaa, rgb(r,g,b) and rgba(r,g,b,a)
// where a is in [0,1].
func ParseColor(raw string) (color.NRGBA, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.HasPrefix(s, "#") && len(s) == 9:
		base, err := parseHex(s[:7])
		if err != nil {
			return color.NRGBA{}, err
		}
		alpha, err := strconv.ParseUint(s[7:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("color %q: bad alpha: %w", raw, err)
		}
		base.A = uint8(alpha)
		return base, nil
	case strings.HasPrefix(s, "#"):
		return parseHex(s)
	case strings.HasPrefix(s, "rgba(") || strings.HasPrefix(s, "rgb("):
		return parseFunctional(s)
	}
	return color.NRGBA{}, fmt.Errorf("color %q: unsupported format", raw)
}

func parseHex(s string) (color.NRGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}

func parseFunctional(s string) (color.NRGBA, error) {
	open := strings.IndexByte(s, '(')
	if !strings.HasSuffix(s, ")") || open < 0 {
		return color.NRGBA{}, fmt.Errorf("color %q: unbalanced parentheses", s)
	}
	parts := strings.Split(s[open+1:len(s)-1], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("color %q: want 3 or 4 components", s)
	}
	var channels [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return color.NRGBA{}, fmt.Errorf("color %q: component %d out of range", s, i)
		}
		channels[i] = uint8(v)
	}
	alpha := 1.0
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return color.NRGBA{}, fmt.Errorf("color %q: alpha must be within [0,1]", s)
		}
		alpha = a
	}
	return color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: uint8(math.Round(alpha * 255))}, nil
}

// FormatColor renders c as #rrggbbaa.
func FormatColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
