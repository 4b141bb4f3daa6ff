package schedule

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/rook-computer/covermaker/internal/state"
)

var ErrInvalidPatch = errors.New("invalid patch")

// Upper bounds for numeric fields. Anything larger would make a single
// redraw allocate or blur without limit.
const (
	MaxFontSize     = 2048.0
	MaxLineHeight   = 10.0
	MaxIconSize     = 4096.0
	MaxIconPadding  = 1024.0
	MaxBlur         = 250.0
	MaxExtrusion    = 250.0
	MaxShadowOffset = 4096.0
)

// Patch is the wire shape of a partial state update. Nil fields are left
// unchanged; colors are CSS-like strings.
type Patch struct {
	BackgroundColor *string  `json:"backgroundColor,omitempty" toml:"background_color"`
	BackgroundBlur  *float64 `json:"backgroundBlur,omitempty" toml:"background_blur"`

	Title      *string  `json:"title,omitempty" toml:"title"`
	TitleColor *string  `json:"titleColor,omitempty" toml:"title_color"`
	FontSize   *float64 `json:"fontSize,omitempty" toml:"font_size"`
	LineHeight *float64 `json:"lineHeight,omitempty" toml:"line_height"`
	Extrusion  *float64 `json:"extrusion,omitempty" toml:"extrusion"`
	FontFamily *string  `json:"fontFamily,omitempty" toml:"font_family"`

	IconSize       *float64 `json:"iconSize,omitempty" toml:"icon_size"`
	IconRotation   *float64 `json:"iconRotation,omitempty" toml:"icon_rotation"`
	IconBackground *string  `json:"iconBackground,omitempty" toml:"icon_background"`
	IconPadding    *float64 `json:"iconPadding,omitempty" toml:"icon_padding"`
	ShadowColor    *string  `json:"shadowColor,omitempty" toml:"shadow_color"`
	ShadowBlur     *float64 `json:"shadowBlur,omitempty" toml:"shadow_blur"`
	ShadowOffsetX  *float64 `json:"shadowOffsetX,omitempty" toml:"shadow_offset_x"`
	ShadowOffsetY  *float64 `json:"shadowOffsetY,omitempty" toml:"shadow_offset_y"`

	Watermark      *string `json:"watermark,omitempty" toml:"watermark"`
	WatermarkColor *string `json:"watermarkColor,omitempty" toml:"watermark_color"`
}

// PatchFrom describes every scalar field of s. Images are not part of a
// patch.
func PatchFrom(s state.RenderState) Patch {
	str := func(v string) *string { return &v }
	num := func(v float64) *float64 { return &v }
	col := func(c color.NRGBA) *string { return str(state.FormatColor(c)) }
	return Patch{
		BackgroundColor: col(s.BackgroundColor),
		BackgroundBlur:  num(s.BackgroundBlur),
		Title:           str(s.Title),
		TitleColor:      col(s.TitleColor),
		FontSize:        num(s.FontSize),
		LineHeight:      num(s.LineHeight),
		Extrusion:       num(s.Extrusion),
		FontFamily:      str(s.FontFamily),
		IconSize:        num(s.IconSize),
		IconRotation:    num(s.IconRotation),
		IconBackground:  col(s.IconBackground),
		IconPadding:     num(s.IconPadding),
		ShadowColor:     col(s.ShadowColor),
		ShadowBlur:      num(s.ShadowBlur),
		ShadowOffsetX:   num(s.ShadowOffsetX),
		ShadowOffsetY:   num(s.ShadowOffsetY),
		Watermark:       str(s.Watermark),
		WatermarkColor:  col(s.WatermarkColor),
	}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool { return p == Patch{} }

// Events validates the patch and converts it to mutation events. Nothing is
// returned when any field is invalid.
func (p Patch) Events() ([]Event, error) {
	var (
		events []Event
		errs   []error
	)
	parseColor := func(field string, raw *string) (color.NRGBA, bool) {
		if raw == nil {
			return color.NRGBA{}, false
		}
		c, err := state.ParseColor(*raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidPatch, field, err))
			return color.NRGBA{}, false
		}
		return c, true
	}
	number := func(field string, v *float64, floor float64, strict bool, ceil float64) bool {
		if v == nil {
			return false
		}
		switch {
		case math.IsNaN(*v) || math.IsInf(*v, 0):
			errs = append(errs, fmt.Errorf("%w: %s must be finite", ErrInvalidPatch, field))
			return false
		case strict && *v <= floor:
			errs = append(errs, fmt.Errorf("%w: %s must be > %g", ErrInvalidPatch, field, floor))
			return false
		case !strict && *v < floor:
			errs = append(errs, fmt.Errorf("%w: %s must be >= %g", ErrInvalidPatch, field, floor))
			return false
		case *v > ceil:
			errs = append(errs, fmt.Errorf("%w: %s must be <= %g", ErrInvalidPatch, field, ceil))
			return false
		}
		return true
	}
	finite := func(field string, v *float64) bool { return number(field, v, math.Inf(-1), false, math.Inf(1)) }
	offset := func(field string, v *float64) bool {
		return number(field, v, -MaxShadowOffset, false, MaxShadowOffset)
	}

	if c, ok := parseColor("backgroundColor", p.BackgroundColor); ok {
		events = append(events, SetBackgroundColor{Color: c})
	}
	if number("backgroundBlur", p.BackgroundBlur, 0, false, MaxBlur) {
		events = append(events, SetBackgroundBlur{Radius: *p.BackgroundBlur})
	}

	if p.Title != nil {
		events = append(events, SetTitle{Text: *p.Title})
	}
	if c, ok := parseColor("titleColor", p.TitleColor); ok {
		events = append(events, SetTitleColor{Color: c})
	}
	if number("fontSize", p.FontSize, 0, true, MaxFontSize) {
		events = append(events, SetFontSize{Size: *p.FontSize})
	}
	if number("lineHeight", p.LineHeight, 0, true, MaxLineHeight) {
		events = append(events, SetLineHeight{Multiplier: *p.LineHeight})
	}
	if number("extrusion", p.Extrusion, 0, false, MaxExtrusion) {
		events = append(events, SetExtrusion{Depth: *p.Extrusion})
	}
	if p.FontFamily != nil {
		events = append(events, SetFontFamily{Family: *p.FontFamily})
	}

	if number("iconSize", p.IconSize, 0, false, MaxIconSize) {
		events = append(events, SetIconSize{Size: *p.IconSize})
	}
	if finite("iconRotation", p.IconRotation) {
		events = append(events, SetIconRotation{Degrees: *p.IconRotation})
	}
	if c, ok := parseColor("iconBackground", p.IconBackground); ok {
		events = append(events, SetIconBackground{Color: c})
	}
	if number("iconPadding", p.IconPadding, 0, false, MaxIconPadding) {
		events = append(events, SetIconPadding{Padding: *p.IconPadding})
	}

	var shadow SetIconShadow
	if c, ok := parseColor("shadowColor", p.ShadowColor); ok {
		shadow.Color = &c
	}
	if number("shadowBlur", p.ShadowBlur, 0, false, MaxBlur) {
		shadow.Blur = p.ShadowBlur
	}
	if offset("shadowOffsetX", p.ShadowOffsetX) {
		shadow.OffsetX = p.ShadowOffsetX
	}
	if offset("shadowOffsetY", p.ShadowOffsetY) {
		shadow.OffsetY = p.ShadowOffsetY
	}
	if shadow != (SetIconShadow{}) {
		events = append(events, shadow)
	}

	if p.Watermark != nil {
		events = append(events, SetWatermark{Text: *p.Watermark})
	}
	if c, ok := parseColor("watermarkColor", p.WatermarkColor); ok {
		events = append(events, SetWatermarkColor{Color: c})
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return events, nil
}
