package schedule

import (
	"image/color"

	"github.com/rook-computer/covermaker/internal/render"
	"github.com/rook-computer/covermaker/internal/state"
)

// Event is one state mutation. Applying it changes the render state; Dirty
// names the layers whose pixels depend on the changed fields.
type Event interface {
	Apply(s *state.RenderState)
	Dirty() render.LayerSet
	event()
}

var (
	dirtyBackground = render.LayersOf(render.LayerBackground)
	dirtyText       = render.LayersOf(render.LayerText)
	dirtyIcon       = render.LayersOf(render.LayerIcon)
	dirtyWatermark  = render.LayersOf(render.LayerWatermark)
)

type SetBackgroundColor struct{ Color color.NRGBA }

func (e SetBackgroundColor) Apply(s *state.RenderState) { s.BackgroundColor = e.Color }
func (SetBackgroundColor) Dirty() render.LayerSet       { return dirtyBackground }
func (SetBackgroundColor) event()                       {}

type SetBackgroundImage struct{ Source *state.ImageSource }

func (e SetBackgroundImage) Apply(s *state.RenderState) { s.BackgroundImage = e.Source }
func (SetBackgroundImage) Dirty() render.LayerSet       { return dirtyBackground }
func (SetBackgroundImage) event()                       {}

type ClearBackgroundImage struct{}

func (ClearBackgroundImage) Apply(s *state.RenderState) { s.BackgroundImage = nil }
func (ClearBackgroundImage) Dirty() render.LayerSet     { return dirtyBackground }
func (ClearBackgroundImage) event()                     {}

type SetBackgroundBlur struct{ Radius float64 }

func (e SetBackgroundBlur) Apply(s *state.RenderState) { s.BackgroundBlur = e.Radius }
func (SetBackgroundBlur) Dirty() render.LayerSet       { return dirtyBackground }
func (SetBackgroundBlur) event()                       {}

type SetTitle struct{ Text string }

func (e SetTitle) Apply(s *state.RenderState) { s.Title = e.Text }
func (SetTitle) Dirty() render.LayerSet       { return dirtyText }
func (SetTitle) event()                       {}

type SetTitleColor struct{ Color color.NRGBA }

func (e SetTitleColor) Apply(s *state.RenderState) { s.TitleColor = e.Color }
func (SetTitleColor) Dirty() render.LayerSet       { return dirtyText }
func (SetTitleColor) event()                       {}

type SetFontSize struct{ Size float64 }

func (e SetFontSize) Apply(s *state.RenderState) { s.FontSize = e.Size }
func (SetFontSize) Dirty() render.LayerSet       { return dirtyText }
func (SetFontSize) event()                       {}

type SetLineHeight struct{ Multiplier float64 }

func (e SetLineHeight) Apply(s *state.RenderState) { s.LineHeight = e.Multiplier }
func (SetLineHeight) Dirty() render.LayerSet       { return dirtyText }
func (SetLineHeight) event()                       {}

type SetExtrusion struct{ Depth float64 }

func (e SetExtrusion) Apply(s *state.RenderState) { s.Extrusion = e.Depth }
func (SetExtrusion) Dirty() render.LayerSet       { return dirtyText }
func (SetExtrusion) event()                       {}

// SetFontFamily affects the title and the watermark.
type SetFontFamily struct{ Family string }

func (e SetFontFamily) Apply(s *state.RenderState) { s.FontFamily = e.Family }
func (SetFontFamily) Dirty() render.LayerSet       { return dirtyText | dirtyWatermark }
func (SetFontFamily) event()                       {}

type SetIconImage struct{ Source *state.ImageSource }

func (e SetIconImage) Apply(s *state.RenderState) { s.IconImage = e.Source }
func (SetIconImage) Dirty() render.LayerSet       { return dirtyIcon }
func (SetIconImage) event()                       {}

type ClearIconImage struct{}

func (ClearIconImage) Apply(s *state.RenderState) { s.IconImage = nil }
func (ClearIconImage) Dirty() render.LayerSet     { return dirtyIcon }
func (ClearIconImage) event()                     {}

type SetIconSize struct{ Size float64 }

func (e SetIconSize) Apply(s *state.RenderState) { s.IconSize = e.Size }
func (SetIconSize) Dirty() render.LayerSet       { return dirtyIcon }
func (SetIconSize) event()                       {}

type SetIconRotation struct{ Degrees float64 }

func (e SetIconRotation) Apply(s *state.RenderState) { s.IconRotation = e.Degrees }
func (SetIconRotation) Dirty() render.LayerSet       { return dirtyIcon }
func (SetIconRotation) event()                       {}

type SetIconBackground struct{ Color color.NRGBA }

func (e SetIconBackground) Apply(s *state.RenderState) { s.IconBackground = e.Color }
func (SetIconBackground) Dirty() render.LayerSet       { return dirtyIcon }
func (SetIconBackground) event()                       {}

type SetIconPadding struct{ Padding float64 }

func (e SetIconPadding) Apply(s *state.RenderState) { s.IconPadding = e.Padding }
func (SetIconPadding) Dirty() render.LayerSet       { return dirtyIcon }
func (SetIconPadding) event()                       {}

// SetIconShadow changes the non-nil shadow parameters only.
type SetIconShadow struct {
	Color   *color.NRGBA
	Blur    *float64
	OffsetX *float64
	OffsetY *float64
}

func (e SetIconShadow) Apply(s *state.RenderState) {
	if e.Color != nil {
		s.ShadowColor = *e.Color
	}
	if e.Blur != nil {
		s.ShadowBlur = *e.Blur
	}
	if e.OffsetX != nil {
		s.ShadowOffsetX = *e.OffsetX
	}
	if e.OffsetY != nil {
		s.ShadowOffsetY = *e.OffsetY
	}
}
func (SetIconShadow) Dirty() render.LayerSet { return dirtyIcon }
func (SetIconShadow) event()                 {}

type SetWatermark struct{ Text string }

func (e SetWatermark) Apply(s *state.RenderState) { s.Watermark = e.Text }
func (SetWatermark) Dirty() render.LayerSet       { return dirtyWatermark }
func (SetWatermark) event()                       {}

type SetWatermarkColor struct{ Color color.NRGBA }

func (e SetWatermarkColor) Apply(s *state.RenderState) { s.WatermarkColor = e.Color }
func (SetWatermarkColor) Dirty() render.LayerSet       { return dirtyWatermark }
func (SetWatermarkColor) event()                       {}

// ReplaceState swaps the whole state and dirties every layer.
type ReplaceState struct{ State state.RenderState }

func (e ReplaceState) Apply(s *state.RenderState) { *s = e.State }
func (ReplaceState) Dirty() render.LayerSet       { return render.AllLayers }
func (ReplaceState) event()                       {}
