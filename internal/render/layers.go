package render

import (
	"image"
	"image/draw"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/rook-computer/covermaker/internal/render/layout"
	"github.com/rook-computer/covermaker/internal/state"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

func surfaceRect(width, height int) layout.Rect {
	return layout.Rect{W: float64(width), H: float64(height)}
}

// drawBackgroundColor fills a whole surface with the background color.
func drawBackgroundColor(width, height int, s state.RenderState) *image.RGBA {
	out := newSurface(width, height)
	draw.Draw(out, out.Bounds(), image.NewUniform(s.BackgroundColor), image.Point{}, draw.Src)
	return out
}

// drawBackgroundImage cover-scales img onto the surface, centered, and blurs
// the result by the configured radius.
func drawBackgroundImage(width, height int, img image.Image, blurRadius float64) *image.RGBA {
	out := newSurface(width, height)
	sb := img.Bounds()
	placed := layout.Cover(float64(sb.Dx()), float64(sb.Dy()), surfaceRect(width, height))
	if placed.Empty() {
		return out
	}
	xdraw.CatmullRom.Scale(out, placed.Pixels(), img, sb, xdraw.Src, nil)
	if blurRadius > 0 {
		return blur.Gaussian(out, blurRadius)
	}
	return out
}

// splitLines breaks the title on line breaks.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\n")
}

// middleBaseline converts a line's vertical center into a baseline, the way
// a "middle" text baseline does.
func middleBaseline(face font.Face, center float64) fixed.Int26_6 {
	m := face.Metrics()
	return fixed.Int26_6(center*64) + (m.Ascent-m.Descent)/2
}

// drawText renders the title block centered on the surface, with the
// extrusion shadow when depth > 0.
func drawText(width, height int, s state.RenderState, fonts *FontBook) *image.RGBA {
	out := newSurface(width, height)
	if s.Title == "" || s.FontSize <= 0 {
		return out
	}
	face := fonts.Face(FontList(s.FontFamily), false, s.FontSize)
	defer face.Close()

	lines := splitLines(s.Title)
	lineHeight := s.FontSize * s.LineHeight
	centers := layout.LineCenters(float64(height), lineHeight, len(lines))

	text := newSurface(width, height)
	drawer := &font.Drawer{Dst: text, Src: image.NewUniform(s.TitleColor), Face: face}
	for i, line := range lines {
		lineWidth := drawer.MeasureString(line)
		drawer.Dot = fixed.Point26_6{
			X: (fixed.I(width) - lineWidth) / 2,
			Y: middleBaseline(face, centers[i]),
		}
		drawer.DrawString(line)
	}

	shadow := Shadow{}
	if s.Extrusion > 0 {
		shadow = Shadow{Color: ExtrusionColor, Blur: s.Extrusion * 0.5, OffsetX: s.Extrusion, OffsetY: s.Extrusion}
	}
	drawWithShadow(out, text, shadow)
	return out
}

// drawWatermark renders the watermark right aligned near the bottom-right
// corner in a small italic face.
func drawWatermark(width, height int, s state.RenderState, fonts *FontBook) *image.RGBA {
	out := newSurface(width, height)
	if s.Watermark == "" {
		return out
	}
	face := fonts.Face(FontList(s.FontFamily), true, WatermarkSize)
	defer face.Close()

	x, y := layout.AnchorBottomRight(float64(width), float64(height), WatermarkInset)
	drawer := &font.Drawer{Dst: out, Src: image.NewUniform(s.WatermarkColor), Face: face}
	drawer.Dot = fixed.Point26_6{
		X: fixed.Int26_6(x*64) - drawer.MeasureString(s.Watermark),
		Y: fixed.Int26_6(y * 64),
	}
	drawer.DrawString(s.Watermark)
	return out
}

// iconTile draws the square working buffer of the icon: the optional
// background plate and the image fitted inside the rounded clip.
func iconTile(s state.RenderState, img image.Image) *image.RGBA {
	side := int(math.Round(s.IconSize))
	tile := newSurface(side, side)
	box := layout.Rect{W: s.IconSize, H: s.IconSize}

	if s.IconPadding > 0 {
		// A larger padding moves the plate outward.
		plate := layout.Inset(box, state.IconBorder-s.IconPadding)
		fillRoundedRect(tile, plate, CornerRadius, s.IconBackground)
	}

	clip := layout.Inset(box, state.IconBorder)
	sb := img.Bounds()
	placed := layout.Fit(float64(sb.Dx()), float64(sb.Dy()), clip)
	if placed.Empty() {
		return tile
	}
	fitted := newSurface(side, side)
	xdraw.CatmullRom.Scale(fitted, placed.Pixels(), img, sb, xdraw.Over, nil)
	clipRoundedRect(tile, fitted, clip, CornerRadius)
	return tile
}

// placeRotated draws tile onto dst centered at (cx, cy), rotated by degrees
// clockwise about its own center.
func placeRotated(dst *image.RGBA, tile *image.RGBA, cx, cy, degrees float64) {
	tb := tile.Bounds()
	half := float64(tb.Dx()) / 2
	if math.Mod(degrees, 360) == 0 {
		at := image.Pt(int(math.Round(cx-half)), int(math.Round(cy-half)))
		draw.Draw(dst, tb.Add(at), tile, tb.Min, draw.Over)
		return
	}
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	// dst = R * (src - center) + (cx, cy)
	m := f64.Aff3{
		cos, -sin, cx - (cos*half - sin*half),
		sin, cos, cy - (sin*half + cos*half),
	}
	xdraw.BiLinear.Transform(dst, m, tile, tb, xdraw.Over, nil)
}

// drawIcon renders the icon centered on the surface with rotation and shadow.
func drawIcon(width, height int, s state.RenderState, img image.Image) *image.RGBA {
	out := newSurface(width, height)
	if s.IconInnerSize() <= 0 {
		return out
	}
	tile := iconTile(s, img)
	placed := newSurface(width, height)
	placeRotated(placed, tile, float64(width)/2, float64(height)/2, s.IconRotation)
	drawWithShadow(out, placed, Shadow{
		Color:   s.ShadowColor,
		Blur:    s.ShadowBlur,
		OffsetX: s.ShadowOffsetX,
		OffsetY: s.ShadowOffsetY,
	})
	return out
}
