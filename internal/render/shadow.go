package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/blur"
)

// Shadow mirrors the drop-shadow parameters of a 2D drawing context.
type Shadow struct {
	Color   color.NRGBA
	Blur    float64
	OffsetX float64
	OffsetY float64
}

// visible follows the canvas rule: a shadow is drawn only when its color is
// not transparent and it is either blurred or offset.
func (s Shadow) visible() bool {
	return s.Color.A > 0 && (s.Blur > 0 || s.OffsetX != 0 || s.OffsetY != 0)
}

// drawWithShadow composites src onto dst, preceded by its shadow.
func drawWithShadow(dst draw.Image, src *image.RGBA, s Shadow) {
	if s.visible() {
		b := src.Bounds()
		tinted := image.NewRGBA(b)
		draw.DrawMask(tinted, b, image.NewUniform(s.Color), image.Point{}, src, b.Min, draw.Src)

		var shadow image.Image = tinted
		if s.Blur > 0 {
			// The canvas shadowBlur is twice the Gaussian deviation.
			shadow = blur.Gaussian(tinted, s.Blur/2)
		}
		offset := image.Pt(int(math.Round(s.OffsetX)), int(math.Round(s.OffsetY)))
		sb := shadow.Bounds()
		draw.Draw(dst, image.Rectangle{Min: b.Min.Add(offset), Max: b.Min.Add(offset).Add(sb.Size())}, shadow, sb.Min, draw.Over)
	}
	draw.Draw(dst, src.Bounds(), src, src.Bounds().Min, draw.Over)
}
