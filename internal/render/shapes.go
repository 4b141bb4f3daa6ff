package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/rook-computer/covermaker/internal/render/layout"
	"golang.org/x/image/vector"
)

// Control point distance for approximating a quarter circle with a cubic.
const kappa = 0.5522847498

// roundedRectMask rasterizes r with corner radius into an alpha mask
// covering bounds.
func roundedRectMask(bounds image.Rectangle, r layout.Rect, radius float64) *image.Alpha {
	mask := image.NewAlpha(bounds)
	if r.Empty() {
		return mask
	}
	radius = math.Max(0, math.Min(radius, math.Min(r.W, r.H)/2))

	// The rasterizer works in coordinates relative to bounds.Min.
	x := float32(r.X - float64(bounds.Min.X))
	y := float32(r.Y - float64(bounds.Min.Y))
	w, h, rad := float32(r.W), float32(r.H), float32(radius)
	k := float32(kappa) * rad

	z := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	z.MoveTo(x+rad, y)
	z.LineTo(x+w-rad, y)
	z.CubeTo(x+w-rad+k, y, x+w, y+rad-k, x+w, y+rad)
	z.LineTo(x+w, y+h-rad)
	z.CubeTo(x+w, y+h-rad+k, x+w-rad+k, y+h, x+w-rad, y+h)
	z.LineTo(x+rad, y+h)
	z.CubeTo(x+rad-k, y+h, x, y+h-rad+k, x, y+h-rad)
	z.LineTo(x, y+rad)
	z.CubeTo(x, y+rad-k, x+rad-k, y, x+rad, y)
	z.ClosePath()
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// fillRoundedRect paints r onto dst with c.
func fillRoundedRect(dst draw.Image, r layout.Rect, radius float64, c color.Color) {
	mask := roundedRectMask(dst.Bounds(), r, radius)
	draw.DrawMask(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, mask, mask.Bounds().Min, draw.Over)
}

// clipRoundedRect draws src onto dst through a rounded rectangle clip.
func clipRoundedRect(dst draw.Image, src image.Image, r layout.Rect, radius float64) {
	mask := roundedRectMask(dst.Bounds(), r, radius)
	draw.DrawMask(dst, dst.Bounds(), src, src.Bounds().Min, mask, mask.Bounds().Min, draw.Over)
}

func newSurface(width, height int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, width, height))
}
