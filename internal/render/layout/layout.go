package layout

import (
	"image"
	"math"
)

// Rect is a rectangle in surface units. Layer geometry is fractional, the
// pixel grid is only applied when drawing.
type Rect struct {
	X, Y, W, H float64
}

func (r Rect) CenterX() float64 { return r.X + r.W/2 }
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// Pixels rounds r outward to the pixel grid.
func (r Rect) Pixels() image.Rectangle {
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.W)), int(math.Ceil(r.Y+r.H)),
	)
}

// Inset shrinks r by amount on all sides. A negative amount grows it.
func Inset(r Rect, amount float64) Rect {
	return Normalize(Rect{X: r.X + amount, Y: r.Y + amount, W: r.W - 2*amount, H: r.H - 2*amount})
}

// Normalize clamps negative sizes to zero around the original center.
func Normalize(r Rect) Rect {
	if r.W < 0 {
		r.X += r.W / 2
		r.W = 0
	}
	if r.H < 0 {
		r.Y += r.H / 2
		r.H = 0
	}
	return r
}

// Centered returns a w x h rectangle sharing the center of outer.
func Centered(outer Rect, w, h float64) Rect {
	return Rect{X: outer.CenterX() - w/2, Y: outer.CenterY() - h/2, W: w, H: h}
}

// Cover scales a srcW x srcH image so it fully fills dst, cropping overflow,
// and centers it.
func Cover(srcW, srcH float64, dst Rect) Rect {
	if srcW <= 0 || srcH <= 0 {
		return Rect{}
	}
	scale := math.Max(dst.W/srcW, dst.H/srcH)
	return Centered(dst, srcW*scale, srcH*scale)
}

// Fit places a srcW x srcH image inside dst. Tall images (height/width > 1)
// are fitted to the height and centered horizontally, everything else is
// fitted to the width and centered vertically.
func Fit(srcW, srcH float64, dst Rect) Rect {
	if srcW <= 0 || srcH <= 0 {
		return Rect{}
	}
	if srcH/srcW > 1 {
		w := srcW * dst.H / srcH
		return Rect{X: dst.X + (dst.W-w)/2, Y: dst.Y, W: w, H: dst.H}
	}
	h := srcH * dst.W / srcW
	return Rect{X: dst.X, Y: dst.Y + (dst.H-h)/2, W: dst.W, H: h}
}

// LineCenters returns the vertical center of each of n lines so the whole
// block of n*lineHeight is centered in a surface of the given height.
func LineCenters(surfaceHeight, lineHeight float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	start := (surfaceHeight-lineHeight*float64(n))/2 + lineHeight/2
	centers := make([]float64, n)
	for i := range centers {
		centers[i] = start + float64(i)*lineHeight
	}
	return centers
}

// AnchorBottomRight returns the point inset from the bottom-right corner of
// a w x h surface.
func AnchorBottomRight(w, h, inset float64) (x, y float64) {
	return w - inset, h - inset
}
