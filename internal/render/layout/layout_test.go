package layout

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFitWideImage(t *testing.T) {
	box := Rect{X: 0, Y: 0, W: 200, H: 200}
	got := Fit(400, 200, box)
	assert.Equal(t, Rect{X: 0, Y: 50, W: 200, H: 100}, got)
}

func TestFitTallImage(t *testing.T) {
	box := Rect{X: 10, Y: 10, W: 200, H: 200}
	got := Fit(200, 400, box)
	assert.Equal(t, Rect{X: 60, Y: 10, W: 100, H: 200}, got)
}

func TestFitSquareImage(t *testing.T) {
	got := Fit(50, 50, Rect{W: 200, H: 200})
	assert.Equal(t, Rect{W: 200, H: 200}, got)
}

func TestCover(t *testing.T) {
	dst := Rect{W: 1920, H: 1080}

	wide := Cover(400, 100, dst)
	assert.InDelta(t, 1080, wide.H, 1e-9)
	assert.InDelta(t, 4320, wide.W, 1e-9)
	assert.InDelta(t, (1920-4320)/2.0, wide.X, 1e-9)

	tall := Cover(100, 400, dst)
	assert.InDelta(t, 1920, tall.W, 1e-9)
	assert.InDelta(t, 0, tall.X, 1e-9)
	assert.InDelta(t, dst.CenterY(), tall.CenterY(), 1e-9)

	assert.True(t, Cover(0, 10, dst).Empty())
}

func TestLineCenters(t *testing.T) {
	centers := LineCenters(1080, 100, 3)
	assert.Equal(t, []float64{440, 540, 640}, centers)

	// Block of 300 units is centered: top edge 390, bottom edge 690.
	top := centers[0] - 50
	bottom := centers[2] + 50
	assert.InDelta(t, 1080-bottom, top, 1e-9)

	assert.Nil(t, LineCenters(100, 10, 0))
}

func TestInset(t *testing.T) {
	r := Rect{W: 100, H: 100}
	assert.Equal(t, Rect{X: 10, Y: 10, W: 80, H: 80}, Inset(r, 10))
	assert.Equal(t, Rect{X: -5, Y: -5, W: 110, H: 110}, Inset(r, -5))
	assert.True(t, Inset(r, 60).Empty())
}

func TestPixels(t *testing.T) {
	r := Rect{X: 0.5, Y: 1.2, W: 10, H: 10}
	assert.Equal(t, image.Rect(0, 1, 11, 12), r.Pixels())
}
