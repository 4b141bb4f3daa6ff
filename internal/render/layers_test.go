package render

import (
	"image"
	"image/color"
	"testing"

	"github.com/rook-computer/covermaker/internal/render/layout"
	"github.com/rook-computer/covermaker/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/math/fixed"
)

func iconState(size float64) state.RenderState {
	st := state.Default()
	st.IconSize = size
	st.IconPadding = 0
	st.ShadowColor = color.NRGBA{}
	return st
}

func isRed(c color.RGBA) bool { return c.R > 0xf0 && c.G < 0x10 && c.B < 0x10 && c.A > 0xf0 }

func TestIconTileFitsWideImage(t *testing.T) {
	// Inner box is 200x200 at (10,10); a 400x200 image becomes 200x100
	// with 50 units above and below.
	tile := iconTile(iconState(220), solidImage(400, 200, red))

	assert.True(t, isRed(tile.RGBAAt(110, 65)))
	assert.True(t, isRed(tile.RGBAAt(110, 110)))
	assert.True(t, isRed(tile.RGBAAt(110, 155)))
	assert.Zero(t, tile.RGBAAt(110, 55).A)
	assert.Zero(t, tile.RGBAAt(110, 165).A)
	assert.Equal(t, image.Rect(10, 60, 210, 160), inkBounds(tile))
}

func TestIconTileFitsTallImage(t *testing.T) {
	tile := iconTile(iconState(220), solidImage(200, 400, red))

	assert.True(t, isRed(tile.RGBAAt(65, 110)))
	assert.True(t, isRed(tile.RGBAAt(155, 110)))
	assert.Zero(t, tile.RGBAAt(55, 110).A)
	assert.Zero(t, tile.RGBAAt(165, 110).A)
	assert.Equal(t, image.Rect(60, 10, 160, 210), inkBounds(tile))
}

func TestIconTileClipsCorners(t *testing.T) {
	tile := iconTile(iconState(220), solidImage(50, 50, red))
	assert.True(t, isRed(tile.RGBAAt(110, 110)))
	// The corner of the clip box lies outside the rounded corner.
	assert.Zero(t, tile.RGBAAt(11, 11).A)
}

func TestIconPaddingGrowsPlateOutward(t *testing.T) {
	img := solidImage(50, 50, red)

	st := iconState(220)
	st.IconPadding = 5
	small := iconTile(st, img)
	assert.Zero(t, small.RGBAAt(2, 110).A, "plate inset by border-padding = 5")
	assert.Equal(t, uint8(0xff), small.RGBAAt(7, 110).A)

	st.IconPadding = 20
	large := iconTile(st, img)
	assert.Equal(t, uint8(0xff), large.RGBAAt(2, 110).A, "plate reaches past the tile edge")

	st.IconPadding = 0
	none := iconTile(st, img)
	assert.Zero(t, none.RGBAAt(7, 110).A)
}

func TestIconRotationKeepsCenter(t *testing.T) {
	img := solidImage(400, 200, red)

	st := iconState(220)
	flat := drawIcon(400, 400, st, img)
	st.IconRotation = 90
	turned := drawIcon(400, 400, st, img)

	assert.Zero(t, flat.RGBAAt(200, 120).A)
	assert.True(t, isRed(flat.RGBAAt(120, 200)))
	assert.True(t, isRed(turned.RGBAAt(200, 120)))
	assert.Zero(t, turned.RGBAAt(120, 200).A)

	for _, img := range []*image.RGBA{flat, turned} {
		box := inkBounds(img)
		center := box.Min.Add(box.Max).Div(2)
		assert.InDelta(t, 200, center.X, 1)
		assert.InDelta(t, 200, center.Y, 1)
	}
}

func TestIconDegenerateSizeDrawsNothing(t *testing.T) {
	st := iconState(2 * state.IconBorder)
	out := drawIcon(100, 100, st, solidImage(10, 10, red))
	assert.True(t, inkBounds(out).Empty())
}

func TestIconShadowOffset(t *testing.T) {
	st := iconState(60)
	st.ShadowColor = color.NRGBA{A: 0xff}
	st.ShadowBlur = 0
	st.ShadowOffsetX = 20
	st.ShadowOffsetY = 0
	out := drawIcon(200, 200, st, solidImage(10, 10, red))
	box := inkBounds(out)
	// Image spans x 80..120 (inner 40 box), shadow extends it by 20 to the right.
	assert.Equal(t, 80, box.Min.X)
	assert.Equal(t, 140, box.Max.X)
}

func TestTextBlockIsCentered(t *testing.T) {
	st := state.Default()
	st.Title = "A\nBB\nCCC"
	st.FontSize = 100
	st.LineHeight = 1
	out := drawText(1000, 1000, st, NewFontBook())

	box := inkBounds(out)
	require.False(t, box.Empty())
	assert.InDelta(t, 500, (box.Min.Y+box.Max.Y)/2, 15)
	assert.InDelta(t, 500, (box.Min.X+box.Max.X)/2, 10)
	// Three lines of 100 units: ink spans roughly 200 + cap height.
	assert.Greater(t, box.Dy(), 220)
	assert.Less(t, box.Dy(), 300)
}

func TestLineBaselinesAreOneLineHeightApart(t *testing.T) {
	face := NewFontBook().Face(FontList("Go"), false, 100)
	defer face.Close()

	centers := layout.LineCenters(1000, 100, len(splitLines("A\nBB\nCCC")))
	require.Len(t, centers, 3)
	baselines := make([]fixed.Int26_6, len(centers))
	for i, c := range centers {
		baselines[i] = middleBaseline(face, c)
	}
	assert.Equal(t, fixed.I(100), baselines[1]-baselines[0])
	assert.Equal(t, fixed.I(100), baselines[2]-baselines[1])
	assert.Equal(t, middleBaseline(face, 500), baselines[1], "middle line sits on the surface center")
}

func TestTextExtrusionAddsShadow(t *testing.T) {
	st := state.Default()
	st.Title = "Depth"
	st.FontSize = 60
	fonts := NewFontBook()

	flat := inkBounds(drawText(600, 300, st, fonts))
	st.Extrusion = 12
	raised := inkBounds(drawText(600, 300, st, fonts))

	assert.Greater(t, raised.Max.X, flat.Max.X+6)
	assert.Greater(t, raised.Max.Y, flat.Max.Y+6)
}

func TestEmptyTitleDrawsNothing(t *testing.T) {
	st := state.Default()
	st.Title = ""
	assert.True(t, inkBounds(drawText(100, 100, st, NewFontBook())).Empty())
}

func TestWatermarkAnchoredBottomRight(t *testing.T) {
	st := state.Default()
	st.Watermark = "made with covermaker"
	st.WatermarkColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	out := drawWatermark(800, 400, st, NewFontBook())

	box := inkBounds(out)
	require.False(t, box.Empty())
	assert.LessOrEqual(t, box.Max.X, 800-20+2)
	assert.Greater(t, box.Min.X, 400)
	assert.LessOrEqual(t, box.Max.Y, 400-20+5)
	assert.GreaterOrEqual(t, box.Min.Y, 400-20-16)
}

func TestFontResolution(t *testing.T) {
	book := NewFontBook()
	assert.Equal(t, "Go", FontList(" "))
	assert.Equal(t, "Go Mono, Go", FontList("Go Mono"))
	assert.Contains(t, book.Families(), "Go Mono")

	assert.Same(t, book.Resolve("Go", false), book.Resolve("Missing Family, Go", false))
	assert.Same(t, book.Resolve("Go", false), book.Resolve("nope", false))
	assert.NotSame(t, book.Resolve("Go", false), book.Resolve("Go", true))
	assert.Same(t, book.Resolve("go mono", false), book.Resolve(`"Go Mono", Go`, false))
}

func TestBackgroundBlurSoftensEdges(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			if x < 20 {
				img.SetRGBA(x, y, color.RGBA{R: 0xff, A: 0xff})
			} else {
				img.SetRGBA(x, y, color.RGBA{B: 0xff, A: 0xff})
			}
		}
	}
	sharp := drawBackgroundImage(80, 40, img, 0)
	soft := drawBackgroundImage(80, 40, img, 4)

	assert.Less(t, sharp.RGBAAt(38, 20).B, uint8(0x20))
	assert.Greater(t, soft.RGBAAt(38, 20).B, uint8(0x20))
}
