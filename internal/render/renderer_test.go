package render

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
	"testing"

	"github.com/rook-computer/covermaker/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red  = color.NRGBA{R: 0xff, A: 0xff}
	blue = color.NRGBA{B: 0xff, A: 0xff}
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA { return img.RGBAAt(x, y) }

// inkBounds returns the bounding box of non-transparent pixels.
func inkBounds(img *image.RGBA) image.Rectangle {
	var box image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).A > 0 {
				box = box.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return box
}

func newTestRenderer(t *testing.T, w, h int, st state.RenderState) (*Renderer, *AsyncDecoder, *state.Store) {
	t.Helper()
	store := state.NewStore(st)
	dec := NewAsyncDecoder(nil)
	r := NewRenderer(store, Options{Width: w, Height: h, Decoder: dec})
	return r, dec, store
}

// gatedDecoder holds completions until the test releases them.
type gatedDecoder struct {
	mu      sync.Mutex
	pending []func()
}

func (g *gatedDecoder) Decode(src *state.ImageSource, done func(image.Image, error)) {
	img, _, err := image.Decode(bytes.NewReader(src.Data))
	g.mu.Lock()
	g.pending = append(g.pending, func() { done(img, err) })
	g.mu.Unlock()
}

func (g *gatedDecoder) release() {
	g.mu.Lock()
	pending := g.pending
	g.pending = nil
	g.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

func TestLayerSet(t *testing.T) {
	set := LayersOf(LayerText, LayerWatermark)
	assert.True(t, set.Has(LayerText))
	assert.True(t, set.Has(LayerWatermark))
	assert.False(t, set.Has(LayerIcon))
	assert.Equal(t, "text,watermark", set.String())
	for _, l := range RedrawOrder {
		assert.True(t, AllLayers.Has(l))
	}
}

func TestComposeWithoutOutputIsNoop(t *testing.T) {
	r, _, _ := newTestRenderer(t, 64, 36, state.Default())
	assert.False(t, r.Compose())

	_, _, err := r.Output()
	assert.ErrorIs(t, err, ErrMissingSurface)
	assert.Equal(t, 0, r.Stats().Composes)
}

func TestComposeStacksLayersInFixedOrder(t *testing.T) {
	st := state.Default()
	st.Title = "Cover\nTitle"
	st.FontSize = 40
	st.Extrusion = 4
	st.Watermark = "example.org"
	st.IconSize = 120
	st.IconPadding = 6
	st.IconRotation = 15
	st.IconImage = state.NewImageSource("icon.png", solidPNG(t, 80, 40, red))

	render := func(order []Layer) *image.RGBA {
		r, dec, _ := newTestRenderer(t, 320, 180, st)
		r.AcquireOutput()
		for _, l := range order {
			r.Redraw(l)
		}
		dec.Wait()
		require.True(t, r.Compose())
		out, _, err := r.Output()
		require.NoError(t, err)

		// Manual alpha stacking of the layers in z-order.
		want := image.NewRGBA(out.Bounds())
		for _, l := range ComposeOrder {
			draw.Draw(want, want.Bounds(), r.Surface(l), image.Point{}, draw.Over)
		}
		assert.Equal(t, want.Pix, out.Pix)
		return out
	}

	a := render([]Layer{LayerBackground, LayerText, LayerWatermark, LayerIcon})
	b := render([]Layer{LayerIcon, LayerWatermark, LayerText, LayerBackground})
	assert.Equal(t, a.Pix, b.Pix, "redraw order must not change the composite")
}

func TestBackgroundImageThenColorThenClear(t *testing.T) {
	r, dec, store := newTestRenderer(t, 64, 36, state.Default())
	r.AcquireOutput()

	store.Update(func(s *state.RenderState) {
		s.BackgroundImage = state.NewImageSource("bg.png", solidPNG(t, 32, 32, blue))
	})
	r.Redraw(LayerBackground)
	dec.Wait()
	assert.Equal(t, color.RGBA{B: 0xff, A: 0xff}, rgbaAt(r.Surface(LayerBackground), 10, 10))

	store.Update(func(s *state.RenderState) { s.BackgroundColor = red })
	r.Redraw(LayerBackground)
	dec.Wait()
	assert.Equal(t, color.RGBA{B: 0xff, A: 0xff}, rgbaAt(r.Surface(LayerBackground), 10, 10), "image keeps precedence")

	store.Update(func(s *state.RenderState) { s.BackgroundImage = nil })
	r.Redraw(LayerBackground)
	dec.Wait()
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, rgbaAt(r.Surface(LayerBackground), 10, 10))
}

func TestStaleDecodeIsDiscarded(t *testing.T) {
	store := state.NewStore(state.Default())
	gate := &gatedDecoder{}
	r := NewRenderer(store, Options{Width: 64, Height: 36, Decoder: gate})
	r.AcquireOutput()
	settled := 0
	r.OnSettled = func(Layer) { settled++ }

	store.Update(func(s *state.RenderState) {
		s.BackgroundImage = state.NewImageSource("bg.png", solidPNG(t, 8, 8, blue))
		s.BackgroundColor = red
	})
	r.Redraw(LayerBackground)

	store.Update(func(s *state.RenderState) { s.BackgroundImage = nil })
	r.Redraw(LayerBackground)

	gate.release()
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, rgbaAt(r.Surface(LayerBackground), 5, 5))
	assert.Equal(t, 1, r.Stats().Stale)
	assert.Equal(t, 0, settled)
}

func TestNewerDecodeWins(t *testing.T) {
	store := state.NewStore(state.Default())
	gate := &gatedDecoder{}
	r := NewRenderer(store, Options{Width: 64, Height: 36, Decoder: gate})

	store.Update(func(s *state.RenderState) { s.BackgroundImage = state.NewImageSource("a.png", solidPNG(t, 8, 8, red)) })
	r.Redraw(LayerBackground)
	store.Update(func(s *state.RenderState) { s.BackgroundImage = state.NewImageSource("b.png", solidPNG(t, 8, 8, blue)) })
	r.Redraw(LayerBackground)

	gate.release()
	assert.Equal(t, color.RGBA{B: 0xff, A: 0xff}, rgbaAt(r.Surface(LayerBackground), 5, 5))
	assert.Equal(t, 1, r.Stats().Stale)
}

func TestDecodeFailureKeepsPreviousContent(t *testing.T) {
	st := state.Default()
	st.IconSize = 40
	st.ShadowColor = color.NRGBA{}
	st.IconImage = state.NewImageSource("ok.png", solidPNG(t, 16, 16, red))
	r, dec, store := newTestRenderer(t, 64, 64, st)
	var logged []string
	r.Logger = recordingLogger{errs: &logged}

	r.Redraw(LayerIcon)
	dec.Wait()
	before := r.Surface(LayerIcon)
	require.False(t, inkBounds(before).Empty())

	store.Update(func(s *state.RenderState) { s.IconImage = state.NewImageSource("broken.png", []byte("not an image")) })
	r.Redraw(LayerIcon)
	dec.Wait()

	assert.Equal(t, before.Pix, r.Surface(LayerIcon).Pix)
	assert.Equal(t, 1, r.Stats().Failed)
	assert.Len(t, logged, 1)
}

func TestDecoderFaultHook(t *testing.T) {
	dec := NewAsyncDecoder(nil)
	dec.BeforeDecode = func(*state.ImageSource) error { return errors.New("boom") }
	_, err := dec.DecodeNow(state.NewImageSource("x.png", solidPNG(t, 2, 2, red)))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestDecoderCachesByKey(t *testing.T) {
	dec := NewAsyncDecoder(nil)
	src := state.NewImageSource("x.png", solidPNG(t, 2, 2, red))
	first, err := dec.DecodeNow(src)
	require.NoError(t, err)

	// Same name and size hits the cache even though the bytes are now junk.
	junk := &state.ImageSource{Name: src.Name, Size: src.Size, Data: []byte("junk")}
	second, err := dec.DecodeNow(junk)
	require.NoError(t, err)
	assert.Same(t, first, second)

	dec.ClearCache()
	_, err = dec.DecodeNow(junk)
	assert.Error(t, err)
}

func TestPanickingRedrawKeepsPreviousSurface(t *testing.T) {
	st := state.Default()
	st.IconSize = 40
	st.ShadowColor = color.NRGBA{}
	st.IconImage = state.NewImageSource("ok.png", solidPNG(t, 16, 16, red))
	r, dec, store := newTestRenderer(t, 64, 64, st)
	r.AcquireOutput()
	var logged []string
	r.Logger = recordingLogger{errs: &logged}

	r.Redraw(LayerIcon)
	dec.Wait()
	before := r.Surface(LayerIcon)
	require.False(t, inkBounds(before).Empty())

	// An icon side this large cannot be allocated.
	store.Update(func(s *state.RenderState) {
		s.IconSize = 1e12
		s.Title = "Still drawn"
		s.FontSize = 12
	})
	r.Redraw(LayerIcon)
	dec.Wait()
	r.Redraw(LayerText)
	require.True(t, r.Compose())

	assert.Equal(t, before.Pix, r.Surface(LayerIcon).Pix)
	assert.False(t, inkBounds(r.Surface(LayerText)).Empty())
	assert.Equal(t, 1, r.Stats().Crashed)
	assert.Equal(t, []string{"render"}, logged)
}

// pngHeader returns a PNG signature and IHDR chunk announcing a w x h RGBA
// image with no pixel data behind it.
func pngHeader(w, h uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8], ihdr[9] = 8, 6
	chunk := append([]byte("IHDR"), ihdr...)
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestDecoderRejectsOversizedImages(t *testing.T) {
	dec := NewAsyncDecoder(nil)
	_, err := dec.DecodeNow(state.NewImageSource("bomb.png", pngHeader(60000, 60000)))
	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "60000x60000")

	dec.MaxPixels = 100
	_, err = dec.DecodeNow(state.NewImageSource("small.png", solidPNG(t, 20, 20, red)))
	assert.ErrorIs(t, err, ErrDecode)
	img, err := dec.DecodeNow(state.NewImageSource("tiny.png", solidPNG(t, 10, 10, red)))
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestDecoderWaitHonorsContext(t *testing.T) {
	dec := NewAsyncDecoder(nil)
	release := make(chan struct{})
	dec.BeforeDecode = func(*state.ImageSource) error {
		<-release
		return nil
	}
	finished := make(chan struct{})
	dec.Decode(state.NewImageSource("slow.png", solidPNG(t, 2, 2, red)), func(image.Image, error) { close(finished) })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, dec.WaitContext(ctx), context.Canceled)

	close(release)
	require.NoError(t, dec.WaitContext(context.Background()))
	select {
	case <-finished:
	default:
		t.Fatal("Wait returned before done was called")
	}
}

func TestIconWithoutImageIsEmpty(t *testing.T) {
	r, _, _ := newTestRenderer(t, 64, 36, state.Default())
	r.Redraw(LayerIcon)
	assert.True(t, inkBounds(r.Surface(LayerIcon)).Empty())
}

type recordingLogger struct{ errs *[]string }

func (recordingLogger) Infof(string, string, ...interface{}) {}
func (l recordingLogger) Errorf(component string, format string, args ...interface{}) {
	*l.errs = append(*l.errs, component)
}
