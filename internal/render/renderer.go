package render

import (
	"errors"
	"image"
	"image/draw"
	"sync"

	"github.com/rook-computer/covermaker/internal/state"
)

// ErrMissingSurface is returned when the output surface has not been
// acquired yet.
var ErrMissingSurface = errors.New("output surface not available")

// Stats counts work done by the renderer since it was created.
type Stats struct {
	Redraws  map[string]int `json:"redraws"`
	Composes int            `json:"composes"`
	Stale    int            `json:"staleDecodes"`
	Failed   int            `json:"failedDecodes"`
	Crashed  int            `json:"failedRedraws"`
}

// Renderer owns the four layer surfaces and the output surface.
type Renderer struct {
	width, height int
	store         *state.Store
	fonts         *FontBook
	decoder       ImageDecoder
	exec          Executor

	Logger Logger

	// OnSettled is called after an asynchronous layer redraw has replaced its
	// surface. It is wired to the compositor.
	OnSettled func(Layer)

	mu       sync.Mutex
	surfaces [layerCount]*image.RGBA
	gens     [layerCount]uint64
	output   *image.RGBA
	version  uint64
	redraws  [layerCount]int
	composes int
	stale    int
	failed   int
	crashed  int
}

type Options struct {
	Width, Height int
	Fonts         *FontBook
	Decoder       ImageDecoder
	Executor      Executor
	Logger        Logger
}

func NewRenderer(store *state.Store, opts Options) *Renderer {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DefaultWidth, DefaultHeight
	}
	if opts.Fonts == nil {
		opts.Fonts = NewFontBook()
	}
	if opts.Decoder == nil {
		opts.Decoder = NewAsyncDecoder(nil)
	}
	if opts.Executor == nil {
		opts.Executor = Inline
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	r := &Renderer{
		width:   opts.Width,
		height:  opts.Height,
		store:   store,
		fonts:   opts.Fonts,
		decoder: opts.Decoder,
		exec:    opts.Executor,
		Logger:  opts.Logger,
	}
	for i := range r.surfaces {
		r.surfaces[i] = newSurface(r.width, r.height)
	}
	return r
}

func (r *Renderer) Size() (width int, height int) { return r.width, r.height }

func (r *Renderer) Fonts() *FontBook { return r.fonts }

// Redraw issues the redraw routine of one layer. Image backed layers return
// before their pixels are ready. A redraw that panics is logged and leaves
// the layer's previous surface in place.
func (r *Renderer) Redraw(layer Layer) {
	r.guard(layer, func() { r.redraw(layer) })
}

func (r *Renderer) redraw(layer Layer) {
	switch layer {
	case LayerBackground:
		r.redrawBackground()
	case LayerText:
		snap := r.store.Snapshot()
		gen := r.begin(layer)
		r.commit(layer, gen, drawText(r.width, r.height, snap, r.fonts))
	case LayerIcon:
		r.redrawIcon()
	case LayerWatermark:
		snap := r.store.Snapshot()
		gen := r.begin(layer)
		r.commit(layer, gen, drawWatermark(r.width, r.height, snap, r.fonts))
	}
}

// RedrawAll redraws every layer in redraw order.
func (r *Renderer) RedrawAll() {
	for _, layer := range RedrawOrder {
		r.Redraw(layer)
	}
}

func (r *Renderer) redrawBackground() {
	snap := r.store.Snapshot()
	gen := r.begin(LayerBackground)
	if !snap.HasBackgroundImage() {
		r.commit(LayerBackground, gen, drawBackgroundColor(r.width, r.height, snap))
		return
	}
	blurRadius := snap.BackgroundBlur
	r.decodeThen(LayerBackground, gen, snap.BackgroundImage, func(img image.Image) *image.RGBA {
		return drawBackgroundImage(r.width, r.height, img, blurRadius)
	})
}

func (r *Renderer) redrawIcon() {
	snap := r.store.Snapshot()
	gen := r.begin(LayerIcon)
	if !snap.HasIcon() {
		r.commit(LayerIcon, gen, newSurface(r.width, r.height))
		return
	}
	r.decodeThen(LayerIcon, gen, snap.IconImage, func(img image.Image) *image.RGBA {
		return drawIcon(r.width, r.height, snap, img)
	})
}

// decodeThen decodes src and, back on the executor, draws and commits the
// layer unless a newer redraw has started in the meantime. On failure the
// layer keeps its previous content.
func (r *Renderer) decodeThen(layer Layer, gen uint64, src *state.ImageSource, paint func(image.Image) *image.RGBA) {
	r.decoder.Decode(src, func(img image.Image, err error) {
		r.exec.Post(func() {
			if !r.current(layer, gen) {
				r.discard(layer, src)
				return
			}
			if err != nil {
				r.mu.Lock()
				r.failed++
				r.mu.Unlock()
				r.Logger.Errorf("decode", "%s layer: %v", layer, err)
				return
			}
			var surface *image.RGBA
			if !r.guard(layer, func() { surface = paint(img) }) {
				return
			}
			if !r.commit(layer, gen, surface) {
				r.discard(layer, src)
				return
			}
			if r.OnSettled != nil {
				r.OnSettled(layer)
			}
		})
	})
}

// guard runs fn and reports whether it returned normally.
func (r *Renderer) guard(layer Layer, fn func()) (ok bool) {
	defer func() {
		if v := recover(); v != nil {
			r.mu.Lock()
			r.crashed++
			r.mu.Unlock()
			r.Logger.Errorf("render", "%s layer redraw failed: %v", layer, v)
			ok = false
		}
	}()
	fn()
	return true
}

func (r *Renderer) discard(layer Layer, src *state.ImageSource) {
	r.mu.Lock()
	r.stale++
	r.mu.Unlock()
	r.Logger.Infof("decode", "discarding stale %s decode of %s", layer, src.Name)
}

// begin starts a new generation for layer; completions of older generations
// are dropped.
func (r *Renderer) begin(layer Layer) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gens[layer]++
	r.redraws[layer]++
	return r.gens[layer]
}

func (r *Renderer) current(layer Layer, gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gens[layer] == gen
}

// commit swaps in a finished surface if gen is still the latest generation.
func (r *Renderer) commit(layer Layer, gen uint64, surface *image.RGBA) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gens[layer] != gen {
		return false
	}
	r.surfaces[layer] = surface
	return true
}

// AcquireOutput allocates the output surface. Calling it again is a no-op.
func (r *Renderer) AcquireOutput() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.output == nil {
		r.output = newSurface(r.width, r.height)
	}
}

// ReleaseOutput drops the output surface; compose becomes a no-op again.
func (r *Renderer) ReleaseOutput() {
	r.mu.Lock()
	r.output = nil
	r.mu.Unlock()
}

// Compose stacks the layer surfaces onto the output surface in fixed order.
// It reports false when there is no output surface yet.
func (r *Renderer) Compose() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.output == nil {
		r.Logger.Infof("render", "compose skipped: %v", ErrMissingSurface)
		return false
	}
	bounds := r.output.Bounds()
	draw.Draw(r.output, bounds, image.Transparent, image.Point{}, draw.Src)
	for _, layer := range ComposeOrder {
		draw.Draw(r.output, bounds, r.surfaces[layer], image.Point{}, draw.Over)
	}
	r.composes++
	r.version++
	return true
}

// Output returns a copy of the output surface and the compose version it
// reflects.
func (r *Renderer) Output() (*image.RGBA, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.output == nil {
		return nil, 0, ErrMissingSurface
	}
	return cloneRGBA(r.output), r.version, nil
}

// Version increases with every compose pass.
func (r *Renderer) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// Surface returns a copy of one layer surface.
func (r *Renderer) Surface(layer Layer) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRGBA(r.surfaces[layer])
}

func (r *Renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := Stats{Redraws: make(map[string]int, layerCount), Composes: r.composes, Stale: r.stale, Failed: r.failed, Crashed: r.crashed}
	for _, layer := range RedrawOrder {
		out.Redraws[layer.String()] = r.redraws[layer]
	}
	return out
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
