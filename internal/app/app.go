package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rook-computer/covermaker/internal/imagecache"
	"github.com/rook-computer/covermaker/internal/render"
	"github.com/rook-computer/covermaker/internal/schedule"
	"github.com/rook-computer/covermaker/internal/state"
)

var (
	ErrAlreadyInitialized = errors.New("app already initialized")
	ErrNotInitialized     = errors.New("app not initialized")
)

type Options struct {
	Width, Height  int
	CacheCapacity  int
	ExportCapacity int

	// Clock paces scheduler flushes; defaults to a ticker at FrameInterval.
	Clock         schedule.FrameClock
	FrameInterval time.Duration

	Fonts           *render.FontBook
	Initial         *state.RenderState
	ExportURLPrefix string
}

// App owns one cover pipeline: state, renderer, scheduler and exporter, all
// driven from a single event loop.
type App struct {
	Store     *state.Store
	Renderer  *render.Renderer
	Scheduler *schedule.Scheduler
	Exporter  *render.Exporter
	Decoder   *render.AsyncDecoder
	Loop      *schedule.Loop
	Logger    Logger

	initialized atomic.Bool
	cleanupOnce sync.Once
	cancel      context.CancelFunc
	loopDone    chan struct{}
}

func New(opts Options) *App {
	initial := state.Default()
	if opts.Initial != nil {
		initial = *opts.Initial
	}
	clock := opts.Clock
	if clock == nil {
		clock = schedule.TickerClock{Interval: opts.FrameInterval}
	}
	if opts.ExportURLPrefix == "" {
		opts.ExportURLPrefix = "/api/v1/exports/"
	}

	store := state.NewStore(initial)
	loop := schedule.NewLoop(0)
	decoder := render.NewAsyncDecoder(imagecache.New[image.Image](opts.CacheCapacity))
	renderer := render.NewRenderer(store, render.Options{
		Width:    opts.Width,
		Height:   opts.Height,
		Fonts:    opts.Fonts,
		Decoder:  decoder,
		Executor: loop,
	})
	app := &App{
		Store:     store,
		Renderer:  renderer,
		Scheduler: schedule.NewScheduler(store, renderer, clock, loop),
		Exporter:  render.NewExporter(renderer, imagecache.New[render.Blob](opts.ExportCapacity), opts.ExportURLPrefix),
		Decoder:   decoder,
		Loop:      loop,
		Logger:    NoopLogger{},
	}
	// Asynchronous layers reach the output as soon as they settle.
	renderer.OnSettled = func(render.Layer) { renderer.Compose() }
	return app
}

// Initialize acquires the output surface, starts the event loop and draws
// every layer once. It may be called only once.
func (app *App) Initialize(ctx context.Context) error {
	if !app.initialized.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}
	app.Renderer.Logger = app.Logger
	app.Scheduler.Logger = app.Logger

	app.Renderer.AcquireOutput()

	loopCtx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.loopDone = make(chan struct{})
	go func() {
		defer close(app.loopDone)
		_ = app.Loop.Run(loopCtx)
	}()

	w, h := app.Renderer.Size()
	app.Logger.Infof("app", "initialized %dx%d output", w, h)
	return app.Loop.Do(ctx, func() {
		app.Renderer.RedrawAll()
		app.Renderer.Compose()
	})
}

// Cleanup stops the loop, drops queued events and empties the decode cache.
// Safe to call more than once, and before Initialize.
func (app *App) Cleanup() {
	app.cleanupOnce.Do(func() {
		app.Scheduler.Reset()
		app.Loop.Stop()
		if app.cancel != nil {
			app.cancel()
			<-app.loopDone
		}
		app.Decoder.Wait()
		app.Decoder.ClearCache()
		app.Renderer.ReleaseOutput()
		app.Logger.Infof("app", "cleaned up")
	})
}

// ComposeCanvases composes the output now instead of waiting for the next
// scheduled pass. Before Initialize it logs and reports false.
func (app *App) ComposeCanvases(ctx context.Context) bool {
	if !app.initialized.Load() {
		app.Logger.Infof("app", "compose skipped: %v", ErrNotInitialized)
		return false
	}
	var composed bool
	if err := app.Loop.Do(ctx, func() { composed = app.Renderer.Compose() }); err != nil {
		app.Logger.Errorf("app", "compose: %v", err)
		return false
	}
	return composed
}

// Settle flushes queued events, waits for in-flight decodes and lets their
// completions reach the output.
func (app *App) Settle(ctx context.Context) error {
	if !app.initialized.Load() {
		return ErrNotInitialized
	}
	if err := app.Loop.Do(ctx, app.Scheduler.FlushNow); err != nil {
		return err
	}
	if err := app.Decoder.WaitContext(ctx); err != nil {
		return err
	}
	return app.Loop.Do(ctx, func() {})
}

func (app *App) Export(format render.Format, quality float64) (render.Blob, error) {
	blob, err := app.Exporter.Export(format, quality)
	if err != nil {
		app.Logger.Errorf("export", "%s: %v", format, err)
		return render.Blob{}, err
	}
	app.Logger.Infof("export", "%s %d bytes", blob.Filename, blob.Size)
	return blob, nil
}

func (app *App) Snapshot() state.RenderState { return app.Store.Snapshot() }

// Stats is a point-in-time view of the pipeline.
type Stats struct {
	render.Stats
	Phase         string `json:"phase"`
	Flushes       int    `json:"flushes"`
	Pending       int    `json:"pendingEvents"`
	RecentExports int    `json:"recentExports"`
	Initialized   bool   `json:"initialized"`
}

func (app *App) Stats() Stats {
	return Stats{
		Stats:         app.Renderer.Stats(),
		Phase:         app.Scheduler.Phase().String(),
		Flushes:       app.Scheduler.Flushes(),
		Pending:       app.Scheduler.Pending(),
		RecentExports: app.Exporter.Recent.Len(),
		Initialized:   app.initialized.Load(),
	}
}

// Submit queues raw events for the next frame.
func (app *App) Submit(events ...schedule.Event) { app.Scheduler.Submit(events...) }

// ApplyPatch validates p and queues its events. Nothing is queued when any
// field is invalid.
func (app *App) ApplyPatch(p schedule.Patch) error {
	events, err := p.Events()
	if err != nil {
		return err
	}
	app.Submit(events...)
	return nil
}

// applyLogged is ApplyPatch for setters without an error return. Rejected
// values are logged and dropped.
func (app *App) applyLogged(p schedule.Patch) {
	if err := app.ApplyPatch(p); err != nil {
		app.Logger.Errorf("app", "%v", err)
	}
}

// ReplaceState swaps the whole state, images included.
func (app *App) ReplaceState(next state.RenderState) {
	app.Submit(schedule.ReplaceState{State: next})
}

// Per-field entrypoints.

func (app *App) SetBackgroundColor(c color.NRGBA) {
	app.Submit(schedule.SetBackgroundColor{Color: c})
}

// SetBackgroundImage sets the background photo; nil reverts to the color.
func (app *App) SetBackgroundImage(src *state.ImageSource) {
	if src == nil {
		app.Submit(schedule.ClearBackgroundImage{})
		return
	}
	app.Submit(schedule.SetBackgroundImage{Source: src})
}

func (app *App) SetBackgroundBlur(radius float64) {
	app.applyLogged(schedule.Patch{BackgroundBlur: &radius})
}

func (app *App) SetTitle(text string) { app.Submit(schedule.SetTitle{Text: text}) }
func (app *App) SetTitleColor(c color.NRGBA) { app.Submit(schedule.SetTitleColor{Color: c}) }
func (app *App) SetFontSize(px float64) { app.applyLogged(schedule.Patch{FontSize: &px}) }
func (app *App) SetLineHeight(mult float64) { app.applyLogged(schedule.Patch{LineHeight: &mult}) }
func (app *App) SetExtrusion(depth float64) { app.applyLogged(schedule.Patch{Extrusion: &depth}) }
func (app *App) SetFontFamily(family string) { app.Submit(schedule.SetFontFamily{Family: family}) }
func (app *App) SetWatermark(text string) { app.Submit(schedule.SetWatermark{Text: text}) }
func (app *App) SetWatermarkColor(c color.NRGBA) { app.Submit(schedule.SetWatermarkColor{Color: c}) }

// SetIconImage sets the icon image; nil leaves the icon surface empty.
func (app *App) SetIconImage(src *state.ImageSource) {
	if src == nil {
		app.Submit(schedule.ClearIconImage{})
		return
	}
	app.Submit(schedule.SetIconImage{Source: src})
}

func (app *App) SetIconSize(px float64) { app.applyLogged(schedule.Patch{IconSize: &px}) }
func (app *App) SetIconRotation(degrees float64) { app.Submit(schedule.SetIconRotation{Degrees: degrees}) }
func (app *App) SetIconBackground(c color.NRGBA) { app.Submit(schedule.SetIconBackground{Color: c}) }
func (app *App) SetIconPadding(px float64) { app.applyLogged(schedule.Patch{IconPadding: &px}) }

func (app *App) SetIconShadow(c color.NRGBA, blur, offsetX, offsetY float64) {
	if _, err := (schedule.Patch{ShadowBlur: &blur, ShadowOffsetX: &offsetX, ShadowOffsetY: &offsetY}).Events(); err != nil {
		app.Logger.Errorf("app", "%v", err)
		return
	}
	app.Submit(schedule.SetIconShadow{Color: &c, Blur: &blur, OffsetX: &offsetX, OffsetY: &offsetY})
}
