package app

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rook-computer/covermaker/internal/render"
	"github.com/rook-computer/covermaker/internal/schedule"
	"github.com/rook-computer/covermaker/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, *schedule.ManualClock) {
	t.Helper()
	clock := &schedule.ManualClock{}
	initial := state.Default()
	initial.Title = ""
	a := New(Options{Width: 160, Height: 90, Clock: clock, Initial: &initial})
	t.Cleanup(a.Cleanup)
	return a, clock
}

func pngSource(t *testing.T, name string, c color.Color) *state.ImageSource {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 18))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return state.NewImageSource(name, buf.Bytes())
}

func TestInitializeOnce(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, a.Initialize(ctx))
	assert.ErrorIs(t, a.Initialize(ctx), ErrAlreadyInitialized)

	stats := a.Stats()
	assert.True(t, stats.Initialized)
	assert.Equal(t, 1, stats.Composes)
	for _, layer := range render.RedrawOrder {
		assert.Equal(t, 1, stats.Redraws[layer.String()], layer.String())
	}
}

func TestBeforeInitializeDegrades(t *testing.T) {
	a, _ := newTestApp(t)
	assert.False(t, a.ComposeCanvases(context.Background()))
	assert.ErrorIs(t, a.Settle(context.Background()), ErrNotInitialized)

	_, err := a.Export(render.FormatPNG, 0)
	assert.ErrorIs(t, err, render.ErrMissingSurface)
}

func TestUpdatesCoalescePerFrame(t *testing.T) {
	a, clock := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))

	for i := 0; i < 25; i++ {
		a.SetFontSize(float64(20 + i))
	}
	a.SetTitleColor(color.NRGBA{G: 0xff, A: 0xff})
	assert.Equal(t, 1, clock.Pending())
	require.NoError(t, a.Settle(ctx))

	stats := a.Stats()
	assert.Equal(t, 2, stats.Redraws["text"])
	assert.Equal(t, 1, stats.Redraws["icon"])
	assert.Equal(t, 2, stats.Composes)
	assert.Equal(t, 44.0, a.Snapshot().FontSize)
	assert.Equal(t, "idle", stats.Phase)
}

func TestBackgroundImageReachesOutput(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))

	a.SetBackgroundImage(pngSource(t, "bg.png", color.NRGBA{B: 0xff, A: 0xff}))
	require.NoError(t, a.Settle(ctx))

	out, _, err := a.Renderer.Output()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{B: 0xff, A: 0xff}, out.RGBAAt(3, 3))

	a.SetBackgroundImage(nil)
	a.SetBackgroundColor(color.NRGBA{R: 0xff, A: 0xff})
	require.NoError(t, a.Settle(ctx))
	out, _, err = a.Renderer.Output()
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, out.RGBAAt(3, 3))
}

func TestApplyPatch(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))

	bad := "#zz"
	assert.ErrorIs(t, a.ApplyPatch(schedule.Patch{BackgroundColor: &bad}), schedule.ErrInvalidPatch)
	assert.Equal(t, 0, a.Scheduler.Pending())

	title := "Patched"
	require.NoError(t, a.ApplyPatch(schedule.Patch{Title: &title}))
	require.NoError(t, a.Settle(ctx))
	assert.Equal(t, "Patched", a.Snapshot().Title)
}

func TestOversizedSetterIsDropped(t *testing.T) {
	a, _ := newTestApp(t)
	require.NoError(t, a.Initialize(context.Background()))

	a.SetIconSize(1e9)
	a.SetFontSize(1e7)
	a.SetIconShadow(color.NRGBA{A: 0xff}, 1e6, 0, 0)
	assert.Equal(t, 0, a.Scheduler.Pending())
	assert.Equal(t, state.Default().IconSize, a.Snapshot().IconSize)
}

func TestFailingLayerDoesNotStopPipeline(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))

	// Raw events skip patch validation; the icon tile cannot be allocated.
	a.Submit(
		schedule.SetIconImage{Source: pngSource(t, "icon.png", color.NRGBA{R: 0xff, A: 0xff})},
		schedule.SetIconSize{Size: 1e12},
	)
	a.SetTitle("Survives")
	require.NoError(t, a.Settle(ctx))

	stats := a.Stats()
	assert.Equal(t, 1, stats.Crashed)
	assert.Equal(t, 2, stats.Redraws["text"])
	assert.Equal(t, 2, stats.Redraws["icon"])
	assert.Equal(t, 2, stats.Composes, "one pass at init, one for the flush")
	assert.Equal(t, "Survives", a.Snapshot().Title)

	// The loop is still serving.
	a.SetTitle("Again")
	require.NoError(t, a.Settle(ctx))
	assert.Equal(t, 3, a.Stats().Redraws["text"])
}

func TestSettleWhileSubmitting(t *testing.T) {
	initial := state.Default()
	initial.Title = ""
	a := New(Options{Width: 160, Height: 90, FrameInterval: time.Millisecond, Initial: &initial})
	t.Cleanup(a.Cleanup)
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))

	sources := []*state.ImageSource{
		pngSource(t, "red.png", color.NRGBA{R: 0xff, A: 0xff}),
		pngSource(t, "blue.png", color.NRGBA{B: 0xff, A: 0xff}),
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			a.SetIconImage(sources[i%2])
			time.Sleep(100 * time.Microsecond)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			settleCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			assert.NoError(t, a.Settle(settleCtx))
			cancel()
		}
	}()
	wg.Wait()

	require.NoError(t, a.Settle(ctx))
	assert.Equal(t, "blue.png", a.Snapshot().IconImage.Name)
	assert.Zero(t, a.Stats().Failed)
}

func TestExportAfterSettle(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))
	a.SetWatermark("covermaker")
	require.NoError(t, a.Settle(ctx))
	assert.True(t, a.ComposeCanvases(ctx))

	blob, err := a.Export(render.DefaultFormat, render.DefaultQuality)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", blob.MimeType)
	assert.True(t, strings.HasPrefix(blob.URL, "/api/v1/exports/cover-"))

	got, ok := a.Exporter.Lookup(blob.Filename)
	require.True(t, ok)
	assert.Equal(t, blob.Size, got.Size)
	assert.Equal(t, 1, a.Stats().RecentExports)
}

func TestCleanupIsIdempotent(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Initialize(ctx))
	a.SetTitle("queued")

	a.Cleanup()
	a.Cleanup()

	assert.Equal(t, 0, a.Scheduler.Pending())
	assert.Equal(t, schedule.Idle, a.Scheduler.Phase())
	assert.False(t, a.ComposeCanvases(ctx))
	_, err := a.Export(render.FormatPNG, 0)
	assert.ErrorIs(t, err, render.ErrMissingSurface)
}

func TestCleanupBeforeInitialize(t *testing.T) {
	a, _ := newTestApp(t)
	assert.NotPanics(t, a.Cleanup)
}

func TestFileLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFileLogger(&buf)
	logger.Infof("render", "composed %d", 3)
	logger.Errorf("decode", "bad %s", "icon.png")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], " [INFO] render: composed 3")
	assert.Contains(t, lines[1], " [ERROR] decode: bad icon.png")
}

func TestRotatingLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "covermaker.log")
	logger, closer := NewRotatingLogger(path, 1, 2)
	logger.Infof("main", "hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] main: hello")
}
