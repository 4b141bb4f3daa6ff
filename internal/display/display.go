// Package display mirrors the composed cover onto a physical screen such as
// the Linux framebuffer.
package display

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"
)

const DefaultFPS = 30

// Screen is the pixel sink. *framebuffer.Device and *image.RGBA satisfy it.
type Screen interface {
	Bounds() image.Rectangle
	Set(x, y int, c color.Color)
}

// Source yields the composed output and its compose version.
type Source interface {
	Output() (*image.RGBA, uint64, error)
	Version() uint64
}

type logger interface {
	Infof(string, string, ...interface{})
	Errorf(string, string, ...interface{})
}

// Mirror copies the output onto a Screen whenever a new compose pass lands.
// The cover is letterboxed to keep its aspect ratio.
type Mirror struct {
	Source Source
	Screen Screen
	Logger logger
	FPS    int

	staging  *image.RGBA
	last     uint64
	frames   int
	failing  bool
	done     chan struct{}
	doneOnce sync.Once
}

func NewMirror(src Source, screen Screen) *Mirror {
	return &Mirror{Source: src, Screen: screen, FPS: DefaultFPS, done: make(chan struct{})}
}

// Done is closed when Run has returned. The screen must not be released
// before that.
func (m *Mirror) Done() <-chan struct{} { return m.done }

// Frames is the number of frames pushed to the screen.
func (m *Mirror) Frames() int { return m.frames }

// Refresh pushes the output when its version changed since the last frame.
func (m *Mirror) Refresh() (bool, error) {
	if m.frames > 0 && m.Source.Version() == m.last {
		return false, nil
	}
	out, version, err := m.Source.Output()
	if err != nil {
		return false, err
	}
	m.blit(out)
	m.last = version
	m.frames++
	return true, nil
}

// Run refreshes at FPS until ctx is done. Call it at most once.
func (m *Mirror) Run(ctx context.Context) {
	defer m.doneOnce.Do(func() { close(m.done) })
	fps := m.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := m.Refresh()
			switch {
			case err != nil && !m.failing:
				m.failing = true
				if m.Logger != nil {
					m.Logger.Errorf("display", "no frame: %v", err)
				}
			case err == nil && m.failing:
				m.failing = false
				if m.Logger != nil {
					m.Logger.Infof("display", "frames resumed at version %d", m.last)
				}
			}
		}
	}
}

// Placement returns where a src-sized image lands inside dst when scaled to
// fit with its aspect ratio kept.
func Placement(src, dst image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw <= 0 || sh <= 0 || dw <= 0 || dh <= 0 {
		return image.Rectangle{}
	}
	w, h := dw, sh*dw/sw
	if h > dh {
		w, h = sw*dh/sh, dh
	}
	x := dst.Min.X + (dw-w)/2
	y := dst.Min.Y + (dh-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func (m *Mirror) blit(out *image.RGBA) {
	bounds := m.Screen.Bounds()
	if m.staging == nil || m.staging.Bounds() != bounds {
		m.staging = image.NewRGBA(bounds)
	}
	draw.Draw(m.staging, bounds, image.Black, image.Point{}, draw.Src)
	xdraw.NearestNeighbor.Scale(m.staging, Placement(out.Bounds(), bounds), out, out.Bounds(), xdraw.Over, nil)

	// The framebuffer has no alpha channel.
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			p := m.staging.RGBAAt(x, y)
			m.Screen.Set(x, y, color.RGBA{R: p.R, G: p.G, B: p.B, A: 0xff})
		}
	}
}
