package web

import (
	"context"
	"image"

	"github.com/rook-computer/covermaker/internal/app"
	"github.com/rook-computer/covermaker/internal/render"
	"github.com/rook-computer/covermaker/internal/schedule"
	"github.com/rook-computer/covermaker/internal/state"
)

// Pipeline is the cover pipeline as seen by the API. *app.App implements it.
type Pipeline interface {
	Snapshot() state.RenderState
	ApplyPatch(p schedule.Patch) error
	SetBackgroundImage(src *state.ImageSource)
	SetIconImage(src *state.ImageSource)
	ComposeCanvases(ctx context.Context) bool
	Settle(ctx context.Context) error
	Export(format render.Format, quality float64) (render.Blob, error)
	Stats() app.Stats
}

// ExportStore returns recent exports by filename.
type ExportStore interface {
	Lookup(filename string) (render.Blob, bool)
}

// FontLister lists the registered font families.
type FontLister interface {
	Families() []string
}

// OutputSource yields a copy of the composed output.
type OutputSource interface {
	Output() (*image.RGBA, uint64, error)
	Size() (width int, height int)
}

// sysLogger matches the logging shape used across the repo.
type sysLogger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type APIV1Deps struct {
	Pipeline       Pipeline
	Exports        ExportStore
	Fonts          FontLister
	Output         OutputSource
	Logger         sysLogger
	MaxUploadBytes int64
}

type noopSysLogger struct{}

func (noopSysLogger) Infof(string, string, ...interface{})  {}
func (noopSysLogger) Errorf(string, string, ...interface{}) {}

func (d APIV1Deps) withDefaults() APIV1Deps {
	if d.Logger == nil {
		d.Logger = noopSysLogger{}
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return d
}

// NewAPIV1Deps wires the API to one app instance.
func NewAPIV1Deps(a *app.App, logger sysLogger, maxUploadBytes int64) APIV1Deps {
	return APIV1Deps{
		Pipeline:       a,
		Exports:        a.Exporter,
		Fonts:          a.Renderer.Fonts(),
		Output:         a.Renderer,
		Logger:         logger,
		MaxUploadBytes: maxUploadBytes,
	}
}
