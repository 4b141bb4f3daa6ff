package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rook-computer/covermaker/internal/app"
	"github.com/rook-computer/covermaker/internal/render"
	"github.com/rook-computer/covermaker/internal/state"
	"github.com/rook-computer/covermaker/internal/web"
)

type SimFaults struct {
	DecodeFail    bool `json:"decodeFail"`
	DecodeDelayMS int  `json:"decodeDelayMs"`
	ExportFail    bool `json:"exportFail"`
}

var errSimulatedExport = errors.New("simulated export failure")

// scenarios build a full render state. Images are generated so the simulator
// needs no files on disk.
var scenarios = map[string]func() state.RenderState{
	"default": state.Default,
	"blank": func() state.RenderState {
		st := state.Default()
		st.Title = ""
		return st
	},
	"photo": func() state.RenderState {
		st := state.Default()
		st.Title = "Simulated Cover"
		st.Watermark = "covermaker"
		st.BackgroundImage = generatedSource("sim-gradient.png", gradientImage(640, 360))
		st.BackgroundBlur = 4
		st.IconImage = generatedSource("sim-disc.png", discImage(256, 256))
		st.IconRotation = 12
		return st
	},
	"multiline": func() state.RenderState {
		st := state.Default()
		st.Title = "First line\nSecond line\nThird"
		st.FontSize = 96
		st.Extrusion = 8
		return st
	},
	"wide-icon": func() state.RenderState {
		st := state.Default()
		st.Title = ""
		st.IconImage = generatedSource("sim-wide.png", discImage(400, 200))
		return st
	},
}

func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type SimControl struct {
	app             *app.App
	startupScenario string
	currentScenario atomic.Value // string

	faults struct {
		mu sync.RWMutex
		v  SimFaults
	}
}

func NewSimControl(a *app.App, startupScenario string) *SimControl {
	c := &SimControl{app: a, startupScenario: strings.TrimSpace(startupScenario)}
	if c.startupScenario == "" {
		c.startupScenario = "default"
	}
	c.currentScenario.Store(c.startupScenario)
	a.Decoder.BeforeDecode = c.beforeDecode
	return c
}

// Deps wires the API to the simulated pipeline so export faults apply.
func (c *SimControl) Deps(maxUploadBytes int64) web.APIV1Deps {
	deps := web.NewAPIV1Deps(c.app, nil, maxUploadBytes)
	deps.Pipeline = simPipeline{App: c.app, control: c}
	return deps
}

func (c *SimControl) Scenario() string { return c.currentScenario.Load().(string) }

func (c *SimControl) ApplyScenario(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		name = c.startupScenario
	}
	build, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q", name)
	}
	c.app.ReplaceState(build())
	c.currentScenario.Store(name)
	return nil
}

func (c *SimControl) Reset() error {
	c.SetFaults(SimFaults{})
	return c.ApplyScenario(c.startupScenario)
}

func (c *SimControl) Faults() SimFaults {
	c.faults.mu.RLock()
	defer c.faults.mu.RUnlock()
	return c.faults.v
}

func (c *SimControl) SetFaults(v SimFaults) {
	c.faults.mu.Lock()
	c.faults.v = v
	c.faults.mu.Unlock()
}

func (c *SimControl) beforeDecode(src *state.ImageSource) error {
	faults := c.Faults()
	if faults.DecodeDelayMS > 0 {
		time.Sleep(time.Duration(faults.DecodeDelayMS) * time.Millisecond)
	}
	if faults.DecodeFail {
		return fmt.Errorf("simulated decode failure")
	}
	return nil
}

// RenderTo settles the pipeline and writes one export to path.
func (c *SimControl) RenderTo(ctx context.Context, path string) error {
	format, err := formatForPath(path)
	if err != nil {
		return err
	}
	if err := c.app.Settle(ctx); err != nil {
		return err
	}
	blob, err := simPipeline{App: c.app, control: c}.Export(format, 0)
	if err != nil {
		return err
	}
	return os.WriteFile(path, blob.Bytes, 0o644)
}

type simPipeline struct {
	*app.App
	control *SimControl
}

func (p simPipeline) Export(format render.Format, quality float64) (render.Blob, error) {
	if p.control.Faults().ExportFail {
		return render.Blob{}, errSimulatedExport
	}
	return p.App.Export(format, quality)
}

func generatedSource(name string, img image.Image) *state.ImageSource {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return state.NewImageSource(name, buf.Bytes())
}

func gradientImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(255 * x / w),
				G: uint8(80 + 100*y/h),
				B: uint8(255 - 255*x/w),
				A: 0xff,
			})
		}
	}
	return img
}

// discImage draws an opaque disc inside a transparent w x h canvas.
func discImage(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	cx, cy := float64(w)/2, float64(h)/2
	r := math.Min(cx, cy) * 0.9
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy) <= r {
				img.SetNRGBA(x, y, color.NRGBA{R: 0xf9, G: 0x73, B: 0x16, A: 0xff})
			}
		}
	}
	return img
}

func registerSimEndpoints(mux *http.ServeMux, control *SimControl) {
	mux.HandleFunc("/sim/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := control.Reset(); err != nil {
			writeSimError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": control.Scenario()})
	})

	mux.HandleFunc("/sim/scenarios", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"current": control.Scenario(), "available": ScenarioNames()})
	})

	mux.HandleFunc("/sim/scenario/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/sim/scenario/")
		name = strings.Trim(name, "/")
		if err := control.ApplyScenario(name); err != nil {
			writeSimError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeSimJSON(w, http.StatusOK, map[string]any{"ok": true, "scenario": control.Scenario()})
	})

	mux.HandleFunc("/sim/faults", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeSimJSON(w, http.StatusOK, control.Faults())
		case http.MethodPost:
			var patch struct {
				DecodeFail    *bool `json:"decodeFail"`
				DecodeDelayMS *int  `json:"decodeDelayMs"`
				ExportFail    *bool `json:"exportFail"`
			}
			if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
				writeSimError(w, http.StatusBadRequest, "invalid json")
				return
			}
			current := control.Faults()
			if patch.DecodeFail != nil {
				current.DecodeFail = *patch.DecodeFail
			}
			if patch.DecodeDelayMS != nil {
				current.DecodeDelayMS = *patch.DecodeDelayMS
			}
			if patch.ExportFail != nil {
				current.ExportFail = *patch.ExportFail
			}
			control.SetFaults(current)
			writeSimJSON(w, http.StatusOK, current)
		default:
			writeSimError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}

func writeSimJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSimError(w http.ResponseWriter, status int, message string) {
	writeSimJSON(w, status, map[string]any{"error": message})
}
