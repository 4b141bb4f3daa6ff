package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rook-computer/covermaker/internal/app"
	"github.com/rook-computer/covermaker/internal/render"
	"github.com/rook-computer/covermaker/internal/web"
)

func main() {
	defaults, err := web.DefaultServerConfigFromEnv(":8080")
	if err != nil {
		fmt.Println("server config error:", err)
		os.Exit(2)
	}

	listenAddr := flag.String("listen", defaults.ListenAddr, "http listen address; also configurable via "+web.EnvListenAddr)
	devMode := flag.Bool("dev", defaults.DevMode, "enable dev mode; also configurable via "+web.EnvDevMode)
	staticDir := flag.String("static-dir", "", "serve static UI from this directory (optional); when empty, the embedded preview page is served")
	scenario := flag.String("scenario", "default", "startup scenario: "+strings.Join(ScenarioNames(), " | "))
	width := flag.Int("width", render.DefaultWidth, "canvas width")
	height := flag.Int("height", render.DefaultHeight, "canvas height")
	renderOnce := flag.String("render-once", "", "render the scenario to this file and exit; the extension picks the format")
	flag.Parse()

	processCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupScenario := strings.TrimSpace(*scenario)
	if startupScenario == "" {
		startupScenario = "default"
	}

	a := app.New(app.Options{Width: *width, Height: *height})
	defer a.Cleanup()
	if err := a.Initialize(processCtx); err != nil {
		fmt.Println("app start error:", err)
		os.Exit(1)
	}

	control := NewSimControl(a, startupScenario)
	if err := control.ApplyScenario(startupScenario); err != nil {
		fmt.Println("scenario init error:", err)
		os.Exit(2)
	}

	if *renderOnce != "" {
		if err := control.RenderTo(processCtx, *renderOnce); err != nil {
			fmt.Println("render error:", err)
			os.Exit(1)
		}
		fmt.Println("Wrote", *renderOnce)
		return
	}

	cfg := defaults
	cfg.ListenAddr = *listenAddr
	cfg.DevMode = *devMode
	cfg.StaticDir = *staticDir
	deps := control.Deps(cfg.MaxUploadBytes)

	mux := web.NewDefaultMux(cfg.StaticDir, web.APIV1Config{Deps: deps})
	registerSimEndpoints(mux, control)

	server := web.NewHTTPServer(cfg, web.APIV1Config{Deps: deps})
	server.Handler = mux
	if err := server.Start(processCtx); err != nil {
		fmt.Println("server start error:", err)
		os.Exit(1)
	}

	fmt.Println("Covermaker simulator listening on", server.Addr())
	fmt.Println("Scenario:", startupScenario)
	fmt.Println("API: http://" + displayAddr(server.Addr()) + "/api/v1/")

	<-processCtx.Done()
	_ = server.Stop()
}

func displayAddr(addr string) string {
	// Best-effort for display; don't attempt full URL parsing here.
	switch {
	case addr == "":
		return "127.0.0.1:8080"
	case addr[0] == ':':
		return "127.0.0.1" + addr
	case strings.HasPrefix(addr, "[::]"):
		return "127.0.0.1" + strings.TrimPrefix(addr, "[::]")
	}
	return addr
}

// formatForPath picks the export format from a file extension.
func formatForPath(path string) (render.Format, error) {
	return render.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}
