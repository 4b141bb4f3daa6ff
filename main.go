package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rook-computer/covermaker/internal/app"
	"github.com/rook-computer/covermaker/internal/config"
	"github.com/rook-computer/covermaker/internal/display"
	"github.com/rook-computer/covermaker/internal/render"
	"github.com/rook-computer/covermaker/internal/system"
	"github.com/rook-computer/covermaker/internal/web"
)

const envStdioLog = "COVERMAKER_STDIO_LOG"

func main() {
	fmt.Println("Covermaker starting")

	// Flags
	configPath := flag.String("config", config.DefaultPath, "TOML config file; a missing file means defaults")
	debug := flag.Bool("debug", false, "enable debug logging (log.path in config, default ./covermaker-debug.log)")
	stdioLog := flag.String("stdio-log", "", "redirect stdout+stderr (including panics) to this file; also configurable via "+envStdioLog)
	listenAddr := flag.String("listen", "", "http listen address; overrides config and "+web.EnvListenAddr)
	devMode := flag.Bool("dev", false, "enable dev mode (permissive CORS)")
	staticDir := flag.String("static-dir", "", "serve static UI from this directory instead of the embedded page")
	fbDevice := flag.String("fb", display.DefaultDevice, "framebuffer device for the live preview; empty disables it")
	watch := flag.Bool("watch", true, "reload the [render] section when the config file changes")
	flag.Parse()

	// Best-effort: redirect all stdout/stderr output (including panic stack traces)
	// to a file so crashes are diagnosable even when the console is left in graphics mode.
	logPath := *stdioLog
	if logPath == "" {
		logPath = os.Getenv(envStdioLog)
	}
	if logPath != "" {
		if err := redirectStdIO(logPath); err != nil {
			fmt.Println("stdio log redirect error:", err)
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(2)
	}
	serverCfg, err := cfg.Server.WithEnv()
	if err != nil {
		fmt.Println("server config error:", err)
		os.Exit(2)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			serverCfg.ListenAddr = *listenAddr
		case "dev":
			serverCfg.DevMode = *devMode
		case "static-dir":
			serverCfg.StaticDir = *staticDir
		}
	})

	var logger app.Logger = app.NoopLogger{}
	if *debug {
		path := cfg.Log.Path
		if path == "" {
			path = "./covermaker-debug.log"
		}
		fileLogger, logCloser := app.NewRotatingLogger(path, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
		logger = fileLogger
		defer logCloser.Close()
		logger.Infof("main", "debug logging enabled")
	}

	fonts := render.NewFontBook()
	if cfg.Fonts.Dir != "" {
		n, err := fonts.LoadDir(cfg.Fonts.Dir)
		if err != nil {
			logger.Errorf("main", "fonts dir %s: %v", cfg.Fonts.Dir, err)
		}
		logger.Infof("main", "registered %d fonts from %s", n, cfg.Fonts.Dir)
	}

	initial, err := cfg.InitialState()
	if err != nil {
		fmt.Println("render config error:", err)
		os.Exit(2)
	}

	// Context for lifecycle
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a := app.New(app.Options{
		Width:          cfg.Canvas.Width,
		Height:         cfg.Canvas.Height,
		CacheCapacity:  cfg.Cache.Capacity,
		ExportCapacity: cfg.Cache.Exports,
		FrameInterval:  cfg.Canvas.FrameInterval(),
		Fonts:          fonts,
		Initial:        &initial,
	})
	a.Logger = logger
	if err := a.Initialize(ctx); err != nil {
		fmt.Println("app start error:", err)
		os.Exit(1)
	}
	defer a.Cleanup()

	if *watch {
		watcher, err := config.NewWatcher(*configPath, 0)
		if err != nil {
			logger.Errorf("config", "watch %s: %v", *configPath, err)
		} else {
			watcher.OnReload = func(next *config.Config) {
				if err := a.ApplyPatch(next.Render); err != nil {
					logger.Errorf("config", "reload: %v", err)
					return
				}
				logger.Infof("config", "reloaded %s", *configPath)
			}
			watcher.OnError = func(err error) { logger.Errorf("config", "%v", err) }
			watcher.Start()
			defer watcher.Stop()
		}
	}

	server := web.NewHTTPServer(serverCfg, web.APIV1Config{
		Deps: web.NewAPIV1Deps(a, logger, serverCfg.MaxUploadBytes),
	})
	server.Logger = logger
	if err := server.Start(ctx); err != nil {
		fmt.Println("server start error:", err)
		os.Exit(1)
	}
	defer server.Stop()

	if ips, err := system.HostIPv4(ctx, system.ShellRunner{}); err == nil {
		for _, url := range system.ListenURLs(server.Addr(), ips) {
			fmt.Println("Open", url)
		}
	} else {
		logger.Errorf("main", "%v", err)
	}

	if *fbDevice != "" {
		fbDev, err := display.OpenFramebuffer(*fbDevice)
		if err != nil {
			logger.Errorf("main", "framebuffer %s: %v", *fbDevice, err)
		} else {
			restore := system.EnterGraphicsConsole(logger)
			defer restore()
			defer fbDev.Close()
			mirror := display.NewMirror(a.Renderer, fbDev.Screen())
			mirror.Logger = logger
			go mirror.Run(ctx)
			// Runs before fbDev.Close: the mirror may still be blitting.
			defer func() { <-mirror.Done() }()
		}
	}

	system.StartExitOnKeys(ctx, logger, cancel, system.KeyF4)

	<-ctx.Done()
	logger.Infof("main", "shutting down")
}
