package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rook-computer/covermaker/internal/assets"
)

type HTTPServer struct {
	Config ServerConfig

	// API configures the routes under /api/v1/.
	API APIV1Config

	// Handler, when set, is served instead of NewDefaultMux. Dev CORS still
	// wraps it.
	Handler http.Handler

	Logger sysLogger

	mu     sync.Mutex
	srv    *http.Server
	ln     net.Listener
	closed bool
}

func NewHTTPServer(cfg ServerConfig, api APIV1Config) *HTTPServer {
	return &HTTPServer{Config: cfg, API: api}
}

// Addr returns the bound address once started, or the configured one.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.Config.ListenAddr
}

func (s *HTTPServer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("web server already stopped")
	}
	if s.srv != nil {
		return nil
	}

	addr := s.Config.ListenAddr
	if addr == "" {
		addr = ":80"
	}
	logger := s.Logger
	if logger == nil {
		logger = noopSysLogger{}
	}
	if s.API.Deps.Logger == nil {
		s.API.Deps.Logger = logger
	}
	if s.API.Deps.MaxUploadBytes <= 0 {
		s.API.Deps.MaxUploadBytes = s.Config.MaxUploadBytes
	}

	handler := s.Handler
	if handler == nil {
		handler = NewDefaultMux(s.Config.StaticDir, s.API)
	}
	if s.Config.DevMode {
		handler = WithDevCORS(handler)
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.srv = nil
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	s.ln = ln
	srv := s.srv

	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	go func() {
		err := srv.Serve(ln)
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return
		}
		logger.Errorf("web", "serve %s: %v", addr, err)
	}()

	logger.Infof("web", "listening on %s", ln.Addr())
	return nil
}

func (s *HTTPServer) Stop() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	srv := s.srv
	ln := s.ln
	s.srv = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(ctx)
	if ln != nil {
		_ = ln.Close()
	}
	return err
}

// StaticUIHandler serves staticDir when it is an existing directory and the
// embedded preview page otherwise.
func StaticUIHandler(staticDir string) http.Handler {
	if staticDir == "" {
		return cleanPath(http.FileServer(http.FS(assets.WebUI)))
	}
	if st, err := os.Stat(staticDir); err != nil || !st.IsDir() {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
	}
	return cleanPath(http.FileServer(http.Dir(staticDir)))
}

func cleanPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Clean path to avoid oddities.
		r.URL.Path = filepath.ToSlash(filepath.Clean("/" + r.URL.Path))
		next.ServeHTTP(w, r)
	})
}
