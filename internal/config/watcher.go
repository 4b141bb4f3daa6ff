package config

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultWatchDebounce = 200 * time.Millisecond

// Watcher reloads the config file when it changes and hands the result to
// OnReload. Parse errors go to OnError and the previous config stays active.
type Watcher struct {
	OnReload func(*Config)
	OnError  func(error)

	watcher   *fsnotify.Watcher
	path      string
	debounce  time.Duration
	stopCh    chan struct{}
	stoppedCh chan struct{}
	stopOnce  sync.Once
	started   atomic.Bool
}

func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	// The directory is watched so atomic renames by editors are seen.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		watcher:   fw,
		path:      path,
		debounce:  debounce,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}, nil
}

// Start begins watching in a goroutine.
func (w *Watcher) Start() {
	if w.started.CompareAndSwap(false, true) {
		go w.loop()
	}
}

// Stop ends watching and waits for the goroutine to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	if !w.started.Load() {
		w.watcher.Close()
		return
	}
	<-w.stoppedCh
}

func (w *Watcher) loop() {
	defer close(w.stoppedCh)
	defer w.watcher.Close()

	absPath, _ := filepath.Abs(w.path)
	baseName := filepath.Base(w.path)

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			eventAbs, _ := filepath.Abs(event.Name)
			if filepath.Base(event.Name) != baseName && eventAbs != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C

		case <-fire:
			timer, fire = nil, nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.OnError != nil {
				w.OnError(err)
			}
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		if w.OnError != nil {
			w.OnError(err)
		}
		return
	}
	if w.OnReload != nil {
		w.OnReload(cfg)
	}
}
