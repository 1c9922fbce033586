package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher monitors the config file and reports changes through a callback.
// It polls rather than using inotify so behaviour is uniform across
// platforms and network filesystems. An invalid rewrite of the file is
// logged and ignored; the last valid config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config, diff ConfigDiff)

	mu       sync.Mutex
	current  *Config
	lastHash [sha256.Size]byte
	lastMod  time.Time

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path and starts polling it in a background
// goroutine. onChange runs on every effective change with the computed diff.
func NewWatcher(path string, onChange func(old, new *Config, diff ConfigDiff), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: 5 * time.Second,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, hash, mod, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg
	w.lastHash = hash
	w.lastMod = mod

	go w.loop()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends the polling goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: stat failed", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.lastMod)
	w.mu.Unlock()
	if unchanged {
		return
	}

	cfg, hash, mod, err := w.read()
	if err != nil {
		slog.Warn("config watcher: reload rejected, keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	if hash == w.lastHash {
		// Touched without content change.
		w.lastMod = mod
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current = cfg
	w.lastHash = hash
	w.lastMod = mod
	w.mu.Unlock()

	diff := Diff(old, cfg)
	slog.Info("config watcher: configuration reloaded", "path", w.path, "changes", diff.Changes)

	// Callback runs outside the lock so it can call Current.
	if w.onChange != nil && !diff.Empty() {
		w.onChange(old, cfg, diff)
	}
}

// read loads and validates the file, returning the parsed config with the
// content hash and modification time used for change detection.
func (w *Watcher) read() (*Config, [sha256.Size]byte, time.Time, error) {
	var zero [sha256.Size]byte

	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, zero, time.Time{}, err
	}
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, zero, time.Time{}, err
	}

	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, zero, time.Time{}, err
	}
	return cfg, sha256.Sum256(data), info.ModTime(), nil
}
