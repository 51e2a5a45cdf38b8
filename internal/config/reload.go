package config

import (
	"errors"
	"sync"

	"github.com/dshills/mapforge/internal/config/watcher"
	"github.com/dshills/mapforge/internal/logging"
	"github.com/dshills/mapforge/internal/notify"
)

// ErrReloaderRunning is returned when Start is called twice.
var ErrReloaderRunning = errors.New("reloader already running")

// Reloader reloads a config file when it changes on disk and publishes
// each valid result.
type Reloader struct {
	opts Options
	log  *logging.Logger

	mu      sync.Mutex
	current Config
	watcher *watcher.Watcher
	sub     *notify.Subscription

	changes notify.Notifier[Config]
}

// NewReloader creates a Reloader that starts from cfg.
func NewReloader(opts Options, cfg Config, log *logging.Logger) *Reloader {
	if log == nil {
		log = logging.Nop()
	}
	return &Reloader{
		opts:    opts,
		current: cfg,
		log:     log.WithComponent("config"),
	}
}

// Current returns the most recently loaded configuration.
func (r *Reloader) Current() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// OnChange registers fn to receive each reloaded configuration.
func (r *Reloader) OnChange(fn func(Config)) *notify.Subscription {
	return r.changes.Subscribe(fn)
}

// Reload loads the configuration again. On failure the current
// configuration is kept and the error returned.
func (r *Reloader) Reload() (Config, error) {
	cfg, err := Load(r.opts)
	if err != nil {
		r.log.Warn("reload of %s failed: %v", r.opts.Path, err)
		return r.Current(), err
	}

	r.mu.Lock()
	r.current = cfg
	r.mu.Unlock()

	r.log.Info("reloaded %s", r.opts.Path)
	r.changes.Notify(cfg)
	return cfg, nil
}

// Start watches the config file. It is a no-op when Options.Path is empty.
func (r *Reloader) Start(opts ...watcher.Option) error {
	if r.opts.Path == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher != nil {
		return ErrReloaderRunning
	}

	w := watcher.New(append([]watcher.Option{
		watcher.WithErrorHandler(func(err error) {
			r.log.Error("watching %s: %v", r.opts.Path, err)
		}),
	}, opts...)...)
	if err := w.Watch(r.opts.Path); err != nil {
		return err
	}
	sub := w.OnChange(func(e watcher.Event) {
		if e.Op == watcher.OpRemove || e.Op == watcher.OpRename {
			r.log.Debug("%s: %s ignored", e.Path, e.Op)
			return
		}
		_, _ = r.Reload()
	})
	if err := w.Start(); err != nil {
		sub.Unsubscribe()
		return err
	}

	r.watcher = w
	r.sub = sub
	return nil
}

// Stop stops watching. Subscribers stay registered.
func (r *Reloader) Stop() error {
	r.mu.Lock()
	w, sub := r.watcher, r.sub
	r.watcher, r.sub = nil, nil
	r.mu.Unlock()

	if w == nil {
		return nil
	}
	sub.Unsubscribe()
	return w.Stop()
}
