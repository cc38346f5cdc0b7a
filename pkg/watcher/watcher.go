// Package watcher reports debounced file changes under a repository.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/devkit-tools/devkit-validator/pkg/discovery"
	"github.com/devkit-tools/devkit-validator/pkg/logger"
)

// DefaultDebounce is the quiet period before a change is reported
const DefaultDebounce = 300 * time.Millisecond

// Config holds the watcher settings
type Config struct {
	Root       string
	IgnoreDirs []string
	// Exclude holds doublestar patterns relative to Root.
	Exclude  []string
	Debounce time.Duration
}

// NewConfig returns the default configuration for root
func NewConfig(root string) Config {
	return Config{
		Root:       root,
		IgnoreDirs: []string{".git", "node_modules"},
		Debounce:   DefaultDebounce,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Debounce < 0 {
		return errors.Errorf("debounce cannot be negative: %s", c.Debounce)
	}
	for _, p := range c.Exclude {
		if !doublestar.ValidatePattern(p) {
			return errors.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

// Event is a debounced change to one file
type Event struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// Handler is called for every debounced event, one at a time
type Handler func(ctx context.Context, ev Event)

// Watcher watches a directory tree
type Watcher struct {
	cfg     Config
	fs      *fsnotify.Watcher
	handler Handler
}

// New creates a watcher and registers every directory under the root
func New(ctx context.Context, cfg Config, handler Handler) (*Watcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	w := &Watcher{cfg: cfg, fs: fsw, handler: handler}
	if err := w.addTree(ctx, cfg.Root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers events until ctx is cancelled, then releases the watcher
func (w *Watcher) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan Event)
	debounced := make(chan Event)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		debounce(ctx, events, debounced, w.cfg.Debounce)
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case ev := <-debounced:
				w.handler(ctx, ev)
			case <-ctx.Done():
				return
			}
		}
	}()

	w.loop(ctx, events)

	cancel()
	wg.Wait()
	return errors.Wrap(w.fs.Close(), "failed to close file watcher")
}

func (w *Watcher) loop(ctx context.Context, events chan<- Event) {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.ignored(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ctx, ev.Name); err != nil {
						logger.G(ctx).WithError(err).WithField("directory", ev.Name).Warn("failed to watch new directory")
					}
					continue
				}
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			select {
			case events <- Event{Path: ev.Name, Op: ev.Op, Time: time.Now()}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.G(ctx).WithError(err).Error("error watching files")
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) addTree(ctx context.Context, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.cfg.Root && w.ignored(path) {
			logger.G(ctx).WithField("directory", path).Debug("skipping ignored directory")
			return filepath.SkipDir
		}
		logger.G(ctx).WithField("directory", path).Debug("adding directory to watcher")
		return errors.Wrapf(w.fs.Add(path), "failed to watch %s", path)
	})
}

func (w *Watcher) ignored(path string) bool {
	rel := discovery.Rel(w.cfg.Root, path)
	for _, part := range strings.Split(rel, "/") {
		for _, d := range w.cfg.IgnoreDirs {
			if part == d {
				return true
			}
		}
	}
	for _, p := range w.cfg.Exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// debounce forwards the last event of each path once the path has been
// quiet for delay.
func debounce(ctx context.Context, input <-chan Event, output chan<- Event, delay time.Duration) {
	pending := make(map[string]*time.Timer)
	latest := make(map[string]Event)
	fired := make(chan string)

	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-input:
			if !ok {
				return
			}
			if t, exists := pending[ev.Path]; exists {
				t.Stop()
			}
			latest[ev.Path] = ev
			p := ev.Path
			pending[p] = time.AfterFunc(delay, func() {
				select {
				case fired <- p:
				case <-ctx.Done():
				}
			})
		case p := <-fired:
			ev, ok := latest[p]
			if !ok {
				continue
			}
			delete(latest, p)
			delete(pending, p)
			select {
			case output <- ev:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
