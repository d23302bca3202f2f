package template

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Ext is the file extension of template files.
const Ext = ".html"

// ErrTemplateNotFound is returned when no template has the requested name.
var ErrTemplateNotFound = errors.New("template: not found")

// Loader holds the templates found under a directory, keyed by their path
// relative to the root without the extension ("counter", "blocks/price").
type Loader struct {
	root   string
	logger *slog.Logger

	mu        sync.RWMutex
	templates map[string]string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used for reload events.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader reads every template under root.
func NewLoader(root string, opts ...LoaderOption) (*Loader, error) {
	l := &Loader{
		root:      root,
		logger:    slog.Default().With("component", "template"),
		templates: make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	if err := l.Load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Load (re)reads every template under the root.
func (l *Loader) Load() error {
	templates := make(map[string]string)
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != Ext {
			return nil
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		templates[l.nameOf(path)] = string(src)
		return nil
	})
	if err != nil {
		return fmt.Errorf("template: load %s: %w", l.root, err)
	}

	l.mu.Lock()
	l.templates = templates
	l.mu.Unlock()
	return nil
}

// Get returns the raw source of a template.
func (l *Loader) Get(name string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	src, ok := l.templates[name]
	return src, ok
}

// Names lists the loaded templates in sorted order.
func (l *Loader) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render compiles the named template against c.
func (l *Loader) Render(name string, c Component) (string, error) {
	src, ok := l.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return Compile(src, c), nil
}

// Watch reloads templates as files under the root change. It blocks until
// ctx is cancelled or the watcher fails to start.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("template: watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	err = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("template: watch %s: %w", l.root, err)
	}

	debounce := time.NewTimer(0)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if filepath.Ext(event.Name) != Ext && !event.Has(fsnotify.Remove) {
				continue
			}
			// Editors emit bursts of writes; reload once they settle.
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(50 * time.Millisecond)

		case <-debounce.C:
			if err := l.Load(); err != nil {
				l.logger.Warn("template reload failed", "error", err)
				continue
			}
			l.logger.Debug("templates reloaded", "count", len(l.Names()))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("template watcher error", "error", err)
		}
	}
}

func (l *Loader) nameOf(path string) string {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), Ext)
}
