// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fixture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/graphstore/services/graphstore/graph"
)

// ReloadHandler receives each successfully rebuilt graph.
type ReloadHandler func(*Loaded)

// WatcherOptions configures a Watcher.
type WatcherOptions struct {
	// Debounce is how long the file must stay quiet before a reload.
	// Default: 200ms
	Debounce time.Duration

	// GraphOptions are passed to every rebuilt graph.
	GraphOptions []graph.Option

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultWatcherOptions returns the defaults.
func DefaultWatcherOptions() WatcherOptions {
	return WatcherOptions{Debounce: 200 * time.Millisecond}
}

// Watcher reloads a fixture file whenever it changes.
//
// # Description
//
// The parent directory is watched rather than the file itself so that
// editors which save by rename are seen. Bursts of events are collapsed
// by the debounce window. A document that fails to load is logged and
// skipped; the previous graph stays in service.
//
// # Thread Safety
//
// Run must be called once. The handler is called from Run's goroutine.
type Watcher struct {
	path    string
	handler ReloadHandler
	opts    WatcherOptions
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	closeOnce sync.Once
	reloads   int
	mu        sync.Mutex
}

// NewWatcher creates a watcher for the fixture at path.
//
// Inputs:
//   - path: The fixture file. Its directory must exist.
//   - handler: Called with each rebuilt graph. Must not be nil.
//   - opts: Optional. Nil uses DefaultWatcherOptions.
func NewWatcher(path string, handler ReloadHandler, opts *WatcherOptions) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("handler must not be nil")
	}
	if opts == nil {
		defaults := DefaultWatcherOptions()
		opts = &defaults
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultWatcherOptions().Debounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve fixture path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:    abs,
		handler: handler,
		opts:    *opts,
		logger:  logger.With(slog.String("component", "fixture_watcher"), slog.String("path", abs)),
		watcher: fw,
	}, nil
}

// Run processes events until ctx is done. It returns nil on cancellation
// so it can run under an errgroup.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			timerCh = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fixture watcher error", slog.String("error", err.Error()))

		case <-timerCh:
			timerCh = nil
			w.reload()
		}
	}
}

// Close releases the underlying watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.watcher.Close()
	})
	return err
}

// Reloads returns how many graphs were handed to the handler.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) reload() {
	loaded, err := Load(w.path, w.opts.GraphOptions...)
	if err != nil {
		w.logger.Warn("fixture reload failed, keeping previous graph", slog.String("error", err.Error()))
		return
	}

	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()

	w.logger.Info("fixture reloaded",
		slog.Int("nodes", loaded.Graph.NodeCount()),
		slog.Int("relations", loaded.Graph.RelationCount()),
	)
	w.handler(loaded)
}
