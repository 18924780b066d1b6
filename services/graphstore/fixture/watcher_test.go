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
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "g.yaml"), nil, nil)
	assert.Error(t, err)

	_, err = NewWatcher(filepath.Join(t.TempDir(), "missing", "g.yaml"), func(*Loaded) {}, nil)
	assert.Error(t, err, "the directory must exist")
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes:\n  - key: a\n"), 0o644))

	reloaded := make(chan *Loaded, 4)
	w, err := NewWatcher(path, func(l *Loaded) { reloaded <- l }, &WatcherOptions{
		Debounce: 20 * time.Millisecond,
		Logger:   slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	t.Cleanup(func() {
		cancel()
		_ = g.Wait()
	})

	// A broken document is skipped.
	require.NoError(t, os.WriteFile(path, []byte("nodes: [\n"), 0o644))
	select {
	case <-reloaded:
		t.Fatal("a broken document must not reach the handler")
	case <-time.After(150 * time.Millisecond):
	}

	// Writes to other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o644))

	require.NoError(t, os.WriteFile(path, []byte("nodes:\n  - key: a\n  - key: b\nrelations:\n  - {source: a, label: knows, destination: b}\n"), 0o644))
	// A reload may observe the truncated file first; wait for the full one.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case l := <-reloaded:
			if l.Graph.NodeCount() != 2 {
				continue
			}
			assert.Equal(t, 1, l.Graph.RelationCount())
			assert.GreaterOrEqual(t, w.Reloads(), 1)
			return
		case <-deadline:
			t.Fatal("no reload after the fixture changed")
		}
	}
}

func TestWatcher_StopsWithContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	w, err := NewWatcher(path, func(*Loaded) {}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.NoError(t, w.Close(), "closing twice is safe")
}
