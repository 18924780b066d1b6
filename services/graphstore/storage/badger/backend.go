// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/graphstore/services/graphstore/graph"
)

// propertyPrefix namespaces property keys so other data can share the DB.
// Keys are p/<scope>/<id>/<key>.
const propertyPrefix = "p/"

// Backend is a graph.Backend that writes every property to BadgerDB.
//
// Store writes through immediately, so an Unload only needs to flush the
// database. Load rebuilds the bag with a single prefix scan.
//
// Every graph created over a Backend gets its own scope through Scope,
// because ids restart at 1 in each graph. Release drops a scope's keys.
//
// Thread Safety: Safe for concurrent use. The graph calls it under its
// own lock.
type Backend struct {
	db     *DB
	logger *slog.Logger
	scope  string
	calls  *callCounters
}

type callCounters struct {
	loads   atomic.Int64
	stores  atomic.Int64
	unloads atomic.Int64
}

// BackendStats counts backend calls across all scopes.
type BackendStats struct {
	Loads   int64 `json:"loads"`
	Stores  int64 `json:"stores"`
	Unloads int64 `json:"unloads"`
}

// NewBackend creates a Backend over db. A nil logger discards.
//
// Properties left by an earlier process belong to graphs that no longer
// exist, so they are dropped here.
func NewBackend(db *DB, logger *slog.Logger) (*Backend, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := db.DropPrefix([]byte(propertyPrefix)); err != nil {
		return nil, fmt.Errorf("drop stale properties: %w", err)
	}
	return &Backend{
		db:     db,
		logger: logger.With(slog.String("component", "badger_backend")),
		scope:  uuid.NewString(),
		calls:  &callCounters{},
	}, nil
}

// Scope returns a Backend over the same database with a fresh key
// namespace. graph.New calls it once per graph.
func (b *Backend) Scope() graph.Backend {
	scoped := &Backend{
		db:    b.db,
		scope: uuid.NewString(),
		calls: b.calls,
	}
	scoped.logger = b.logger.With(slog.String("scope", scoped.scope))
	scoped.logger.Debug("scope opened")
	return scoped
}

// Release drops every property stored in this scope.
func (b *Backend) Release() error {
	if err := b.db.DropPrefix(b.scopePrefix()); err != nil {
		return fmt.Errorf("release scope %s: %w", b.scope, err)
	}
	b.logger.Debug("scope released")
	return nil
}

// Load returns everything persisted for e.
func (b *Backend) Load(e graph.Entity) (graph.Properties, error) {
	b.calls.loads.Add(1)
	bag := graph.Properties{}
	prefix := b.entityPrefix(e.ID())

	err := b.db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := strings.TrimPrefix(string(item.Key()), string(prefix))
			err := item.Value(func(val []byte) error {
				v, err := decodeValue(val)
				if err != nil {
					return fmt.Errorf("property %q: %w", key, err)
				}
				bag[key] = v
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load entity %s: %w", e.ID(), err)
	}

	b.logger.Debug("loaded properties",
		slog.String("entity_id", e.ID().String()),
		slog.Int("count", len(bag)),
	)
	return bag, nil
}

// Store writes one property. The empty Value deletes the key.
func (b *Backend) Store(e graph.Entity, key string, v graph.Value) error {
	b.calls.stores.Add(1)
	k := b.propertyKey(e.ID(), key)

	if v.IsZero() {
		err := b.db.WithTxn(context.Background(), func(txn *badger.Txn) error {
			return txn.Delete(k)
		})
		if err != nil {
			return fmt.Errorf("delete property %q of %s: %w", key, e.ID(), err)
		}
		return nil
	}

	data, err := encodeValue(v)
	if err != nil {
		return fmt.Errorf("store property %q of %s: %w", key, e.ID(), err)
	}
	err = b.db.WithTxn(context.Background(), func(txn *badger.Txn) error {
		return txn.Set(k, data)
	})
	if err != nil {
		return fmt.Errorf("store property %q of %s: %w", key, e.ID(), err)
	}
	return nil
}

// Unload flushes pending writes before the graph drops the bag.
func (b *Backend) Unload(e graph.Entity) error {
	b.calls.unloads.Add(1)
	if err := b.db.Sync(); err != nil {
		return fmt.Errorf("sync before unloading %s: %w", e.ID(), err)
	}
	return nil
}

// Delete drops every property persisted for id.
func (b *Backend) Delete(id graph.ID) error {
	prefix := b.entityPrefix(id)

	var keys [][]byte
	err := b.db.WithReadTxn(context.Background(), func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("list properties of %s: %w", id, err)
	}
	if len(keys) == 0 {
		return nil
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("delete properties of %s: %w", id, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("delete properties of %s: %w", id, err)
	}

	b.logger.Debug("deleted properties",
		slog.String("entity_id", id.String()),
		slog.Int("count", len(keys)),
	)
	return nil
}

// Stats returns call counters.
func (b *Backend) Stats() BackendStats {
	return BackendStats{
		Loads:   b.calls.loads.Load(),
		Stores:  b.calls.stores.Load(),
		Unloads: b.calls.unloads.Load(),
	}
}

func (b *Backend) scopePrefix() []byte {
	return []byte(propertyPrefix + b.scope + "/")
}

func (b *Backend) entityPrefix(id graph.ID) []byte {
	return []byte(propertyPrefix + b.scope + "/" + id.String() + "/")
}

func (b *Backend) propertyKey(id graph.ID, key string) []byte {
	return []byte(propertyPrefix + b.scope + "/" + id.String() + "/" + key)
}

var (
	_ graph.Backend       = (*Backend)(nil)
	_ graph.Deleter       = (*Backend)(nil)
	_ graph.ScopedBackend = (*Backend)(nil)
	_ graph.Releaser      = (*Backend)(nil)
)
