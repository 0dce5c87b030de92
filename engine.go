// MIT License
//
// Copyright (c) 2025-2026 Failout Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package failout

import (
	"context"
	"strings"

	"go.uber.org/atomic"

	"github.com/velomesh/failout/internal/keylock"
	"github.com/velomesh/failout/internal/syncmap"
	"github.com/velomesh/failout/log"
	"github.com/velomesh/failout/watcher"
)

// Engine drives peer cluster watches from failout configuration updates.
// It holds the latest config per owning cluster and performs exactly one
// reconciliation per update: a cluster entering failout gets watches on its
// peer clusters, a cluster leaving failout gets them torn down, and peers
// shared between failed-out clusters stay watched until the last owner
// stops requiring them.
//
// Each owning cluster is either Normal (no config recorded as failed out,
// no watches attributed to it) or FailedOut (watches on the config's
// peers). The engine starts with every cluster Normal.
type Engine struct {
	watches *WatchManager
	configs *syncmap.SyncMap[string, Config]
	locks   *keylock.KeyLock
	closed  *atomic.Bool
	logger  log.Logger
}

// NewEngine creates a failout engine backed by the given watch provider.
func NewEngine(provider watcher.Provider, opts ...Option) (*Engine, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt.Apply(options)
	}

	watches, err := NewWatchManager(provider, WithLogger(options.logger))
	if err != nil {
		return nil, err
	}

	return &Engine{
		watches: watches,
		configs: syncmap.New[string, Config](),
		locks:   keylock.New(),
		closed:  atomic.NewBool(false),
		logger:  options.logger,
	}, nil
}

// UpdateFailoutConfig applies the latest failout config delivered for the
// given owning cluster and reconciles the watches before returning. A nil
// config means the failout ended and removes the cluster's entry; a config
// that is not failed out or names no peers also tears the cluster's
// watches down but is still recorded. A malformed config is rejected with
// ErrInvalidConfig without touching state.
//
// Racing updates for the same cluster are serialized; updates for distinct
// clusters proceed concurrently.
func (e *Engine) UpdateFailoutConfig(ctx context.Context, cluster string, cfg Config) (*Result, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	if strings.TrimSpace(cluster) == "" {
		return nil, ErrClusterRequired
	}

	desired, err := desiredPeerSet(cfg)
	if err != nil {
		return nil, err
	}

	e.locks.Lock(cluster)
	defer e.locks.Unlock(cluster)

	var result *Result
	if desired.Cardinality() == 0 {
		result, _ = e.watches.RemovePeerClusterWatches(ctx, cluster)
	} else {
		result, _ = e.watches.AddPeerClusterWatches(ctx, cluster, sortedSlice(desired))
	}

	if cfg == nil {
		e.configs.Delete(cluster)
	} else {
		e.configs.Set(cluster, cfg)
	}

	if !result.NoOp() {
		e.logger.Infof("reconciled failout config for cluster=%s: started=%d stopped=%d failed=%d",
			cluster, len(result.Started), len(result.Stopped), len(result.Failures))
	}
	return result, result.Err()
}

// GetFailoutConfig returns the last applied failout config for the given
// owning cluster. The second return value is false when no config is
// recorded.
func (e *Engine) GetFailoutConfig(cluster string) (Config, bool) {
	return e.configs.Get(cluster)
}

// FailedOutClusters returns the owning clusters currently in the FailedOut
// state, sorted.
func (e *Engine) FailedOutClusters() []string {
	return e.watches.Owners()
}

// PeerClusters returns the peer clusters currently attributed to the given
// owning cluster, sorted.
func (e *Engine) PeerClusters(cluster string) []string {
	return e.watches.PeerClusters(cluster)
}

// Watched returns the peer clusters with a live watch, sorted.
func (e *Engine) Watched() []string {
	return e.watches.Watched()
}

// Close tears down every watch and rejects further updates. Close is
// idempotent.
func (e *Engine) Close(ctx context.Context) error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}

	e.configs.Reset()
	return e.watches.Close(ctx)
}
