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
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/velomesh/failout/log"
	"github.com/velomesh/failout/watcher"
)

// Registry tracks the live watches, one entry per peer cluster. Establish
// and teardown are idempotent and safe under concurrent calls: racing
// EnsureWatched calls for the same peer cluster result in exactly one
// provider Listen invocation, and racing Release calls in at most one Stop.
type Registry struct {
	mu       sync.RWMutex
	watches  map[string]*registryEntry
	provider watcher.Provider
	logger   log.Logger
}

// registryEntry holds the watch of one peer cluster. The once gate bounds
// the provider Listen call to a single invocation per entry; ready is
// closed after that call settles, so snapshot readers never observe a
// half-initialized entry.
type registryEntry struct {
	once  sync.Once
	ready chan struct{}
	watch watcher.Watch
	err   error
}

func newRegistryEntry() *registryEntry {
	return &registryEntry{
		ready: make(chan struct{}),
	}
}

// NewRegistry creates a watch registry backed by the given provider.
func NewRegistry(provider watcher.Provider, opts ...Option) (*Registry, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt.Apply(options)
	}

	return &Registry{
		watches:  make(map[string]*registryEntry),
		provider: provider,
		logger:   options.logger,
	}, nil
}

// EnsureWatched returns the live watch for the given peer cluster,
// establishing one if none exists. The provider Listen call runs outside
// the registry lock and exactly once per entry, even under concurrent calls
// for the same cluster. A failed establishment leaves no entry behind, so a
// later call retries; the registry itself never retries.
func (r *Registry) EnsureWatched(ctx context.Context, cluster string) (watcher.Watch, error) {
	if strings.TrimSpace(cluster) == "" {
		return nil, ErrClusterRequired
	}

	r.mu.Lock()
	entry, ok := r.watches[cluster]
	if !ok {
		entry = newRegistryEntry()
		r.watches[cluster] = entry
	}
	r.mu.Unlock()

	entry.once.Do(func() {
		defer close(entry.ready)
		watch, err := r.provider.Listen(ctx, cluster)
		if err != nil {
			entry.err = fmt.Errorf("%w: peer=%s: %w", ErrWatchStart, cluster, err)
			r.mu.Lock()
			if r.watches[cluster] == entry {
				delete(r.watches, cluster)
			}
			r.mu.Unlock()
			return
		}
		entry.watch = watch
		r.logger.Infof("started watch on peer cluster=%s id=%s", cluster, watch.ID())
	})

	<-entry.ready
	if entry.err != nil {
		return nil, entry.err
	}
	return entry.watch, nil
}

// Release removes the watch of the given peer cluster and stops it exactly
// once. Releasing an unwatched cluster is a no-op. The entry is removed
// even when the stop call fails; the returned error then wraps ErrWatchStop.
func (r *Registry) Release(ctx context.Context, cluster string) error {
	r.mu.Lock()
	entry, ok := r.watches[cluster]
	if ok {
		delete(r.watches, cluster)
	}
	r.mu.Unlock()

	if !ok {
		return nil
	}

	<-entry.ready
	if entry.err != nil || entry.watch == nil {
		return nil
	}

	if err := entry.watch.Stop(ctx); err != nil {
		return fmt.Errorf("%w: peer=%s: %w", ErrWatchStop, cluster, err)
	}
	r.logger.Infof("stopped watch on peer cluster=%s id=%s", cluster, entry.watch.ID())
	return nil
}

// ReleaseAll removes every entry and stops the watches concurrently,
// aggregating the stop failures.
func (r *Registry) ReleaseAll(ctx context.Context) error {
	r.mu.Lock()
	entries := r.watches
	r.watches = make(map[string]*registryEntry)
	r.mu.Unlock()

	var failuresMu sync.Mutex
	var failures error

	eg := new(errgroup.Group)
	for cluster, entry := range entries {
		eg.Go(func() error {
			<-entry.ready
			if entry.err != nil || entry.watch == nil {
				return nil
			}
			if err := entry.watch.Stop(ctx); err != nil {
				failuresMu.Lock()
				failures = multierr.Append(failures, fmt.Errorf("%w: peer=%s: %w", ErrWatchStop, cluster, err))
				failuresMu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()
	return failures
}

// Watched returns the peer clusters with a live watch, sorted. The snapshot
// may be momentarily stale relative to concurrent mutations; reconciliation
// tolerates that.
func (r *Registry) Watched() []string {
	r.mu.RLock()
	clusters := make([]string, 0, len(r.watches))
	for cluster, entry := range r.watches {
		select {
		case <-entry.ready:
			if entry.err == nil {
				clusters = append(clusters, cluster)
			}
		default:
		}
	}
	r.mu.RUnlock()

	sort.Strings(clusters)
	return clusters
}

// IsWatched reports whether the given peer cluster has a live watch.
func (r *Registry) IsWatched(cluster string) bool {
	r.mu.RLock()
	entry, ok := r.watches[cluster]
	r.mu.RUnlock()

	if !ok {
		return false
	}

	select {
	case <-entry.ready:
		return entry.err == nil
	default:
		return false
	}
}

// Len returns the number of registry entries, including ones whose
// establishment is still in flight.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.watches)
}
