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
	"sync"

	goset "github.com/deckarep/golang-set/v2"

	"github.com/velomesh/failout/log"
	"github.com/velomesh/failout/watcher"
)

// Manager reconciles the peer cluster watches of a single failed-out
// cluster. It owns its own watch registry, so peer clusters are never
// shared with another manager; when several failed-out clusters may name
// the same peers, use the centralized Engine or WatchManager instead.
type Manager struct {
	clusterName string
	mu          sync.Mutex
	registry    *Registry
	config      Config
	logger      log.Logger
}

// NewManager creates a manager for the given failed-out cluster, backed by
// the given watch provider.
func NewManager(clusterName string, provider watcher.Provider, opts ...Option) (*Manager, error) {
	if strings.TrimSpace(clusterName) == "" {
		return nil, ErrClusterRequired
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt.Apply(options)
	}

	registry, err := NewRegistry(provider, WithLogger(options.logger))
	if err != nil {
		return nil, err
	}

	return &Manager{
		clusterName: clusterName,
		registry:    registry,
		logger:      options.logger,
	}, nil
}

// ClusterName returns the failed-out cluster this manager serves.
func (m *Manager) ClusterName() string {
	return m.clusterName
}

// UpdateFailoutConfig applies a new failout config version and reconciles
// the watches before returning. A nil config means no failout is active for
// the cluster and tears every watch down; so does a config that is not
// failed out or names no peers. A malformed config is rejected with
// ErrInvalidConfig and the previous state is retained.
//
// Racing updates for the same manager are serialized.
func (m *Manager) UpdateFailoutConfig(ctx context.Context, cfg Config) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	desired, err := desiredPeerSet(cfg)
	if err != nil {
		return nil, err
	}

	var result *Result
	if cfg == nil {
		result = m.removePeerClusterWatches(ctx)
	} else {
		result = m.addPeerClusterWatches(ctx, desired)
	}

	m.config = cfg
	return result, result.Err()
}

// GetFailoutConfig returns the last applied failout config. The second
// return value is false when no config is recorded.
func (m *Manager) GetFailoutConfig() (Config, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config, m.config != nil
}

// Watched returns the peer clusters currently watched for this cluster,
// sorted.
func (m *Manager) Watched() []string {
	return m.registry.Watched()
}

// Close tears down every watch held by the manager and clears the recorded
// config.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.config = nil
	return m.registry.ReleaseAll(ctx)
}

// addPeerClusterWatches reconciles the registry toward the given peer set.
// An empty set is a full teardown. Callers must hold m.mu.
func (m *Manager) addPeerClusterWatches(ctx context.Context, desired goset.Set[string]) *Result {
	if desired.Cardinality() == 0 {
		return m.removePeerClusterWatches(ctx)
	}

	existing := toPeerSet(m.registry.Watched())
	return m.apply(ctx, diffPeerSets(existing, desired))
}

// removePeerClusterWatches tears down every watch the manager holds.
// Callers must hold m.mu.
func (m *Manager) removePeerClusterWatches(ctx context.Context) *Result {
	existing := toPeerSet(m.registry.Watched())
	return m.apply(ctx, changeSet{
		toAdd:    goset.NewSet[string](),
		toRemove: existing,
	})
}

// apply walks the change set through the registry, best effort per peer.
func (m *Manager) apply(ctx context.Context, changes changeSet) *Result {
	result := &Result{Owner: m.clusterName}

	for _, peer := range sortedSlice(changes.toAdd) {
		if _, err := m.registry.EnsureWatched(ctx, peer); err != nil {
			m.logger.Errorf("cluster=%s failed to start watch on peer=%s: %v", m.clusterName, peer, err)
			result.Failures = append(result.Failures, Failure{Cluster: peer, Op: OpStart, Err: err})
			continue
		}
		result.Started = append(result.Started, peer)
	}

	for _, peer := range sortedSlice(changes.toRemove) {
		if err := m.registry.Release(ctx, peer); err != nil {
			m.logger.Errorf("cluster=%s failed to stop watch on peer=%s: %v", m.clusterName, peer, err)
			result.Failures = append(result.Failures, Failure{Cluster: peer, Op: OpStop, Err: err})
			continue
		}
		result.Stopped = append(result.Stopped, peer)
	}

	return result
}
