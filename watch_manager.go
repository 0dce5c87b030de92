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

	goset "github.com/deckarep/golang-set/v2"
	"go.uber.org/multierr"

	"github.com/velomesh/failout/internal/keylock"
	"github.com/velomesh/failout/log"
	"github.com/velomesh/failout/watcher"
)

// WatchManager is the centralized reconciler: one instance serves every
// failed-out cluster and maintains a single watch per distinct peer cluster
// referenced by any owner. Peer watches are reference counted across
// owners, so a peer shared by several failed-out clusters stays watched
// until the last of them stops requiring it.
//
// Updates for the same owner are serialized; updates for distinct owners
// run concurrently and only contend when they reference the same peer
// cluster.
type WatchManager struct {
	registry  *Registry
	tracker   *ownershipTracker
	ownerLock *keylock.KeyLock
	peerLock  *keylock.KeyLock
	logger    log.Logger
}

// NewWatchManager creates a centralized watch manager backed by the given
// provider.
func NewWatchManager(provider watcher.Provider, opts ...Option) (*WatchManager, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt.Apply(options)
	}

	registry, err := NewRegistry(provider, WithLogger(options.logger))
	if err != nil {
		return nil, err
	}

	return &WatchManager{
		registry:  registry,
		tracker:   newOwnershipTracker(),
		ownerLock: keylock.New(),
		peerLock:  keylock.New(),
		logger:    options.logger,
	}, nil
}

// AddPeerClusterWatches reconciles the watches required by the given owner
// toward the given peer cluster set: missing peers are watched, peers the
// owner no longer names are dropped, and a dropped peer's watch is released
// only when no other owner still requires it. An empty or nil peer set
// behaves exactly like RemovePeerClusterWatches.
//
// Reconciliation is best effort per peer; the returned result carries the
// per-peer outcomes and the error aggregates the failures, if any.
func (m *WatchManager) AddPeerClusterWatches(ctx context.Context, owner string, peers []string) (*Result, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, ErrClusterRequired
	}
	for _, peer := range peers {
		if strings.TrimSpace(peer) == "" {
			return nil, ErrInvalidConfig
		}
	}

	m.ownerLock.Lock(owner)
	defer m.ownerLock.Unlock(owner)

	result := m.reconcileOwner(ctx, owner, toPeerSet(peers))
	return result, result.Err()
}

// RemovePeerClusterWatches clears every peer requirement recorded for the
// owner, releasing the watches no other owner still requires.
func (m *WatchManager) RemovePeerClusterWatches(ctx context.Context, owner string) (*Result, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, ErrClusterRequired
	}

	m.ownerLock.Lock(owner)
	defer m.ownerLock.Unlock(owner)

	result := m.reconcileOwner(ctx, owner, toPeerSet(nil))
	return result, result.Err()
}

// reconcileOwner diffs the owner's recorded peer set against desired and
// applies the changes. Callers must hold the owner's lock. Every reference
// count transition and its registry effect happen under that peer's lock,
// which is what keeps a release decision from racing an establishment by a
// different owner on the same peer.
func (m *WatchManager) reconcileOwner(ctx context.Context, owner string, desired goset.Set[string]) *Result {
	existing := m.tracker.required(owner)
	changes := diffPeerSets(existing, desired)
	result := &Result{Owner: owner}

	for _, peer := range sortedSlice(changes.toAdd) {
		m.peerLock.Lock(peer)
		if m.tracker.addRef(owner, peer) == 1 {
			if _, err := m.registry.EnsureWatched(ctx, peer); err != nil {
				// The peer stays unrecorded so the next update retries it.
				m.tracker.dropRef(owner, peer)
				m.peerLock.Unlock(peer)
				m.logger.Errorf("reconciliation for owner=%s failed to start watch on peer=%s: %v", owner, peer, err)
				result.Failures = append(result.Failures, Failure{Cluster: peer, Op: OpStart, Err: err})
				continue
			}
			result.Started = append(result.Started, peer)
		}
		m.peerLock.Unlock(peer)
	}

	for _, peer := range sortedSlice(changes.toRemove) {
		m.peerLock.Lock(peer)
		if m.tracker.dropRef(owner, peer) == 0 {
			if err := m.registry.Release(ctx, peer); err != nil {
				m.peerLock.Unlock(peer)
				m.logger.Errorf("reconciliation for owner=%s failed to stop watch on peer=%s: %v", owner, peer, err)
				result.Failures = append(result.Failures, Failure{Cluster: peer, Op: OpStop, Err: err})
				continue
			}
			result.Stopped = append(result.Stopped, peer)
		}
		m.peerLock.Unlock(peer)
	}

	return result
}

// PeerClusters returns the peer clusters currently recorded for the owner,
// sorted.
func (m *WatchManager) PeerClusters(owner string) []string {
	return sortedSlice(m.tracker.required(owner))
}

// Owners returns the owners with at least one recorded peer requirement,
// sorted.
func (m *WatchManager) Owners() []string {
	return m.tracker.ownerList()
}

// Watched returns the peer clusters with a live watch, sorted.
func (m *WatchManager) Watched() []string {
	return m.registry.Watched()
}

// Close clears every owner, releasing all watches. Stop failures are
// aggregated; bookkeeping is cleared regardless.
func (m *WatchManager) Close(ctx context.Context) error {
	var errs error
	for _, owner := range m.tracker.ownerList() {
		result, _ := m.RemovePeerClusterWatches(ctx, owner)
		errs = multierr.Append(errs, result.Err())
	}
	return errs
}
