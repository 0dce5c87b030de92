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
	"sort"
	"sync"

	goset "github.com/deckarep/golang-set/v2"
)

// ownershipTracker records, per failed-out owner, the peer clusters it
// requires, together with a reference count per peer. A peer's watch may
// only be torn down once its count reaches zero, so one owner leaving never
// strands another owner that still depends on the same peer.
//
// Invariant: refs[peer] equals the number of owners whose recorded set
// contains peer; owners never hold empty sets (an owner with no peers has
// no entry at all).
type ownershipTracker struct {
	mu     sync.Mutex
	owners map[string]goset.Set[string]
	refs   map[string]int
}

func newOwnershipTracker() *ownershipTracker {
	return &ownershipTracker{
		owners: make(map[string]goset.Set[string]),
		refs:   make(map[string]int),
	}
}

// addRef records that owner requires peer and returns the peer's reference
// count. A count of one means the peer gained its first owner and its watch
// must be established. Adding a peer the owner already holds changes
// nothing.
func (t *ownershipTracker) addRef(owner, peer string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	required, ok := t.owners[owner]
	if !ok {
		required = goset.NewThreadUnsafeSet[string]()
		t.owners[owner] = required
	}

	if !required.Add(peer) {
		return t.refs[peer]
	}

	t.refs[peer]++
	return t.refs[peer]
}

// dropRef records that owner no longer requires peer and returns the peer's
// remaining reference count. A count of zero means the last owner left and
// the peer's watch must be released. Dropping a peer the owner never held
// changes nothing. Owners left with an empty set are removed entirely.
func (t *ownershipTracker) dropRef(owner, peer string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	required, ok := t.owners[owner]
	if !ok || !required.Contains(peer) {
		return t.refs[peer]
	}

	required.Remove(peer)
	if required.Cardinality() == 0 {
		delete(t.owners, owner)
	}

	remaining := t.refs[peer] - 1
	if remaining <= 0 {
		delete(t.refs, peer)
		return 0
	}
	t.refs[peer] = remaining
	return remaining
}

// required returns a copy of the peer set currently recorded for the owner.
func (t *ownershipTracker) required(owner string) goset.Set[string] {
	t.mu.Lock()
	defer t.mu.Unlock()

	required, ok := t.owners[owner]
	if !ok {
		return goset.NewSet[string]()
	}
	return toPeerSet(required.ToSlice())
}

// refCount returns the number of owners currently requiring the peer.
func (t *ownershipTracker) refCount(peer string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refs[peer]
}

// union returns the set of peers required by at least one owner.
func (t *ownershipTracker) union() goset.Set[string] {
	t.mu.Lock()
	defer t.mu.Unlock()

	peers := goset.NewSet[string]()
	for peer := range t.refs {
		peers.Add(peer)
	}
	return peers
}

// ownerList returns the owners with at least one recorded peer, sorted.
func (t *ownershipTracker) ownerList() []string {
	t.mu.Lock()
	owners := make([]string, 0, len(t.owners))
	for owner := range t.owners {
		owners = append(owners, owner)
	}
	t.mu.Unlock()

	sort.Strings(owners)
	return owners
}
