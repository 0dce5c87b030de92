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

	goset "github.com/deckarep/golang-set/v2"
)

// changeSet is the outcome of diffing a desired peer cluster set against an
// existing one: the watches to establish and the watches to release.
type changeSet struct {
	toAdd    goset.Set[string]
	toRemove goset.Set[string]
}

// empty reports whether the change set carries no work.
func (c changeSet) empty() bool {
	return c.toAdd.Cardinality() == 0 && c.toRemove.Cardinality() == 0
}

// diffPeerSets computes the minimal watch operations that move existing to
// desired. Application order within either group is irrelevant; the
// operations commute.
func diffPeerSets(existing, desired goset.Set[string]) changeSet {
	return changeSet{
		toAdd:    desired.Difference(existing),
		toRemove: existing.Difference(desired),
	}
}

// toPeerSet normalizes a peer cluster slice into a set. Ids are opaque and
// case-sensitive; no normalization beyond deduplication happens here.
func toPeerSet(peers []string) goset.Set[string] {
	set := goset.NewSet[string]()
	for _, peer := range peers {
		set.Add(peer)
	}
	return set
}

// sortedSlice returns the set elements in lexical order. Reconciliation
// applies operations in this order so logs and results are deterministic;
// the order carries no semantic weight.
func sortedSlice(set goset.Set[string]) []string {
	peers := set.ToSlice()
	sort.Strings(peers)
	return peers
}
