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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnershipTracker(t *testing.T) {
	t.Run("With first reference", func(t *testing.T) {
		tracker := newOwnershipTracker()
		assert.Equal(t, 1, tracker.addRef("owner-a", "peer-1"))
		assert.Equal(t, 1, tracker.refCount("peer-1"))
	})

	t.Run("With duplicate reference from the same owner", func(t *testing.T) {
		tracker := newOwnershipTracker()
		assert.Equal(t, 1, tracker.addRef("owner-a", "peer-1"))
		// re-adding the same peer for the same owner changes nothing
		assert.Equal(t, 1, tracker.addRef("owner-a", "peer-1"))
		assert.Equal(t, 1, tracker.refCount("peer-1"))
	})

	t.Run("With shared peer across owners", func(t *testing.T) {
		tracker := newOwnershipTracker()
		assert.Equal(t, 1, tracker.addRef("owner-a", "peer-1"))
		assert.Equal(t, 2, tracker.addRef("owner-b", "peer-1"))
		assert.Equal(t, 2, tracker.refCount("peer-1"))

		// the first owner leaving keeps the peer referenced
		assert.Equal(t, 1, tracker.dropRef("owner-a", "peer-1"))
		assert.Equal(t, 1, tracker.refCount("peer-1"))

		// the last owner leaving zeroes the count
		assert.Equal(t, 0, tracker.dropRef("owner-b", "peer-1"))
		assert.Equal(t, 0, tracker.refCount("peer-1"))
	})

	t.Run("With drop of an unheld peer", func(t *testing.T) {
		tracker := newOwnershipTracker()
		tracker.addRef("owner-a", "peer-1")
		tracker.addRef("owner-b", "peer-1")

		// owner-c never held peer-1 so the count is untouched
		assert.Equal(t, 2, tracker.dropRef("owner-c", "peer-1"))
		assert.Equal(t, 2, tracker.refCount("peer-1"))
	})

	t.Run("With drop for an unknown owner", func(t *testing.T) {
		tracker := newOwnershipTracker()
		assert.Equal(t, 0, tracker.dropRef("owner-a", "peer-1"))
	})

	t.Run("With required set snapshot", func(t *testing.T) {
		tracker := newOwnershipTracker()
		tracker.addRef("owner-a", "peer-1")
		tracker.addRef("owner-a", "peer-2")

		required := tracker.required("owner-a")
		assert.True(t, required.Contains("peer-1"))
		assert.True(t, required.Contains("peer-2"))

		// mutating the snapshot must not leak into the tracker
		required.Add("peer-3")
		assert.Equal(t, 0, tracker.refCount("peer-3"))
		assert.Equal(t, 2, tracker.required("owner-a").Cardinality())
	})

	t.Run("With required set of an unknown owner", func(t *testing.T) {
		tracker := newOwnershipTracker()
		assert.Equal(t, 0, tracker.required("owner-a").Cardinality())
	})

	t.Run("With owner removed once empty", func(t *testing.T) {
		tracker := newOwnershipTracker()
		tracker.addRef("owner-a", "peer-1")
		tracker.dropRef("owner-a", "peer-1")

		assert.Empty(t, tracker.ownerList())
		assert.Equal(t, 0, tracker.union().Cardinality())
	})

	t.Run("With union across owners", func(t *testing.T) {
		tracker := newOwnershipTracker()
		tracker.addRef("owner-a", "peer-1")
		tracker.addRef("owner-a", "peer-2")
		tracker.addRef("owner-b", "peer-2")
		tracker.addRef("owner-b", "peer-3")

		union := tracker.union()
		assert.Equal(t, 3, union.Cardinality())
		assert.True(t, union.Contains("peer-1"))
		assert.True(t, union.Contains("peer-2"))
		assert.True(t, union.Contains("peer-3"))
	})

	t.Run("With sorted owner list", func(t *testing.T) {
		tracker := newOwnershipTracker()
		tracker.addRef("owner-z", "peer-1")
		tracker.addRef("owner-a", "peer-1")
		tracker.addRef("owner-m", "peer-1")

		assert.Equal(t, []string{"owner-a", "owner-m", "owner-z"}, tracker.ownerList())
	})
}
