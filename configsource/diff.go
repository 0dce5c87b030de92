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

package configsource

import (
	"sort"

	goset "github.com/deckarep/golang-set/v2"

	"github.com/velomesh/failout"
)

// DiffSnapshots compares two whole-document snapshots of cluster configs
// and returns one update per changed cluster, in cluster order. A cluster
// present before and absent now yields a nil-config update; unchanged
// clusters yield nothing. Sources that reload entire documents (file,
// kubernetes) use this to emit only real changes.
func DiffSnapshots(previous, next map[string]failout.Config) []Update {
	clusters := goset.NewThreadUnsafeSet[string]()
	for cluster := range previous {
		clusters.Add(cluster)
	}
	for cluster := range next {
		clusters.Add(cluster)
	}

	sorted := clusters.ToSlice()
	sort.Strings(sorted)

	var updates []Update
	for _, cluster := range sorted {
		previousCfg, hadPrevious := previous[cluster]
		nextCfg, hasNext := next[cluster]
		switch {
		case !hasNext:
			updates = append(updates, Update{Cluster: cluster})
		case !hadPrevious || !failout.ConfigEqual(previousCfg, nextCfg):
			updates = append(updates, Update{Cluster: cluster, Config: nextCfg})
		}
	}
	return updates
}
