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

// Package watcher defines the capability consumed by the failout engine to
// monitor peer clusters. A provider establishes standing watches toward peer
// clusters; the engine only decides which watches should exist and never
// performs the monitoring I/O itself.
package watcher

import "context"

// Watch is a handle on a standing monitor established toward one peer
// cluster. A watch is owned by the registry entry it was created under and
// is released exactly once, on teardown.
type Watch interface {
	// ID returns the watch handle identifier.
	ID() string
	// Cluster returns the peer cluster the watch monitors.
	Cluster() string
	// Stop tears the watch down and releases its resources. Stop is
	// idempotent: stopping an already stopped watch returns nil.
	Stop(ctx context.Context) error
}

// Provider establishes watches toward peer clusters.
type Provider interface {
	// ID returns the provider id.
	ID() string
	// Listen begins monitoring the given peer cluster and returns the
	// resulting watch handle. Callers must invoke Listen at most once per
	// currently needed peer cluster; the registry enforces this.
	Listen(ctx context.Context, cluster string) (Watch, error)
}
