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

// Package noop provides an inert watch provider. Its watches monitor
// nothing and always succeed, which makes the provider a drop-in stand-in
// wherever real peer cluster monitoring is not wanted, typically in tests
// and local tooling.
package noop

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/velomesh/failout/watcher"
)

// Provider is an inert watch provider. It counts the watches it starts and
// stops so callers can assert on reconciliation churn.
type Provider struct {
	starts *atomic.Int64
	stops  *atomic.Int64
	active *atomic.Int64
}

var _ watcher.Provider = (*Provider)(nil)

// New creates a noop watch provider.
func New() *Provider {
	return &Provider{
		starts: atomic.NewInt64(0),
		stops:  atomic.NewInt64(0),
		active: atomic.NewInt64(0),
	}
}

// ID returns the provider id.
func (p *Provider) ID() string {
	return "noop"
}

// Listen begins an inert watch on the given peer cluster.
func (p *Provider) Listen(_ context.Context, cluster string) (watcher.Watch, error) {
	p.starts.Inc()
	p.active.Inc()
	return &Watch{
		id:       uuid.NewString(),
		cluster:  cluster,
		stopped:  atomic.NewBool(false),
		provider: p,
	}, nil
}

// Starts returns the number of watches the provider has started.
func (p *Provider) Starts() int64 {
	return p.starts.Load()
}

// Stops returns the number of watches the provider has stopped.
func (p *Provider) Stops() int64 {
	return p.stops.Load()
}

// Active returns the number of watches currently live.
func (p *Provider) Active() int64 {
	return p.active.Load()
}

// Watch is an inert watch handle.
type Watch struct {
	id       string
	cluster  string
	stopped  *atomic.Bool
	provider *Provider
}

var _ watcher.Watch = (*Watch)(nil)

// ID returns the watch handle identifier.
func (w *Watch) ID() string {
	return w.id
}

// Cluster returns the peer cluster the watch monitors.
func (w *Watch) Cluster() string {
	return w.cluster
}

// Stop tears the watch down. Stop is idempotent.
func (w *Watch) Stop(context.Context) error {
	if !w.stopped.CompareAndSwap(false, true) {
		return nil
	}
	w.provider.stops.Inc()
	w.provider.active.Dec()
	return nil
}
