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

// Package static provides a config source fed programmatically. The
// embedding application pushes failout configs directly instead of watching
// an external store, which also makes it the source of choice in tests.
package static

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/atomic"

	"github.com/velomesh/failout"
	"github.com/velomesh/failout/configsource"
	"github.com/velomesh/failout/log"
)

// defaultBufferSize is the capacity of the update stream.
const defaultBufferSize = 64

var (
	// ErrBufferFull is returned by Push when the update stream is at
	// capacity and the consumer has not caught up.
	ErrBufferFull = errors.New("static source buffer is full")
	// ErrStopped is returned by Push after the source stopped.
	ErrStopped = errors.New("static source is stopped")
)

// Source is a config source fed by the embedding application. Pushes are
// buffered, so configs pushed before Start are delivered once the pump
// begins draining the stream.
type Source struct {
	mu      sync.Mutex
	updates chan configsource.Update
	done    chan struct{}
	closed  bool

	buffer  int
	started *atomic.Bool
	logger  log.Logger
}

// enforce compilation error
var _ configsource.Source = (*Source)(nil)

// NewSource creates an instance of the static config source.
func NewSource(opts ...Option) *Source {
	source := &Source{
		buffer:  defaultBufferSize,
		started: atomic.NewBool(false),
		logger:  log.DefaultLogger,
	}
	for _, opt := range opts {
		opt.Apply(source)
	}

	source.updates = make(chan configsource.Update, source.buffer)
	source.done = make(chan struct{})
	return source
}

// ID returns the source id.
func (s *Source) ID() string {
	return "static"
}

// Start returns the update stream. The stream closes when the source stops
// or the given context ends.
func (s *Source) Start(ctx context.Context) (<-chan configsource.Update, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, errors.New("static source already started")
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop()
		case <-s.done:
		}
	}()
	return s.updates, nil
}

// Push delivers the given config for the owning cluster. A nil config
// signals the cluster's failout ended. Push never blocks: when the stream
// is at capacity it fails with ErrBufferFull and the caller decides whether
// to retry.
func (s *Source) Push(cluster string, cfg failout.Config) error {
	if strings.TrimSpace(cluster) == "" {
		return failout.ErrClusterRequired
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStopped
	}

	select {
	case s.updates <- configsource.Update{Cluster: cluster, Config: cfg}:
		return nil
	default:
		s.logger.Warnf("static source dropped config update for cluster=%s: buffer full", cluster)
		return ErrBufferFull
	}
}

// Remove delivers a removal for the owning cluster. It is shorthand for
// pushing a nil config.
func (s *Source) Remove(cluster string) error {
	return s.Push(cluster, nil)
}

// Stop closes the update stream. Stop is idempotent.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.updates)
	close(s.done)
	return nil
}
