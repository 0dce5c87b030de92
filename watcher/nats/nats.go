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

// Package nats provides a nats-backed watch provider. A watch on a peer
// cluster is a standing subscription on the subject carrying that cluster's
// activity; the watch tracks how many messages it has observed and when the
// last one arrived.
package nats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/atomic"

	"github.com/velomesh/failout/log"
	"github.com/velomesh/failout/watcher"
)

// Provider establishes nats-backed watches on peer clusters.
type Provider struct {
	config *Config
	mu     sync.Mutex

	initialized *atomic.Bool
	connection  *nats.Conn

	logger log.Logger
}

// enforce compilation error
var _ watcher.Provider = (*Provider)(nil)

// NewProvider returns an instance of the nats watch provider.
func NewProvider(config *Config, opts ...Option) *Provider {
	provider := &Provider{
		config:      config,
		initialized: atomic.NewBool(false),
		logger:      log.DefaultLogger,
	}

	for _, opt := range opts {
		opt.Apply(provider)
	}

	return provider
}

// ID returns the watch provider id.
func (p *Provider) ID() string {
	return "nats"
}

// Initialize validates the configuration and connects to the nats server,
// retrying with backoff.
func (p *Provider) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized.Load() {
		return watcher.ErrAlreadyInitialized
	}

	p.config.Sanitize()
	if err := p.config.Validate(); err != nil {
		return err
	}

	opts := nats.GetDefaultOptions()
	opts.Url = p.config.Server
	opts.Name = "failout-watcher"
	opts.ReconnectWait = 2 * time.Second
	opts.MaxReconnect = -1

	var connection *nats.Conn

	// attempt to connect five times with an initial delay of 100ms and a
	// maximum delay of the reconnect wait
	const maxRetries = 5
	retrier := retry.NewRetrier(maxRetries, 100*time.Millisecond, opts.ReconnectWait)
	err := retrier.Run(func() error {
		var err error
		connection, err = opts.Connect()
		return err
	})
	if err != nil {
		return err
	}

	p.connection = connection
	p.initialized.Store(true)
	return nil
}

// Listen subscribes to the given peer cluster's subject and returns the
// watch handle. The subscription is flushed to the server before Listen
// returns, bounded by the configured timeout or the caller's context,
// whichever ends first.
func (p *Provider) Listen(ctx context.Context, cluster string) (watcher.Watch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized.Load() {
		return nil, watcher.ErrNotInitialized
	}

	watch := &Watch{
		id:       uuid.NewString(),
		cluster:  cluster,
		messages: atomic.NewInt64(0),
		lastSeen: atomic.NewTime(time.Time{}),
		stopped:  atomic.NewBool(false),
	}

	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, cluster)
	subscription, err := p.connection.Subscribe(subject, watch.observe)
	if err != nil {
		return nil, err
	}
	watch.subscription = subscription

	flushCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()
	if err := p.connection.FlushWithContext(flushCtx); err != nil {
		_ = subscription.Unsubscribe()
		return nil, err
	}

	p.logger.Infof("listening on subject=%s for peer cluster=%s", subject, cluster)
	return watch, nil
}

// Close stops the provider and releases the nats connection. Watches still
// live become inert; stopping them afterward is a no-op.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized.CompareAndSwap(true, false) {
		return nil
	}

	if p.connection != nil {
		defer func() {
			p.connection.Close()
			p.connection = nil
		}()
		return p.connection.Flush()
	}
	return nil
}

// Watch is a standing subscription on one peer cluster's subject.
type Watch struct {
	id           string
	cluster      string
	subscription *nats.Subscription
	messages     *atomic.Int64
	lastSeen     *atomic.Time
	stopped      *atomic.Bool
}

// enforce compilation error
var _ watcher.Watch = (*Watch)(nil)

// ID returns the watch handle identifier.
func (w *Watch) ID() string {
	return w.id
}

// Cluster returns the peer cluster the watch monitors.
func (w *Watch) Cluster() string {
	return w.cluster
}

// Messages returns the number of messages observed on the cluster's
// subject since the watch started.
func (w *Watch) Messages() int64 {
	return w.messages.Load()
}

// LastSeen returns the arrival time of the latest observed message, zero
// when none arrived yet.
func (w *Watch) LastSeen() time.Time {
	return w.lastSeen.Load()
}

// Stop unsubscribes from the cluster's subject. Stop is idempotent.
func (w *Watch) Stop(context.Context) error {
	if !w.stopped.CompareAndSwap(false, true) {
		return nil
	}

	if w.subscription != nil && w.subscription.IsValid() {
		return w.subscription.Unsubscribe()
	}
	return nil
}

func (w *Watch) observe(*nats.Msg) {
	w.messages.Inc()
	w.lastSeen.Store(time.Now())
}
