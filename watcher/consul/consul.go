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

// Package consul provides a Consul-backed watch provider. A watch on a peer
// cluster is a loop of blocking health queries against the Consul catalog,
// with the peer cluster id used as the service name; the watch exposes the
// latest healthy endpoint snapshot.
package consul

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"github.com/google/uuid"
	"github.com/hashicorp/consul/api"
	"go.uber.org/atomic"

	"github.com/velomesh/failout/log"
	"github.com/velomesh/failout/watcher"
)

// queryFailurePause is how long a watch sleeps after a query cycle
// exhausts its retries.
const queryFailurePause = time.Second

// Provider establishes Consul-backed watches on peer clusters.
type Provider struct {
	client *api.Client
	config *Config
	mu     sync.Mutex

	initialized *atomic.Bool

	logger log.Logger
}

// enforce compilation error
var _ watcher.Provider = (*Provider)(nil)

// NewProvider creates a new instance of the Consul watch provider.
func NewProvider(config *Config, opts ...Option) *Provider {
	if config == nil {
		config = new(Config)
	}

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
	return "consul"
}

// Initialize creates the Consul client and checks the agent connection.
func (p *Provider) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized.Load() {
		return watcher.ErrAlreadyInitialized
	}

	p.config.Sanitize()
	if err := p.config.Validate(); err != nil {
		return fmt.Errorf("consul watch provider config is invalid: %w", err)
	}

	consulConfig := api.DefaultConfig()
	consulConfig.Address = p.config.Address
	consulConfig.Datacenter = p.config.Datacenter
	consulConfig.Token = p.config.Token

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return fmt.Errorf("failed to create consul client: %w", err)
	}

	if _, err = client.Agent().Self(); err != nil {
		return fmt.Errorf("failed to connect to consul: %w", err)
	}

	p.client = client
	p.initialized.Store(true)
	return nil
}

// Listen starts a blocking-query loop on the given peer cluster's health
// entries and returns the watch handle. The loop runs until the watch is
// stopped or the provider's root context ends.
func (p *Provider) Listen(_ context.Context, cluster string) (watcher.Watch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized.Load() {
		return nil, watcher.ErrNotInitialized
	}

	loopCtx, cancel := context.WithCancel(p.config.Context)
	watch := &Watch{
		id:      uuid.NewString(),
		cluster: cluster,
		health:  p.client.Health(),
		config:  p.config,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: atomic.NewBool(false),
		logger:  p.logger,
	}

	go watch.run(loopCtx)

	p.logger.Infof("watching health of peer cluster=%s via consul", cluster)
	return watch, nil
}

// Close stops the provider. Watches already established keep running until
// individually stopped; only the provider's ability to create new ones ends.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.initialized.Store(false)
	p.client = nil
	return nil
}

// Watch is a standing health monitor on one peer cluster.
type Watch struct {
	id      string
	cluster string
	health  *api.Health
	config  *Config

	cancel  context.CancelFunc
	done    chan struct{}
	stopped *atomic.Bool

	mu        sync.RWMutex
	endpoints []string
	lastIndex uint64

	logger log.Logger
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

// Endpoints returns the latest healthy endpoint snapshot observed for the
// peer cluster.
func (w *Watch) Endpoints() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	endpoints := make([]string, len(w.endpoints))
	copy(endpoints, w.endpoints)
	return endpoints
}

// Stop ends the blocking-query loop and waits for it to exit. Stop is
// idempotent.
func (w *Watch) Stop(ctx context.Context) error {
	if !w.stopped.CompareAndSwap(false, true) {
		return nil
	}

	w.cancel()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run issues blocking health queries until the loop context ends. Each
// query waits server-side on the last seen index, so an iteration completes
// only when the cluster's health entries changed or the wait time elapsed.
func (w *Watch) run(ctx context.Context) {
	defer close(w.done)

	for {
		if ctx.Err() != nil {
			return
		}

		entries, meta, err := w.query(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warnf("health query for peer cluster=%s keeps failing: %v", w.cluster, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(queryFailurePause):
			}
			continue
		}

		w.update(entries, meta.LastIndex)
	}
}

// query performs one blocking health query, retrying transient errors with
// backoff before giving up.
func (w *Watch) query(ctx context.Context) ([]*api.ServiceEntry, *api.QueryMeta, error) {
	var entries []*api.ServiceEntry
	var meta *api.QueryMeta

	const maxRetries = 3
	retrier := retry.NewRetrier(maxRetries, 100*time.Millisecond, w.config.WaitTime)
	err := retrier.RunContext(ctx, func(ctx context.Context) error {
		opts := &api.QueryOptions{
			WaitIndex:  w.index(),
			WaitTime:   w.config.WaitTime,
			Datacenter: w.config.Datacenter,
			AllowStale: w.config.AllowStale,
		}

		var err error
		entries, meta, err = w.health.Service(w.cluster, "", w.config.OnlyPassing, opts.WithContext(ctx))
		return err
	})
	return entries, meta, err
}

func (w *Watch) index() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastIndex
}

func (w *Watch) update(entries []*api.ServiceEntry, lastIndex uint64) {
	endpoints := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry == nil || entry.Service == nil || entry.Node == nil {
			continue
		}

		address := entry.Service.Address
		if address == "" {
			address = entry.Node.Address
		}

		if entry.Service.Port > 0 {
			endpoints = append(endpoints, net.JoinHostPort(address, strconv.Itoa(entry.Service.Port)))
		} else {
			endpoints = append(endpoints, address)
		}
	}

	w.mu.Lock()
	w.endpoints = endpoints
	w.lastIndex = lastIndex
	w.mu.Unlock()
}
