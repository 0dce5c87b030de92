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

// Package etcd provides a config source backed by an etcd key prefix. Each
// key under the configured namespace holds one cluster's failout config as
// JSON and the key itself is the owning cluster id.
//
// The source lists the prefix once, then watches from the next revision so
// no update between the two is missed. When the watch is interrupted it
// relists, emits only the configs that changed in the meantime and watches
// again.
package etcd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"
	"go.uber.org/atomic"

	"github.com/velomesh/failout"
	"github.com/velomesh/failout/configsource"
	"github.com/velomesh/failout/log"
)

// Source is a config source backed by an etcd key prefix.
type Source struct {
	config  *Config
	logger  log.Logger
	started *atomic.Bool
	closed  *atomic.Bool

	client    *clientv3.Client
	kv        clientv3.KV
	watcher   clientv3.Watcher
	closeFunc func(*clientv3.Client) error

	retryPause time.Duration
	cancel     context.CancelFunc
	updates    chan configsource.Update
	done       chan struct{}
}

// enforce compilation error
var _ configsource.Source = (*Source)(nil)

// NewSource creates an instance of the etcd config source. It validates the
// provided configuration, connects to the first configured endpoint and
// applies the configured namespace to all keys.
func NewSource(config *Config, opts ...Option) (*Source, error) {
	return newSource(config, clientv3.New, func(client *clientv3.Client) error { return client.Close() }, opts...)
}

func newSource(config *Config, clientFunc func(clientv3.Config) (*clientv3.Client, error), closeFunc func(*clientv3.Client) error, opts ...Option) (*Source, error) {
	if config == nil {
		return nil, errors.New("etcd source config is required")
	}

	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if clientFunc == nil {
		clientFunc = clientv3.New
	}
	if closeFunc == nil {
		closeFunc = func(client *clientv3.Client) error { return client.Close() }
	}

	client, err := clientFunc(clientv3.Config{
		Endpoints:   config.Endpoints,
		DialTimeout: config.DialTimeout,
		TLS:         config.TLS,
		Username:    config.Username,
		Password:    config.Password,
		Context:     config.Context,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(config.Context, config.DialTimeout)
	defer cancel()

	if _, err = client.Status(ctx, config.Endpoints[0]); err != nil {
		if cerr := closeFunc(client); cerr != nil {
			return nil, errors.Join(err, fmt.Errorf("failed to close etcd client: %w", cerr))
		}
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	namespacePrefix := normalizeNamespace(config.Namespace)
	source := &Source{
		config:     config,
		logger:     log.DefaultLogger,
		started:    atomic.NewBool(false),
		closed:     atomic.NewBool(false),
		client:     client,
		kv:         namespace.NewKV(client.KV, namespacePrefix),
		watcher:    namespace.NewWatcher(client.Watcher, namespacePrefix),
		closeFunc:  closeFunc,
		retryPause: time.Second,
	}
	for _, opt := range opts {
		opt.Apply(source)
	}
	return source, nil
}

// ID returns the source id.
func (s *Source) ID() string {
	return "etcd"
}

// Start lists the configured namespace, begins watching it and returns the
// update stream. The full initial snapshot is emitted first.
func (s *Source) Start(ctx context.Context) (<-chan configsource.Update, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, errors.New("etcd source already started")
	}

	if ctx == nil {
		ctx = s.config.Context
	}

	snapshot, revision, err := s.list(ctx)
	if err != nil {
		s.started.Store(false)
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(s.config.Context)
	s.cancel = cancel
	s.updates = make(chan configsource.Update)
	s.done = make(chan struct{})

	go s.run(loopCtx, snapshot, revision)
	return s.updates, nil
}

// Stop ends the watch, closes the update stream and releases the underlying
// etcd client. Stop is idempotent.
func (s *Source) Stop() error {
	if s.started.CompareAndSwap(true, false) {
		s.cancel()
		<-s.done
	}

	if s.client == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.closeFunc(s.client)
}

// run emits the initial snapshot, then streams watch events. An interrupted
// watch is resynced by relisting and diffing against the configs already
// delivered.
func (s *Source) run(ctx context.Context, current map[string]failout.Config, revision int64) {
	defer func() {
		close(s.updates)
		close(s.done)
	}()

	if !s.emit(ctx, configsource.DiffSnapshots(nil, current)) {
		return
	}

	watchChan := s.watch(ctx, revision)
	for {
		select {
		case <-ctx.Done():
			return
		case resp, open := <-watchChan:
			interrupted := !open
			if open && resp.Err() != nil {
				s.logger.Warnf("etcd watch interrupted: %v", resp.Err())
				interrupted = true
			}
			if interrupted {
				next, nextRevision, ok := s.resync(ctx, current)
				if !ok {
					return
				}
				current = next
				watchChan = s.watch(ctx, nextRevision)
				continue
			}

			for _, event := range resp.Events {
				update, ok := s.toUpdate(event)
				if !ok {
					continue
				}
				if !s.emit(ctx, []configsource.Update{update}) {
					return
				}
				track(current, update)
			}
		}
	}
}

// watch opens a prefix watch starting just after the given revision.
func (s *Source) watch(ctx context.Context, revision int64) clientv3.WatchChan {
	return s.watcher.Watch(ctx, "", clientv3.WithPrefix(), clientv3.WithRev(revision+1))
}

// list fetches every config under the namespace along with the revision the
// snapshot was taken at.
func (s *Source) list(ctx context.Context) (map[string]failout.Config, int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.kv.Get(opCtx, "", clientv3.WithPrefix())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list failout configs: %w", err)
	}

	snapshot := make(map[string]failout.Config, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		cluster := clusterFromKey(string(kv.Key))
		if cluster == "" {
			continue
		}
		cfg, err := configsource.DecodeConfig(kv.Value)
		if err != nil {
			s.logger.Warnf("skipping malformed failout config at key=%s: %v", string(kv.Key), err)
			continue
		}
		snapshot[cluster] = cfg
	}

	var revision int64
	if resp.Header != nil {
		revision = resp.Header.Revision
	}
	return snapshot, revision, nil
}

// resync pauses, relists and emits only what changed since the configs
// already delivered. It reports false when the source is stopping.
func (s *Source) resync(ctx context.Context, current map[string]failout.Config) (map[string]failout.Config, int64, bool) {
	for {
		select {
		case <-ctx.Done():
			return nil, 0, false
		case <-time.After(s.retryPause):
		}

		next, revision, err := s.list(ctx)
		if err != nil {
			s.logger.Errorf("failed to resync failout configs: %v", err)
			continue
		}
		if !s.emit(ctx, configsource.DiffSnapshots(current, next)) {
			return nil, 0, false
		}
		return next, revision, true
	}
}

// toUpdate translates one watch event into a config update.
func (s *Source) toUpdate(event *clientv3.Event) (configsource.Update, bool) {
	cluster := clusterFromKey(string(event.Kv.Key))
	if cluster == "" {
		return configsource.Update{}, false
	}

	switch event.Type {
	case clientv3.EventTypePut:
		cfg, err := configsource.DecodeConfig(event.Kv.Value)
		if err != nil {
			s.logger.Warnf("skipping malformed failout config at key=%s: %v", string(event.Kv.Key), err)
			return configsource.Update{}, false
		}
		return configsource.Update{Cluster: cluster, Config: cfg}, true
	case clientv3.EventTypeDelete:
		return configsource.Update{Cluster: cluster}, true
	default:
		return configsource.Update{}, false
	}
}

// emit delivers the updates in order. It reports false when the source is
// stopping.
func (s *Source) emit(ctx context.Context, updates []configsource.Update) bool {
	for _, update := range updates {
		select {
		case s.updates <- update:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// track folds one delivered update into the snapshot of configs the stream
// has already announced.
func track(current map[string]failout.Config, update configsource.Update) {
	if update.Config == nil {
		delete(current, update.Cluster)
		return
	}
	current[update.Cluster] = update.Config
}

func clusterFromKey(key string) string {
	return strings.TrimSpace(strings.TrimPrefix(key, "/"))
}

func normalizeNamespace(namespaceValue string) string {
	trimmed := strings.TrimSpace(namespaceValue)
	if trimmed == "" {
		return defaultNamespace + "/"
	}
	if strings.HasSuffix(trimmed, "/") {
		return trimmed
	}
	return trimmed + "/"
}
