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

// Package kubernetes provides a config source backed by one ConfigMap. The
// ConfigMap's data keys are owning cluster ids and its values are their
// failout configs as JSON.
//
// The source reads the ConfigMap once, then watches it by name. Every
// modification replaces the whole document, so the source diffs against the
// configs already delivered and emits one update per cluster that actually
// changed. An interrupted watch is resynced by rereading the ConfigMap.
package kubernetes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/fields"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/velomesh/failout"
	"github.com/velomesh/failout/configsource"
	"github.com/velomesh/failout/log"
)

// Source is a config source backed by one kubernetes ConfigMap.
type Source struct {
	config  *Config
	logger  log.Logger
	started *atomic.Bool

	client     kubernetes.Interface
	retryPause time.Duration
	cancel     context.CancelFunc
	updates    chan configsource.Update
	done       chan struct{}
}

// enforce compilation error
var _ configsource.Source = (*Source)(nil)

// NewSource creates an instance of the kubernetes config source. Without
// WithClient it builds an in-cluster client.
func NewSource(config *Config, opts ...Option) (*Source, error) {
	if config == nil {
		return nil, errors.New("kubernetes source config is required")
	}

	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	source := &Source{
		config:     config,
		logger:     log.DefaultLogger,
		started:    atomic.NewBool(false),
		retryPause: time.Second,
	}
	for _, opt := range opts {
		opt.Apply(source)
	}

	if source.client == nil {
		restConfig, err := rest.InClusterConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load the in-cluster kubernetes config: %w", err)
		}
		client, err := kubernetes.NewForConfig(restConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create the kubernetes client: %w", err)
		}
		source.client = client
	}
	return source, nil
}

// ID returns the source id.
func (s *Source) ID() string {
	return "kubernetes"
}

// Start reads the ConfigMap, begins watching it and returns the update
// stream. The full initial snapshot is emitted first. A ConfigMap missing
// at start is treated as empty; it may appear later.
func (s *Source) Start(ctx context.Context) (<-chan configsource.Update, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, errors.New("kubernetes source already started")
	}

	if ctx == nil {
		ctx = s.config.Context
	}

	snapshot, version, err := s.fetch(ctx)
	if err != nil {
		s.started.Store(false)
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(s.config.Context)
	s.cancel = cancel
	s.updates = make(chan configsource.Update)
	s.done = make(chan struct{})

	go s.run(loopCtx, snapshot, version)
	return s.updates, nil
}

// Stop ends the watch and closes the update stream. Stop is idempotent.
func (s *Source) Stop() error {
	if s.started.CompareAndSwap(true, false) {
		s.cancel()
		<-s.done
	}
	return nil
}

// run emits the initial snapshot, then consumes watch sessions until the
// source stops. Each interruption is bridged by a resync.
func (s *Source) run(ctx context.Context, current map[string]failout.Config, version string) {
	defer func() {
		close(s.updates)
		close(s.done)
	}()

	if !s.emit(ctx, configsource.DiffSnapshots(nil, current)) {
		return
	}

	for {
		watcher, err := s.watch(ctx, version)
		if err != nil {
			s.logger.Warnf("failed to watch configmap=%s/%s: %v", s.config.Namespace, s.config.Name, err)
		} else {
			var interrupted bool
			current, version, interrupted = s.stream(ctx, watcher.ResultChan(), current, version)
			watcher.Stop()
			if !interrupted {
				return
			}
		}

		next, nextVersion, ok := s.resync(ctx, current)
		if !ok {
			return
		}
		current, version = next, nextVersion
	}
}

// stream consumes one watch session. It reports true when the session was
// interrupted and needs a resync, false when the source is stopping.
func (s *Source) stream(ctx context.Context, events <-chan watch.Event, current map[string]failout.Config, version string) (map[string]failout.Config, string, bool) {
	for {
		select {
		case <-ctx.Done():
			return current, version, false
		case event, open := <-events:
			if !open {
				s.logger.Warnf("configmap watch on %s/%s ended", s.config.Namespace, s.config.Name)
				return current, version, true
			}

			switch event.Type {
			case watch.Added, watch.Modified:
				configMap, ok := event.Object.(*corev1.ConfigMap)
				if !ok || configMap.Name != s.config.Name {
					continue
				}
				next := s.decode(configMap.Data)
				if !s.emit(ctx, configsource.DiffSnapshots(current, next)) {
					return current, version, false
				}
				current, version = next, configMap.ResourceVersion
			case watch.Deleted:
				configMap, ok := event.Object.(*corev1.ConfigMap)
				if !ok || configMap.Name != s.config.Name {
					continue
				}
				if !s.emit(ctx, configsource.DiffSnapshots(current, nil)) {
					return current, version, false
				}
				current, version = map[string]failout.Config{}, configMap.ResourceVersion
			case watch.Error:
				s.logger.Warnf("configmap watch on %s/%s failed: %v", s.config.Namespace, s.config.Name, apierrors.FromObject(event.Object))
				return current, version, true
			}
		}
	}
}

// watch opens a watch scoped to the configured ConfigMap name.
func (s *Source) watch(ctx context.Context, version string) (watch.Interface, error) {
	return s.client.CoreV1().ConfigMaps(s.config.Namespace).Watch(ctx, metav1.ListOptions{
		FieldSelector:   fields.OneTermEqualSelector("metadata.name", s.config.Name).String(),
		ResourceVersion: version,
	})
}

// fetch reads the ConfigMap into a cluster snapshot. A missing ConfigMap
// yields an empty snapshot: every failout is over.
func (s *Source) fetch(ctx context.Context) (map[string]failout.Config, string, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	configMap, err := s.client.CoreV1().ConfigMaps(s.config.Namespace).Get(opCtx, s.config.Name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return map[string]failout.Config{}, "", nil
		}
		return nil, "", fmt.Errorf("failed to read configmap=%s/%s: %w", s.config.Namespace, s.config.Name, err)
	}
	return s.decode(configMap.Data), configMap.ResourceVersion, nil
}

// resync pauses, rereads the ConfigMap and emits only what changed since
// the configs already delivered. It reports false when the source is
// stopping.
func (s *Source) resync(ctx context.Context, current map[string]failout.Config) (map[string]failout.Config, string, bool) {
	for {
		select {
		case <-ctx.Done():
			return nil, "", false
		case <-time.After(s.retryPause):
		}

		next, version, err := s.fetch(ctx)
		if err != nil {
			s.logger.Errorf("failed to resync failout configs: %v", err)
			continue
		}
		if !s.emit(ctx, configsource.DiffSnapshots(current, next)) {
			return nil, "", false
		}
		return next, version, true
	}
}

// decode parses the ConfigMap data into a cluster snapshot.
func (s *Source) decode(data map[string]string) map[string]failout.Config {
	snapshot := make(map[string]failout.Config, len(data))
	for cluster, payload := range data {
		cfg, err := configsource.DecodeConfig([]byte(payload))
		if err != nil {
			s.logger.Warnf("skipping malformed failout config for cluster=%s in configmap=%s/%s: %v",
				cluster, s.config.Namespace, s.config.Name, err)
			continue
		}
		snapshot[cluster] = cfg
	}
	return snapshot
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
