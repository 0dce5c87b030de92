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

// Package file provides a config source backed by one YAML document on
// disk. The document maps owning clusters to their failout configs:
//
//	cluster-1:
//	  failedOut: true
//	  peerClusters:
//	    - peer-1
//	    - peer-2
//
// The source watches the document's parent directory, reloads on change and
// emits one update per cluster whose config actually changed.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/atomic"
	"gopkg.in/yaml.v3"

	"github.com/velomesh/failout"
	"github.com/velomesh/failout/configsource"
	"github.com/velomesh/failout/log"
)

// entry is the YAML form of one cluster's failout config.
type entry struct {
	FailedOut    bool     `yaml:"failedOut"`
	PeerClusters []string `yaml:"peerClusters"`
}

// Source is a config source backed by one YAML document on disk.
type Source struct {
	config  *Config
	logger  log.Logger
	started *atomic.Bool

	watcher  *fsnotify.Watcher
	snapshot map[string]failout.Config
	updates  chan configsource.Update
	stopChan chan struct{}
	done     chan struct{}
}

// enforce compilation error
var _ configsource.Source = (*Source)(nil)

// NewSource creates an instance of the file config source.
func NewSource(config *Config, opts ...Option) (*Source, error) {
	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	source := &Source{
		config:  config,
		logger:  log.DefaultLogger,
		started: atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt.Apply(source)
	}
	return source, nil
}

// ID returns the source id.
func (s *Source) ID() string {
	return "file"
}

// Start loads the document, begins watching it and returns the update
// stream. The full initial snapshot is emitted first. A document missing at
// start is treated as empty; it may appear later.
func (s *Source) Start(ctx context.Context) (<-chan configsource.Update, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, errors.New("file source already started")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.started.Store(false)
		return nil, fmt.Errorf("failed to create the file watcher: %w", err)
	}

	// Watch the parent directory rather than the document itself. Editors
	// and config pushers replace files by rename, which silently drops a
	// watch set on the old inode.
	dir := filepath.Dir(s.config.Path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		s.started.Store(false)
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	snapshot, err := s.load()
	if err != nil {
		_ = watcher.Close()
		s.started.Store(false)
		return nil, err
	}

	s.watcher = watcher
	s.snapshot = snapshot
	s.updates = make(chan configsource.Update)
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(ctx)
	return s.updates, nil
}

// Stop ends the watch and closes the update stream. Stop is idempotent.
func (s *Source) Stop() error {
	if !s.started.CompareAndSwap(true, false) {
		return nil
	}

	close(s.stopChan)
	err := s.watcher.Close()
	<-s.done
	return err
}

// run emits the initial snapshot, then reloads the document on change.
// Reloads are debounced so a burst of writes produces one diff.
func (s *Source) run(ctx context.Context) {
	defer func() {
		close(s.updates)
		close(s.done)
	}()

	if !s.emit(ctx, configsource.DiffSnapshots(nil, s.snapshot)) {
		return
	}

	var reload <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if s.concerns(event) {
				reload = time.After(s.config.DebounceInterval)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warnf("file source watch error on %s: %v", s.config.Path, err)
		case <-reload:
			reload = nil
			next, err := s.load()
			if err != nil {
				// keep serving the last good snapshot
				s.logger.Errorf("failed to reload failout configs: %v", err)
				continue
			}
			if !s.emit(ctx, configsource.DiffSnapshots(s.snapshot, next)) {
				return
			}
			s.snapshot = next
		}
	}
}

// concerns reports whether the filesystem event touches the document.
func (s *Source) concerns(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(s.config.Path) {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}

// emit delivers the updates in order. It reports false when the source is
// stopping.
func (s *Source) emit(ctx context.Context, updates []configsource.Update) bool {
	for _, update := range updates {
		select {
		case s.updates <- update:
		case <-s.stopChan:
			return false
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// load reads and parses the document into a cluster snapshot. A missing
// document yields an empty snapshot: every failout is over.
func (s *Source) load() (map[string]failout.Config, error) {
	data, err := os.ReadFile(s.config.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]failout.Config{}, nil
		}
		return nil, fmt.Errorf("failed to read failout configs from %s: %w", s.config.Path, err)
	}

	var doc map[string]entry
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse failout configs from %s: %w", s.config.Path, err)
	}

	snapshot := make(map[string]failout.Config, len(doc))
	for cluster, clusterEntry := range doc {
		snapshot[cluster] = configsource.NewRawConfig(clusterEntry.FailedOut, clusterEntry.PeerClusters)
	}
	return snapshot, nil
}
