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
	"context"
	"errors"
	"sync"

	"github.com/velomesh/failout"
)

// recordingApplier records the updates it receives and can be told to
// reject specific clusters, which exercises the best-effort pump path.
type recordingApplier struct {
	mu      sync.Mutex
	applied []Update
	rejects map[string]error
}

var _ Applier = (*recordingApplier)(nil)

func newRecordingApplier() *recordingApplier {
	return &recordingApplier{rejects: make(map[string]error)}
}

func (a *recordingApplier) UpdateFailoutConfig(_ context.Context, cluster string, cfg failout.Config) (*failout.Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.rejects[cluster]; err != nil {
		return nil, err
	}
	a.applied = append(a.applied, Update{Cluster: cluster, Config: cfg})
	return &failout.Result{Owner: cluster}, nil
}

func (a *recordingApplier) reject(cluster string, err error) {
	a.mu.Lock()
	a.rejects[cluster] = err
	a.mu.Unlock()
}

func (a *recordingApplier) updates() []Update {
	a.mu.Lock()
	defer a.mu.Unlock()

	updates := make([]Update, len(a.applied))
	copy(updates, a.applied)
	return updates
}

// scriptedSource hands Run a channel the test feeds directly.
type scriptedSource struct {
	updates chan Update
	stopErr error

	mu      sync.Mutex
	stopped int
}

var _ Source = (*scriptedSource)(nil)

func newScriptedSource(buffer int) *scriptedSource {
	return &scriptedSource{updates: make(chan Update, buffer)}
}

func (s *scriptedSource) ID() string { return "scripted" }

func (s *scriptedSource) Start(context.Context) (<-chan Update, error) {
	return s.updates, nil
}

func (s *scriptedSource) Stop() error {
	s.mu.Lock()
	s.stopped++
	s.mu.Unlock()
	return s.stopErr
}

func (s *scriptedSource) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// brokenSource fails to start. It exercises the Run startup error path.
type brokenSource struct{}

var _ Source = (*brokenSource)(nil)

func (brokenSource) ID() string { return "broken" }

func (brokenSource) Start(context.Context) (<-chan Update, error) {
	return nil, errors.New("backend unreachable")
}

func (brokenSource) Stop() error { return nil }
