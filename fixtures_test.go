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

package failout

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/velomesh/failout/watcher"
)

// fakeProvider is a recording watch provider. It counts starts and stops
// per peer cluster and can be told to fail Listen or Stop for specific
// clusters, which exercises the best-effort reconciliation paths.
type fakeProvider struct {
	mu         sync.Mutex
	starts     map[string]int
	stops      map[string]int
	live       map[string]int
	listenErrs map[string]error
	stopErrs   map[string]error
	// listenGate, when set, is closed by the test to let blocked Listen
	// calls proceed. Used to widen race windows in concurrency tests.
	listenGate chan struct{}
}

var _ watcher.Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		starts:     make(map[string]int),
		stops:      make(map[string]int),
		live:       make(map[string]int),
		listenErrs: make(map[string]error),
		stopErrs:   make(map[string]error),
	}
}

func (p *fakeProvider) ID() string {
	return "fake"
}

func (p *fakeProvider) Listen(_ context.Context, cluster string) (watcher.Watch, error) {
	p.mu.Lock()
	gate := p.listenGate
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.listenErrs[cluster]; err != nil {
		return nil, err
	}

	p.starts[cluster]++
	p.live[cluster]++
	return &fakeWatch{
		id:       uuid.NewString(),
		cluster:  cluster,
		provider: p,
	}, nil
}

func (p *fakeProvider) failListen(cluster string, err error) {
	p.mu.Lock()
	p.listenErrs[cluster] = err
	p.mu.Unlock()
}

func (p *fakeProvider) failStop(cluster string, err error) {
	p.mu.Lock()
	p.stopErrs[cluster] = err
	p.mu.Unlock()
}

func (p *fakeProvider) startCount(cluster string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.starts[cluster]
}

func (p *fakeProvider) stopCount(cluster string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops[cluster]
}

func (p *fakeProvider) liveCount(cluster string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live[cluster]
}

func (p *fakeProvider) totalStarts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.starts {
		total += n
	}
	return total
}

func (p *fakeProvider) totalStops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.stops {
		total += n
	}
	return total
}

type fakeWatch struct {
	id       string
	cluster  string
	provider *fakeProvider
	stopOnce sync.Once
}

var _ watcher.Watch = (*fakeWatch)(nil)

func (w *fakeWatch) ID() string {
	return w.id
}

func (w *fakeWatch) Cluster() string {
	return w.cluster
}

func (w *fakeWatch) Stop(context.Context) error {
	var err error
	w.stopOnce.Do(func() {
		w.provider.mu.Lock()
		defer w.provider.mu.Unlock()
		if stopErr := w.provider.stopErrs[w.cluster]; stopErr != nil {
			err = stopErr
			return
		}
		w.provider.stops[w.cluster]++
		w.provider.live[w.cluster]--
	})
	return err
}
