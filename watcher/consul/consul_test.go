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

package consul

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hashicorp/consul/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/velomesh/failout/log"
	"github.com/velomesh/failout/watcher"
)

// fakeAgent is a minimal Consul agent serving the self endpoint and
// blocking health queries for a single service.
type fakeAgent struct {
	mu      sync.Mutex
	index   uint64
	entries []*api.ServiceEntry
	server  *httptest.Server
}

func newFakeAgent(t *testing.T, service string) *fakeAgent {
	t.Helper()
	agent := &fakeAgent{index: 1}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/agent/self", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Config":{"NodeName":"fake-agent"}}`))
	})
	mux.HandleFunc("/v1/health/service/"+service, func(w http.ResponseWriter, r *http.Request) {
		waitIndex, _ := strconv.ParseUint(r.URL.Query().Get("index"), 10, 64)

		// emulate a blocking query: wait briefly for the index to move
		// past the one the client has already seen
		deadline := time.Now().Add(100 * time.Millisecond)
		for {
			agent.mu.Lock()
			index, entries := agent.index, agent.entries
			agent.mu.Unlock()
			if index > waitIndex || time.Now().After(deadline) {
				w.Header().Set("X-Consul-Index", strconv.FormatUint(index, 10))
				w.Header().Set("X-Consul-KnownLeader", "true")
				w.Header().Set("X-Consul-LastContact", "0")
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(entries)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	})

	agent.server = httptest.NewServer(mux)
	return agent
}

func (a *fakeAgent) address() string {
	return strings.TrimPrefix(a.server.URL, "http://")
}

func (a *fakeAgent) setEntries(entries ...*api.ServiceEntry) {
	a.mu.Lock()
	a.index++
	a.entries = entries
	a.mu.Unlock()
}

func (a *fakeAgent) close() {
	a.server.Close()
}

func serviceEntry(service, address string, port int) *api.ServiceEntry {
	return &api.ServiceEntry{
		Node: &api.Node{Node: "node-1", Address: address},
		Service: &api.AgentService{
			ID:      service + "-" + address,
			Service: service,
			Address: address,
			Port:    port,
		},
	}
}

func TestProvider(t *testing.T) {
	t.Run("With invalid config", func(t *testing.T) {
		provider := NewProvider(&Config{}, WithLogger(log.DiscardLogger))
		assert.Equal(t, "consul", provider.ID())

		err := provider.Initialize()
		require.Error(t, err)
		assert.ErrorContains(t, err, "the [Address] is required")
	})

	t.Run("With double initialization", func(t *testing.T) {
		agent := newFakeAgent(t, "cluster-1")
		defer agent.close()

		provider := NewProvider(&Config{Address: agent.address()}, WithLogger(log.DiscardLogger))
		require.NoError(t, provider.Initialize())

		err := provider.Initialize()
		require.Error(t, err)
		assert.ErrorIs(t, err, watcher.ErrAlreadyInitialized)

		require.NoError(t, provider.Close())
	})

	t.Run("With listen before initialization", func(t *testing.T) {
		provider := NewProvider(&Config{Address: "127.0.0.1:8500"}, WithLogger(log.DiscardLogger))
		watch, err := provider.Listen(context.TODO(), "cluster-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, watcher.ErrNotInitialized)
		assert.Nil(t, watch)
	})

	t.Run("With watch tracking healthy endpoints", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		agent := newFakeAgent(t, "cluster-1")
		defer agent.close()
		agent.setEntries(serviceEntry("cluster-1", "10.0.0.1", 8080))

		config := &Config{
			Address:  agent.address(),
			WaitTime: 200 * time.Millisecond,
		}
		provider := NewProvider(config, WithLogger(log.DiscardLogger))
		require.NoError(t, provider.Initialize())

		ctx := context.TODO()
		watch, err := provider.Listen(ctx, "cluster-1")
		require.NoError(t, err)
		assert.Equal(t, "cluster-1", watch.Cluster())
		assert.NotEmpty(t, watch.ID())

		consulWatch := watch.(*Watch)
		require.Eventually(t, func() bool {
			endpoints := consulWatch.Endpoints()
			return len(endpoints) == 1 && endpoints[0] == "10.0.0.1:8080"
		}, 2*time.Second, 20*time.Millisecond)

		// a topology change shows up in the next snapshot
		agent.setEntries(
			serviceEntry("cluster-1", "10.0.0.1", 8080),
			serviceEntry("cluster-1", "10.0.0.2", 8080),
		)
		require.Eventually(t, func() bool {
			return len(consulWatch.Endpoints()) == 2
		}, 2*time.Second, 20*time.Millisecond)

		require.NoError(t, watch.Stop(ctx))
		// stopping twice is harmless
		require.NoError(t, watch.Stop(ctx))

		require.NoError(t, provider.Close())
	})

	t.Run("With watch stopped while queries fail", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		agent := newFakeAgent(t, "cluster-1")
		provider := NewProvider(&Config{
			Address:  agent.address(),
			WaitTime: 100 * time.Millisecond,
		}, WithLogger(log.DiscardLogger))
		require.NoError(t, provider.Initialize())

		ctx := context.TODO()
		watch, err := provider.Listen(ctx, "cluster-1")
		require.NoError(t, err)

		// take the agent away so the query loop starts erroring, then
		// make sure the watch still winds down cleanly
		agent.close()
		time.Sleep(50 * time.Millisecond)

		require.NoError(t, watch.Stop(ctx))
		require.NoError(t, provider.Close())
	})
}

func TestConfig(t *testing.T) {
	t.Run("With sanitize defaults", func(t *testing.T) {
		config := &Config{Address: "127.0.0.1:8500"}
		config.Sanitize()
		assert.NotNil(t, config.Context)
		assert.Equal(t, 10*time.Second, config.Timeout)
		assert.Equal(t, 30*time.Second, config.WaitTime)
	})

	t.Run("With missing address", func(t *testing.T) {
		config := &Config{}
		assert.EqualError(t, config.Validate(), "the [Address] is required")
	})
}
