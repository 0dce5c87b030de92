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

package nats

import (
	"context"
	"fmt"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"

	"github.com/velomesh/failout/log"
	"github.com/velomesh/failout/watcher"
)

func startNatsServer(t *testing.T) *natsserver.Server {
	t.Helper()
	ports := dynaport.Get(1)
	serv, err := natsserver.NewServer(&natsserver.Options{
		Host: "127.0.0.1",
		Port: ports[0],
	})

	require.NoError(t, err)

	ready := make(chan bool)
	go func() {
		ready <- true
		serv.Start()
	}()
	<-ready

	if !serv.ReadyForConnections(2 * time.Second) {
		t.Fatalf("nats server failed to start")
	}

	return serv
}

func TestProvider(t *testing.T) {
	t.Run("With invalid config", func(t *testing.T) {
		provider := NewProvider(&Config{}, WithLogger(log.DiscardLogger))
		assert.Equal(t, "nats", provider.ID())

		err := provider.Initialize()
		require.Error(t, err)
		assert.EqualError(t, err, "the [Server] is required")
	})

	t.Run("With double initialization", func(t *testing.T) {
		srv := startNatsServer(t)
		defer srv.Shutdown()

		config := &Config{Server: fmt.Sprintf("nats://%s", srv.Addr().String())}
		provider := NewProvider(config, WithLogger(log.DiscardLogger))
		require.NoError(t, provider.Initialize())

		err := provider.Initialize()
		require.Error(t, err)
		assert.ErrorIs(t, err, watcher.ErrAlreadyInitialized)

		require.NoError(t, provider.Close())
	})

	t.Run("With listen before initialization", func(t *testing.T) {
		provider := NewProvider(&Config{Server: "nats://127.0.0.1:4222"}, WithLogger(log.DiscardLogger))
		watch, err := provider.Listen(context.TODO(), "cluster-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, watcher.ErrNotInitialized)
		assert.Nil(t, watch)
	})

	t.Run("With watch observing cluster activity", func(t *testing.T) {
		srv := startNatsServer(t)
		defer srv.Shutdown()

		serverAddr := fmt.Sprintf("nats://%s", srv.Addr().String())
		config := &Config{Server: serverAddr, SubjectPrefix: "failout.clusters"}
		provider := NewProvider(config, WithLogger(log.DiscardLogger))
		require.NoError(t, provider.Initialize())

		ctx := context.TODO()
		watch, err := provider.Listen(ctx, "cluster-1")
		require.NoError(t, err)
		assert.Equal(t, "cluster-1", watch.Cluster())
		assert.NotEmpty(t, watch.ID())

		natsWatch := watch.(*Watch)
		assert.Zero(t, natsWatch.Messages())
		assert.True(t, natsWatch.LastSeen().IsZero())

		// publish activity for the watched cluster and noise for another
		publisher, err := nats.Connect(serverAddr)
		require.NoError(t, err)
		defer publisher.Close()

		require.NoError(t, publisher.Publish("failout.clusters.cluster-1", []byte("beat")))
		require.NoError(t, publisher.Publish("failout.clusters.cluster-2", []byte("noise")))
		require.NoError(t, publisher.Publish("failout.clusters.cluster-1", []byte("beat")))
		require.NoError(t, publisher.Flush())

		require.Eventually(t, func() bool {
			return natsWatch.Messages() == 2
		}, time.Second, 10*time.Millisecond)
		assert.False(t, natsWatch.LastSeen().IsZero())

		require.NoError(t, watch.Stop(ctx))
		// stopping twice is harmless
		require.NoError(t, watch.Stop(ctx))

		require.NoError(t, provider.Close())
		// closing twice is harmless as well
		require.NoError(t, provider.Close())
	})

	t.Run("With stopped watch ignoring later activity", func(t *testing.T) {
		srv := startNatsServer(t)
		defer srv.Shutdown()

		serverAddr := fmt.Sprintf("nats://%s", srv.Addr().String())
		provider := NewProvider(&Config{Server: serverAddr}, WithLogger(log.DiscardLogger))
		require.NoError(t, provider.Initialize())

		ctx := context.TODO()
		watch, err := provider.Listen(ctx, "cluster-1")
		require.NoError(t, err)
		require.NoError(t, watch.Stop(ctx))

		publisher, err := nats.Connect(serverAddr)
		require.NoError(t, err)
		defer publisher.Close()

		require.NoError(t, publisher.Publish("failout.clusters.cluster-1", []byte("beat")))
		require.NoError(t, publisher.Flush())

		natsWatch := watch.(*Watch)
		assert.Never(t, func() bool {
			return natsWatch.Messages() > 0
		}, 200*time.Millisecond, 20*time.Millisecond)

		require.NoError(t, provider.Close())
	})
}

func TestConfig(t *testing.T) {
	t.Run("With sanitize defaults", func(t *testing.T) {
		config := &Config{Server: "nats://127.0.0.1:4222"}
		config.Sanitize()
		assert.Equal(t, "failout.clusters", config.SubjectPrefix)
		assert.Equal(t, time.Second, config.Timeout)
	})

	t.Run("With valid config", func(t *testing.T) {
		config := Config{Server: "nats://127.0.0.1:4222", SubjectPrefix: "prefix"}
		assert.NoError(t, config.Validate())
	})

	t.Run("With missing server", func(t *testing.T) {
		config := Config{SubjectPrefix: "prefix"}
		assert.EqualError(t, config.Validate(), "the [Server] is required")
	})
}
