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

// Package redis provides a config source backed by redis. A hash holds the
// current config per owning cluster and a pub/sub channel carries live
// update envelopes:
//
//	{"cluster": "cluster-1", "config": {"failedOut": true, "peerClusters": ["peer-1"]}}
//
// A null or absent config in the envelope means the cluster's failout
// ended. Publishers write the hash first and then publish the envelope, so
// the hash is the source of truth for joiners while the channel delivers
// live changes. The source subscribes before reading the hash to avoid a
// gap between snapshot and stream.
package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	rdb "github.com/redis/go-redis/v9"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/velomesh/failout"
	"github.com/velomesh/failout/configsource"
	"github.com/velomesh/failout/log"
)

// client is the slice of the redis client the source uses.
type client interface {
	Ping(ctx context.Context) *rdb.StatusCmd
	HGetAll(ctx context.Context, key string) *rdb.MapStringStringCmd
	Close() error
}

// subscriber is the slice of the redis pub/sub the source uses.
type subscriber interface {
	Receive(ctx context.Context) (any, error)
	Channel(opts ...rdb.ChannelOption) <-chan *rdb.Message
	Close() error
}

// Source is a config source backed by a redis hash and pub/sub channel.
type Source struct {
	config  *Config
	logger  log.Logger
	started *atomic.Bool
	closed  *atomic.Bool

	client    client
	subscribe func(ctx context.Context) subscriber
	pubsub    subscriber

	cancel  context.CancelFunc
	updates chan configsource.Update
	done    chan struct{}
}

// enforce compilation error
var _ configsource.Source = (*Source)(nil)

// NewSource creates an instance of the redis config source. It validates
// the provided configuration and pings the server.
func NewSource(config *Config, opts ...Option) (*Source, error) {
	if config == nil {
		return nil, errors.New("redis source config is required")
	}

	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	redisClient := rdb.NewClient(&rdb.Options{
		Addr:        config.Address,
		Password:    config.Password,
		DB:          config.DB,
		DialTimeout: config.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(config.Context, config.DialTimeout)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	source := &Source{
		config:  config,
		logger:  log.DefaultLogger,
		started: atomic.NewBool(false),
		closed:  atomic.NewBool(false),
		client:  redisClient,
		subscribe: func(ctx context.Context) subscriber {
			return redisClient.Subscribe(ctx, config.Channel)
		},
	}
	for _, opt := range opts {
		opt.Apply(source)
	}
	return source, nil
}

// ID returns the source id.
func (s *Source) ID() string {
	return "redis"
}

// Start subscribes to the update channel, reads the config hash and returns
// the update stream. The full initial snapshot is emitted first; envelopes
// published while the hash was being read are delivered right after it.
func (s *Source) Start(ctx context.Context) (<-chan configsource.Update, error) {
	if !s.started.CompareAndSwap(false, true) {
		return nil, errors.New("redis source already started")
	}

	if ctx == nil {
		ctx = s.config.Context
	}

	opCtx, opCancel := context.WithTimeout(ctx, s.config.Timeout)
	defer opCancel()

	loopCtx, cancel := context.WithCancel(s.config.Context)
	pubsub := s.subscribe(loopCtx)
	if _, err := pubsub.Receive(opCtx); err != nil {
		cancel()
		_ = pubsub.Close()
		s.started.Store(false)
		return nil, fmt.Errorf("failed to subscribe to channel=%s: %w", s.config.Channel, err)
	}

	fields, err := s.client.HGetAll(opCtx, s.config.HashKey).Result()
	if err != nil {
		cancel()
		_ = pubsub.Close()
		s.started.Store(false)
		return nil, fmt.Errorf("failed to read failout configs from hash=%s: %w", s.config.HashKey, err)
	}

	snapshot := make(map[string]failout.Config, len(fields))
	for cluster, payload := range fields {
		cfg, err := configsource.DecodeConfig([]byte(payload))
		if err != nil {
			s.logger.Warnf("skipping malformed failout config for cluster=%s in hash=%s: %v", cluster, s.config.HashKey, err)
			continue
		}
		snapshot[cluster] = cfg
	}

	s.cancel = cancel
	s.pubsub = pubsub
	s.updates = make(chan configsource.Update)
	s.done = make(chan struct{})

	go s.run(loopCtx, pubsub.Channel(), snapshot)
	return s.updates, nil
}

// Stop ends the subscription, closes the update stream and releases the
// underlying redis client. Stop is idempotent.
func (s *Source) Stop() error {
	if s.started.CompareAndSwap(true, false) {
		s.cancel()
		<-s.done
	}

	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	var err error
	if s.pubsub != nil {
		err = s.pubsub.Close()
	}
	if s.client != nil {
		err = multierr.Append(err, s.client.Close())
	}
	return err
}

// run emits the initial snapshot, then streams envelopes from the update
// channel.
func (s *Source) run(ctx context.Context, messages <-chan *rdb.Message, snapshot map[string]failout.Config) {
	defer func() {
		close(s.updates)
		close(s.done)
	}()

	if !s.emit(ctx, configsource.DiffSnapshots(nil, snapshot)) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case message, open := <-messages:
			if !open {
				s.logger.Warnf("redis subscription on channel=%s closed", s.config.Channel)
				return
			}
			update, err := DecodeUpdate([]byte(message.Payload))
			if err != nil {
				s.logger.Warnf("skipping malformed failout update on channel=%s: %v", s.config.Channel, err)
				continue
			}
			if !s.emit(ctx, []configsource.Update{update}) {
				return
			}
		}
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

// envelope is the wire form of one published config update.
type envelope struct {
	Cluster string          `json:"cluster"`
	Config  json.RawMessage `json:"config"`
}

// DecodeUpdate parses one published envelope. A null or absent config
// yields a removal update.
func DecodeUpdate(data []byte) (configsource.Update, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return configsource.Update{}, fmt.Errorf("failed to decode failout update envelope: %w", err)
	}
	if strings.TrimSpace(env.Cluster) == "" {
		return configsource.Update{}, errors.New("failout update envelope has no cluster")
	}
	if len(env.Config) == 0 || bytes.Equal(env.Config, []byte("null")) {
		return configsource.Update{Cluster: env.Cluster}, nil
	}

	cfg, err := configsource.DecodeConfig(env.Config)
	if err != nil {
		return configsource.Update{}, err
	}
	return configsource.Update{Cluster: env.Cluster, Config: cfg}, nil
}

// EncodeUpdate renders one config update into its envelope wire form, for
// publishers feeding the update channel.
func EncodeUpdate(update configsource.Update) ([]byte, error) {
	if strings.TrimSpace(update.Cluster) == "" {
		return nil, errors.New("failout update envelope needs a cluster")
	}

	env := envelope{Cluster: update.Cluster}
	if update.Config != nil {
		payload, err := configsource.EncodeConfig(update.Config)
		if err != nil {
			return nil, err
		}
		env.Config = payload
	}
	return json.Marshal(env)
}
