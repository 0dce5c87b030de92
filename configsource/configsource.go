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

// Package configsource delivers failout configuration updates from external
// stores into the failout engine. A source watches one backend and emits
// one update per changed cluster; Run pumps a source into an applier until
// the context ends.
//
// The engine itself never talks to a backend. Sources are the delivery
// collaborators around it, one per supported store.
package configsource

import (
	"context"

	"go.uber.org/multierr"

	"github.com/velomesh/failout"
	"github.com/velomesh/failout/log"
)

// Update carries the latest failout config delivered for one owning
// cluster. A nil config means the cluster's failout ended or its entry was
// removed from the backend.
type Update struct {
	// Cluster is the owning cluster the config belongs to.
	Cluster string
	// Config is the delivered config, nil on removal.
	Config failout.Config
}

// Source streams failout config updates from one backend.
type Source interface {
	// ID returns the source id.
	ID() string
	// Start begins watching the backend and returns the update stream.
	// The stream closes when the source stops or the context ends.
	Start(ctx context.Context) (<-chan Update, error)
	// Stop ends the watch and releases the backend resources.
	Stop() error
}

// Applier consumes config updates. *failout.Engine satisfies it.
type Applier interface {
	UpdateFailoutConfig(ctx context.Context, cluster string, cfg failout.Config) (*failout.Result, error)
}

var _ Applier = (*failout.Engine)(nil)

// Run starts the source and pumps its updates into the applier until the
// context ends or the stream closes, then stops the source. Application is
// best effort per update: a rejected or failed update is logged and the
// stream continues.
func Run(ctx context.Context, source Source, applier Applier, logger log.Logger) error {
	updates, err := source.Start(ctx)
	if err != nil {
		return err
	}

	logger.Infof("failout config source=%s started", source.ID())
	for {
		select {
		case <-ctx.Done():
			return multierr.Append(ctx.Err(), source.Stop())
		case update, ok := <-updates:
			if !ok {
				logger.Infof("failout config source=%s drained", source.ID())
				return source.Stop()
			}
			if _, err := applier.UpdateFailoutConfig(ctx, update.Cluster, update.Config); err != nil {
				logger.Errorf("failed to apply config update for cluster=%s from source=%s: %v",
					update.Cluster, source.ID(), err)
			}
		}
	}
}
