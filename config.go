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
	"strings"

	goset "github.com/deckarep/golang-set/v2"
)

// Config carries the failout state delivered for an owning cluster. A config
// is immutable once delivered; a new version fully replaces the old one.
//
// Implementations must distinguish a nil peer cluster list from an empty
// one: a failed-out config with a nil list is malformed and rejected with
// ErrInvalidConfig, while an empty list is a valid instruction to tear every
// watch down.
type Config interface {
	// IsFailedOut reports whether the owning cluster is redirecting its
	// traffic to peer clusters.
	IsFailedOut() bool
	// PeerClusters returns the peer clusters receiving the redirected
	// traffic.
	PeerClusters() []string
}

// config is the immutable value implementation of Config.
type config struct {
	failedOut bool
	peers     []string
}

var _ Config = (*config)(nil)

// NewConfig builds an immutable failout config. The peer cluster list is
// copied and deduplicated, preserving first-occurrence order. Configs built
// here always carry a non-nil peer list and therefore never trip the
// malformed-config rejection.
func NewConfig(failedOut bool, peerClusters ...string) Config {
	seen := goset.NewThreadUnsafeSet[string]()
	peers := make([]string, 0, len(peerClusters))
	for _, peer := range peerClusters {
		if seen.Add(peer) {
			peers = append(peers, peer)
		}
	}
	return &config{
		failedOut: failedOut,
		peers:     peers,
	}
}

// IsFailedOut implements Config.
func (c *config) IsFailedOut() bool {
	return c.failedOut
}

// PeerClusters implements Config. The returned slice is a copy.
func (c *config) PeerClusters() []string {
	peers := make([]string, len(c.peers))
	copy(peers, c.peers)
	return peers
}

// ConfigEqual reports whether two configs describe the same failout state:
// same failed-out flag and same peer cluster set. Two nil configs are equal.
func ConfigEqual(a, b Config) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.IsFailedOut() != b.IsFailedOut() {
		return false
	}
	return toPeerSet(a.PeerClusters()).Equal(toPeerSet(b.PeerClusters()))
}

// desiredPeerSet computes the peer clusters that must be watched under the
// given config. A nil config or a config that is not failed out yields the
// empty set. A failed-out config with a nil peer list, or any blank peer
// cluster id, is rejected with ErrInvalidConfig.
func desiredPeerSet(cfg Config) (goset.Set[string], error) {
	if cfg == nil || !cfg.IsFailedOut() {
		return goset.NewSet[string](), nil
	}

	peers := cfg.PeerClusters()
	if peers == nil {
		return nil, ErrInvalidConfig
	}

	desired := goset.NewSet[string]()
	for _, peer := range peers {
		if strings.TrimSpace(peer) == "" {
			return nil, ErrInvalidConfig
		}
		desired.Add(peer)
	}
	return desired, nil
}
