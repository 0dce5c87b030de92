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
	"encoding/json"
	"fmt"

	"github.com/velomesh/failout"
)

// configDocument is the wire form of a failout config.
type configDocument struct {
	FailedOut    bool     `json:"failedOut"`
	PeerClusters []string `json:"peerClusters"`
}

// wireConfig is the Config implementation produced by decoding. Unlike
// failout.NewConfig it preserves a nil peer cluster list, so a malformed
// document is still rejected by the engine rather than silently repaired
// here.
type wireConfig struct {
	doc configDocument
}

var _ failout.Config = (*wireConfig)(nil)

func (c *wireConfig) IsFailedOut() bool {
	return c.doc.FailedOut
}

func (c *wireConfig) PeerClusters() []string {
	if c.doc.PeerClusters == nil {
		return nil
	}
	peers := make([]string, len(c.doc.PeerClusters))
	copy(peers, c.doc.PeerClusters)
	return peers
}

// NewRawConfig builds a failout config straight from wire fields. A nil
// peer cluster list stays nil, so a malformed document is rejected by the
// engine instead of being repaired by the source that parsed it.
func NewRawConfig(failedOut bool, peerClusters []string) failout.Config {
	doc := configDocument{FailedOut: failedOut}
	if peerClusters != nil {
		doc.PeerClusters = make([]string, len(peerClusters))
		copy(doc.PeerClusters, peerClusters)
	}
	return &wireConfig{doc: doc}
}

// DecodeConfig parses the JSON wire form of a failout config. The peer
// cluster list keeps its nil-vs-empty distinction.
func DecodeConfig(data []byte) (failout.Config, error) {
	var doc configDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode failout config: %w", err)
	}
	return &wireConfig{doc: doc}, nil
}

// EncodeConfig renders a failout config into its JSON wire form.
func EncodeConfig(cfg failout.Config) ([]byte, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cannot encode a nil failout config")
	}
	return json.Marshal(configDocument{
		FailedOut:    cfg.IsFailedOut(),
		PeerClusters: cfg.PeerClusters(),
	})
}
