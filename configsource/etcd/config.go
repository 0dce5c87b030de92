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

package etcd

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/velomesh/failout/internal/validation"
)

const defaultNamespace = "/failout/configs"

// Config represents the etcd config source configuration.
type Config struct {
	// Context specifies the execution context for etcd operations.
	// If nil, context.Background() is used.
	Context context.Context
	// Endpoints is a list of etcd cluster endpoints.
	Endpoints []string
	// Namespace scopes the config keys. Each key under the namespace holds
	// one cluster's failout config as JSON and the key itself is the
	// owning cluster id. Defaults to /failout/configs.
	Namespace string
	// TLS configures client TLS (optional).
	TLS *tls.Config
	// DialTimeout sets the timeout for establishing etcd connections.
	DialTimeout time.Duration
	// Timeout sets the timeout for etcd list operations.
	Timeout time.Duration
	// Username sets the etcd authentication user (optional).
	Username string
	// Password sets the etcd authentication password (optional).
	Password string
}

// Sanitize fills in the defaults.
func (x *Config) Sanitize() {
	if x.Context == nil {
		x.Context = context.Background()
	}
	if strings.TrimSpace(x.Namespace) == "" {
		x.Namespace = defaultNamespace
	}
	if x.DialTimeout == 0 {
		x.DialTimeout = 5 * time.Second
	}
	if x.Timeout == 0 {
		x.Timeout = 5 * time.Second
	}
}

// Validate checks whether the source configuration is valid.
func (x Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddAssertion(len(x.Endpoints) > 0, "Endpoints must not be empty").
		AddAssertion(x.DialTimeout > 0, "DialTimeout must be greater than 0").
		AddAssertion(x.Timeout > 0, "Timeout must be greater than 0").
		Validate()
}
