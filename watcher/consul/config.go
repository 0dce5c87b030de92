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
	"time"

	"github.com/velomesh/failout/internal/validation"
)

// Config defines the configuration options for the Consul watch provider.
type Config struct {
	// Context specifies the root context bounding the lifetime of the
	// watches. If nil, context.Background() is used.
	Context context.Context
	// Address is the address of the Consul agent to connect to.
	Address string
	// Datacenter specifies the Consul datacenter to query.
	// If empty, the agent's default datacenter is used.
	Datacenter string
	// Token is the Consul ACL token used for authenticated requests.
	Token string
	// Timeout bounds the agent ping performed at initialization.
	// Default: 10s
	Timeout time.Duration
	// WaitTime is the maximum duration a blocking health query waits for
	// changes before returning unchanged. Default: 30s
	WaitTime time.Duration
	// OnlyPassing restricts health snapshots to services with a passing
	// health check.
	OnlyPassing bool
	// AllowStale indicates whether stale query results are acceptable.
	AllowStale bool
}

// Sanitize ensures the configuration is valid and sets defaults.
func (config *Config) Sanitize() {
	if config.Context == nil {
		config.Context = context.Background()
	}

	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	if config.WaitTime <= 0 {
		config.WaitTime = 30 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (config *Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("Address", config.Address)).
		Validate()
}
