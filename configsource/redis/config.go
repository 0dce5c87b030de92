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

package redis

import (
	"context"
	"time"

	"github.com/velomesh/failout/internal/validation"
)

const (
	defaultHashKey = "failout:configs"
	defaultChannel = "failout:updates"
)

// Config represents the redis config source configuration.
type Config struct {
	// Context specifies the execution context for redis operations.
	// If nil, context.Background() is used.
	Context context.Context
	// Address is the redis server address in host:port form.
	Address string
	// Password sets the redis authentication password (optional).
	Password string
	// DB selects the redis logical database.
	DB int
	// HashKey names the hash whose fields are owning cluster ids and whose
	// values are their failout configs as JSON. Defaults to failout:configs.
	HashKey string
	// Channel names the pub/sub channel carrying live update envelopes.
	// Defaults to failout:updates.
	Channel string
	// DialTimeout sets the timeout for establishing redis connections.
	DialTimeout time.Duration
	// Timeout sets the timeout for the initial hash read.
	Timeout time.Duration
}

// Sanitize fills in the defaults.
func (x *Config) Sanitize() {
	if x.Context == nil {
		x.Context = context.Background()
	}
	if x.HashKey == "" {
		x.HashKey = defaultHashKey
	}
	if x.Channel == "" {
		x.Channel = defaultChannel
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
		AddValidator(validation.NewEmptyStringValidator("Address", x.Address)).
		AddValidator(validation.NewTCPAddressValidator(x.Address)).
		AddAssertion(x.DialTimeout > 0, "DialTimeout must be greater than 0").
		AddAssertion(x.Timeout > 0, "Timeout must be greater than 0").
		Validate()
}
