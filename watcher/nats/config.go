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
	"time"

	"github.com/velomesh/failout/internal/validation"
)

// Config represents the nats watch provider configuration.
type Config struct {
	// Server defines the nats server address in the format nats://host:port.
	Server string
	// SubjectPrefix defines the subject tree carrying per-cluster activity.
	// A watch on cluster c subscribes to "<SubjectPrefix>.c".
	SubjectPrefix string
	// Timeout bounds the connection flush performed when a watch is
	// established.
	Timeout time.Duration
}

// Sanitize fills in the defaults.
func (x *Config) Sanitize() {
	if x.SubjectPrefix == "" {
		x.SubjectPrefix = "failout.clusters"
	}
	if x.Timeout <= 0 {
		x.Timeout = time.Second
	}
}

// Validate checks whether the provider configuration is valid.
func (x Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("Server", x.Server)).
		AddValidator(validation.NewEmptyStringValidator("SubjectPrefix", x.SubjectPrefix)).
		Validate()
}
