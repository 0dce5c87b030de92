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

package kubernetes

import (
	"context"
	"time"

	"github.com/velomesh/failout/internal/validation"
)

const defaultName = "failout-configs"

// Config represents the kubernetes config source configuration.
type Config struct {
	// Context specifies the execution context for kubernetes operations.
	// If nil, context.Background() is used.
	Context context.Context
	// Namespace is the namespace holding the watched ConfigMap.
	Namespace string
	// Name is the ConfigMap name. Its data keys are owning cluster ids and
	// its values are their failout configs as JSON. Defaults to
	// failout-configs.
	Name string
	// Timeout sets the timeout for ConfigMap reads.
	Timeout time.Duration
}

// Sanitize fills in the defaults.
func (x *Config) Sanitize() {
	if x.Context == nil {
		x.Context = context.Background()
	}
	if x.Name == "" {
		x.Name = defaultName
	}
	if x.Timeout == 0 {
		x.Timeout = 5 * time.Second
	}
}

// Validate checks whether the source configuration is valid.
func (x Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("Namespace", x.Namespace)).
		AddValidator(validation.NewEmptyStringValidator("Name", x.Name)).
		AddAssertion(x.Timeout > 0, "Timeout must be greater than 0").
		Validate()
}
