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

package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain(t *testing.T) {
	t.Run("With all validators passing", func(t *testing.T) {
		err := New().
			AddValidator(NewEmptyStringValidator("field", "value")).
			AddAssertion(true, "never seen").
			Validate()
		assert.NoError(t, err)
	})

	t.Run("With all errors collected", func(t *testing.T) {
		err := New(AllErrors()).
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "this is false").
			Validate()
		require.Error(t, err)
		assert.EqualError(t, err, "the [field] is required; this is false")
	})

	t.Run("With fail fast", func(t *testing.T) {
		err := New(FailFast()).
			AddValidator(NewEmptyStringValidator("field", "")).
			AddAssertion(false, "never reached").
			Validate()
		require.Error(t, err)
		assert.EqualError(t, err, "the [field] is required")
	})
}

func TestEmptyStringValidator(t *testing.T) {
	assert.NoError(t, NewEmptyStringValidator("field", "value").Validate())
	assert.EqualError(t, NewEmptyStringValidator("field", "").Validate(), "the [field] is required")
	assert.EqualError(t, NewEmptyStringValidator("field", "   ").Validate(), "the [field] is required")
}

func TestBooleanValidator(t *testing.T) {
	assert.NoError(t, NewBooleanValidator(true, "unused").Validate())
	assert.EqualError(t, NewBooleanValidator(false, "condition failed").Validate(), "condition failed")
}

func TestTCPAddressValidator(t *testing.T) {
	t.Run("With valid addresses", func(t *testing.T) {
		assert.NoError(t, NewTCPAddressValidator("127.0.0.1:6379").Validate())
		assert.NoError(t, NewTCPAddressValidator("localhost:4222").Validate())
	})

	t.Run("With invalid addresses", func(t *testing.T) {
		assert.Error(t, NewTCPAddressValidator("127.0.0.1").Validate())
		assert.Error(t, NewTCPAddressValidator(":not-a-port").Validate())
		assert.Error(t, NewTCPAddressValidator(":8080").Validate())
		assert.Error(t, NewTCPAddressValidator("host:99999").Validate())
	})
}
