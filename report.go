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

import "go.uber.org/multierr"

// Op identifies the watch operation attempted during reconciliation.
type Op int

const (
	// OpStart identifies a watch establishment.
	OpStart Op = iota
	// OpStop identifies a watch teardown.
	OpStop
)

// String returns the operation name.
func (op Op) String() string {
	switch op {
	case OpStart:
		return "start"
	case OpStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Failure records one peer cluster operation that failed during a
// reconciliation batch.
type Failure struct {
	// Cluster is the peer cluster the operation targeted.
	Cluster string
	// Op is the operation that failed.
	Op Op
	// Err is the underlying error, wrapping ErrWatchStart or ErrWatchStop.
	Err error
}

// Result reports the outcome of one reconciliation. Reconciliation is best
// effort per peer: a failure on one peer never blocks the remaining peers
// in the same batch, so a result can carry both successes and failures.
type Result struct {
	// Owner is the failed-out cluster the reconciliation ran for.
	Owner string
	// Started lists the peer clusters whose watch was established.
	Started []string
	// Stopped lists the peer clusters whose watch was torn down.
	Stopped []string
	// Failures lists the per-peer operations that failed.
	Failures []Failure
}

// NoOp reports whether the reconciliation produced zero watch operations.
func (r *Result) NoOp() bool {
	return len(r.Started) == 0 && len(r.Stopped) == 0 && len(r.Failures) == 0
}

// Err aggregates the per-peer failures into a single error, or nil when
// every operation succeeded.
func (r *Result) Err() error {
	var err error
	for _, failure := range r.Failures {
		err = multierr.Append(err, failure.Err)
	}
	return err
}
