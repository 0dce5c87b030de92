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

import "errors"

var (
	// ErrInvalidConfig is returned when a delivered failout config is malformed,
	// for instance a failed-out config carrying a nil peer cluster list or a
	// blank peer cluster id. The update is rejected without mutating state.
	ErrInvalidConfig = errors.New("invalid failout config")

	// ErrClusterRequired is returned when a cluster name is blank.
	ErrClusterRequired = errors.New("cluster name is required")

	// ErrProviderRequired is returned when no watch provider is supplied.
	ErrProviderRequired = errors.New("watch provider is required")

	// ErrEngineClosed is returned when an update is submitted to an engine
	// that has been closed.
	ErrEngineClosed = errors.New("failout engine is closed")

	// ErrWatchStart is returned when the watch provider fails to establish a
	// watch on a peer cluster. The failed peer is not recorded as watched.
	ErrWatchStart = errors.New("failed to start peer cluster watch")

	// ErrWatchStop is returned when the watch provider fails to tear down a
	// watch. The registry entry is removed regardless, reflecting the
	// attempted state change.
	ErrWatchStop = errors.New("failed to stop peer cluster watch")
)
