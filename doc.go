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

// Package failout reconciles peer cluster watches for failed-out clusters.
//
// # Overview
//
// When a cluster fails out, its traffic is redirected to designated peer
// clusters, and those peers must be monitored for as long as the failout
// lasts. This package owns exactly that bookkeeping: given failout
// configuration updates, it computes which peer cluster watches should
// exist and drives the watch provider to establish and tear them down,
// idempotently and safely under concurrent updates. The monitoring I/O
// itself belongs to the watcher providers; delivery of configuration
// updates belongs to the configsource collaborators.
//
// # Ownership models
//
// Two reconcilers are provided. Manager serves a single failed-out cluster
// with a private watch registry; it is the simplest shape when peers are
// never shared. Engine (backed by WatchManager) serves every failed-out
// cluster centrally and reference counts peers across owners, so a peer
// named by several failed-out clusters carries one watch that survives
// until the last owner stops requiring it.
//
// All types in this package are safe for concurrent use.
package failout
