/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Async forwards events to another Sink on a background goroutine so a slow
// presenter never blocks the caller. The queue is bounded; events are
// dropped when it is full.
type Async struct {
	next    Sink
	q       chan Event
	pending atomic.Int64
	dropped atomic.Int64
	once    sync.Once
	closed  chan struct{}
	done    chan struct{}
}

// NewAsync starts the forwarding loop. size <= 0 uses 64.
func NewAsync(next Sink, size int) *Async {
	if size <= 0 {
		size = 64
	}
	a := &Async{
		next:   OrDiscard(next),
		q:      make(chan Event, size),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go a.loop()
	return a
}

// Notify enqueues e without blocking.
func (a *Async) Notify(e Event) {
	select {
	case <-a.closed:
		a.dropped.Add(1)
		return
	default:
	}
	a.pending.Add(1)
	select {
	case a.q <- e:
	default:
		a.pending.Add(-1)
		a.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded.
func (a *Async) Dropped() int64 { return a.dropped.Load() }

// Flush waits until the queue has been delivered or ctx ends.
func (a *Async) Flush(ctx context.Context) {
	for a.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// Close delivers what is queued, waiting at most 500ms, and stops the loop.
func (a *Async) Close() {
	a.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		a.Flush(ctx)
		close(a.closed)
		<-a.done
	})
}

func (a *Async) loop() {
	defer close(a.done)
	for {
		select {
		case <-a.closed:
			return
		case e := <-a.q:
			a.next.Notify(e)
			a.pending.Add(-1)
		}
	}
}
