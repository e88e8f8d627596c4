/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package grid

import (
	"sync"

	"gridify/internal/domain"
)

// Holder owns the current Collection value for one editing session.
// Every change is read-then-replace: the transition function receives a
// snapshot and the holder swaps in its result only when it returns no error.
// It is safe for concurrent use.
type Holder struct {
	mu  sync.Mutex
	cur domain.Collection
	def domain.Dims
	rev uint64
}

// NewHolder starts a session with one empty page of size def.
func NewHolder(def domain.Dims) *Holder {
	if !def.Valid() {
		def = domain.DefaultDims()
	}
	return &Holder{cur: domain.NewCollection(def), def: def}
}

// Defaults returns the size used for new pages.
func (h *Holder) Defaults() domain.Dims { return h.def }

// Snapshot returns an independent copy of the current collection.
func (h *Holder) Snapshot() domain.Collection {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur.Clone()
}

// Revision counts successful transitions.
func (h *Holder) Revision() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rev
}

// Apply runs fn against the current collection and stores the result.
// On error the held collection is left untouched.
func (h *Holder) Apply(fn func(domain.Collection) (domain.Collection, error)) (domain.Collection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	next, err := fn(h.cur.Clone())
	if err != nil {
		return h.cur.Clone(), err
	}
	if err := next.Validate(); err != nil {
		return h.cur.Clone(), err
	}
	h.cur = next
	h.rev++
	return next.Clone(), nil
}
