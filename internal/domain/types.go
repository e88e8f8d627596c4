/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model: images placed into the slots of
// paginated grids. Values are treated as copy-on-write; every operation in
// internal/grid returns a new Collection instead of mutating its input.

import (
	"fmt"

	"github.com/google/uuid"
)

// Default grid size for newly created pages.
const (
	DefaultRows = 3
	DefaultCols = 4
)

// ImageItem is one uploaded image together with its label.
// Source holds the raw encoded bytes and must not be modified after creation.
type ImageItem struct {
	ID        string
	Source    []byte
	Label     string
	MediaType string // e.g. "image/png"
}

// NewImageItem returns an item with a fresh id.
func NewImageItem(src []byte, mediaType, label string) ImageItem {
	return ImageItem{ID: uuid.NewString(), Source: src, Label: label, MediaType: mediaType}
}

// Slot is a grid cell that is either empty or holds exactly one ImageItem.
// The zero value is an empty slot.
type Slot struct {
	item     ImageItem
	occupied bool
}

// EmptySlot returns an empty slot.
func EmptySlot() Slot { return Slot{} }

// Occupied returns a slot holding it.
func Occupied(it ImageItem) Slot { return Slot{item: it, occupied: true} }

// Item returns the held item and true, or the zero item and false for an empty slot.
func (s Slot) Item() (ImageItem, bool) {
	if !s.occupied {
		return ImageItem{}, false
	}
	return s.item, true
}

// IsEmpty reports whether the slot holds no item.
func (s Slot) IsEmpty() bool { return !s.occupied }

// Dims is a rows x cols pair.
type Dims struct {
	Rows int
	Cols int
}

// DefaultDims returns the grid size used for new pages when nothing else is configured.
func DefaultDims() Dims { return Dims{Rows: DefaultRows, Cols: DefaultCols} }

// Size returns the number of slots for the dimensions.
func (d Dims) Size() int { return d.Rows * d.Cols }

// Valid reports whether both dimensions are positive.
func (d Dims) Valid() bool { return d.Rows >= 1 && d.Cols >= 1 }

func (d Dims) String() string { return fmt.Sprintf("%dx%d", d.Rows, d.Cols) }

// Page is one grid layout, exported as one physical page.
// Invariant: len(Slots) == Rows*Cols.
type Page struct {
	ID    string
	Rows  int
	Cols  int
	Slots []Slot
}

// NewPage returns a page with a fresh id and all slots empty.
func NewPage(d Dims) Page {
	return Page{ID: uuid.NewString(), Rows: d.Rows, Cols: d.Cols, Slots: make([]Slot, d.Size())}
}

// Dims returns the page's grid size.
func (p Page) Dims() Dims { return Dims{Rows: p.Rows, Cols: p.Cols} }

// Items returns the held items in slot order.
func (p Page) Items() []ImageItem {
	var out []ImageItem
	for _, s := range p.Slots {
		if it, ok := s.Item(); ok {
			out = append(out, it)
		}
	}
	return out
}

// ItemCount returns the number of occupied slots.
func (p Page) ItemCount() int {
	n := 0
	for _, s := range p.Slots {
		if !s.IsEmpty() {
			n++
		}
	}
	return n
}

// FirstEmpty returns the index of the first empty slot at or after from, or -1.
func (p Page) FirstEmpty(from int) int {
	for i := max(from, 0); i < len(p.Slots); i++ {
		if p.Slots[i].IsEmpty() {
			return i
		}
	}
	return -1
}

// Clone copies the slot array; items are shared.
func (p Page) Clone() Page {
	out := p
	out.Slots = append([]Slot(nil), p.Slots...)
	return out
}

// Validate checks the slot-count invariant.
func (p Page) Validate() error {
	if !p.Dims().Valid() {
		return fmt.Errorf("page %s: %w: %s", p.ID, ErrInvalidDimension, p.Dims())
	}
	if len(p.Slots) != p.Rows*p.Cols {
		return fmt.Errorf("page %s: slot count %d does not match %s grid", p.ID, len(p.Slots), p.Dims())
	}
	return nil
}

// SlotRef addresses one slot in a collection.
type SlotRef struct {
	Page int
	Slot int
}

func (r SlotRef) String() string { return fmt.Sprintf("page %d slot %d", r.Page+1, r.Slot+1) }

// Collection is the ordered set of pages plus the page currently shown.
// Invariants: len(Pages) >= 1 and 0 <= Current < len(Pages).
type Collection struct {
	Pages   []Page
	Current int
}

// NewCollection returns a collection with one empty page of the given size.
func NewCollection(d Dims) Collection {
	return Collection{Pages: []Page{NewPage(d)}}
}

// Clone returns a deep copy of the page list and slot arrays.
func (c Collection) Clone() Collection {
	out := Collection{Pages: make([]Page, len(c.Pages)), Current: c.Current}
	for i, p := range c.Pages {
		out.Pages[i] = p.Clone()
	}
	return out
}

// CurrentPage returns the page at Current.
func (c Collection) CurrentPage() Page { return c.Pages[c.Current] }

// ItemCount returns the number of images across all pages.
func (c Collection) ItemCount() int {
	n := 0
	for _, p := range c.Pages {
		n += p.ItemCount()
	}
	return n
}

// Find returns the location of the item with the given id.
func (c Collection) Find(itemID string) (SlotRef, bool) {
	for pi, p := range c.Pages {
		for si, s := range p.Slots {
			if it, ok := s.Item(); ok && it.ID == itemID {
				return SlotRef{Page: pi, Slot: si}, true
			}
		}
	}
	return SlotRef{}, false
}

// Validate checks the collection and page invariants.
func (c Collection) Validate() error {
	if len(c.Pages) == 0 {
		return fmt.Errorf("collection has no pages")
	}
	if c.Current < 0 || c.Current >= len(c.Pages) {
		return fmt.Errorf("current page %d out of bounds [0,%d)", c.Current, len(c.Pages))
	}
	for _, p := range c.Pages {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	return nil
}
