/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package grid

import (
	"fmt"

	"gridify/internal/domain"
)

// AddPage appends an empty page of size def and makes it current.
// It returns the updated collection and the index of the new page.
func AddPage(c domain.Collection, def domain.Dims) (domain.Collection, int, error) {
	if !def.Valid() {
		return c, -1, fmt.Errorf("add page: %w", domain.ErrInvalidDimension)
	}
	out := c.Clone()
	out.Pages = append(out.Pages, domain.NewPage(def))
	out.Current = len(out.Pages) - 1
	if err := out.Validate(); err != nil {
		return c, -1, err
	}
	return out, out.Current, nil
}

// DeletePage removes the page at index. The last remaining page is protected.
// When the removed page was at or before the current one, the current index
// moves back by one (not below 0); otherwise it is unchanged.
func DeletePage(c domain.Collection, index int) (domain.Collection, error) {
	if len(c.Pages) <= 1 {
		return c, domain.ErrLastPageProtected
	}
	if index < 0 || index >= len(c.Pages) {
		return c, fmt.Errorf("delete page %d: %w", index+1, domain.ErrPageOutOfRange)
	}
	out := c.Clone()
	out.Pages = append(out.Pages[:index], out.Pages[index+1:]...)
	if index <= out.Current {
		out.Current = max(out.Current-1, 0)
	}
	if err := out.Validate(); err != nil {
		return c, err
	}
	return out, nil
}

// SetCurrent moves to index, clamped to the valid page range.
func SetCurrent(c domain.Collection, index int) domain.Collection {
	out := c
	out.Current = clamp(index, 0, len(c.Pages)-1)
	return out
}

// Next moves one page forward; it stays on the last page.
func Next(c domain.Collection) domain.Collection { return SetCurrent(c, c.Current+1) }

// Previous moves one page back; it stays on the first page.
func Previous(c domain.Collection) domain.Collection { return SetCurrent(c, c.Current-1) }

// SetLabel changes the label of the item with the given id.
func SetLabel(c domain.Collection, itemID, label string) (domain.Collection, error) {
	ref, ok := c.Find(itemID)
	if !ok {
		return c, fmt.Errorf("set label %s: %w", itemID, domain.ErrItemNotFound)
	}
	out := c.Clone()
	it, _ := out.Pages[ref.Page].Slots[ref.Slot].Item()
	it.Label = label
	out.Pages[ref.Page].Slots[ref.Slot] = domain.Occupied(it)
	return out, nil
}

// RemoveItem clears the slot holding the item and returns where it was.
func RemoveItem(c domain.Collection, itemID string) (domain.Collection, domain.SlotRef, error) {
	ref, ok := c.Find(itemID)
	if !ok {
		return c, domain.SlotRef{}, fmt.Errorf("remove %s: %w", itemID, domain.ErrItemNotFound)
	}
	out := c.Clone()
	out.Pages[ref.Page].Slots[ref.Slot] = domain.EmptySlot()
	return out, ref, nil
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
