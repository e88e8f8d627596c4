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

// Allocation describes where Allocate put the images.
type Allocation struct {
	Placed     []domain.SlotRef // in input order
	Dropped    int              // images ignored by a targeted placement
	PagesAdded int
}

// Allocate places images into the collection and returns the updated copy.
//
// With a target, only the first image is considered and only if the target
// slot is empty; any further images are counted as dropped. Without a target,
// images fill empty slots page by page in slot order, and pages of size def
// are appended until every image has a slot.
//
// On error the input collection is returned unchanged.
func Allocate(c domain.Collection, images []domain.ImageItem, target *domain.SlotRef, def domain.Dims) (domain.Collection, Allocation, error) {
	if len(images) == 0 {
		return c, Allocation{}, nil
	}
	if target != nil {
		return allocateTargeted(c, images, *target)
	}
	if !def.Valid() {
		return c, Allocation{}, fmt.Errorf("default page size: %w", domain.ErrInvalidDimension)
	}

	out := c.Clone()
	var res Allocation
	pageIdx, slotIdx := 0, 0
	for _, img := range images {
		ref, ok := nextEmpty(out, pageIdx, slotIdx)
		if !ok {
			out.Pages = append(out.Pages, domain.NewPage(def))
			res.PagesAdded++
			ref = domain.SlotRef{Page: len(out.Pages) - 1, Slot: 0}
		}
		if !out.Pages[ref.Page].Slots[ref.Slot].IsEmpty() {
			// nextEmpty only returns empty slots; this guards the never-overwrite rule.
			return c, Allocation{}, fmt.Errorf("%s: %w", ref, domain.ErrSlotOccupied)
		}
		out.Pages[ref.Page].Slots[ref.Slot] = domain.Occupied(img)
		res.Placed = append(res.Placed, ref)
		pageIdx, slotIdx = ref.Page, ref.Slot+1
	}
	if err := out.Validate(); err != nil {
		return c, Allocation{}, err
	}
	return out, res, nil
}

func allocateTargeted(c domain.Collection, images []domain.ImageItem, t domain.SlotRef) (domain.Collection, Allocation, error) {
	if t.Page < 0 || t.Page >= len(c.Pages) {
		return c, Allocation{}, fmt.Errorf("%s: %w", t, domain.ErrPageOutOfRange)
	}
	if t.Slot < 0 || t.Slot >= len(c.Pages[t.Page].Slots) {
		return c, Allocation{}, fmt.Errorf("%s: %w", t, domain.ErrSlotOutOfRange)
	}
	dropped := len(images) - 1
	if !c.Pages[t.Page].Slots[t.Slot].IsEmpty() {
		return c, Allocation{Dropped: len(images)}, fmt.Errorf("%s: %w", t, domain.ErrSlotOccupied)
	}
	out := c.Clone()
	out.Pages[t.Page].Slots[t.Slot] = domain.Occupied(images[0])
	return out, Allocation{Placed: []domain.SlotRef{t}, Dropped: dropped}, nil
}

// nextEmpty scans from (page, slot) onwards in document order.
func nextEmpty(c domain.Collection, page, slot int) (domain.SlotRef, bool) {
	for pi := page; pi < len(c.Pages); pi++ {
		from := 0
		if pi == page {
			from = slot
		}
		if si := c.Pages[pi].FirstEmpty(from); si >= 0 {
			return domain.SlotRef{Page: pi, Slot: si}, true
		}
	}
	return domain.SlotRef{}, false
}
