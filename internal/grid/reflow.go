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

// Reflow resizes the page grid to rows x cols. Existing items are packed to the
// front of the new slot array in their current order; items that no longer fit
// are dropped and returned so the caller can report the loss.
func Reflow(p domain.Page, rows, cols int) (domain.Page, []domain.ImageItem, error) {
	d := domain.Dims{Rows: rows, Cols: cols}
	if !d.Valid() {
		return p, nil, fmt.Errorf("reflow to %s: %w", d, domain.ErrInvalidDimension)
	}
	items := p.Items()
	out := domain.Page{ID: p.ID, Rows: rows, Cols: cols, Slots: make([]domain.Slot, d.Size())}
	n := min(len(items), len(out.Slots))
	for i := 0; i < n; i++ {
		out.Slots[i] = domain.Occupied(items[i])
	}
	var dropped []domain.ImageItem
	if len(items) > n {
		dropped = append(dropped, items[n:]...)
	}
	return out, dropped, nil
}

// ReflowPage applies Reflow to the page at index and returns the updated collection.
func ReflowPage(c domain.Collection, index, rows, cols int) (domain.Collection, []domain.ImageItem, error) {
	if index < 0 || index >= len(c.Pages) {
		return c, nil, fmt.Errorf("page %d: %w", index+1, domain.ErrPageOutOfRange)
	}
	p, dropped, err := Reflow(c.Pages[index], rows, cols)
	if err != nil {
		return c, nil, err
	}
	out := c.Clone()
	out.Pages[index] = p
	if err := out.Validate(); err != nil {
		return c, nil, err
	}
	return out, dropped, nil
}
