/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package job

import (
	"context"
	"fmt"

	"gridify/internal/decode"
	"gridify/internal/domain"
	"gridify/internal/session"
)

// Summary counts what Apply did.
type Summary struct {
	Pages      int
	Placed     int
	Skipped    int // images that failed to decode
	PagesAdded int // pages appended by the allocator for loose images
}

// Apply replays the job into s, which must be fresh (one empty page).
// Page images go to their page in order; loose images are uploaded as one
// batch and fill empty slots from the first page on, adding pages as needed.
// A missing file or an occupied target slot aborts the job.
func Apply(ctx context.Context, s *session.Session, f File) (Summary, error) {
	var sum Summary
	def := s.Defaults()
	for pi, p := range f.Pages {
		if pi > 0 {
			if _, err := s.AddPage(); err != nil {
				return sum, fmt.Errorf("page %d: %w", pi+1, err)
			}
		}
		if d := (domain.Dims{Rows: p.Rows, Cols: p.Cols}); d.Valid() && d != def {
			if _, err := s.Resize(pi, d.Rows, d.Cols); err != nil {
				return sum, fmt.Errorf("page %d: %w", pi+1, err)
			}
		}
		next := 0
		for ii, im := range p.Images {
			src, err := im.Source(f.dir, fmt.Sprintf("page %d image %d", pi+1, ii+1))
			if err != nil {
				return sum, fmt.Errorf("page %d image %d: %w", pi+1, ii+1, err)
			}
			slot := next
			if im.Slot > 0 {
				slot = im.Slot - 1
			}
			res, err := s.Upload(ctx, []decode.Source{src}, &domain.SlotRef{Page: pi, Slot: slot})
			if err != nil {
				return sum, fmt.Errorf("page %d image %d: %w", pi+1, ii+1, err)
			}
			sum.Placed += len(res.Placed)
			sum.Skipped += res.Skipped
			next = slot + 1
		}
	}
	s.GoTo(0)

	if len(f.Images) > 0 {
		srcs := make([]decode.Source, 0, len(f.Images))
		for i, im := range f.Images {
			src, err := im.Source(f.dir, fmt.Sprintf("image %d", i+1))
			if err != nil {
				return sum, fmt.Errorf("image %d: %w", i+1, err)
			}
			srcs = append(srcs, src)
		}
		res, err := s.Upload(ctx, srcs, nil)
		if err != nil {
			return sum, err
		}
		sum.Placed += len(res.Placed)
		sum.Skipped += res.Skipped
		sum.PagesAdded = res.PagesAdded
	}
	sum.Pages = len(s.Snapshot().Pages)
	return sum, nil
}
