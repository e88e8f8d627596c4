/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package decode

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Source is one file handed in for upload.
type Source struct {
	Name      string
	Data      []byte
	MediaType string
	Label     string
}

// Result pairs a Source with its decode outcome.
type Result struct {
	Source  Source
	Decoded Decoded
	Err     error
}

// OK reports whether the decode succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Batch decodes all sources concurrently and returns once every decode has
// settled. Results keep the input order. A failed decode never cancels the
// others. limit bounds the number of decodes in flight; <= 0 means no bound.
func Batch(ctx context.Context, dec Decoder, srcs []Source, limit int) []Result {
	results := make([]Result, len(srcs))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, s := range srcs {
		i, s := i, s
		g.Go(func() error {
			d, err := dec.Decode(ctx, s.Data, s.MediaType)
			results[i] = Result{Source: s, Decoded: d, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
