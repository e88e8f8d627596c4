/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/basicfont"
)

// basicfont advances 7px per glyph
var basic = FaceMeasure(basicfont.Face7x13)

func TestWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width float64
		want  []string
	}{
		{"fits", "Cat", 100, []string{"Cat"}},
		{"word wrap", "Hello world from Go", 50, []string{"Hello", "world", "from Go"}},
		{"long word split", "abcdefghij", 30, []string{"abcd", "efgh", "ij"}},
		{"explicit newline", "a b\nc", 100, []string{"a b", "c"}},
		{"collapses spaces", "  a   b  ", 100, []string{"a b"}},
		{"no wrap when width unset", "Hello world from Go", 0, []string{"Hello world from Go"}},
		{"narrower than a glyph", "ab", 3, []string{"a", "b"}},
		{"blank", "   ", 100, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Wrap(tc.text, tc.width, basic)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("Wrap mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWrap_LinesRespectWidth(t *testing.T) {
	for _, l := range Wrap("the quick brown fox jumps over the lazy dog", 60, basic) {
		if w := basic(l); w > 60 {
			t.Fatalf("line %q is %v wide, want <= 60", l, w)
		}
	}
}

func TestMetrics_Basic(t *testing.T) {
	m := MetricsOf(BasicProvider{}.Face(10))
	if m.Ascent != 11 || m.Descent != 2 {
		t.Fatalf("metrics = %+v, want ascent 11 descent 2", m)
	}
	if m.LineHeight() != 13 {
		t.Fatalf("LineHeight = %v, want 13", m.LineHeight())
	}
}

func TestOTProvider_FallsBack(t *testing.T) {
	p, err := NewOTProvider("", nil)
	if err != nil {
		t.Fatalf("NewOTProvider error: %v", err)
	}
	if p.Face(12) != basicfont.Face7x13 {
		t.Fatalf("expected basicfont fallback")
	}
	bad := filepath.Join(t.TempDir(), "bad.ttf")
	if err := os.WriteFile(bad, []byte("not a font"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewOTProvider(bad, nil); err == nil {
		t.Fatalf("expected parse error for invalid font file")
	}
	if _, err := NewOTProvider(filepath.Join(t.TempDir(), "missing.ttf"), nil); err == nil {
		t.Fatalf("expected read error for missing font file")
	}
}
