/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gridify/internal/domain"
)

const (
	a4W = 595.28
	a4H = 841.89
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestCompute_TwoByTwoOrigins(t *testing.T) {
	m := 40.0
	g, err := Compute(Params{PageWidth: a4W, PageHeight: a4H, Margin: m, Rows: 2, Cols: 2, LabelHeight: 20})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	cw := (a4W - 2*m) / 2
	ch := (a4H - 2*m) / 2
	if math.Abs(g.CellWidth-cw) > 1e-9 || math.Abs(g.CellHeight-ch) > 1e-9 {
		t.Fatalf("cell = %vx%v, want %vx%v", g.CellWidth, g.CellHeight, cw, ch)
	}
	want := []Pt{{m, m}, {m + cw, m}, {m, m + ch}, {m + cw, m + ch}}
	var got []Pt
	for _, c := range g.Cells {
		got = append(got, c.Bounds.Min())
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Fatalf("origins mismatch (-want +got):\n%s", diff)
	}
}

func TestCompute_RowMajorIndexing(t *testing.T) {
	g, err := Compute(Params{PageWidth: 600, PageHeight: 800, Margin: 0, Rows: 3, Cols: 4, LabelHeight: 10})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	c, ok := g.Cell(6)
	if !ok || c.Row != 1 || c.Col != 2 {
		t.Fatalf("Cell(6) = %+v, want row 1 col 2", c)
	}
	if _, ok := g.Cell(12); ok {
		t.Fatalf("Cell(12) should be out of range")
	}
}

func TestCompute_LabelBandAtBottom(t *testing.T) {
	g, err := Compute(Params{PageWidth: 400, PageHeight: 400, Margin: 0, Rows: 1, Cols: 1, LabelHeight: 20})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	c := g.Cells[0]
	if c.ImageArea.H != 380 || c.LabelArea.Y != 380 || c.LabelArea.H != 20 {
		t.Fatalf("image=%+v label=%+v", c.ImageArea, c.LabelArea)
	}
	x, top := g.LabelAnchor(0)
	if x != 200 || top != 380 {
		t.Fatalf("LabelAnchor = (%v,%v), want (200,380)", x, top)
	}
}

func TestCompute_Infeasible(t *testing.T) {
	tests := []struct {
		name string
		p    Params
	}{
		{"margin eats width", Params{PageWidth: 100, PageHeight: 800, Margin: 50, Rows: 1, Cols: 1}},
		{"label eats height", Params{PageWidth: 600, PageHeight: 200, Margin: 0, Rows: 10, Cols: 1, LabelHeight: 20}},
		{"padding eats box", Params{PageWidth: 60, PageHeight: 600, Margin: 0, Rows: 1, Cols: 2, Padding: 15}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Compute(tc.p); !errors.Is(err, domain.ErrLayoutInfeasible) {
				t.Fatalf("err = %v, want ErrLayoutInfeasible", err)
			}
		})
	}
}

func TestCompute_InvalidDimension(t *testing.T) {
	if _, err := Compute(Params{PageWidth: 100, PageHeight: 100, Rows: 0, Cols: 1}); !errors.Is(err, domain.ErrInvalidDimension) {
		t.Fatalf("err = %v, want ErrInvalidDimension", err)
	}
}

func TestFitToBox(t *testing.T) {
	box := R(10, 20, 200, 100)
	tests := []struct {
		name   string
		w, h   float64
		valign VAlign
		want   Rect
	}{
		{"wide image fits width", 400, 100, AlignTop, R(10, 20, 200, 50)},
		{"tall image rescaled by height", 100, 400, AlignTop, R(97.5, 20, 25, 100)},
		{"small image scales up to box", 20, 10, AlignTop, R(10, 20, 200, 100)},
		{"center alignment", 400, 100, AlignCenter, R(10, 45, 200, 50)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := FitToBox(tc.w, tc.h, box, tc.valign)
			if !ok {
				t.Fatalf("FitToBox returned !ok")
			}
			if diff := cmp.Diff(tc.want, got, approx); diff != "" {
				t.Fatalf("FitToBox mismatch (-want +got):\n%s", diff)
			}
			if !box.ContainsRect(got) {
				t.Fatalf("result %+v escapes box %+v", got, box)
			}
			if math.Abs(got.W/got.H-tc.w/tc.h) > 1e-9 {
				t.Fatalf("aspect ratio changed")
			}
		})
	}
	if _, ok := FitToBox(0, 10, box, AlignTop); ok {
		t.Fatalf("zero-width image should not fit")
	}
}

func TestGridFitImage_UsesPadding(t *testing.T) {
	g, err := Compute(Params{PageWidth: 220, PageHeight: 240, Margin: 10, Rows: 1, Cols: 1, LabelHeight: 20, Padding: 5})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	r, ok := g.FitImage(0, 100, 100)
	if !ok {
		t.Fatalf("FitImage !ok")
	}
	// image area 200x200 at (10,10); padded box 190x190 at (15,15)
	if diff := cmp.Diff(R(15, 15, 190, 190), r, approx); diff != "" {
		t.Fatalf("FitImage mismatch (-want +got):\n%s", diff)
	}
	if g.LabelWidth() != 190 {
		t.Fatalf("LabelWidth = %v, want 190", g.LabelWidth())
	}
}

func TestSeparators(t *testing.T) {
	g, err := Compute(Params{PageWidth: 300, PageHeight: 300, Margin: 0, Rows: 3, Cols: 2})
	if err != nil {
		t.Fatalf("Compute error: %v", err)
	}
	lines := g.Separators()
	if len(lines) != 3 {
		t.Fatalf("len(Separators) = %d, want 3", len(lines))
	}
	if lines[0].From.Y != 100 || lines[2].From.X != 150 {
		t.Fatalf("unexpected separators: %+v", lines)
	}
}

func TestParseVAlign(t *testing.T) {
	if ParseVAlign("Center") != AlignCenter || ParseVAlign("") != AlignTop || ParseVAlign("bogus") != AlignTop {
		t.Fatalf("ParseVAlign mapping wrong")
	}
}
