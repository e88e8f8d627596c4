/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout computes where each grid cell, image and label goes on a page.
//
// The usable area (page minus margin on every side) is split into rows x cols
// equal cells. Each cell keeps a label band of fixed height at its bottom; the
// image area is the rest of the cell above the band. Images are scaled to the
// largest aspect-preserving size inside the image area minus padding, centered
// horizontally and, by default, aligned to the top of the area.
package layout

import (
	"fmt"
	"strings"

	"gridify/internal/domain"
)

// VAlign selects the vertical position of an image inside its image area.
type VAlign string

const (
	AlignTop    VAlign = "top"
	AlignCenter VAlign = "center"
)

// ParseVAlign maps a config string to a VAlign, defaulting to AlignTop.
func ParseVAlign(s string) VAlign {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "center", "middle":
		return AlignCenter
	default:
		return AlignTop
	}
}

// Params describes one page layout. Units are points.
type Params struct {
	PageWidth   float64
	PageHeight  float64
	Margin      float64
	Rows        int
	Cols        int
	LabelHeight float64
	Padding     float64
	VAlign      VAlign
}

// Cell is the geometry of one grid slot.
type Cell struct {
	Index     int
	Row       int
	Col       int
	Bounds    Rect // whole cell
	ImageArea Rect // cell minus label band
	LabelArea Rect // band at the bottom of the cell
}

// Grid is the computed layout for a page.
type Grid struct {
	Params     Params
	CellWidth  float64
	CellHeight float64
	Cells      []Cell
}

// Compute lays out a rows x cols grid. It returns ErrInvalidDimension for a
// grid smaller than 1x1 and ErrLayoutInfeasible when a cell leaves no room
// for an image.
func Compute(p Params) (Grid, error) {
	if p.Rows < 1 || p.Cols < 1 {
		return Grid{}, fmt.Errorf("layout %dx%d: %w", p.Rows, p.Cols, domain.ErrInvalidDimension)
	}
	usableW := p.PageWidth - 2*p.Margin
	usableH := p.PageHeight - 2*p.Margin
	cw := usableW / float64(p.Cols)
	ch := usableH / float64(p.Rows)
	imgH := ch - p.LabelHeight
	if cw <= 0 || imgH <= 0 {
		return Grid{}, fmt.Errorf("layout %dx%d on %.0fx%.0f: cell %.1fx%.1f: %w",
			p.Rows, p.Cols, p.PageWidth, p.PageHeight, cw, imgH, domain.ErrLayoutInfeasible)
	}
	if cw-2*p.Padding <= 0 || imgH-2*p.Padding <= 0 {
		return Grid{}, fmt.Errorf("layout %dx%d: padding %.1f leaves no image room: %w",
			p.Rows, p.Cols, p.Padding, domain.ErrLayoutInfeasible)
	}

	g := Grid{Params: p, CellWidth: cw, CellHeight: ch, Cells: make([]Cell, p.Rows*p.Cols)}
	for i := range g.Cells {
		row, col := i/p.Cols, i%p.Cols
		x := p.Margin + float64(col)*cw
		y := p.Margin + float64(row)*ch
		g.Cells[i] = Cell{
			Index:     i,
			Row:       row,
			Col:       col,
			Bounds:    R(x, y, cw, ch),
			ImageArea: R(x, y, cw, imgH),
			LabelArea: R(x, y+imgH, cw, p.LabelHeight),
		}
	}
	return g, nil
}

// Cell returns the geometry of slot i.
func (g Grid) Cell(i int) (Cell, bool) {
	if i < 0 || i >= len(g.Cells) {
		return Cell{}, false
	}
	return g.Cells[i], true
}

// FitImage places an image of the given natural size inside cell i.
func (g Grid) FitImage(i int, natW, natH float64) (Rect, bool) {
	c, ok := g.Cell(i)
	if !ok {
		return Rect{}, false
	}
	return FitToBox(natW, natH, c.ImageArea.Inset(g.Params.Padding, g.Params.Padding), g.Params.VAlign)
}

// LabelWidth is the wrap width for labels.
func (g Grid) LabelWidth() float64 { return g.CellWidth - 2*g.Params.Padding }

// LabelAnchor returns the horizontal center and the top of the label band of cell i.
func (g Grid) LabelAnchor(i int) (x, top float64) {
	c := g.Cells[i]
	return c.LabelArea.Center().X, c.LabelArea.Y
}

// Separators returns the inner grid lines between cells.
func (g Grid) Separators() []Line {
	p := g.Params
	left, top := p.Margin, p.Margin
	right, bottom := p.PageWidth-p.Margin, p.PageHeight-p.Margin
	var out []Line
	for r := 1; r < p.Rows; r++ {
		y := top + float64(r)*g.CellHeight
		out = append(out, Line{From: Pt{left, y}, To: Pt{right, y}})
	}
	for c := 1; c < p.Cols; c++ {
		x := left + float64(c)*g.CellWidth
		out = append(out, Line{From: Pt{x, top}, To: Pt{x, bottom}})
	}
	return out
}

// FitToBox scales natW x natH to the largest size inside box that keeps the
// aspect ratio: width first, then height when the width fit is too tall.
// The result is centered horizontally; valign decides the vertical position.
// It returns false for non-positive image or box sizes.
func FitToBox(natW, natH float64, box Rect, valign VAlign) (Rect, bool) {
	if natW <= 0 || natH <= 0 || box.Empty() {
		return Rect{}, false
	}
	aspect := natW / natH
	w := box.W
	h := w / aspect
	if h > box.H {
		h = box.H
		w = h * aspect
	}
	x := box.X + (box.W-w)/2
	y := box.Y
	if valign == AlignCenter {
		y = box.Y + (box.H-h)/2
	}
	return R(x, y, w, h), true
}
