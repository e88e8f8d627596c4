/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a page collection onto a drawing surface: a PDF
// document (PDFSurface) or raster page previews (PNGSurface).
//
// Coordinates are points (1/72 inch) with the origin at the top-left corner
// of the page, y growing downwards.
package export

import (
	"fmt"
	"strings"

	"gridify/internal/decode"
	"gridify/internal/layout"
)

// PageFormat is a physical page size in points.
type PageFormat struct {
	Name   string
	Width  float64
	Height float64
}

// Landscape reports whether the page is wider than tall.
func (f PageFormat) Landscape() bool { return f.Width > f.Height }

var pageFormats = map[string]PageFormat{
	"a3":     {Name: "A3", Width: 841.89, Height: 1190.55},
	"a4":     {Name: "A4", Width: 595.28, Height: 841.89},
	"a5":     {Name: "A5", Width: 419.53, Height: 595.28},
	"letter": {Name: "Letter", Width: 612, Height: 792},
	"legal":  {Name: "Legal", Width: 612, Height: 1008},
}

// A4 is the default page format, portrait.
var A4 = pageFormats["a4"]

// LookupPageFormat resolves a named format ("a4", "letter", ...) and an
// orientation ("portrait" or "landscape"; empty means portrait).
func LookupPageFormat(name, orientation string) (PageFormat, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = "a4"
	}
	f, ok := pageFormats[key]
	if !ok {
		return PageFormat{}, fmt.Errorf("unknown page format %q", name)
	}
	switch strings.ToLower(strings.TrimSpace(orientation)) {
	case "", "portrait", "p":
	case "landscape", "l":
		f.Width, f.Height = f.Height, f.Width
	default:
		return PageFormat{}, fmt.Errorf("unknown orientation %q", orientation)
	}
	return f, nil
}

// TextAlign positions text relative to the x anchor passed to DrawText.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
)

// TextOptions controls DrawText.
type TextOptions struct {
	Size  float64 // font size in points
	Align TextAlign
	Gray  int // 0 black .. 255 white
}

// Surface is the drawing capability the export driver renders onto.
//
// StartDocument creates the document and its first page; AddPage appends
// and switches to a new page. DrawText places the first line's top at y;
// lines are spaced at 1.2 times the font size.
type Surface interface {
	StartDocument(f PageFormat) error
	AddPage() error
	PageSize() (w, h float64)
	DrawImage(img decode.Decoded, r layout.Rect) error
	DrawText(lines []string, x, y float64, opt TextOptions) error
	MeasureWrappedLines(text string, maxWidth, size float64) []string
	DrawLine(l layout.Line, gray int, width float64) error
	Save(path string) error
}

// lineSpacing is the baseline distance as a multiple of the font size.
const lineSpacing = 1.2
