/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"gridify/internal/decode"
	"gridify/internal/layout"
	"gridify/internal/textlayout"
)

// PNGOptions controls raster previews.
// - DPI: output resolution; 0 means 96
// - Fonts: face provider for labels; nil means the built-in 7x13 bitmap font
type PNGOptions struct {
	DPI   float64
	Fonts textlayout.Provider
}

// PNGSurface renders each page into an in-memory image and writes one
// raster file per page on Save.
type PNGSurface struct {
	opt    PNGOptions
	scale  float64
	format PageFormat
	pages  []*image.NRGBA
	files  []string
}

func NewPNGSurface(opt PNGOptions) *PNGSurface {
	if opt.DPI <= 0 {
		opt.DPI = 96
	}
	if opt.Fonts == nil {
		opt.Fonts = textlayout.BasicProvider{}
	}
	return &PNGSurface{opt: opt, scale: opt.DPI / 72.0}
}

func (s *PNGSurface) StartDocument(f PageFormat) error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid page size %vx%v", f.Width, f.Height)
	}
	s.format = f
	s.pages = nil
	s.files = nil
	return s.AddPage()
}

func (s *PNGSurface) AddPage() error {
	if s.format.Width <= 0 {
		return errNotStarted
	}
	w := s.px(s.format.Width)
	h := s.px(s.format.Height)
	s.pages = append(s.pages, imaging.New(w, h, color.White))
	return nil
}

func (s *PNGSurface) PageSize() (float64, float64) { return s.format.Width, s.format.Height }

// Pages returns the rendered pages.
func (s *PNGSurface) Pages() []*image.NRGBA { return s.pages }

// Files lists the files written by Save.
func (s *PNGSurface) Files() []string { return s.files }

func (s *PNGSurface) DrawImage(img decode.Decoded, r layout.Rect) error {
	page, err := s.current()
	if err != nil {
		return err
	}
	src, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return fmt.Errorf("decode for raster: %w", err)
	}
	x, y := s.px(r.X), s.px(r.Y)
	w, h := max(1, s.px(r.W)), max(1, s.px(r.H))
	fitted := imaging.Resize(src, w, h, imaging.Lanczos)
	draw.Draw(page, image.Rect(x, y, x+w, y+h), fitted, image.Point{}, draw.Over)
	return nil
}

func (s *PNGSurface) DrawText(lines []string, x, y float64, opt TextOptions) error {
	page, err := s.current()
	if err != nil {
		return err
	}
	size := opt.Size
	if size <= 0 {
		size = 10
	}
	face := s.opt.Fonts.Face(size * s.scale)
	m := textlayout.MetricsOf(face)
	measure := textlayout.FaceMeasure(face)
	step := math.Max(m.LineHeight(), size*lineSpacing*s.scale)
	d := &font.Drawer{Dst: page, Src: image.NewUniform(color.Gray{Y: uint8(opt.Gray)}), Face: face}
	for i, line := range lines {
		px := x * s.scale
		if opt.Align == AlignCenter {
			px -= measure(line) / 2
		}
		baseline := y*s.scale + m.Ascent + float64(i)*step
		d.Dot = fixed.P(int(math.Round(px)), int(math.Round(baseline)))
		d.DrawString(line)
	}
	return nil
}

func (s *PNGSurface) MeasureWrappedLines(text string, maxWidth, size float64) []string {
	if size <= 0 {
		size = 10
	}
	measure := textlayout.FaceMeasure(s.opt.Fonts.Face(size * s.scale))
	return textlayout.Wrap(text, maxWidth, func(line string) float64 {
		return measure(line) / s.scale
	})
}

func (s *PNGSurface) DrawLine(l layout.Line, gray int, width float64) error {
	page, err := s.current()
	if err != nil {
		return err
	}
	strokeLine(page, s.center(l.From.X), s.center(l.From.Y), s.center(l.To.X), s.center(l.To.Y), width*s.scale,
		color.NRGBA{R: uint8(gray), G: uint8(gray), B: uint8(gray), A: 255})
	return nil
}

// Save writes page N to "<stem>-page-N<ext>" next to path; ext defaults to
// .png and selects the encoder.
func (s *PNGSurface) Save(path string) error {
	if len(s.pages) == 0 {
		return errNotStarted
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	if ext == "" {
		ext = ".png"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	s.files = s.files[:0]
	for i, page := range s.pages {
		name := fmt.Sprintf("%s-page-%d%s", stem, i+1, ext)
		if err := imaging.Save(page, name); err != nil {
			return fmt.Errorf("write %s: %w", filepath.Base(name), err)
		}
		s.files = append(s.files, name)
	}
	return nil
}

func (s *PNGSurface) current() (*image.NRGBA, error) {
	if len(s.pages) == 0 {
		return nil, errNotStarted
	}
	return s.pages[len(s.pages)-1], nil
}

// px converts points to device pixels.
func (s *PNGSurface) px(v float64) int { return int(math.Round(v * s.scale)) }

// center is the middle of the device pixel that v falls on.
func (s *PNGSurface) center(v float64) float64 { return float64(s.px(v)) + 0.5 }

// strokeLine fills the line as a quad of the given pixel width, at least one
// pixel wide, extended by half the width past both endpoints.
func strokeLine(img *image.NRGBA, x0, y0, x1, y1, width float64, col color.NRGBA) {
	hw := max(width, 1) / 2
	ux, uy := 1.0, 0.0
	if n := math.Hypot(x1-x0, y1-y0); n > 0 {
		ux, uy = (x1-x0)/n, (y1-y0)/n
	}
	ax, ay := x0-ux*hw, y0-uy*hw
	bx, by := x1+ux*hw, y1+uy*hw
	nx, ny := -uy*hw, ux*hw

	b := img.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.MoveTo(float32(ax+nx), float32(ay+ny))
	r.LineTo(float32(bx+nx), float32(by+ny))
	r.LineTo(float32(bx-nx), float32(by-ny))
	r.LineTo(float32(ax-nx), float32(ay-ny))
	r.ClosePath()
	r.Draw(img, b, image.NewUniform(col), image.Point{})
}
