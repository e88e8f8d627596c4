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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"gridify/internal/decode"
	"gridify/internal/layout"
	"gridify/internal/textlayout"
	"gridify/internal/version"
)

// PDFOptions controls the PDF surface.
//
// Without FontFile, text uses the built-in Helvetica and is converted to
// Windows-1252; characters outside it print as '?'. With FontFile, the TTF is
// embedded and text stays UTF-8.
type PDFOptions struct {
	Title    string
	Author   string
	FontFile string
}

// PDFSurface draws onto a gofpdf document, one PDF page per logical page.
type PDFSurface struct {
	opt    PDFOptions
	pdf    *gofpdf.Fpdf
	format PageFormat
	family string
	utf8   bool
	images int
}

// NewPDFSurface returns a surface; the document is created by StartDocument.
func NewPDFSurface(opt PDFOptions) *PDFSurface {
	return &PDFSurface{opt: opt}
}

func (s *PDFSurface) StartDocument(f PageFormat) error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid page size %vx%v", f.Width, f.Height)
	}
	s.format = f
	// points give a 1:1 mapping from layout to PDF
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: f.Width, Ht: f.Height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	if s.opt.Title != "" {
		pdf.SetTitle(s.opt.Title, true)
	}
	if s.opt.Author != "" {
		pdf.SetAuthor(s.opt.Author, true)
	}
	pdf.SetCreator("gridify "+version.String(), true)

	s.family, s.utf8 = "Helvetica", false
	if s.opt.FontFile != "" {
		pdf.AddUTF8Font("label", "", s.opt.FontFile)
		if pdf.Err() {
			return fmt.Errorf("load font %s: %w", s.opt.FontFile, pdf.Error())
		}
		s.family, s.utf8 = "label", true
	}
	pdf.SetFont(s.family, "", 10)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: f.Width, Ht: f.Height})
	if pdf.Err() {
		return fmt.Errorf("start pdf: %w", pdf.Error())
	}
	s.pdf = pdf
	return nil
}

func (s *PDFSurface) AddPage() error {
	if s.pdf == nil {
		return errNotStarted
	}
	s.pdf.AddPageFormat("", gofpdf.SizeType{Wd: s.format.Width, Ht: s.format.Height})
	return s.takeError("add page")
}

func (s *PDFSurface) PageSize() (float64, float64) { return s.format.Width, s.format.Height }

// PageCount is the number of pages written so far.
func (s *PDFSurface) PageCount() int {
	if s.pdf == nil {
		return 0
	}
	return s.pdf.PageCount()
}

func (s *PDFSurface) DrawImage(img decode.Decoded, r layout.Rect) error {
	if s.pdf == nil {
		return errNotStarted
	}
	s.images++
	name := fmt.Sprintf("img%d", s.images)
	opt := gofpdf.ImageOptions{ImageType: img.Format}
	s.pdf.RegisterImageOptionsReader(name, opt, bytes.NewReader(img.Data))
	if err := s.takeError("embed image"); err != nil {
		return err
	}
	s.pdf.ImageOptions(name, r.X, r.Y, r.W, r.H, false, opt, 0, "")
	return s.takeError("place image")
}

func (s *PDFSurface) DrawText(lines []string, x, y float64, opt TextOptions) error {
	if s.pdf == nil {
		return errNotStarted
	}
	size := opt.Size
	if size <= 0 {
		size = 10
	}
	s.pdf.SetFont(s.family, "", size)
	s.pdf.SetTextColor(opt.Gray, opt.Gray, opt.Gray)
	for i, line := range lines {
		txt := s.encode(line)
		lx := x
		if opt.Align == AlignCenter {
			lx = x - s.pdf.GetStringWidth(txt)/2
		}
		// Text positions the baseline
		s.pdf.Text(lx, y+size+float64(i)*size*lineSpacing, txt)
	}
	return s.takeError("draw text")
}

func (s *PDFSurface) MeasureWrappedLines(text string, maxWidth, size float64) []string {
	if s.pdf == nil {
		return textlayout.Wrap(text, 0, nil)
	}
	if size <= 0 {
		size = 10
	}
	s.pdf.SetFont(s.family, "", size)
	return textlayout.Wrap(norm.NFC.String(text), maxWidth, func(line string) float64 {
		return s.pdf.GetStringWidth(s.encode(line))
	})
}

func (s *PDFSurface) DrawLine(l layout.Line, gray int, width float64) error {
	if s.pdf == nil {
		return errNotStarted
	}
	s.pdf.SetDrawColor(gray, gray, gray)
	s.pdf.SetLineWidth(width)
	s.pdf.Line(l.From.X, l.From.Y, l.To.X, l.To.Y)
	return s.takeError("draw line")
}

// Save writes the document to path, creating parent directories. The
// surface cannot be used afterwards.
func (s *PDFSurface) Save(path string) error {
	if s.pdf == nil {
		return errNotStarted
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure out dir: %w", err)
		}
	}
	if err := s.pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// encode prepares text for the current font.
func (s *PDFSurface) encode(txt string) string {
	txt = norm.NFC.String(txt)
	if s.utf8 {
		return txt
	}
	return toWin1252(txt)
}

func toWin1252(txt string) string {
	out := make([]byte, 0, len(txt))
	for _, r := range txt {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return string(out)
}

// takeError moves a pending gofpdf error into a return value and clears it,
// so later pages can still be drawn.
func (s *PDFSurface) takeError(op string) error {
	if !s.pdf.Err() {
		return nil
	}
	err := s.pdf.Error()
	s.pdf.ClearError()
	return fmt.Errorf("%s: %w", op, err)
}

var errNotStarted = errors.New("surface: StartDocument not called")
