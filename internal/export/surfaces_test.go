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
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"gridify/internal/decode"
	"gridify/internal/domain"
	"gridify/internal/layout"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func TestPDFExport_WritesAllPagesAndSkipsBrokenImages(t *testing.T) {
	red := solid(40, 20, color.NRGBA{R: 255, A: 255})
	c := domain.Collection{Pages: []domain.Page{domain.NewPage(domain.Dims{Rows: 2, Cols: 2}), domain.NewPage(domain.DefaultDims())}}
	c.Pages[0].Slots[0] = domain.Occupied(domain.NewImageItem(pngBytes(t, red), "image/png", "Café ✓ with a label long enough to wrap onto a second line"))
	c.Pages[0].Slots[1] = domain.Occupied(domain.NewImageItem([]byte("not an image"), "image/png", "broken"))
	c.Pages[0].Slots[3] = domain.Occupied(domain.NewImageItem(jpegBytes(t, red), "image/jpeg", ""))

	out := filepath.Join(t.TempDir(), "nested", "album.pdf")
	opt := DefaultOptions()
	opt.Path = out
	opt.GridLines = true
	d := NewDriver(decode.Imaging{}, nil, opt)
	surf := NewPDFSurface(PDFOptions{Title: "Album", Author: "tester"})
	rep, err := d.Export(context.Background(), c, func() Surface { return surf })
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if rep.Pages != 2 || rep.Images != 3 || rep.Failed != 1 {
		t.Fatalf("report = %+v, want 2 pages 3 images 1 failed", rep)
	}
	if got := surf.PageCount(); got != 2 {
		t.Fatalf("PageCount = %d, want 2", got)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", b[:min(len(b), 16)])
	}
}

func TestPDFExport_Embeds16BitImages(t *testing.T) {
	deep := image.NewRGBA64(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			deep.SetRGBA64(x, y, color.RGBA64{R: 0xffff, G: 0x1000, B: 0x2000, A: 0xffff})
		}
	}
	gray := image.NewGray16(image.Rect(0, 0, 6, 3))
	c := domain.Collection{Pages: []domain.Page{domain.NewPage(domain.Dims{Rows: 1, Cols: 2})}}
	c.Pages[0].Slots[0] = domain.Occupied(domain.NewImageItem(pngBytes(t, deep), "image/png", ""))
	c.Pages[0].Slots[1] = domain.Occupied(domain.NewImageItem(pngBytes(t, gray), "image/png", ""))

	opt := DefaultOptions()
	opt.Path = filepath.Join(t.TempDir(), "deep.pdf")
	rep, err := NewDriver(decode.Imaging{}, nil, opt).Export(context.Background(), c, func() Surface { return NewPDFSurface(PDFOptions{}) })
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if rep.Images != 2 || rep.Failed != 0 {
		t.Fatalf("report = %+v, want 2 images and no failures", rep)
	}
}

func TestPDFSurface_RecoversAfterImageError(t *testing.T) {
	s := NewPDFSurface(PDFOptions{})
	if err := s.DrawImage(decode.Decoded{}, layout.R(0, 0, 10, 10)); err == nil {
		t.Fatalf("expected error before StartDocument")
	}
	if err := s.StartDocument(A4); err != nil {
		t.Fatalf("StartDocument error: %v", err)
	}
	bad := decode.Decoded{Width: 1, Height: 1, Format: decode.FormatPNG, Data: []byte("garbage")}
	if err := s.DrawImage(bad, layout.R(40, 40, 100, 100)); err == nil {
		t.Fatalf("expected error for garbage image data")
	}
	good := decode.Decoded{Width: 4, Height: 4, Format: decode.FormatPNG, Data: pngBytes(t, solid(4, 4, color.White))}
	if err := s.DrawImage(good, layout.R(40, 40, 100, 100)); err != nil {
		t.Fatalf("DrawImage after failure: %v", err)
	}
	if err := s.DrawText([]string{"ok"}, 100, 200, TextOptions{Size: 12, Align: AlignCenter}); err != nil {
		t.Fatalf("DrawText: %v", err)
	}
	if err := s.Save(filepath.Join(t.TempDir(), "x.pdf")); err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestPDFSurface_MissingFontFile(t *testing.T) {
	s := NewPDFSurface(PDFOptions{FontFile: filepath.Join(t.TempDir(), "missing.ttf")})
	if err := s.StartDocument(A4); err == nil {
		t.Fatalf("expected error for a missing font file")
	}
}

func TestToWin1252(t *testing.T) {
	if got, want := toWin1252("Café ✓ €"), "Caf\xe9 ? \x80"; got != want {
		t.Fatalf("toWin1252 = %q, want %q", got, want)
	}
}

func TestPNGExport_WritesOneFilePerPage(t *testing.T) {
	red := solid(10, 10, color.NRGBA{R: 255, A: 255})
	c := domain.Collection{Pages: []domain.Page{domain.NewPage(domain.Dims{Rows: 1, Cols: 1}), domain.NewPage(domain.Dims{Rows: 1, Cols: 1})}}
	c.Pages[0].Slots[0] = domain.Occupied(domain.NewImageItem(pngBytes(t, red), "image/png", ""))

	opt := Options{
		Format:   PageFormat{Name: "square", Width: 144, Height: 144},
		FontSize: 10,
		VAlign:   layout.AlignTop,
		Path:     filepath.Join(t.TempDir(), "preview.png"),
	}
	surf := NewPNGSurface(PNGOptions{})
	if _, err := NewDriver(decode.Imaging{}, nil, opt).Export(context.Background(), c, func() Surface { return surf }); err != nil {
		t.Fatalf("Export error: %v", err)
	}
	files := surf.Files()
	if len(files) != 2 || filepath.Base(files[1]) != "preview-page-2.png" {
		t.Fatalf("files = %v", files)
	}
	img, err := imaging.Open(files[0])
	if err != nil {
		t.Fatalf("open page 1: %v", err)
	}
	// 144pt at 96 DPI
	if b := img.Bounds(); b.Dx() != 192 || b.Dy() != 192 {
		t.Fatalf("page size = %v, want 192x192", b)
	}
	r, g, bl, _ := img.At(96, 96).RGBA()
	if r>>8 < 200 || g>>8 > 50 || bl>>8 > 50 {
		t.Fatalf("center pixel = %d,%d,%d, want red", r>>8, g>>8, bl>>8)
	}
}

func TestPNGSurface_TextAndLines(t *testing.T) {
	s := NewPNGSurface(PNGOptions{DPI: 72})
	if err := s.StartDocument(PageFormat{Name: "tiny", Width: 100, Height: 40}); err != nil {
		t.Fatalf("StartDocument: %v", err)
	}
	lines := s.MeasureWrappedLines("one two three", 40, 10)
	if len(lines) < 2 {
		t.Fatalf("MeasureWrappedLines = %q, want wrapping at 40pt", lines)
	}
	if err := s.DrawText(lines, 50, 2, TextOptions{Size: 10, Align: AlignCenter}); err != nil {
		t.Fatalf("DrawText: %v", err)
	}
	if err := s.DrawLine(layout.Line{From: layout.Pt{X: 0, Y: 39}, To: layout.Pt{X: 99, Y: 39}}, 0, 1); err != nil {
		t.Fatalf("DrawLine: %v", err)
	}
	page := s.Pages()[0]
	if c := page.NRGBAAt(50, 39); c.R != 0 {
		t.Fatalf("line pixel = %v, want black", c)
	}
	dark := 0
	for y := 0; y < 30; y++ {
		for x := 0; x < 100; x++ {
			if page.NRGBAAt(x, y).R < 128 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Fatalf("no text pixels drawn")
	}
}

func TestPNGSurface_LineWidthAndDiagonal(t *testing.T) {
	s := NewPNGSurface(PNGOptions{DPI: 72})
	if err := s.StartDocument(PageFormat{Name: "tiny", Width: 40, Height: 40}); err != nil {
		t.Fatalf("StartDocument: %v", err)
	}
	if err := s.DrawLine(layout.Line{From: layout.Pt{X: 10, Y: 0}, To: layout.Pt{X: 10, Y: 39}}, 0, 3); err != nil {
		t.Fatalf("DrawLine: %v", err)
	}
	if err := s.DrawLine(layout.Line{From: layout.Pt{X: 20, Y: 20}, To: layout.Pt{X: 39, Y: 39}}, 0, 1); err != nil {
		t.Fatalf("DrawLine: %v", err)
	}
	page := s.Pages()[0]
	for x, want := range map[int]bool{8: false, 9: true, 10: true, 11: true, 12: false} {
		if got := page.NRGBAAt(x, 5).R == 0; got != want {
			t.Fatalf("pixel (%d,5) dark = %v, want %v", x, got, want)
		}
	}
	for _, p := range []int{20, 30, 39} {
		if c := page.NRGBAAt(p, p); c.R >= 128 {
			t.Fatalf("diagonal pixel (%d,%d) = %v, want dark", p, p, c)
		}
	}
	if c := page.NRGBAAt(30, 20); c.R != 255 {
		t.Fatalf("pixel off the diagonal = %v, want white", c)
	}
}
