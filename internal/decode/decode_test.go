/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package decode

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"gridify/internal/domain"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestImagingDecode_PNGPassThrough(t *testing.T) {
	data := encodePNG(t, testImage(12, 7))
	d, err := Imaging{}.Decode(context.Background(), data, "image/png")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if d.Width != 12 || d.Height != 7 || d.Format != FormatPNG {
		t.Fatalf("Decoded = %dx%d %s, want 12x7 PNG", d.Width, d.Height, d.Format)
	}
	if !bytes.Equal(d.Data, data) {
		t.Fatalf("expected PNG bytes to pass through unchanged")
	}
}

func TestImagingDecode_JPEG(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(20, 10), nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	d, err := Imaging{}.Decode(context.Background(), buf.Bytes(), "image/jpeg")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if d.Format != FormatJPEG || d.Width != 20 || d.Height != 10 {
		t.Fatalf("Decoded = %+v", d)
	}
}

func TestImagingDecode_GIFIsReencoded(t *testing.T) {
	var buf bytes.Buffer
	if err := gif.Encode(&buf, testImage(8, 9), nil); err != nil {
		t.Fatalf("gif encode: %v", err)
	}
	d, err := Imaging{}.Decode(context.Background(), buf.Bytes(), "image/gif")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if d.Format != FormatPNG || d.Width != 8 || d.Height != 9 {
		t.Fatalf("Decoded = %dx%d %s", d.Width, d.Height, d.Format)
	}
	if _, err := png.Decode(bytes.NewReader(d.Data)); err != nil {
		t.Fatalf("re-encoded data is not PNG: %v", err)
	}
}

func TestImagingDecode_16BitPNGIsReencoded(t *testing.T) {
	opaque := image.NewRGBA64(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			opaque.SetRGBA64(x, y, color.RGBA64{R: 0xffff, G: uint16(x) << 12, B: 0x8000, A: 0xffff})
		}
	}
	gray := image.NewGray16(image.Rect(0, 0, 5, 3))
	gray.SetGray16(1, 1, color.Gray16{Y: 0x1234})

	tests := []struct {
		name string
		img  image.Image
		w, h int
	}{
		{"transparent rgba64", image.NewRGBA64(image.Rect(0, 0, 4, 4)), 4, 4},
		{"opaque rgba64", opaque, 4, 4},
		{"gray16", gray, 5, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := encodePNG(t, tc.img)
			if pngEmbeddable(data) {
				t.Fatalf("16-bit PNG should not be embeddable as-is")
			}
			d, err := Imaging{}.Decode(context.Background(), data, "")
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if d.Format != FormatPNG || d.Width != tc.w || d.Height != tc.h {
				t.Fatalf("Decoded = %dx%d %s, want %dx%d PNG", d.Width, d.Height, d.Format, tc.w, tc.h)
			}
			if !pngEmbeddable(d.Data) {
				t.Fatalf("re-encoded PNG has depth %d, want 8", d.Data[24])
			}
		})
	}
}

// withOrientation inserts an EXIF APP1 segment carrying only the orientation
// tag right after the JPEG SOI marker.
func withOrientation(jpg []byte, o uint16) []byte {
	tiff := []byte{
		'M', 'M', 0, 0x2a, 0, 0, 0, 8, // big endian, IFD0 at 8
		0, 1, // one entry
		0x01, 0x12, 0, 3, 0, 0, 0, 1, byte(o >> 8), byte(o), 0, 0, // orientation, SHORT, 1
		0, 0, 0, 0, // no next IFD
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	n := len(payload) + 2
	seg := append([]byte{0xff, 0xe1, byte(n >> 8), byte(n)}, payload...)
	out := append([]byte{}, jpg[:2]...)
	out = append(out, seg...)
	return append(out, jpg[2:]...)
}

func TestImagingDecode_JPEGOrientation(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(20, 10), nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}

	upright := withOrientation(buf.Bytes(), 1)
	d, err := Imaging{}.Decode(context.Background(), upright, "image/jpeg")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if d.Format != FormatJPEG || !bytes.Equal(d.Data, upright) {
		t.Fatalf("orientation 1 should pass through, got %s", d.Format)
	}

	rotated := withOrientation(buf.Bytes(), 6)
	d, err = Imaging{}.Decode(context.Background(), rotated, "image/jpeg")
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if d.Format != FormatPNG || d.Width != 10 || d.Height != 20 {
		t.Fatalf("Decoded = %dx%d %s, want 10x20 PNG", d.Width, d.Height, d.Format)
	}
	if _, err := png.Decode(bytes.NewReader(d.Data)); err != nil {
		t.Fatalf("re-encoded data is not PNG: %v", err)
	}
}

func TestImagingDecode_Failures(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		mt   string
	}{
		{"empty", nil, "image/png"},
		{"garbage", []byte("definitely not an image"), "image/png"},
		{"not an image type", []byte("abc"), "application/pdf"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Imaging{}.Decode(context.Background(), tc.data, tc.mt)
			if !errors.Is(err, domain.ErrDecodeFailed) {
				t.Fatalf("err = %v, want ErrDecodeFailed", err)
			}
		})
	}
}

func TestImagingDecode_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Imaging{}.Decode(ctx, encodePNG(t, testImage(2, 2)), "image/png")
	if !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("err = %v, want ErrDecodeFailed", err)
	}
}

type countingDecoder struct {
	inflight, peak atomic.Int32
}

func (c *countingDecoder) Decode(ctx context.Context, data []byte, mt string) (Decoded, error) {
	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		p := c.peak.Load()
		if n <= p || c.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return Imaging{}.Decode(ctx, data, mt)
}

func TestBatch_KeepsOrderAndIsolatesFailures(t *testing.T) {
	good := encodePNG(t, testImage(3, 5))
	srcs := []Source{
		{Name: "a.png", Data: good, MediaType: "image/png"},
		{Name: "broken.png", Data: []byte("nope"), MediaType: "image/png"},
		{Name: "c.png", Data: encodePNG(t, testImage(6, 2)), MediaType: "image/png"},
	}
	dec := &countingDecoder{}
	res := Batch(context.Background(), dec, srcs, 2)
	if len(res) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(res))
	}
	if !res[0].OK() || res[0].Decoded.Width != 3 {
		t.Fatalf("result 0 = %+v", res[0])
	}
	if res[1].OK() || !errors.Is(res[1].Err, domain.ErrDecodeFailed) {
		t.Fatalf("result 1 err = %v, want ErrDecodeFailed", res[1].Err)
	}
	if !res[2].OK() || res[2].Source.Name != "c.png" || res[2].Decoded.Width != 6 {
		t.Fatalf("result 2 = %+v", res[2])
	}
	if p := dec.peak.Load(); p > 2 {
		t.Fatalf("peak concurrency = %d, want <= 2", p)
	}
}

func TestParseDataURI(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
	b, mt, err := ParseDataURI(uri)
	if err != nil {
		t.Fatalf("ParseDataURI error: %v", err)
	}
	if mt != "image/png" || !bytes.Equal(b, payload) {
		t.Fatalf("ParseDataURI = %q %v", mt, b)
	}
	if _, _, err := ParseDataURI("http://example.com/x.png"); err == nil {
		t.Fatalf("expected error for non-data URI")
	}
	if _, _, err := ParseDataURI("data:image/png;base64"); err == nil {
		t.Fatalf("expected error for missing payload")
	}
	b, mt, err = ParseDataURI("data:,hello%20world")
	if err != nil || mt != "text/plain" || string(b) != "hello world" {
		t.Fatalf("plain data URI = %q %q %v", b, mt, err)
	}
	b, mt, err = ParseDataURI("  data:image/gif;name=x.gif;base64," + base64.StdEncoding.EncodeToString(payload) + "\n")
	if err != nil || mt != "image/gif" || !bytes.Equal(b, payload) {
		t.Fatalf("data URI with parameters = %q %v %v", mt, b, err)
	}
}

func TestReadFileSniffsMediaType(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "photo")
	if err := os.WriteFile(p, encodePNG(t, testImage(2, 2)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := ReadFile(p, "lbl")
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if src.MediaType != "image/png" || src.Label != "lbl" || src.Name != "photo" {
		t.Fatalf("Source = %+v", src)
	}
	if got := SniffMediaType("x.JPG", nil); got != "image/jpeg" {
		t.Fatalf("SniffMediaType(x.JPG) = %q, want image/jpeg", got)
	}
	var gifBuf bytes.Buffer
	if err := gif.Encode(&gifBuf, testImage(2, 2), nil); err != nil {
		t.Fatalf("gif encode: %v", err)
	}
	if got := SniffMediaType("upload.bin", gifBuf.Bytes()); got != "image/gif" {
		t.Fatalf("SniffMediaType(upload.bin) = %q, want image/gif", got)
	}
}
