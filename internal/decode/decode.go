/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package decode turns uploaded image bytes into pixel dimensions plus a byte
// stream the PDF writer can embed directly (PNG or JPEG).
package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"gridify/internal/domain"
)

// Embeddable formats, named the way the PDF writer expects them.
const (
	FormatPNG  = "PNG"
	FormatJPEG = "JPG"
)

// Decoded is the result of a successful decode.
type Decoded struct {
	Width  int
	Height int
	Format string // FormatPNG or FormatJPEG
	Data   []byte // bytes in Format; the input itself when no conversion was needed
}

// Decoder is the image decode capability consumed by upload and export.
type Decoder interface {
	Decode(ctx context.Context, data []byte, mediaType string) (Decoded, error)
}

// Imaging decodes with the standard library and golang.org/x/image decoders
// and re-encodes anything the PDF writer cannot embed as PNG.
type Imaging struct{}

// Decode implements Decoder. All failures wrap domain.ErrDecodeFailed.
func (Imaging) Decode(ctx context.Context, data []byte, mediaType string) (Decoded, error) {
	if err := ctx.Err(); err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}
	if mt := strings.TrimSpace(mediaType); mt != "" && !strings.HasPrefix(strings.ToLower(mt), "image/") {
		return Decoded{}, fmt.Errorf("%w: unsupported media type %q", domain.ErrDecodeFailed, mediaType)
	}
	if len(data) == 0 {
		return Decoded{}, fmt.Errorf("%w: empty input", domain.ErrDecodeFailed)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Decoded{}, fmt.Errorf("%w: zero-sized image", domain.ErrDecodeFailed)
	}
	switch format {
	case "jpeg":
		if jpegOrientation(data) <= 1 {
			return Decoded{Width: cfg.Width, Height: cfg.Height, Format: FormatJPEG, Data: data}, nil
		}
	case "png":
		if pngEmbeddable(data) {
			return Decoded{Width: cfg.Width, Height: cfg.Height, Format: FormatPNG, Data: data}, nil
		}
	}
	return reencode(data)
}

// reencode converts the image to an upright 8-bit, non-interlaced PNG.
func reencode(data []byte) (Decoded, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Decoded{}, fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}
	// imaging.Decode keeps 16-bit models when no rotation applies
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Clone(img), imaging.PNG); err != nil {
		return Decoded{}, fmt.Errorf("%w: re-encode: %v", domain.ErrDecodeFailed, err)
	}
	b := img.Bounds()
	return Decoded{Width: b.Dx(), Height: b.Dy(), Format: FormatPNG, Data: buf.Bytes()}, nil
}

// jpegOrientation returns the EXIF orientation tag, or 0 when there is none.
func jpegOrientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 0
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 0
	}
	o, err := tag.Int(0)
	if err != nil {
		return 0
	}
	return o
}

// pngEmbeddable reports whether the PDF writer can take the PNG as-is: it
// rejects 16-bit channels and interlaced files.
func pngEmbeddable(data []byte) bool {
	// signature(8) + length(4) + "IHDR"(4) + width(4) + height(4) + depth(1) + color(1) + compression(1) + filter(1) + interlace(1)
	if len(data) < 29 || string(data[12:16]) != "IHDR" {
		return false
	}
	if binary.BigEndian.Uint32(data[8:12]) != 13 {
		return false
	}
	depth, interlace := data[24], data[28]
	return depth <= 8 && interlace == 0
}
