/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and word-wraps label text. Measurement is
// pluggable so the same wrapping rules apply to every drawing surface.
package textlayout

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// MeasureFunc returns the advance width of s in the caller's unit.
type MeasureFunc func(s string) float64

// Metrics are vertical font metrics in pixels.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// LineHeight is the baseline-to-baseline distance.
func (m Metrics) LineHeight() float64 { return m.Ascent + m.Descent + m.LineGap }

// Provider resolves a face for a pixel size.
type Provider interface {
	Face(sizePx float64) font.Face
}

// BasicProvider always returns basicfont.Face7x13, whatever the size.
// Output is deterministic, which keeps raster tests stable.
type BasicProvider struct{}

func (BasicProvider) Face(float64) font.Face { return basicfont.Face7x13 }

// MetricsOf reads the rounded metrics of face.
func MetricsOf(face font.Face) Metrics {
	m := face.Metrics()
	return Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// FaceMeasure measures strings with face, in pixels.
func FaceMeasure(face font.Face) MeasureFunc {
	d := &font.Drawer{Face: face}
	return func(s string) float64 {
		return float64(d.MeasureString(s)) / 64 // fixed.Int26_6 to px
	}
}

// Wrap breaks text into lines no wider than maxWidth. Lines break at
// whitespace; explicit newlines start a new line; a single word wider than
// maxWidth is split between runes, keeping at least one rune per line.
// maxWidth <= 0 disables wrapping. Blank text yields no lines.
func Wrap(text string, maxWidth float64, measure MeasureFunc) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		if maxWidth <= 0 {
			out = append(out, strings.Join(words, " "))
			continue
		}
		cur := ""
		for _, w := range words {
			candidate := w
			if cur != "" {
				candidate = cur + " " + w
			}
			if measure(candidate) <= maxWidth {
				cur = candidate
				continue
			}
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			if measure(w) <= maxWidth {
				cur = w
				continue
			}
			chunks := splitWord(w, maxWidth, measure)
			out = append(out, chunks[:len(chunks)-1]...)
			cur = chunks[len(chunks)-1]
		}
		out = append(out, cur)
	}
	// trailing blank lines from a final newline carry nothing
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

func splitWord(w string, maxWidth float64, measure MeasureFunc) []string {
	var chunks []string
	for w != "" {
		n := 0
		for i := range w {
			if i == 0 {
				continue
			}
			if measure(w[:i]) > maxWidth {
				break
			}
			n = i
		}
		if measure(w) <= maxWidth {
			n = len(w)
		}
		if n == 0 {
			_, size := utf8.DecodeRuneInString(w)
			n = size
		}
		chunks = append(chunks, w[:n])
		w = w[n:]
	}
	return chunks
}
