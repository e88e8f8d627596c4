/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// LoadFont parses a TrueType/OpenType file.
func LoadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return f, nil
}

// OTProvider resolves faces from a parsed OpenType font and falls back to
// another Provider when Font is nil or a face cannot be built. Faces are
// cached per size.
type OTProvider struct {
	Font     *opentype.Font
	Fallback Provider

	mu    sync.Mutex
	faces map[float64]font.Face
}

// NewOTProvider loads path; an empty path yields a provider that always
// falls back.
func NewOTProvider(path string, fallback Provider) (*OTProvider, error) {
	p := &OTProvider{Fallback: fallback}
	if path == "" {
		return p, nil
	}
	f, err := LoadFont(path)
	if err != nil {
		return nil, err
	}
	p.Font = f
	return p, nil
}

func (p *OTProvider) Face(sizePx float64) font.Face {
	if sizePx <= 0 {
		sizePx = 12
	}
	if p.Font != nil {
		p.mu.Lock()
		defer p.mu.Unlock()
		if face, ok := p.faces[sizePx]; ok {
			return face
		}
		// DPI 72 makes Size a pixel size
		face, err := opentype.NewFace(p.Font, &opentype.FaceOptions{Size: sizePx, DPI: 72, Hinting: font.HintingFull})
		if err == nil {
			if p.faces == nil {
				p.faces = make(map[float64]font.Face)
			}
			p.faces[sizePx] = face
			return face
		}
	}
	fb := p.Fallback
	if fb == nil {
		fb = BasicProvider{}
	}
	return fb.Face(sizePx)
}
