/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package decode

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/vincent-petithory/dataurl"
)

// ParseDataURI decodes a "data:<media type>[;base64],<payload>" string.
func ParseDataURI(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return nil, "", errors.New("not a data URI")
	}
	du, err := dataurl.DecodeString(s)
	if err != nil {
		return nil, "", fmt.Errorf("data URI: %w", err)
	}
	return du.Data, du.MediaType.ContentType(), nil
}

// SniffMediaType guesses the media type from the file name, falling back to
// content sniffing.
func SniffMediaType(name string, data []byte) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if mt := mime.TypeByExtension(ext); strings.HasPrefix(mt, "image/") {
			mt, _, _ = strings.Cut(mt, ";")
			return mt
		}
	}
	mt, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return mt
}

// ReadFile loads an image file as a Source.
func ReadFile(path, label string) (Source, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read image %s: %w", path, err)
	}
	return Source{Name: filepath.Base(path), Data: b, MediaType: SniffMediaType(path, b), Label: label}, nil
}

// FromDataURI builds a Source from a data URI.
func FromDataURI(name, uri, label string) (Source, error) {
	b, mt, err := ParseDataURI(uri)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", name, err)
	}
	return Source{Name: name, Data: b, MediaType: mt, Label: label}, nil
}
