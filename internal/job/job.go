/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package job reads and writes YAML job files: a declarative description of
// pages, grid sizes, images and labels that a session replays before export.
//
// Example:
//
//	version: 1
//	output: album.pdf
//	grid: {rows: 3, cols: 4}
//	pages:
//	  - rows: 2
//	    cols: 2
//	    images:
//	      - {file: cover.jpg, label: Cover, slot: 1}
//	images:
//	  - file: photos/beach.png
//	    label: Beach
package job

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"gridify/internal/decode"
	"gridify/internal/domain"
)

// CurrentVersion is the job file format version written by Save.
const CurrentVersion = 1

//go:embed schema.json
var schemaJSON []byte

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// File is a parsed job file.
type File struct {
	Version int     `yaml:"version"`
	Title   string  `yaml:"title,omitempty"`
	Author  string  `yaml:"author,omitempty"`
	Output  string  `yaml:"output,omitempty"`
	Grid    *Grid   `yaml:"grid,omitempty"`
	Pages   []Page  `yaml:"pages,omitempty"`
	Images  []Image `yaml:"images,omitempty"`

	// dir resolves relative image paths; set by Load.
	dir string
}

// Grid is a rows x cols pair.
type Grid struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// Page describes one page. Rows/Cols of 0 keep the default size. Images are
// placed into this page only, in order, from the first slot or from an
// explicit 1-based Slot.
type Page struct {
	Rows   int     `yaml:"rows,omitempty"`
	Cols   int     `yaml:"cols,omitempty"`
	Images []Image `yaml:"images,omitempty"`
}

// Image names one image by file path or data URI.
type Image struct {
	File  string `yaml:"file,omitempty"`
	Data  string `yaml:"data,omitempty"`
	Label string `yaml:"label,omitempty"`
	Slot  int    `yaml:"slot,omitempty"`
}

// Load reads, validates and parses the job file at path. Relative image
// paths are resolved against the file's directory.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read job: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("job %s: %w", path, err)
	}
	f.dir = filepath.Dir(path)
	return f, nil
}

// Parse validates data against the job schema and decodes it.
func Parse(data []byte) (File, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return File{}, fmt.Errorf("parse yaml: %w", err)
	}
	if doc == nil {
		return File{}, errors.New("empty job file")
	}
	if err := validate(doc); err != nil {
		return File{}, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("decode job: %w", err)
	}
	if f.Version == 0 {
		f.Version = CurrentVersion
	}
	return f, nil
}

func validate(doc any) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate job: %w", err)
	}
	if res.Valid() {
		return nil
	}
	errs := make([]error, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		errs = append(errs, fmt.Errorf("%s: %s", e.Field(), e.Description()))
	}
	return fmt.Errorf("invalid job file: %w", errors.Join(errs...))
}

// Dims returns the job's default page size, or fallback when unset.
func (f File) Dims(fallback domain.Dims) domain.Dims {
	if f.Grid == nil {
		return fallback
	}
	return domain.Dims{Rows: f.Grid.Rows, Cols: f.Grid.Cols}
}

// Dir is the directory relative image paths resolve against.
func (f File) Dir() string { return f.dir }

// OutputPath resolves the output file against the job directory; empty
// when the job names none.
func (f File) OutputPath() string {
	if f.Output == "" || filepath.IsAbs(f.Output) {
		return f.Output
	}
	return filepath.Join(f.dir, f.Output)
}

// Source loads the image bytes. name identifies data URIs in messages.
func (im Image) Source(dir, name string) (decode.Source, error) {
	if im.Data != "" {
		return decode.FromDataURI(name, im.Data, im.Label)
	}
	p := im.File
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	return decode.ReadFile(p, im.Label)
}

// Save writes f to path. The file is written to a temp file in the same
// directory and renamed over the target.
func Save(path string, f File) error {
	if f.Version == 0 {
		f.Version = CurrentVersion
	}
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure job dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp job: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace job: %w", err)
	}
	return nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// FromDir builds a job listing every image file directly inside dir, sorted
// by name and labelled with the file name without extension. Paths are kept
// relative to dir.
func FromDir(dir string, g domain.Dims) (File, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return File{}, fmt.Errorf("scan %s: %w", dir, err)
	}
	var names []string
	for _, e := range ents {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return File{}, fmt.Errorf("scan %s: no images found", dir)
	}
	sort.Strings(names)
	f := File{Version: CurrentVersion, Title: filepath.Base(dir), dir: dir}
	if g.Valid() {
		f.Grid = &Grid{Rows: g.Rows, Cols: g.Cols}
	}
	for _, n := range names {
		f.Images = append(f.Images, Image{File: n, Label: strings.TrimSuffix(n, filepath.Ext(n))})
	}
	return f, nil
}
