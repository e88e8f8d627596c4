/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user
// config directory. Environment variables are read-only overrides applied at
// load time.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Grid          GridConfig    `yaml:"grid"`
	Export        ExportConfig  `yaml:"export"`
	Decode        DecodeConfig  `yaml:"decode"`
	Logging       LoggingConfig `yaml:"logging"`
}

// GridConfig is the size of newly created pages.
type GridConfig struct {
	Rows int `yaml:"rows"`
	Cols int `yaml:"cols"`
}

// ExportConfig holds page geometry and output settings. Lengths are points.
type ExportConfig struct {
	PageFormat  string  `yaml:"page_format"` // a3, a4, a5, letter, legal
	Orientation string  `yaml:"orientation"` // portrait | landscape
	Margin      float64 `yaml:"margin"`
	LabelHeight float64 `yaml:"label_height"`
	Padding     float64 `yaml:"padding"`
	FontSize    float64 `yaml:"font_size"`
	VAlign      string  `yaml:"valign"` // top | center
	GridLines   bool    `yaml:"grid_lines"`
	FileName    string  `yaml:"file_name"`
	FontFile    string  `yaml:"font_file"` // optional TTF for non-Latin labels
	PreviewDPI  float64 `yaml:"preview_dpi"`
}

type DecodeConfig struct {
	MaxParallel int `yaml:"max_parallel"` // 0 means one per CPU
}

// Workers is the decode concurrency limit with 0 resolved to runtime.NumCPU.
func (d DecodeConfig) Workers() int {
	if d.MaxParallel > 0 {
		return d.MaxParallel
	}
	return runtime.NumCPU()
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Grid:          GridConfig{Rows: 3, Cols: 4},
		Export: ExportConfig{
			PageFormat:  "a4",
			Orientation: "portrait",
			Margin:      40,
			LabelHeight: 20,
			Padding:     0,
			FontSize:    10,
			VAlign:      "top",
			GridLines:   true,
			FileName:    "gridify_export.pdf",
			PreviewDPI:  96,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "GRIDIFY_CONFIG"

// Env var names used as overrides.
const (
	EnvGridRows       = "GRIDIFY_GRID_ROWS"
	EnvGridCols       = "GRIDIFY_GRID_COLS"
	EnvPageFormat     = "GRIDIFY_PAGE_FORMAT"
	EnvOrientation    = "GRIDIFY_ORIENTATION"
	EnvMargin         = "GRIDIFY_MARGIN"
	EnvLabelHeight    = "GRIDIFY_LABEL_HEIGHT"
	EnvFontSize       = "GRIDIFY_FONT_SIZE"
	EnvGridLines      = "GRIDIFY_GRID_LINES"
	EnvFontFile       = "GRIDIFY_FONT_FILE"
	EnvOutput         = "GRIDIFY_OUTPUT"
	EnvDecodeParallel = "GRIDIFY_DECODE_PARALLEL"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GRIDIFY_LOG_LEVEL"
	EnvLogFormat = "GRIDIFY_LOG_FORMAT"
	EnvLogSource = "GRIDIFY_LOG_SOURCE"
	EnvLogFile   = "GRIDIFY_LOG_FILE"
)

// envBinding ties a dotted config key to the env var overriding it.
type envBinding struct {
	key   string
	env   string
	apply func(cfg *AppConfig, v string) error
}

var envBindings = []envBinding{
	{"grid.rows", EnvGridRows, func(c *AppConfig, v string) error { return setInt(&c.Grid.Rows, v) }},
	{"grid.cols", EnvGridCols, func(c *AppConfig, v string) error { return setInt(&c.Grid.Cols, v) }},
	{"export.page_format", EnvPageFormat, func(c *AppConfig, v string) error { c.Export.PageFormat = strings.ToLower(v); return nil }},
	{"export.orientation", EnvOrientation, func(c *AppConfig, v string) error { c.Export.Orientation = strings.ToLower(v); return nil }},
	{"export.margin", EnvMargin, func(c *AppConfig, v string) error { return setFloat(&c.Export.Margin, v) }},
	{"export.label_height", EnvLabelHeight, func(c *AppConfig, v string) error { return setFloat(&c.Export.LabelHeight, v) }},
	{"export.font_size", EnvFontSize, func(c *AppConfig, v string) error { return setFloat(&c.Export.FontSize, v) }},
	{"export.grid_lines", EnvGridLines, func(c *AppConfig, v string) error { c.Export.GridLines = parseBool(v); return nil }},
	{"export.font_file", EnvFontFile, func(c *AppConfig, v string) error { c.Export.FontFile = v; return nil }},
	{"export.file_name", EnvOutput, func(c *AppConfig, v string) error { c.Export.FileName = v; return nil }},
	{"decode.max_parallel", EnvDecodeParallel, func(c *AppConfig, v string) error { return setInt(&c.Decode.MaxParallel, v) }},
	{"logging.level", EnvLogLevel, func(c *AppConfig, v string) error { c.Logging.Level = strings.ToLower(v); return nil }},
	{"logging.format", EnvLogFormat, func(c *AppConfig, v string) error { c.Logging.Format = strings.ToLower(v); return nil }},
	{"logging.source", EnvLogSource, func(c *AppConfig, v string) error { c.Logging.Source = parseBool(v); return nil }},
	{"logging.file", EnvLogFile, func(c *AppConfig, v string) error { c.Logging.File = v; return nil }},
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "gridify", "config.yaml"), nil
}

// Load reads the user config file (if present) over the defaults and applies
// environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		return cfg, err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path. A missing file is not an error.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// keys absent from the file keep their defaults
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	normalize(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config YAML to the per-user path.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile writes cfg to path, creating parent directories.
func SaveFile(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects values no page could be laid out with.
func (c AppConfig) Validate() error {
	var errs []error
	if c.Grid.Rows < 1 || c.Grid.Cols < 1 {
		errs = append(errs, fmt.Errorf("grid must be at least 1x1, got %dx%d", c.Grid.Rows, c.Grid.Cols))
	}
	if c.Export.Margin < 0 || c.Export.LabelHeight < 0 || c.Export.Padding < 0 {
		errs = append(errs, errors.New("export margin, label_height and padding must not be negative"))
	}
	if c.Export.FontSize <= 0 {
		errs = append(errs, fmt.Errorf("export font_size must be positive, got %v", c.Export.FontSize))
	}
	switch c.Export.VAlign {
	case "top", "center":
	default:
		errs = append(errs, fmt.Errorf("export valign must be top or center, got %q", c.Export.VAlign))
	}
	if c.Decode.MaxParallel < 0 {
		errs = append(errs, errors.New("decode max_parallel must not be negative"))
	}
	return errors.Join(errs...)
}

func normalize(cfg *AppConfig) {
	cfg.Export.PageFormat = strings.ToLower(strings.TrimSpace(cfg.Export.PageFormat))
	cfg.Export.Orientation = strings.ToLower(strings.TrimSpace(cfg.Export.Orientation))
	cfg.Export.VAlign = strings.ToLower(strings.TrimSpace(cfg.Export.VAlign))
	if cfg.Export.VAlign == "" {
		cfg.Export.VAlign = "top"
	}
	cfg.Export.FileName = strings.TrimSpace(cfg.Export.FileName)
	if cfg.Export.FileName == "" {
		cfg.Export.FileName = Defaults().Export.FileName
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
}

func applyEnvOverrides(cfg *AppConfig) error {
	for _, b := range envBindings {
		v := strings.TrimSpace(os.Getenv(b.env))
		if v == "" {
			continue
		}
		if err := b.apply(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", b.env, err)
		}
	}
	return nil
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	for _, b := range envBindings {
		if b.key == key && os.Getenv(b.env) != "" {
			return b.env, true
		}
	}
	return "", false
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("not an integer: %q", v)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", v)
	}
	*dst = f
	return nil
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}
