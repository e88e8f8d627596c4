/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func lastJSONLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	scanner := bufio.NewScanner(bytes.NewReader(b))
	var last string
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

func TestInitAndStructuredLoggingToFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "gridify.log")
	var console bytes.Buffer
	closer := Init(Options{Level: "debug", Format: "json", File: fpath, Output: &console})
	t.Cleanup(func() { _ = closer.Close() })

	l := WithOperation(WithComponent("grid"), "allocate")
	l.InfoContext(WithJob(context.Background(), "album.yaml"), "placed images", slog.Int("count", 3))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for name, data := range map[string][]byte{"file": b, "console": console.Bytes()} {
		m := lastJSONLine(t, data)
		if m["app"] != "gridify" {
			t.Fatalf("%s: app = %v, want gridify", name, m["app"])
		}
		if _, ok := m["ver"].(string); !ok {
			t.Fatalf("%s: missing ver attr", name)
		}
		if m["component"] != "grid" || m["op"] != "allocate" {
			t.Fatalf("%s: component/op = %v/%v", name, m["component"], m["op"])
		}
		if m["job"] != "album.yaml" {
			t.Fatalf("%s: job = %v, want album.yaml", name, m["job"])
		}
		if m["msg"] != "placed images" || m["count"] != float64(3) {
			t.Fatalf("%s: unexpected record %v", name, m)
		}
	}
}

func TestInitConsoleLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "warn", Output: &buf})
	L().Info("hidden")
	L().Warn("shown", slog.String("reason", "two words"))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info record leaked at warn level: %q", out)
	}
	if !strings.Contains(out, "WRN shown") || !strings.Contains(out, `reason="two words"`) {
		t.Fatalf("unexpected console output: %q", out)
	}
}

func TestJobFrom(t *testing.T) {
	if _, ok := JobFrom(context.Background()); ok {
		t.Fatalf("empty context should carry no job")
	}
	if j, ok := JobFrom(WithJob(context.Background(), "a.yaml")); !ok || j != "a.yaml" {
		t.Fatalf("JobFrom = %q,%v", j, ok)
	}
}
