/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"gridify/internal/config"
	"gridify/internal/crash"
	"gridify/internal/domain"
	"gridify/internal/export"
	"gridify/internal/job"
	"gridify/internal/layout"
	applog "gridify/internal/log"
	"gridify/internal/notify"
	"gridify/internal/session"
	"gridify/internal/textlayout"
	"gridify/internal/version"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "gridify: lay out images on paged grids and export them as PDF")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  gridify version|-v|--version          Show version")
	_, _ = fmt.Fprintln(w, "  gridify init <imagedir> [job.yaml]    Write a job listing every image in <imagedir>")
	_, _ = fmt.Fprintln(w, "  gridify export <job.yaml> [out.pdf]   Build the pages of a job and write a PDF")
	_, _ = fmt.Fprintln(w, "  gridify preview <job.yaml> <outdir>   Render each page of a job as PNG")
	_, _ = fmt.Fprintln(w, "  gridify layout <rows> <cols>          Print cell geometry for the configured page")
	_, _ = fmt.Fprintln(w, "  gridify config [init]                 Show the effective config, or write the defaults")
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// env-only logging until the config file is read
	closer := applog.Init(applog.FromEnv())
	defer func() { _ = closer.Close() }()
	defer crash.Recover(crash.Info{})

	if len(args) == 0 {
		usage(stdout)
		return 2
	}
	switch args[0] {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(stdout, "gridify", version.String())
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	_ = closer.Close()
	closer = applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	l.Debug("start", slog.String("cmd", args[0]), slog.Int("args", len(args)))

	c := &cli{cfg: cfg, stdout: stdout, stderr: stderr, log: l}
	switch args[0] {
	case "init":
		if len(args) < 2 {
			return c.usageError("init requires <imagedir>")
		}
		out := filepath.Join(args[1], "job.yaml")
		if len(args) > 2 {
			out = args[2]
		}
		return c.initJob(args[1], out)
	case "export":
		if len(args) < 2 {
			return c.usageError("export requires <job.yaml>")
		}
		var out string
		if len(args) > 2 {
			out = args[2]
		}
		return c.runJob(args[1], out, false)
	case "preview":
		if len(args) < 3 {
			return c.usageError("preview requires <job.yaml> and <outdir>")
		}
		return c.runJob(args[1], filepath.Join(args[2], "preview.png"), true)
	case "layout":
		if len(args) < 3 {
			return c.usageError("layout requires <rows> and <cols>")
		}
		return c.printLayout(args[1], args[2])
	case "config":
		if len(args) > 1 && args[1] == "init" {
			return c.writeConfig()
		}
		return c.showConfig()
	}
	return c.usageError("unknown command " + strconv.Quote(args[0]))
}

type cli struct {
	cfg    config.AppConfig
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

func (c *cli) usageError(msg string) int {
	_, _ = fmt.Fprintln(c.stderr, msg)
	usage(c.stderr)
	return 2
}

func (c *cli) fail(msg string, err error) int {
	c.log.Error(msg, slog.Any("err", err))
	_, _ = fmt.Fprintln(c.stderr, "Error:", err)
	return 1
}

func (c *cli) exportOptions(path string) (export.Options, error) {
	f, err := export.LookupPageFormat(c.cfg.Export.PageFormat, c.cfg.Export.Orientation)
	if err != nil {
		return export.Options{}, err
	}
	return export.Options{
		Format:      f,
		Margin:      c.cfg.Export.Margin,
		LabelHeight: c.cfg.Export.LabelHeight,
		Padding:     c.cfg.Export.Padding,
		FontSize:    c.cfg.Export.FontSize,
		VAlign:      layout.ParseVAlign(c.cfg.Export.VAlign),
		GridLines:   c.cfg.Export.GridLines,
		Path:        path,
	}, nil
}

func (c *cli) initJob(dir, out string) int {
	f, err := job.FromDir(dir, domain.Dims{Rows: c.cfg.Grid.Rows, Cols: c.cfg.Grid.Cols})
	if err != nil {
		return c.fail("scan images failed", err)
	}
	// image paths in the job are relative to the job file
	if rel, err := filepath.Rel(filepath.Dir(out), dir); err == nil && rel != "." {
		for i := range f.Images {
			f.Images[i].File = filepath.ToSlash(filepath.Join(rel, f.Images[i].File))
		}
	}
	if err := job.Save(out, f); err != nil {
		return c.fail("write job failed", err)
	}
	_, _ = fmt.Fprintf(c.stdout, "Wrote %s with %d image(s)\n", out, len(f.Images))
	return 0
}

// runJob replays a job into a fresh session and exports it, either as PDF
// or as one PNG per page.
func (c *cli) runJob(path, out string, raster bool) int {
	var sess *session.Session
	defer crash.Recover(crash.Info{Job: path, State: func() string {
		if sess == nil {
			return "no session"
		}
		return sess.Describe()
	}})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = applog.WithJob(ctx, path)

	f, err := job.Load(path)
	if err != nil {
		return c.fail("load job failed", err)
	}
	switch {
	case out != "":
	case f.OutputPath() != "":
		out = f.OutputPath()
	default:
		out = c.cfg.Export.FileName
	}
	opt, err := c.exportOptions(out)
	if err != nil {
		return c.fail("page format", err)
	}

	sink := notify.NewAsync(notify.Multi(
		notify.LogSink{Logger: applog.WithComponent("notify")},
		notify.SinkFunc(func(e notify.Event) { _, _ = fmt.Fprintf(c.stdout, "[%s] %s\n", e.Title, e.Message) }),
	), 64)
	defer sink.Close()

	sess = session.New(nil, sink, session.Options{
		Defaults:    f.Dims(domain.Dims{Rows: c.cfg.Grid.Rows, Cols: c.cfg.Grid.Cols}),
		DecodeLimit: c.cfg.Decode.Workers(),
		Export:      opt,
	})
	sum, err := job.Apply(ctx, sess, f)
	if err != nil {
		return c.fail("apply job failed", err)
	}
	c.log.InfoContext(ctx, "job applied", slog.Int("pages", sum.Pages), slog.Int("placed", sum.Placed), slog.Int("skipped", sum.Skipped))

	newSurface, files, err := c.surfaceFactory(f, raster)
	if err != nil {
		return c.fail("prepare surface", err)
	}
	rep, err := sess.Export(ctx, newSurface)
	sink.Flush(ctx)
	if err != nil {
		return c.fail("export failed", err)
	}
	if raster {
		for _, name := range files() {
			_, _ = fmt.Fprintln(c.stdout, name)
		}
	} else {
		_, _ = fmt.Fprintln(c.stdout, rep.Path)
	}
	return 0
}

func (c *cli) surfaceFactory(f job.File, raster bool) (export.SurfaceFactory, func() []string, error) {
	if !raster {
		opt := export.PDFOptions{Title: f.Title, Author: f.Author, FontFile: c.cfg.Export.FontFile}
		return func() export.Surface { return export.NewPDFSurface(opt) }, nil, nil
	}
	fonts, err := textlayout.NewOTProvider(c.cfg.Export.FontFile, textlayout.BasicProvider{})
	if err != nil {
		return nil, nil, err
	}
	var last *export.PNGSurface
	factory := func() export.Surface {
		last = export.NewPNGSurface(export.PNGOptions{DPI: c.cfg.Export.PreviewDPI, Fonts: fonts})
		return last
	}
	files := func() []string {
		if last == nil {
			return nil
		}
		return last.Files()
	}
	return factory, files, nil
}

func (c *cli) printLayout(rowsArg, colsArg string) int {
	rows, err1 := strconv.Atoi(rowsArg)
	cols, err2 := strconv.Atoi(colsArg)
	if err1 != nil || err2 != nil {
		return c.usageError("rows and cols must be integers")
	}
	opt, err := c.exportOptions("")
	if err != nil {
		return c.fail("page format", err)
	}
	g, err := layout.Compute(layout.Params{
		PageWidth:   opt.Format.Width,
		PageHeight:  opt.Format.Height,
		Margin:      opt.Margin,
		Rows:        rows,
		Cols:        cols,
		LabelHeight: opt.LabelHeight,
		Padding:     opt.Padding,
		VAlign:      opt.VAlign,
	})
	if err != nil {
		return c.fail("layout", err)
	}
	_, _ = fmt.Fprintf(c.stdout, "%s %.2fx%.2fpt, %dx%d grid, cell %.2fx%.2fpt\n", opt.Format.Name, opt.Format.Width, opt.Format.Height, rows, cols, g.CellWidth, g.CellHeight)
	for _, cell := range g.Cells {
		a, lb := cell.ImageArea, cell.LabelArea
		_, _ = fmt.Fprintf(c.stdout, "slot %2d  row %d col %d  image %.2f,%.2f %.2fx%.2f  label %.2f,%.2f %.2fx%.2f\n",
			cell.Index+1, cell.Row+1, cell.Col+1, a.X, a.Y, a.W, a.H, lb.X, lb.Y, lb.W, lb.H)
	}
	return 0
}

func (c *cli) showConfig() int {
	path, _ := config.ConfigPath()
	_, _ = fmt.Fprintf(c.stdout, "# %s\n", path)
	for _, key := range []string{"grid.rows", "grid.cols", "export.page_format", "export.margin", "export.file_name", "logging.level"} {
		if env, ok := config.EnvOverrideFor(key); ok {
			_, _ = fmt.Fprintf(c.stdout, "# %s overridden by %s\n", key, env)
		}
	}
	data, err := yaml.Marshal(c.cfg)
	if err != nil {
		return c.fail("encode config", err)
	}
	_, _ = c.stdout.Write(data)
	return 0
}

func (c *cli) writeConfig() int {
	path, err := config.ConfigPath()
	if err != nil {
		return c.fail("config path", err)
	}
	if _, err := os.Stat(path); err == nil {
		_, _ = fmt.Fprintf(c.stderr, "%s already exists\n", path)
		return 1
	}
	if err := config.SaveFile(path, config.Defaults()); err != nil {
		return c.fail("write config", err)
	}
	_, _ = fmt.Fprintln(c.stdout, "Wrote", path)
	return 0
}
