/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"gridify/internal/decode"
	"gridify/internal/domain"
	"gridify/internal/layout"
	applog "gridify/internal/log"
	"gridify/internal/notify"
)

// DefaultFileName is used when Options.Path is empty.
const DefaultFileName = "gridify_export.pdf"

// Placeholder texts drawn into the document.
const (
	EmptyPageText  = "Page %d (empty)"
	ImageErrorText = "Error loading image"
	InfeasibleText = "Page %d: the grid does not fit on the page"
)

// Options controls page geometry and decoration. Lengths are points.
type Options struct {
	Format      PageFormat
	Margin      float64
	LabelHeight float64
	Padding     float64
	FontSize    float64
	VAlign      layout.VAlign
	GridLines   bool
	Path        string
}

// DefaultOptions: A4 portrait, 40pt margin, 20pt label band, 10pt labels, grid lines on.
func DefaultOptions() Options {
	return Options{
		Format:      A4,
		Margin:      40,
		LabelHeight: 20,
		FontSize:    10,
		VAlign:      layout.AlignTop,
		GridLines:   true,
		Path:        DefaultFileName,
	}
}

// Report summarizes one export run.
type Report struct {
	Pages      int
	Images     int   // occupied slots visited
	Failed     int   // images replaced by the error placeholder
	Infeasible []int // zero-based pages whose grid did not fit
	Path       string
}

// SurfaceFactory creates a fresh surface per export run.
type SurfaceFactory func() Surface

// Driver turns a collection snapshot into a document. One export runs at a
// time per Driver; a concurrent request fails with ErrExportInProgress.
type Driver struct {
	Decoder decode.Decoder
	Sink    notify.Sink
	Options Options
	Logger  *slog.Logger

	running atomic.Bool
}

// NewDriver wires a driver with the given decoder, sink and options.
func NewDriver(dec decode.Decoder, sink notify.Sink, opt Options) *Driver {
	return &Driver{Decoder: dec, Sink: sink, Options: opt}
}

// Running reports whether an export is in progress.
func (d *Driver) Running() bool { return d.running.Load() }

// Export renders every page of c, in order, onto a new surface and saves it.
// Image failures and infeasible layouts degrade to placeholders; only
// surface start/save failures, cancellation, an empty collection or a busy
// driver abort the run.
func (d *Driver) Export(ctx context.Context, c domain.Collection, newSurface SurfaceFactory) (Report, error) {
	sink := notify.OrDiscard(d.Sink)
	if !d.running.CompareAndSwap(false, true) {
		sink.Notify(notify.Event{Kind: notify.KindExportInProgress, Title: notify.TitleExportBusy, Message: "an export is already running", Page: -1, Slot: -1})
		return Report{}, domain.ErrExportInProgress
	}
	defer d.running.Store(false)

	rep, err := d.run(ctx, c, newSurface)
	if err != nil {
		sink.Notify(notify.Event{Kind: notify.KindExportFailed, Title: notify.TitleExportFailed, Message: err.Error(), Destructive: true, Page: -1, Slot: -1, Err: err})
		return rep, err
	}
	msg := fmt.Sprintf("%d page(s) written to %s", rep.Pages, rep.Path)
	if rep.Failed > 0 {
		msg += fmt.Sprintf("; %d image(s) could not be loaded", rep.Failed)
	}
	sink.Notify(notify.Event{Kind: notify.KindExportDone, Title: notify.TitleExportDone, Message: msg, Page: -1, Slot: -1, Count: rep.Pages})
	return rep, nil
}

func (d *Driver) run(ctx context.Context, c domain.Collection, newSurface SurfaceFactory) (Report, error) {
	opt := d.Options
	if opt.Path == "" {
		opt.Path = DefaultFileName
	}
	if opt.Format.Width <= 0 || opt.Format.Height <= 0 {
		opt.Format = A4
	}
	if opt.FontSize <= 0 {
		opt.FontSize = 10
	}
	rep := Report{Path: opt.Path}
	if len(c.Pages) == 0 {
		return rep, domain.ErrEmptyDocument
	}
	if d.Decoder == nil || newSurface == nil {
		return rep, fmt.Errorf("export driver: decoder and surface are required")
	}
	l := d.Logger
	if l == nil {
		l = applog.WithComponent("export")
	}
	l = applog.WithOperation(l, "export").With(slog.Int("pages", len(c.Pages)), slog.String("path", opt.Path))
	l.Info("export started")

	s := newSurface()
	if err := s.StartDocument(opt.Format); err != nil {
		return rep, fmt.Errorf("start document: %w", err)
	}
	for pi, p := range c.Pages {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("export canceled: %w", err)
		}
		if pi > 0 {
			if err := s.AddPage(); err != nil {
				return rep, fmt.Errorf("page %d: %w", pi+1, err)
			}
		}
		rep.Pages++
		d.renderPage(ctx, s, pi, p, opt, &rep, l)
	}
	if err := s.Save(opt.Path); err != nil {
		return rep, fmt.Errorf("save document: %w", err)
	}
	l.Info("export finished", slog.Int("images", rep.Images), slog.Int("failed", rep.Failed), slog.Int("infeasible", len(rep.Infeasible)))
	return rep, nil
}

func (d *Driver) renderPage(ctx context.Context, s Surface, pi int, p domain.Page, opt Options, rep *Report, l *slog.Logger) {
	w, h := s.PageSize()
	if p.ItemCount() == 0 {
		d.text(s, l, []string{fmt.Sprintf(EmptyPageText, pi+1)}, w/2, h/2-opt.FontSize/2, TextOptions{Size: opt.FontSize, Align: AlignCenter, Gray: 128})
		return
	}
	g, err := layout.Compute(layout.Params{
		PageWidth:   w,
		PageHeight:  h,
		Margin:      opt.Margin,
		Rows:        p.Rows,
		Cols:        p.Cols,
		LabelHeight: opt.LabelHeight,
		Padding:     opt.Padding,
		VAlign:      opt.VAlign,
	})
	if err != nil {
		rep.Infeasible = append(rep.Infeasible, pi)
		l.Warn("layout infeasible", slog.Int("page", pi+1), slog.Any("err", err))
		notify.OrDiscard(d.Sink).Notify(notify.Event{Kind: notify.KindLayoutInfeasible, Title: notify.TitleLayout, Message: err.Error(), Page: pi, Slot: -1, Err: err})
		d.text(s, l, s.MeasureWrappedLines(fmt.Sprintf(InfeasibleText, pi+1), w-2*max(opt.Margin, 0), opt.FontSize), w/2, max(opt.Margin, 0), TextOptions{Size: opt.FontSize, Align: AlignCenter, Gray: 128})
		return
	}
	if opt.GridLines {
		for _, ln := range g.Separators() {
			if err := s.DrawLine(ln, 200, 0.5); err != nil {
				l.Debug("grid line", slog.Any("err", err))
			}
		}
	}
	for i, slot := range p.Slots {
		item, ok := slot.Item()
		if !ok {
			continue
		}
		rep.Images++
		cell, _ := g.Cell(i)
		if err := d.drawImage(ctx, s, g, i, item); err != nil {
			rep.Failed++
			l.Warn("image placeholder", slog.Int("page", pi+1), slog.Int("slot", i), slog.String("item", item.ID), slog.Any("err", err))
			notify.OrDiscard(d.Sink).Notify(notify.Event{Kind: notify.KindImageFailed, Title: notify.TitleImageFailed, Message: err.Error(), Page: pi, Slot: i, Err: err})
			c := cell.ImageArea.Center()
			d.text(s, l, []string{ImageErrorText}, c.X, c.Y-opt.FontSize/2, TextOptions{Size: opt.FontSize, Align: AlignCenter, Gray: 128})
		}
		if item.Label == "" {
			continue
		}
		x, top := g.LabelAnchor(i)
		lines := s.MeasureWrappedLines(item.Label, g.LabelWidth(), opt.FontSize)
		d.text(s, l, lines, x, top, TextOptions{Size: opt.FontSize, Align: AlignCenter})
	}
}

func (d *Driver) drawImage(ctx context.Context, s Surface, g layout.Grid, i int, item domain.ImageItem) error {
	img, err := d.Decoder.Decode(ctx, item.Source, item.MediaType)
	if err != nil {
		return err
	}
	r, ok := g.FitImage(i, float64(img.Width), float64(img.Height))
	if !ok {
		return fmt.Errorf("fit image: %w", domain.ErrLayoutInfeasible)
	}
	return s.DrawImage(img, r)
}

func (d *Driver) text(s Surface, l *slog.Logger, lines []string, x, y float64, opt TextOptions) {
	if len(lines) == 0 {
		return
	}
	if err := s.DrawText(lines, x, y, opt); err != nil {
		l.Warn("draw text", slog.Any("err", err))
	}
}
