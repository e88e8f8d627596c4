/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session is the single entry point for editing a page collection.
// Each user action becomes one transition on a grid.Holder, followed by a
// notification describing its outcome.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gridify/internal/decode"
	"gridify/internal/domain"
	"gridify/internal/export"
	"gridify/internal/grid"
	applog "gridify/internal/log"
	"gridify/internal/notify"
)

// Options configures a Session.
type Options struct {
	Defaults    domain.Dims // size of new pages; zero means 3x4
	DecodeLimit int         // concurrent decodes per upload; <= 0 means unbounded
	Export      export.Options
}

// Session holds one page collection and the services acting on it.
type Session struct {
	holder *grid.Holder
	dec    decode.Decoder
	sink   notify.Sink
	driver *export.Driver
	limit  int
	log    *slog.Logger
}

// New starts a session with one empty page.
func New(dec decode.Decoder, sink notify.Sink, opt Options) *Session {
	if dec == nil {
		dec = decode.Imaging{}
	}
	sink = notify.OrDiscard(sink)
	l := applog.WithComponent("session")
	d := export.NewDriver(dec, sink, opt.Export)
	d.Logger = applog.WithComponent("export")
	return &Session{
		holder: grid.NewHolder(opt.Defaults),
		dec:    dec,
		sink:   sink,
		driver: d,
		limit:  opt.DecodeLimit,
		log:    l,
	}
}

// Snapshot returns a copy of the current collection.
func (s *Session) Snapshot() domain.Collection { return s.holder.Snapshot() }

// Defaults is the size used for new pages.
func (s *Session) Defaults() domain.Dims { return s.holder.Defaults() }

// ExportOptions returns the options the export driver runs with.
func (s *Session) ExportOptions() export.Options { return s.driver.Options }

// UploadResult reports what an upload did.
type UploadResult struct {
	grid.Allocation
	Items   []domain.ImageItem // created items, in input order of successful decodes
	Skipped int                // sources that failed to decode
}

// Upload decodes all sources concurrently, waits for every decode to
// settle, then places the successful ones. Failed decodes are skipped and
// reported; they never abort the batch. With a target, only the first
// successful image is placed and only if that slot is empty.
func (s *Session) Upload(ctx context.Context, srcs []decode.Source, target *domain.SlotRef) (UploadResult, error) {
	l := applog.WithOperation(s.log, "upload").With(slog.Int("sources", len(srcs)))
	var res UploadResult
	for _, r := range decode.Batch(ctx, s.dec, srcs, s.limit) {
		if !r.OK() {
			res.Skipped++
			l.Warn("decode failed", slog.String("source", r.Source.Name), slog.Any("err", r.Err))
			s.sink.Notify(notify.Event{Kind: notify.KindImageFailed, Title: notify.TitleImageFailed, Message: fmt.Sprintf("%s could not be read", displayName(r.Source)), Page: -1, Slot: -1, Err: r.Err})
			continue
		}
		res.Items = append(res.Items, domain.NewImageItem(r.Source.Data, mediaTypeOf(r), r.Source.Label))
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("upload canceled: %w", err)
	}
	if len(res.Items) == 0 {
		return res, nil
	}

	def := s.holder.Defaults()
	_, err := s.holder.Apply(func(c domain.Collection) (domain.Collection, error) {
		next, alloc, err := grid.Allocate(c, res.Items, target, def)
		res.Allocation = alloc
		return next, err
	})
	if err != nil {
		msg := "the images could not be placed"
		if errors.Is(err, domain.ErrSlotOccupied) {
			msg = "the selected slot already holds an image"
		}
		ev := notify.Event{Kind: notify.KindUploadRejected, Title: notify.TitleUploadRejected, Message: msg, Destructive: true, Page: -1, Slot: -1, Err: err}
		if target != nil {
			ev.Page, ev.Slot = target.Page, target.Slot
		}
		s.sink.Notify(ev)
		l.Warn("upload rejected", slog.Any("err", err))
		return res, err
	}
	l.Info("upload placed", slog.Int("placed", len(res.Placed)), slog.Int("pages_added", res.PagesAdded), slog.Int("skipped", res.Skipped), slog.Int("dropped", res.Dropped))
	s.sink.Notify(notify.Event{Kind: notify.KindUploaded, Title: notify.TitleUploaded, Message: uploadMessage(res), Page: res.Placed[0].Page, Slot: -1, Count: len(res.Placed)})
	return res, nil
}

func uploadMessage(r UploadResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d image(s) added", len(r.Placed))
	if r.PagesAdded > 0 {
		fmt.Fprintf(&b, " on %d new page(s)", r.PagesAdded)
	}
	if r.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", r.Skipped)
	}
	if r.Dropped > 0 {
		fmt.Fprintf(&b, ", %d ignored (one image per slot)", r.Dropped)
	}
	return b.String()
}

func displayName(src decode.Source) string {
	if src.Name != "" {
		return src.Name
	}
	return "an image"
}

// mediaTypeOf keeps the declared type unless the decoder says otherwise.
func mediaTypeOf(r decode.Result) string {
	if r.Source.MediaType != "" {
		return r.Source.MediaType
	}
	switch r.Decoded.Format {
	case decode.FormatJPEG:
		return "image/jpeg"
	case decode.FormatPNG:
		return "image/png"
	}
	return ""
}

// SetLabel changes the caption of an image.
func (s *Session) SetLabel(itemID, label string) error {
	_, err := s.holder.Apply(func(c domain.Collection) (domain.Collection, error) {
		return grid.SetLabel(c, itemID, label)
	})
	if err != nil {
		return err
	}
	s.sink.Notify(notify.Event{Kind: notify.KindLabelChanged, Title: notify.TitleLabelChanged, Message: fmt.Sprintf("label set to %q", label), Page: -1, Slot: -1})
	return nil
}

// RemoveImage empties the slot holding the image and returns where it was.
func (s *Session) RemoveImage(itemID string) (domain.SlotRef, error) {
	var ref domain.SlotRef
	_, err := s.holder.Apply(func(c domain.Collection) (domain.Collection, error) {
		next, r, err := grid.RemoveItem(c, itemID)
		ref = r
		return next, err
	})
	if err != nil {
		return domain.SlotRef{}, err
	}
	s.sink.Notify(notify.Event{Kind: notify.KindImageRemoved, Title: notify.TitleImageRemoved, Message: "image removed from " + ref.String(), Page: ref.Page, Slot: ref.Slot})
	return ref, nil
}

// Resize changes the grid of page index. Images that no longer fit are
// dropped and returned.
func (s *Session) Resize(index, rows, cols int) ([]domain.ImageItem, error) {
	var dropped []domain.ImageItem
	_, err := s.holder.Apply(func(c domain.Collection) (domain.Collection, error) {
		next, d, err := grid.ReflowPage(c, index, rows, cols)
		dropped = d
		return next, err
	})
	if err != nil {
		s.log.Warn("resize rejected", slog.Int("page", index+1), slog.Int("rows", rows), slog.Int("cols", cols), slog.Any("err", err))
		return nil, err
	}
	msg := fmt.Sprintf("page %d is now %dx%d", index+1, rows, cols)
	if len(dropped) > 0 {
		msg += fmt.Sprintf("; %d image(s) no longer fit and were removed", len(dropped))
	}
	s.sink.Notify(notify.Event{Kind: notify.KindResized, Title: notify.TitleResized, Message: msg, Destructive: len(dropped) > 0, Page: index, Slot: -1, Count: len(dropped)})
	return dropped, nil
}

// AddPage appends an empty page, makes it current and returns its index.
func (s *Session) AddPage() (int, error) {
	idx := -1
	def := s.holder.Defaults()
	_, err := s.holder.Apply(func(c domain.Collection) (domain.Collection, error) {
		next, i, err := grid.AddPage(c, def)
		idx = i
		return next, err
	})
	if err != nil {
		return -1, err
	}
	s.sink.Notify(notify.Event{Kind: notify.KindPageAdded, Title: notify.TitlePageAdded, Message: fmt.Sprintf("page %d added", idx+1), Page: idx, Slot: -1})
	return idx, nil
}

// DeletePage removes page index. The last page cannot be deleted.
func (s *Session) DeletePage(index int) error {
	_, err := s.holder.Apply(func(c domain.Collection) (domain.Collection, error) {
		return grid.DeletePage(c, index)
	})
	switch {
	case errors.Is(err, domain.ErrLastPageProtected):
		s.sink.Notify(notify.Event{Kind: notify.KindDeleteRejected, Title: notify.TitleCannotDelete, Message: "you must have at least one page", Destructive: true, Page: index, Slot: -1, Err: err})
		return err
	case err != nil:
		return err
	}
	s.sink.Notify(notify.Event{Kind: notify.KindPageDeleted, Title: notify.TitlePageDeleted, Message: fmt.Sprintf("page %d removed", index+1), Page: index, Slot: -1})
	return nil
}

// GoTo moves to page index (clamped) and returns the new current index.
func (s *Session) GoTo(index int) int {
	return s.navigate(func(c domain.Collection) domain.Collection { return grid.SetCurrent(c, index) })
}

// Next moves one page forward.
func (s *Session) Next() int { return s.navigate(grid.Next) }

// Previous moves one page back.
func (s *Session) Previous() int { return s.navigate(grid.Previous) }

func (s *Session) navigate(fn func(domain.Collection) domain.Collection) int {
	c, _ := s.holder.Apply(func(c domain.Collection) (domain.Collection, error) { return fn(c), nil })
	return c.Current
}

// Export renders a snapshot of the collection. Edits made while the export
// runs do not affect it.
func (s *Session) Export(ctx context.Context, newSurface export.SurfaceFactory) (export.Report, error) {
	return s.driver.Export(ctx, s.holder.Snapshot(), newSurface)
}

// Exporting reports whether an export is running.
func (s *Session) Exporting() bool { return s.driver.Running() }

// Describe summarizes the collection in one line, for logs and crash reports.
func (s *Session) Describe() string {
	c := s.holder.Snapshot()
	parts := make([]string, 0, len(c.Pages))
	for i, p := range c.Pages {
		parts = append(parts, fmt.Sprintf("page %d %s (%d images)", i+1, p.Dims(), p.ItemCount()))
	}
	return fmt.Sprintf("%d page(s), current %d, rev %d: %s", len(c.Pages), c.Current+1, s.holder.Revision(), strings.Join(parts, "; "))
}
