/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package notify carries user-facing notifications (toast-like events) from
// the session and the export driver to whatever presents them.
package notify

import (
	"log/slog"
	"sync"
)

// Kind classifies an Event.
type Kind string

const (
	KindUploaded         Kind = "uploaded"
	KindUploadRejected   Kind = "upload_rejected"
	KindPageAdded        Kind = "page_added"
	KindPageDeleted      Kind = "page_deleted"
	KindDeleteRejected   Kind = "delete_rejected"
	KindImageRemoved     Kind = "image_removed"
	KindLabelChanged     Kind = "label_changed"
	KindResized          Kind = "resized"
	KindLayoutInfeasible Kind = "layout_infeasible"
	KindImageFailed      Kind = "image_failed"
	KindExportDone       Kind = "export_done"
	KindExportFailed     Kind = "export_failed"
	KindExportInProgress Kind = "export_in_progress"
)

// Titles shown to the user.
const (
	TitleUploaded       = "Upload Successful"
	TitleUploadRejected = "Upload Failed"
	TitlePageAdded      = "Page Added"
	TitleCannotDelete   = "Cannot Delete"
	TitlePageDeleted    = "Page Deleted"
	TitleImageRemoved   = "Image Removed"
	TitleLabelChanged   = "Label Updated"
	TitleResized        = "Grid Resized"
	TitleLayout         = "Layout Does Not Fit"
	TitleImageFailed    = "Image Skipped"
	TitleExportDone     = "PDF Generated!"
	TitleExportFailed   = "PDF Generation Failed"
	TitleExportBusy     = "Export Running"
)

// Event is one notification. Page and Slot are zero-based; -1 when not
// applicable.
type Event struct {
	Kind        Kind
	Title       string
	Message     string
	Destructive bool
	Page        int
	Slot        int
	Count       int
	Err         error
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Notify(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Notify(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// LogSink writes events to a structured logger. Destructive events log at
// warn level.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(e Event) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	attrs := []any{slog.String("kind", string(e.Kind)), slog.String("message", e.Message)}
	if e.Page >= 0 {
		attrs = append(attrs, slog.Int("page", e.Page+1))
	}
	if e.Slot >= 0 {
		attrs = append(attrs, slog.Int("slot", e.Slot))
	}
	if e.Count > 0 {
		attrs = append(attrs, slog.Int("count", e.Count))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.Any("err", e.Err))
	}
	if e.Destructive {
		l.Warn(e.Title, attrs...)
		return
	}
	l.Info(e.Title, attrs...)
}

// Multi fans an event out to several sinks in order.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(e Event) {
		for _, s := range sinks {
			if s != nil {
				s.Notify(e)
			}
		}
	})
}

// Recorder keeps every event it receives. Useful in tests and for callers
// that render notifications after the fact.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Kinds returns the recorded kinds in order.
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

// Reset drops recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
