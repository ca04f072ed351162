package export

import (
	"log/slog"

	"github.com/alakob/confluence-downloader/pkg/markdown"
)

// Option defines a functional option for configuring an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger for progress and failure reporting.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithWorkers sets the number of pages processed concurrently. The
// default of 1 keeps the strictly sequential behavior; higher values
// fan pages out over a bounded pool. Reported results stay in original
// page order either way.
func WithWorkers(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithConverter replaces the default markdown converter.
func WithConverter(c *markdown.Converter) Option {
	return func(e *Exporter) {
		if c != nil {
			e.conv = c
		}
	}
}

// WithMatch restricts the export to pages whose title matches the given
// glob pattern (doublestar syntax). Empty means export everything.
func WithMatch(pattern string) Option {
	return func(e *Exporter) {
		e.match = pattern
	}
}

// WithoutAttachments skips attachment download entirely; documents are
// produced without an attachment index.
func WithoutAttachments() Option {
	return func(e *Exporter) {
		e.skipAttachments = true
	}
}
