// Package export drives the space export pipeline: enumerate pages,
// materialize each page's attachments, convert bodies to markdown and
// write the resulting documents under the output directory. Failures
// local to one page or one attachment are recorded and skipped; only
// pre-flight failures (output directory, initial page listing) abort
// the run.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/alakob/confluence-downloader/pkg/confluence"
	"github.com/alakob/confluence-downloader/pkg/markdown"
)

// ContentSource is the remote side of the pipeline. *confluence.Client
// satisfies it; tests inject fakes.
type ContentSource interface {
	ListPages(ctx context.Context, spaceKey string) ([]confluence.Page, error)
	GetPageBody(ctx context.Context, pageID string) (string, error)
	ListAttachments(ctx context.Context, pageID string) ([]confluence.Attachment, error)
	DownloadAttachment(ctx context.Context, pageID string, att confluence.Attachment) (io.ReadCloser, error)
}

var _ ContentSource = (*confluence.Client)(nil)

// PageResult is the outcome for a single page, reported in original
// listing order.
type PageResult struct {
	Page confluence.Page
	File string // written document path, empty on failure
	Err  error
}

// Summary aggregates one export run.
type Summary struct {
	SpaceDir string
	Results  []PageResult
	Exported int
	Failed   int
	Skipped  int // pages excluded by the title filter
}

// Exporter exports one space at a time. Construct with New; zero value
// is not usable.
type Exporter struct {
	source          ContentSource
	conv            *markdown.Converter
	logger          *slog.Logger
	outputDir       string
	workers         int
	match           string
	skipAttachments bool
}

// New builds an Exporter writing under outputDir.
func New(source ContentSource, outputDir string, opts ...Option) *Exporter {
	e := &Exporter{
		source:    source,
		conv:      markdown.New(markdown.DefaultOptions()),
		logger:    slog.Default(),
		outputDir: outputDir,
		workers:   1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run exports every page of the space. An empty space is a successful
// run with a zero summary, not an error. Cancelling ctx stops new pages
// from being scheduled; pages already in flight finish or abort without
// leaving partial documents behind.
func (e *Exporter) Run(ctx context.Context, spaceKey string) (*Summary, error) {
	if e.match != "" && !doublestar.ValidatePattern(e.match) {
		return nil, fmt.Errorf("invalid title pattern %q", e.match)
	}

	spaceDir := filepath.Join(e.outputDir, spaceKey)
	if err := os.MkdirAll(spaceDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	e.logger.Info("fetching pages", "space", spaceKey)
	pages, err := e.source.ListPages(ctx, spaceKey)
	if err != nil {
		return nil, err
	}

	summary := &Summary{SpaceDir: spaceDir}
	if e.match != "" {
		var kept []confluence.Page
		for _, p := range pages {
			if ok, _ := doublestar.Match(e.match, p.Title); ok {
				kept = append(kept, p)
			} else {
				summary.Skipped++
			}
		}
		pages = kept
	}

	if len(pages) == 0 {
		e.logger.Info("no pages found", "space", spaceKey)
		return summary, nil
	}
	e.logger.Info("starting download", "pages", len(pages), "workers", e.workers)

	titles := newTitleRegistry(e.logger)
	results := make([]PageResult, len(pages))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, p := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = PageResult{Page: p, Err: err}
				return nil
			}
			file, err := e.exportPage(ctx, spaceDir, p, titles)
			results[i] = PageResult{Page: p, File: file, Err: err}
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	summary.Results = results
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			e.logger.Error("page export failed", "page", r.Page.Title, "id", r.Page.ID, "err", r.Err)
			continue
		}
		summary.Exported++
	}
	e.logger.Info("export complete", "dir", spaceDir, "exported", summary.Exported, "failed", summary.Failed)
	return summary, nil
}

// exportPage runs the per-page unit: fetch body, materialize
// attachments, convert, prepend the title heading and write the
// document atomically.
func (e *Exporter) exportPage(ctx context.Context, spaceDir string, p confluence.Page, titles *titleRegistry) (string, error) {
	name := SanitizeTitle(p.Title)
	if name == "" {
		// a title of pure punctuation sanitizes away entirely
		name = p.ID
	}
	titles.note(name, p)

	body, err := e.source.GetPageBody(ctx, p.ID)
	if err != nil {
		return "", err
	}

	var manifest []markdown.ManifestEntry
	if !e.skipAttachments {
		manifest = e.materializeAttachments(ctx, p, spaceDir)
	}

	content, err := e.conv.Convert(body, manifest)
	if err != nil {
		return "", fmt.Errorf("failed to convert page %s: %w", p.ID, err)
	}
	doc := fmt.Sprintf("# %s\n\n%s", p.Title, content)

	file := filepath.Join(spaceDir, name+".md")
	if err := writeFileAtomic(file, []byte(doc), 0o644); err != nil {
		return "", err
	}
	e.logger.Debug("page exported", "page", p.Title, "file", file)
	return file, nil
}

// titleRegistry warns when two pages in one run sanitize to the same
// filename; the second silently overwrites the first.
type titleRegistry struct {
	mu     sync.Mutex
	seen   map[string]string // sanitized name -> first page ID
	logger *slog.Logger
}

func newTitleRegistry(logger *slog.Logger) *titleRegistry {
	return &titleRegistry{seen: make(map[string]string), logger: logger}
}

func (t *titleRegistry) note(name string, p confluence.Page) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.seen[name]; ok {
		t.logger.Warn("duplicate sanitized title, document will be overwritten",
			"name", name, "page", p.ID, "previous", prev)
		return
	}
	t.seen[name] = p.ID
}
