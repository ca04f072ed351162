package export

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/alakob/confluence-downloader/pkg/confluence"
	"github.com/alakob/confluence-downloader/pkg/markdown"
)

// materializeAttachments downloads every attachment of a page into
// attachments/<pageID>/ under the space directory and returns the
// manifest of successful downloads in listing order. A failed listing,
// directory creation or single download is logged and absorbed; the
// page itself is still exported with whatever manifest was built.
//
// Attachments are namespaced per page ID so same-named attachments on
// different pages never clobber each other. Within one page a duplicate
// display name still wins last, which mirrors the remote UI.
func (e *Exporter) materializeAttachments(ctx context.Context, p confluence.Page, spaceDir string) []markdown.ManifestEntry {
	attachments, err := e.source.ListAttachments(ctx, p.ID)
	if err != nil {
		e.logger.Error("failed to list attachments", "page", p.Title, "id", p.ID, "err", err)
		return nil
	}
	if len(attachments) == 0 {
		return nil
	}

	dir := filepath.Join(spaceDir, "attachments", p.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		e.logger.Error("failed to create attachments directory", "page", p.Title, "dir", dir, "err", err)
		return nil
	}

	var manifest []markdown.ManifestEntry
	for _, att := range attachments {
		filename := filepath.Base(att.Title) // strip any path components the display name smuggles in
		if err := e.downloadAttachment(ctx, p.ID, att, filepath.Join(dir, filename)); err != nil {
			e.logger.Error("failed to download attachment",
				"page", p.Title, "attachment", att.Title, "err", err)
			continue
		}
		manifest = append(manifest, markdown.ManifestEntry{
			Filename: att.Title,
			Path:     path.Join("attachments", p.ID, filename),
		})
		e.logger.Debug("attachment downloaded", "page", p.Title, "attachment", att.Title)
	}
	return manifest
}

func (e *Exporter) downloadAttachment(ctx context.Context, pageID string, att confluence.Attachment, target string) error {
	rc, err := e.source.DownloadAttachment(ctx, pageID, att)
	if err != nil {
		return err
	}
	defer rc.Close()
	return copyFileAtomic(target, rc, 0o644)
}
