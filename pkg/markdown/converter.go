// Package markdown converts Confluence storage-format bodies into
// markdown. Conversion is pure: no network, no filesystem, byte-identical
// output for identical input.
package markdown

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// ManifestEntry maps an attachment's display name to the path of its
// downloaded copy, relative to the exported document. The converter uses
// it to rewrite attachment references and to build the trailing
// attachment index.
type ManifestEntry struct {
	Filename string
	Path     string
}

// Options is the converter's immutable configuration, fixed at
// construction. Line wrapping is never applied and unicode passes
// through verbatim regardless of these flags.
type Options struct {
	// ConvertImages renders embedded images as markdown image links.
	// When false, images collapse to their alt text.
	ConvertImages bool
	// ConvertTables renders tables as pipe-delimited markdown tables.
	// When false, table contents degrade to plain text.
	ConvertTables bool
}

// DefaultOptions matches the export pipeline's defaults: images and
// tables both converted.
func DefaultOptions() Options {
	return Options{ConvertImages: true, ConvertTables: true}
}

// Converter turns one page's storage-format body into markdown. Safe for
// concurrent use.
type Converter struct {
	opts Options
	conv *converter.Converter
}

// New builds a Converter with the given options.
func New(opts Options) *Converter {
	plugins := []converter.Plugin{
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	}
	if opts.ConvertTables {
		plugins = append(plugins, table.NewTablePlugin())
	}

	conv := converter.NewConverter(converter.WithPlugins(plugins...))
	if !opts.ConvertImages {
		conv.Register.RendererFor("img", converter.TagTypeInline, renderImageAsAlt, converter.PriorityEarly)
	}
	return &Converter{opts: opts, conv: conv}
}

// renderImageAsAlt replaces an image with its alt text.
func renderImageAsAlt(ctx converter.Context, w converter.Writer, n *html.Node) converter.RenderStatus {
	for _, a := range n.Attr {
		if a.Key == "alt" {
			w.WriteString(a.Val)
			break
		}
	}
	return converter.RenderSuccess
}

// Convert translates a storage-format body into markdown. Attachment
// references (ac:image, ac:link) are rewritten against the manifest
// before conversion, and a trailing "## Attachments" section listing
// every manifest entry, in order, is appended when the manifest is
// non-empty.
func (c *Converter) Convert(body string, manifest []ManifestEntry) (string, error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse storage body: %w", err)
	}
	rewriteStorageNodes(doc, manifest)

	md, err := c.conv.ConvertNode(doc)
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(string(md), "\n"))
	sb.WriteString("\n")

	if len(manifest) > 0 {
		sb.WriteString("\n## Attachments\n\n")
		for _, e := range manifest {
			fmt.Fprintf(&sb, "- [%s](%s)\n", e.Filename, e.Path)
		}
	}
	return sb.String(), nil
}
