package markdown

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// rewriteStorageNodes translates Confluence storage-format elements into
// plain HTML the markdown converter understands:
//
//   - ac:image over ri:attachment  -> <img> with a manifest-resolved src
//   - ac:image over ri:url         -> <img> with the external URL
//   - ac:link over ri:attachment   -> <a> pointing at the downloaded copy
//   - ac:structured-macro (code)   -> <pre><code class="language-...">
//
// The html parser lowercases tag and attribute names, so all matching
// here is lowercase. Matches are collected before mutation because
// replacement invalidates sibling pointers mid-walk.
func rewriteStorageNodes(doc *html.Node, manifest []ManifestEntry) {
	paths := make(map[string]string, len(manifest))
	for _, e := range manifest {
		paths[e.Filename] = e.Path
	}

	var images, links, codeMacros []*html.Node
	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.Data {
		case "ac:image":
			images = append(images, n)
		case "ac:link":
			links = append(links, n)
		case "ac:structured-macro":
			if attrVal(n, "ac:name") == "code" {
				codeMacros = append(codeMacros, n)
			}
		}
	})

	for _, n := range images {
		rewriteImage(n, paths)
	}
	for _, n := range links {
		rewriteAttachmentLink(n, paths)
	}
	for _, n := range codeMacros {
		rewriteCodeMacro(n)
	}
}

func rewriteImage(n *html.Node, paths map[string]string) {
	img := &html.Node{Type: html.ElementNode, Data: "img", DataAtom: atom.Img}

	if ref := findElement(n, "ri:attachment"); ref != nil {
		name := attrVal(ref, "ri:filename")
		src, ok := paths[name]
		if !ok {
			// not downloaded (failed or attachments disabled); keep the
			// display name so the reference stays visible
			src = name
		}
		img.Attr = []html.Attribute{{Key: "src", Val: src}, {Key: "alt", Val: name}}
	} else if ref := findElement(n, "ri:url"); ref != nil {
		img.Attr = []html.Attribute{{Key: "src", Val: attrVal(ref, "ri:value")}}
	} else {
		removeNode(n)
		return
	}
	replaceNode(n, img)
}

func rewriteAttachmentLink(n *html.Node, paths map[string]string) {
	ref := findElement(n, "ri:attachment")
	if ref == nil {
		// page or space link; leave it for the converter, which renders
		// the link body text
		return
	}
	name := attrVal(ref, "ri:filename")
	href, ok := paths[name]
	if !ok {
		href = name
	}

	text := ""
	if body := findElement(n, "ac:plain-text-link-body"); body != nil {
		text = textContent(body)
	} else if body := findElement(n, "ac:link-body"); body != nil {
		text = textContent(body)
	}
	if strings.TrimSpace(text) == "" {
		text = name
	}

	a := &html.Node{
		Type:     html.ElementNode,
		Data:     "a",
		DataAtom: atom.A,
		Attr:     []html.Attribute{{Key: "href", Val: href}},
	}
	a.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	replaceNode(n, a)
}

func rewriteCodeMacro(n *html.Node) {
	var lang string
	var body *html.Node
	walk(n, func(c *html.Node) {
		if c.Type != html.ElementNode {
			return
		}
		switch c.Data {
		case "ac:parameter":
			if attrVal(c, "ac:name") == "language" {
				lang = strings.TrimSpace(textContent(c))
			}
		case "ac:plain-text-body":
			body = c
		}
	})

	code := &html.Node{Type: html.ElementNode, Data: "code", DataAtom: atom.Code}
	if lang != "" {
		code.Attr = []html.Attribute{{Key: "class", Val: "language-" + lang}}
	}
	var text string
	if body != nil {
		text = textContent(body)
	}
	code.AppendChild(&html.Node{Type: html.TextNode, Data: text})

	pre := &html.Node{Type: html.ElementNode, Data: "pre", DataAtom: atom.Pre}
	pre.AppendChild(code)
	replaceNode(n, pre)
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func attrVal(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent gathers the subtree's text. CDATA sections survive HTML
// parsing as comment nodes that keep the [CDATA[ ... ]] delimiters, so
// those are unwrapped too; storage format wraps code bodies in CDATA.
func textContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
		case html.CommentNode:
			if s, ok := strings.CutPrefix(c.Data, "[CDATA["); ok {
				sb.WriteString(strings.TrimSuffix(s, "]]"))
			}
		}
	})
	return sb.String()
}

func replaceNode(old, repl *html.Node) {
	if old.Parent == nil {
		return
	}
	old.Parent.InsertBefore(repl, old)
	old.Parent.RemoveChild(old)
}

func removeNode(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
