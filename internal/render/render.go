// Package render converts normalized assistant replies into sanitized HTML
// fragments: Markdown conversion, inline citation chips, and a reference
// row for source documents.
package render

import (
	"bytes"
	"fmt"
	"html"
	"log"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"

	"github.com/nsing-labs/ragbridge/internal/reply"
)

var (
	scriptRE   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>|<script\b[^>]*/?>`)
	citationRE = regexp.MustCompile(`\[ID:(\d+)\]`)
)

// Renderer converts reply content to HTML fragments. The zero value is not
// usable; construct with New or NewPlain.
type Renderer struct {
	md goldmark.Markdown
}

// New returns a Renderer backed by a Markdown engine.
func New() *Renderer {
	return &Renderer{md: goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
			),
		),
	)}
}

// NewPlain returns a Renderer without a Markdown engine: content is
// HTML-escaped verbatim so no markup is lost to stripping and nothing
// executes as markup.
func NewPlain() *Renderer {
	return &Renderer{}
}

// Render produces an HTML fragment for the given reply: converted body
// text with citation chips, followed by a reference row when the reply
// carries document references. It never mutates its input.
func (r *Renderer) Render(rep reply.Reply) string {
	body := r.renderBody(rep.Content)
	body = stripScripts(body)
	body = expandCitations(body, rep.Chunks)
	if len(rep.References) > 0 {
		body += RenderReferences(rep.References)
	}
	return body
}

func (r *Renderer) renderBody(content string) string {
	if r.md == nil {
		return escapeText(content)
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		log.Printf("render: markdown conversion failed, escaping raw text: %v", err)
		return escapeText(content)
	}
	return buf.String()
}

// escapeText escapes the HTML special characters &, < and >.
func escapeText(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// stripScripts removes script elements left in converted Markdown. The
// Markdown output is otherwise trusted only as far as the engine
// sanitizes it.
func stripScripts(markup string) string {
	return scriptRE.ReplaceAllString(markup, "")
}

// expandCitations rewrites [ID:<digits>] markers left-to-right. The first
// occurrence of each id with a matching chunk becomes a chip carrying the
// chunk content as its tooltip; duplicate occurrences and ids without a
// chunk are removed outright so no dangling element remains.
func expandCitations(markup string, chunks map[string]reply.Chunk) string {
	if len(markup) == 0 {
		return markup
	}
	seen := make(map[string]bool)
	n := 0
	return citationRE.ReplaceAllStringFunc(markup, func(match string) string {
		id := citationRE.FindStringSubmatch(match)[1]
		if seen[id] {
			return ""
		}
		chunk, ok := chunks[id]
		if !ok {
			return ""
		}
		seen[id] = true
		n++
		return fmt.Sprintf(
			`<sup class="rb-citation" data-chunk-id="%s" title="%s">[%d]</sup>`,
			html.EscapeString(id), html.EscapeString(chunk.Content), n,
		)
	})
}

// RenderReferences renders the secondary row of document links. Each entry
// carries the document's display name as its accessible label and links
// out when a URL is known.
func RenderReferences(refs []reply.Reference) string {
	var b strings.Builder
	b.WriteString(`<div class="rb-references" role="list">`)
	for _, ref := range refs {
		name := html.EscapeString(ref.Name)
		b.WriteString(`<span role="listitem">`)
		if ref.URL != "" {
			fmt.Fprintf(&b, `<a class="rb-reference" href="%s" target="_blank" rel="noopener noreferrer" aria-label="%s">`,
				html.EscapeString(ref.URL), name)
		} else {
			fmt.Fprintf(&b, `<span class="rb-reference" aria-label="%s">`, name)
		}
		if ref.Thumbnail != "" {
			fmt.Fprintf(&b, `<img src="%s" alt="" loading="lazy">`, html.EscapeString(ref.Thumbnail))
		}
		b.WriteString(name)
		if ref.URL != "" {
			b.WriteString(`</a>`)
		} else {
			b.WriteString(`</span>`)
		}
		b.WriteString(`</span>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}
