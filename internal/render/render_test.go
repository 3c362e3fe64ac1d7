package render

import (
	"strings"
	"testing"

	"github.com/nsing-labs/ragbridge/internal/reply"
)

func TestPlainRendererEscapesMarkup(t *testing.T) {
	r := NewPlain()
	got := r.Render(reply.Reply{Content: "<b>x</b>"})
	if got != "&lt;b&gt;x&lt;/b&gt;" {
		t.Errorf("got %q, want literal escaped text", got)
	}
}

func TestPlainRendererEscapesAmpersand(t *testing.T) {
	r := NewPlain()
	got := r.Render(reply.Reply{Content: "a&b"})
	if got != "a&amp;b" {
		t.Errorf("got %q", got)
	}
}

func TestMarkdownRendering(t *testing.T) {
	r := New()
	got := r.Render(reply.Reply{Content: "**bold** and `code`"})
	if !strings.Contains(got, "<strong>bold</strong>") {
		t.Errorf("bold not converted: %q", got)
	}
	if !strings.Contains(got, "<code>code</code>") {
		t.Errorf("code not converted: %q", got)
	}
}

func TestScriptStripping(t *testing.T) {
	tests := []string{
		`before <script>alert(1)</script> after`,
		`before <script src="x.js"></script> after`,
		`before <SCRIPT>alert(1)</SCRIPT> after`,
	}
	for _, in := range tests {
		got := stripScripts(in)
		if strings.Contains(strings.ToLower(got), "<script") {
			t.Errorf("script survived in %q -> %q", in, got)
		}
		if !strings.Contains(got, "before") || !strings.Contains(got, "after") {
			t.Errorf("surrounding text lost: %q", got)
		}
	}
}

func TestCitationExpansion(t *testing.T) {
	chunks := map[string]reply.Chunk{
		"7": {ID: "7", Content: "A"},
		"9": {ID: "9", Content: "B"},
	}
	got := expandCitations("See [ID:7] and [ID:7] and [ID:9]", chunks)

	if n := strings.Count(got, "rb-citation"); n != 2 {
		t.Fatalf("expected exactly 2 chips, got %d in %q", n, got)
	}
	seven := strings.Index(got, `data-chunk-id="7"`)
	nine := strings.Index(got, `data-chunk-id="9"`)
	if seven < 0 || nine < 0 || seven > nine {
		t.Errorf("chips missing or out of order: %q", got)
	}
	if !strings.Contains(got, `title="A"`) || !strings.Contains(got, `title="B"`) {
		t.Errorf("tooltips missing: %q", got)
	}
}

func TestCitationWithoutChunkIgnored(t *testing.T) {
	got := expandCitations("See [ID:42]", map[string]reply.Chunk{})
	if strings.Contains(got, "rb-citation") {
		t.Errorf("dangling chip rendered: %q", got)
	}
	if strings.Contains(got, "[ID:42]") {
		t.Errorf("unmatched marker left in output: %q", got)
	}
}

func TestCitationTooltipEscaped(t *testing.T) {
	chunks := map[string]reply.Chunk{"1": {ID: "1", Content: `quote " and <tag>`}}
	got := expandCitations("x [ID:1]", chunks)
	if strings.Contains(got, `<tag>`) {
		t.Errorf("tooltip not escaped: %q", got)
	}
}

func TestRenderReferences(t *testing.T) {
	refs := []reply.Reference{
		{ID: "d1", Name: "Datasheet", URL: "https://example.com/d1", Thumbnail: "https://example.com/t.png"},
		{ID: "d2", Name: "Errata"},
	}
	got := RenderReferences(refs)
	if !strings.Contains(got, `aria-label="Datasheet"`) {
		t.Errorf("accessible label missing: %q", got)
	}
	if !strings.Contains(got, `href="https://example.com/d1"`) {
		t.Errorf("link missing: %q", got)
	}
	if !strings.Contains(got, `<img src="https://example.com/t.png"`) {
		t.Errorf("thumbnail missing: %q", got)
	}
	// Second reference has no URL: rendered as a plain labelled span.
	if strings.Count(got, "<a ") != 1 {
		t.Errorf("expected exactly one anchor: %q", got)
	}
	if !strings.Contains(got, `aria-label="Errata"`) {
		t.Errorf("second label missing: %q", got)
	}
}

func TestRenderAppendsReferenceRow(t *testing.T) {
	r := NewPlain()
	got := r.Render(reply.Reply{
		Content:    "hello",
		References: []reply.Reference{{ID: "d1", Name: "Doc"}},
	})
	if !strings.Contains(got, "rb-references") {
		t.Errorf("reference row missing: %q", got)
	}
}

func TestFootnotes(t *testing.T) {
	chunks := map[string]reply.Chunk{
		"7": {ID: "7", Content: "A", DocumentName: "alpha.pdf"},
		"9": {ID: "9", Content: "B"},
	}
	text, notes := Footnotes("See [ID:7] and [ID:7] and [ID:9] and [ID:5]", chunks)
	if text != "See [1] and  and [2] and " {
		t.Errorf("got %q", text)
	}
	if len(notes) != 2 || notes[0].ID != "7" || notes[1].ID != "9" {
		t.Errorf("notes wrong: %+v", notes)
	}
}
