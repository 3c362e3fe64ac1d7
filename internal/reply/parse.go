package reply

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Fallback is shown when a reply carries no usable content.
const Fallback = "I'm sorry, I couldn't find any information for that request."

const defaultReferenceName = "Reference document"

// flexContent accepts either a plain string or an array of typed parts
// ({"text": ...}); parts are concatenated with newline separators.
// Any other shape decodes to the empty string rather than failing.
type flexContent string

func (c *flexContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = flexContent(s)
		return nil
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &parts); err == nil {
		texts := make([]string, 0, len(parts))
		for _, p := range parts {
			texts = append(texts, p.Text)
		}
		*c = flexContent(strings.Join(texts, "\n"))
		return nil
	}
	*c = ""
	return nil
}

type rawReply struct {
	Choices    []rawChoice         `json:"choices"`
	Content    flexContent         `json:"content"`
	References []rawReference      `json:"references"`
	Chunks     map[string]rawChunk `json:"chunks"`
}

type rawChoice struct {
	Message *rawMessage `json:"message"`
	Delta   *rawMessage `json:"delta"`
}

type rawMessage struct {
	Content   flexContent   `json:"content"`
	Reference *rawAggregate `json:"reference"`
}

// rawAggregate is the per-choice retrieval payload attached by RAGFlow
// agents: document aggregates plus the chunks they were assembled from.
type rawAggregate struct {
	DocAggs docAggList          `json:"doc_aggs"`
	Chunks  map[string]rawChunk `json:"chunks"`
}

type rawReference struct {
	ID         string `json:"id"`
	DocID      string `json:"doc_id"`
	DocIDAlt   string `json:"docId"`
	Name       string `json:"name"`
	Title      string `json:"title"`
	DocName    string `json:"doc_name"`
	DocNameAlt string `json:"docName"`
	URL        string `json:"url"`
	Href       string `json:"href"`
	Thumbnail  string `json:"thumbnail"`
	Image      string `json:"image"`
}

type rawChunk struct {
	Content      string `json:"content"`
	Text         string `json:"text"`
	ChunkContent string `json:"chunk_content"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	ImageID      string `json:"image_id"`
}

type docAgg struct {
	DocID   string `json:"doc_id"`
	DocName string `json:"doc_name"`
}

// docAggList accepts doc_aggs as either a JSON array or a JSON object,
// preserving first-seen order in both cases.
type docAggList []docAgg

func (l *docAggList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var items []docAgg
		if err := json.Unmarshal(trimmed, &items); err == nil {
			*l = items
		}
	case '{':
		// Walk tokens so object entries keep their wire order; a plain
		// map would shuffle them.
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := dec.Token(); err != nil {
			return nil
		}
		var items []docAgg
		for dec.More() {
			if _, err := dec.Token(); err != nil {
				break
			}
			var item docAgg
			if err := dec.Decode(&item); err != nil {
				break
			}
			items = append(items, item)
		}
		*l = items
	}
	return nil
}

// Parse normalizes a raw agent response payload. It is total: malformed or
// unusable input degrades to the fixed fallback string, never an error.
// baseURL, when set, is used to build document and thumbnail links for
// references derived from per-choice document aggregates.
func Parse(payload []byte, baseURL string) Reply {
	var raw rawReply
	_ = json.Unmarshal(payload, &raw)

	content := extractContent(raw)
	if strings.TrimSpace(content) == "" {
		content = Fallback
	}

	references, chunks := extractReferences(raw, strings.TrimRight(baseURL, "/"))
	return Reply{Content: content, References: references, Chunks: chunks}
}

// extractContent picks reply text in priority order: the first choice's
// message content, its streaming delta content, then the top-level field.
func extractContent(raw rawReply) string {
	if len(raw.Choices) > 0 {
		first := raw.Choices[0]
		if first.Message != nil && string(first.Message.Content) != "" {
			return string(first.Message.Content)
		}
		if first.Delta != nil && string(first.Delta.Content) != "" {
			return string(first.Delta.Content)
		}
	}
	return string(raw.Content)
}

func extractReferences(raw rawReply, baseURL string) ([]Reference, map[string]Chunk) {
	chunks := make(map[string]Chunk)
	for id, c := range raw.Chunks {
		chunks[id] = normalizeChunk(id, c)
	}

	// An explicit top-level references array wins over derivation.
	if len(raw.References) > 0 {
		refs := dedupeReferences(sanitizeReferences(raw.References))
		if len(chunks) == 0 {
			chunks = choiceChunks(raw)
		}
		return refs, chunks
	}

	refs := make([]Reference, 0)
	seen := make(map[string]bool)
	for _, choice := range raw.Choices {
		if choice.Message == nil || choice.Message.Reference == nil {
			continue
		}
		agg := choice.Message.Reference

		// Chunk-derived per-document metadata fills gaps in doc_aggs.
		docNames := make(map[string]string)
		docImages := make(map[string]string)
		for id, c := range agg.Chunks {
			chunk := normalizeChunk(id, c)
			if _, ok := chunks[id]; !ok {
				chunks[id] = chunk
			}
			if chunk.DocumentID == "" {
				continue
			}
			if chunk.DocumentName != "" && docNames[chunk.DocumentID] == "" {
				docNames[chunk.DocumentID] = chunk.DocumentName
			}
			if c.ImageID != "" && docImages[chunk.DocumentID] == "" {
				docImages[chunk.DocumentID] = c.ImageID
			}
		}

		for _, doc := range agg.DocAggs {
			if doc.DocID == "" || seen[doc.DocID] {
				continue
			}
			seen[doc.DocID] = true
			name := doc.DocName
			if name == "" {
				name = docNames[doc.DocID]
			}
			if name == "" {
				name = defaultReferenceName
			}
			refs = append(refs, Reference{
				ID:        doc.DocID,
				Name:      name,
				URL:       DocumentURL(baseURL, doc.DocID, name),
				Thumbnail: ThumbnailURL(baseURL, docImages[doc.DocID], doc.DocID),
			})
		}
	}
	return refs, chunks
}

func choiceChunks(raw rawReply) map[string]Chunk {
	chunks := make(map[string]Chunk)
	for _, choice := range raw.Choices {
		if choice.Message == nil || choice.Message.Reference == nil {
			continue
		}
		for id, c := range choice.Message.Reference.Chunks {
			if _, ok := chunks[id]; !ok {
				chunks[id] = normalizeChunk(id, c)
			}
		}
	}
	return chunks
}

func normalizeChunk(id string, c rawChunk) Chunk {
	content := c.Content
	if content == "" {
		content = c.Text
	}
	if content == "" {
		content = c.ChunkContent
	}
	return Chunk{
		ID:           id,
		Content:      content,
		DocumentID:   c.DocumentID,
		DocumentName: c.DocumentName,
	}
}

func sanitizeReferences(items []rawReference) []Reference {
	refs := make([]Reference, 0, len(items))
	for _, r := range items {
		name := firstNonEmpty(r.Name, r.Title, r.DocName, r.DocNameAlt, defaultReferenceName)
		id := firstNonEmpty(r.ID, r.DocID, r.DocIDAlt, name)
		refs = append(refs, Reference{
			ID:        id,
			Name:      name,
			URL:       firstNonEmpty(r.URL, r.Href),
			Thumbnail: firstNonEmpty(r.Thumbnail, r.Image),
		})
	}
	return refs
}

// dedupeReferences drops later entries sharing an identity key with an
// earlier one. The key is the id, falling back to the display name.
func dedupeReferences(items []Reference) []Reference {
	seen := make(map[string]bool, len(items))
	out := items[:0]
	for _, item := range items {
		key := item.ID
		if key == "" {
			key = item.Name
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
