// Package reply normalizes RAGFlow agent responses into a uniform shape:
// display text, a de-duplicated list of document references, and a lookup
// of content chunks keyed by citation id.
package reply

// Reference is a whole source document associated with an assistant reply.
type Reference struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// Chunk is a retrieved passage of source text backing an inline citation
// marker of the form [ID:<chunk-id>].
type Chunk struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	DocumentID   string `json:"document_id,omitempty"`
	DocumentName string `json:"document_name,omitempty"`
}

// Reply is a normalized assistant reply.
type Reply struct {
	Content    string           `json:"content"`
	References []Reference      `json:"references,omitempty"`
	Chunks     map[string]Chunk `json:"chunks,omitempty"`
}
