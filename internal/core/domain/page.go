package domain

// Metadata keys written onto chunks by the preparer.
const (
	MetaSource       = "source"
	MetaSourceType   = "sourceType"
	MetaTitle        = "title"
	MetaDocumentName = "documentName"
	MetaContent      = "content"
	MetaLoc          = "loc"
	MetaHash         = "hash"
	MetaDescription  = "description"
)

// Page is the normalised result of parsing one resource.
// Content is always text by the time a Page exists.
type Page struct {
	// Source is the URL or file location the page came from.
	Source string `json:"source"`

	// SourceType is the parser family that produced the page.
	SourceType SourceType `json:"sourceType"`

	// Title is the human-readable title.
	Title string `json:"title"`

	// Content is plain or markdown text.
	Content string `json:"content"`

	// Description is an optional summary (meta description, front matter).
	Description string `json:"description,omitempty"`

	// Metadata contains parser-specific key-value pairs.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Chunk is a bounded slice of a page's text ready for embedding.
type Chunk struct {
	// PageContent is the text of this chunk.
	PageContent string `json:"pageContent"`

	// Metadata carries source, title, loc, hash and pass-through page metadata.
	Metadata map[string]any `json:"metadata"`
}

// Hash returns the chunk's hash metadata, or empty if none was attached.
func (c Chunk) Hash() string {
	h, _ := c.Metadata[MetaHash].(string)
	return h
}

// VectorRecord is an embedded chunk as written to a vector index.
// Metadata is flat: nested values are JSON strings.
type VectorRecord struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryRequest is a nearest-neighbour lookup against a namespace.
type QueryRequest struct {
	// Vector is the query embedding.
	Vector []float32

	// TopK is the number of matches wanted.
	TopK int

	// Filter restricts matches to records whose metadata equals every pair.
	Filter map[string]any

	// IncludeMetadata asks the index to return record metadata.
	IncludeMetadata bool
}

// QueryMatch is one nearest-neighbour result.
type QueryMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Link is an anchor discovered in an HTML page.
type Link struct {
	// URL is absolute, resolved against the page URL.
	URL string

	// Text is the anchor text.
	Text string
}
