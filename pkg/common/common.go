package common

// Labels and relation types shared by every graph store backend.
const (
	// EntityLabel is the base label attached to every extracted entity node.
	// The full-text index named EntityIndexName covers its id property.
	EntityLabel = "__Entity__"
	// DocumentLabel marks provenance nodes created for each ingested chunk.
	DocumentLabel = "Document"
	// MentionsRelation links a Document node to the entities extracted from it.
	// It is provenance only and is never traversed when answering questions.
	MentionsRelation = "MENTIONS"
	// EntityIndexName is the name of the full-text index on entity ids.
	EntityIndexName = "entity"
	// CustomInputSource is the source identifier used for literal text input.
	CustomInputSource = "custom_input"
)

// Node is a node of a graph document. For entities ID is the entity name and
// Type its extracted category (Person, Organization, ...).
type Node struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Relationship is a directed, typed edge between two nodes.
type Relationship struct {
	Source Node   `json:"source"`
	Target Node   `json:"target"`
	Type   string `json:"type"`
}

// Chunk is a contiguous span of a source document. Chunks are immutable once
// created and removed together with their source.
type Chunk struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Index  int    `json:"index"`
	Text   string `json:"text"`
}

// GraphDocument bundles the nodes and relationships extracted from one chunk.
// Source is kept so that the commit can link every entity back to a Document
// node carrying the chunk text and its source identifier.
type GraphDocument struct {
	Nodes         []Node         `json:"nodes"`
	Relationships []Relationship `json:"relationships"`
	Source        Chunk          `json:"source"`
}

// ChatTurn is one exchange of the conversation history.
type ChatTurn struct {
	Human     string `json:"human"`
	Assistant string `json:"assistant"`
}

// SearchResult is one hit of a vector index lookup.
type SearchResult struct {
	Text   string  `json:"text"`
	Score  float64 `json:"score"`
	Source string  `json:"source,omitempty"`
}

// RetrievalContext is the request scoped outcome of hybrid retrieval.
// Question is always the question the caller asked; Condensed is the
// standalone rewrite used for retrieval.
type RetrievalContext struct {
	Context   string `json:"context"`
	Question  string `json:"question"`
	Condensed string `json:"condensed,omitempty"`
}
