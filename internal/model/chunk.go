package model

// Chunk is a fixed-width window of a source document, the unit of
// retrieval. Chunks are created once by the offline index builder and
// never mutated; chunk i is aligned with vector i in the knowledge index.
type Chunk struct {
	Text        string `json:"text"`
	SourceDocID string `json:"source_doc_id"`
	Offset      int    `json:"offset"`
}
