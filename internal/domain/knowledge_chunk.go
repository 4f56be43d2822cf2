package domain

import "time"

// KnowledgeChunk represents a bounded-length slice of a knowledge entry's
// content with its embedding vector. Chunk indexes for an entry are
// contiguous starting at 0; the concatenation of chunks approximates the
// original content.
type KnowledgeChunk struct {
	ID            string
	KnowledgeID   string
	CoachID       string
	ExpertiseArea ExpertiseArea
	Title         string
	ChunkIndex    int
	Content       string
	Embedding     []float32
	CreatedAt     time.Time
}
