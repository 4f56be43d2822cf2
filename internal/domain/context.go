package domain

import "time"

// Persona describes the coach identity used to steer generation.
type Persona struct {
	CoachID       string
	DisplayName   string
	SystemPrompt  string
	ExpertiseArea ExpertiseArea
}

// FallbackPersona is substituted when the persona loader fails or finds
// nothing, so a chat turn never proceeds without a persona.
func FallbackPersona() *Persona {
	return &Persona{
		CoachID:       "default",
		DisplayName:   "Coach",
		SystemPrompt:  "You are a knowledgeable, supportive fitness and nutrition coach.",
		ExpertiseArea: ExpertiseGeneral,
	}
}

// MemorySnapshot is the long-term memory summary for a user.
type MemorySnapshot struct {
	UserID    string
	Summary   string
	UpdatedAt time.Time
}

// DailySummary captures the user's metrics for a single day.
type DailySummary struct {
	UserID   string
	Date     time.Time
	Calories int
	ProteinG int
	Workouts int
	Notes    string
}

// ContextChunk is a ranked knowledge slice selected for the context bundle.
type ContextChunk struct {
	SourceID       string
	Title          string
	Content        string
	ExpertiseArea  ExpertiseArea
	RelevanceScore float64
}

// ContextBundle is the ephemeral per-request assembly handed to a downstream
// generation call. It is created fresh per user turn and never persisted.
type ContextBundle struct {
	TraceID             string
	Persona             *Persona
	Memory              *MemorySnapshot
	DailySummary        *DailySummary
	ConversationSummary string
	KnowledgeChunks     []ContextChunk
	TokensUsed          int
}
