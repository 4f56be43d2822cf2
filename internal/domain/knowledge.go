package domain

import (
	"fmt"
	"time"
)

// ExpertiseArea tags a knowledge entry with the coaching domain it covers
type ExpertiseArea string

const (
	ExpertiseNutrition   ExpertiseArea = "nutrition"
	ExpertiseTraining    ExpertiseArea = "training"
	ExpertiseSupplements ExpertiseArea = "supplements"
	ExpertisePeptides    ExpertiseArea = "peptides"
	ExpertiseRecovery    ExpertiseArea = "recovery"
	ExpertiseMindset     ExpertiseArea = "mindset"
	ExpertiseGeneral     ExpertiseArea = "general"
)

// KnowledgePriority represents the priority level of a knowledge entry
type KnowledgePriority string

const (
	KnowledgePriorityLow    KnowledgePriority = "low"
	KnowledgePriorityMedium KnowledgePriority = "medium"
	KnowledgePriorityHigh   KnowledgePriority = "high"
)

// KnowledgeEntry represents a unit of coaching knowledge in the system.
// Entries are written by ingestion pipelines and read by search; once
// embedded they only change through administrative edits.
type KnowledgeEntry struct {
	ID            string
	CoachID       string
	Title         string
	Content       string
	ExpertiseArea ExpertiseArea
	Priority      KnowledgePriority
	Tags          []string
	SourceURL     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewKnowledgeEntry creates a new KnowledgeEntry instance
func NewKnowledgeEntry(
	id, coachID, title, content string,
	expertiseArea ExpertiseArea,
	priority KnowledgePriority,
	tags []string,
	sourceURL string,
	createdAt, updatedAt time.Time,
) *KnowledgeEntry {
	return &KnowledgeEntry{
		ID:            id,
		CoachID:       coachID,
		Title:         title,
		Content:       content,
		ExpertiseArea: expertiseArea,
		Priority:      priority,
		Tags:          tags,
		SourceURL:     sourceURL,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// ValidateKnowledgeEntry validates a KnowledgeEntry instance
func ValidateKnowledgeEntry(k *KnowledgeEntry) error {
	if k == nil {
		return fmt.Errorf("knowledge entry cannot be nil")
	}

	if k.ID == "" {
		return fmt.Errorf("knowledge entry ID is required")
	}

	if k.CoachID == "" {
		return fmt.Errorf("knowledge entry CoachID is required")
	}

	if k.Title == "" {
		return fmt.Errorf("knowledge entry Title is required")
	}

	if k.Content == "" {
		return fmt.Errorf("knowledge entry Content is required")
	}

	if !isValidExpertiseArea(k.ExpertiseArea) {
		return fmt.Errorf("knowledge entry ExpertiseArea is invalid: %s", k.ExpertiseArea)
	}

	if k.Priority != "" && !isValidKnowledgePriority(k.Priority) {
		return fmt.Errorf("knowledge entry Priority is invalid: %s", k.Priority)
	}

	return nil
}

// ParseExpertiseArea maps a raw string to a known ExpertiseArea, falling
// back to ExpertiseGeneral for anything unrecognized.
func ParseExpertiseArea(s string) ExpertiseArea {
	a := ExpertiseArea(s)
	if isValidExpertiseArea(a) {
		return a
	}
	return ExpertiseGeneral
}

// isValidExpertiseArea checks if an ExpertiseArea is valid
func isValidExpertiseArea(a ExpertiseArea) bool {
	switch a {
	case ExpertiseNutrition, ExpertiseTraining, ExpertiseSupplements,
		ExpertisePeptides, ExpertiseRecovery, ExpertiseMindset, ExpertiseGeneral:
		return true
	}
	return false
}

// isValidKnowledgePriority checks if a KnowledgePriority is valid
func isValidKnowledgePriority(p KnowledgePriority) bool {
	switch p {
	case KnowledgePriorityLow, KnowledgePriorityMedium, KnowledgePriorityHigh:
		return true
	}
	return false
}
