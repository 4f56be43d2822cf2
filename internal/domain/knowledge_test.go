package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpertiseAreaConstants(t *testing.T) {
	tests := []struct {
		name     string
		area     ExpertiseArea
		expected string
	}{
		{"Nutrition", ExpertiseNutrition, "nutrition"},
		{"Training", ExpertiseTraining, "training"},
		{"Supplements", ExpertiseSupplements, "supplements"},
		{"Peptides", ExpertisePeptides, "peptides"},
		{"Recovery", ExpertiseRecovery, "recovery"},
		{"Mindset", ExpertiseMindset, "mindset"},
		{"General", ExpertiseGeneral, "general"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.area))
		})
	}
}

func TestNewKnowledgeEntry(t *testing.T) {
	now := time.Now()
	entry := NewKnowledgeEntry(
		"k1",
		"coach1",
		"Protein timing",
		"Protein distribution across meals matters more than exact timing.",
		ExpertiseNutrition,
		KnowledgePriorityHigh,
		[]string{"protein", "meals"},
		"https://example.com/protein",
		now,
		now,
	)

	require.NotNil(t, entry)
	assert.Equal(t, "k1", entry.ID)
	assert.Equal(t, "coach1", entry.CoachID)
	assert.Equal(t, ExpertiseNutrition, entry.ExpertiseArea)
	assert.Equal(t, KnowledgePriorityHigh, entry.Priority)
	assert.Equal(t, []string{"protein", "meals"}, entry.Tags)
}

func TestValidateKnowledgeEntry(t *testing.T) {
	now := time.Now()
	valid := func() *KnowledgeEntry {
		return NewKnowledgeEntry("k1", "coach1", "Title", "Content", ExpertiseTraining, KnowledgePriorityMedium, nil, "", now, now)
	}

	tests := []struct {
		name    string
		mutate  func(*KnowledgeEntry)
		wantErr string
	}{
		{"valid entry", func(k *KnowledgeEntry) {}, ""},
		{"empty priority allowed", func(k *KnowledgeEntry) { k.Priority = "" }, ""},
		{"missing ID", func(k *KnowledgeEntry) { k.ID = "" }, "ID is required"},
		{"missing CoachID", func(k *KnowledgeEntry) { k.CoachID = "" }, "CoachID is required"},
		{"missing Title", func(k *KnowledgeEntry) { k.Title = "" }, "Title is required"},
		{"missing Content", func(k *KnowledgeEntry) { k.Content = "" }, "Content is required"},
		{"invalid area", func(k *KnowledgeEntry) { k.ExpertiseArea = "astrology" }, "ExpertiseArea is invalid"},
		{"invalid priority", func(k *KnowledgeEntry) { k.Priority = "urgent" }, "Priority is invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := valid()
			tt.mutate(entry)
			err := ValidateKnowledgeEntry(entry)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateKnowledgeEntry_Nil(t *testing.T) {
	err := ValidateKnowledgeEntry(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")
}
