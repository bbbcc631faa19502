package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// KnowledgeCategory classifies knowledge base entries
type KnowledgeCategory string

const (
	// CategoryBasicKnowledge marks disease background Q&A entries
	CategoryBasicKnowledge KnowledgeCategory = "basic-knowledge"

	// CategoryCaseStudy marks real clinical case entries
	CategoryCaseStudy KnowledgeCategory = "case-study"
)

// IsValid checks category membership
func (c KnowledgeCategory) IsValid() bool {
	return c == CategoryBasicKnowledge || c == CategoryCaseStudy
}

// KnowledgeEntry represents one Q&A pair of the medical knowledge base.
// Question and Answer are immutable once set; Embedding is populated lazily
// after creation and is nil until computed.
type KnowledgeEntry struct {
	ID        int64             `json:"id" db:"id"`
	Question  string            `json:"question" db:"question"`
	Answer    string            `json:"answer" db:"answer"`
	Category  KnowledgeCategory `json:"category" db:"category"`
	Embedding []float64         `json:"-" db:"-"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the KnowledgeEntry model
func (KnowledgeEntry) TableName() string {
	return "knowledge_base"
}

// HasEmbedding reports whether an embedding has been computed for this entry
func (e *KnowledgeEntry) HasEmbedding() bool {
	return len(e.Embedding) > 0
}

// DecodeEmbedding parses the JSON array stored in the vector column.
// An empty string yields a nil embedding, not an error.
func DecodeEmbedding(raw string) ([]float64, error) {
	if raw == "" {
		return nil, nil
	}
	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, fmt.Errorf("failed to decode embedding: %w", err)
	}
	return vec, nil
}

// EncodeEmbedding serializes an embedding for the vector column
func EncodeEmbedding(vec []float64) (string, error) {
	raw, err := json.Marshal(vec)
	if err != nil {
		return "", fmt.Errorf("failed to encode embedding: %w", err)
	}
	return string(raw), nil
}
