package models

import "time"

// Script is a persisted script document.
type Script struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Blocks    []Block    `json:"blocks"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// ScriptUpdate is a partial update of a script. Nil fields are untouched.
type ScriptUpdate struct {
	Title  *string `json:"title,omitempty"`
	Blocks []Block `json:"blocks,omitempty"`
}

// Severity ranks a fact-check correction.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank orders severities; unknown values rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Correction is a fact-check suggestion replacing the full text of a block.
type Correction struct {
	BlockID        string   `json:"blockId"`
	Justification  string   `json:"justification"`
	UpdatedContent string   `json:"updatedContent"`
	Severity       Severity `json:"severity"`
}

// Voice is an entry of the synthesis provider's voice catalogue.
type Voice struct {
	VoiceID     string            `json:"voiceId"`
	Name        string            `json:"name"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	PreviewURL  string            `json:"previewUrl,omitempty"`
	Languages   []string          `json:"languages,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// GeneratedSection is one named group of an AI-generated script.
type GeneratedSection struct {
	Key   string   `json:"key"`
	Name  string   `json:"name"`
	Texts []string `json:"texts"`
}
