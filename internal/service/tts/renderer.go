// Package tts defines the interface for speech synthesis providers.
package tts

import (
	"context"

	"ai-script-editor-service/internal/models"
)

// Segment is one synthesis request: a markup document spoken by one voice.
type Segment struct {
	VoiceID  string
	Markup   string
	Language string
}

// VoiceQuery pages through a provider's voice catalogue.
type VoiceQuery struct {
	PageToken string
	PageSize  int
	Language  string
}

// VoicePage is one page of the voice catalogue.
type VoicePage struct {
	Voices        []models.Voice `json:"voices"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
	HasMore       bool           `json:"hasMore"`
}

// Renderer defines the interface for TTS providers (ElevenLabs, Google, etc.).
type Renderer interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Render synthesizes a segment and returns the encoded audio.
	Render(ctx context.Context, seg Segment) ([]byte, error)

	// Voices lists available voices.
	Voices(ctx context.Context, q VoiceQuery) (VoicePage, error)

	// Close releases provider resources.
	Close() error
}
