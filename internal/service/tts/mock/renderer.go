// Package mock provides a deterministic TTS renderer for tests and local runs
// without provider credentials.
package mock

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/tts"
)

// DefaultVoices is the catalogue served by the mock.
var DefaultVoices = []models.Voice{
	{VoiceID: "mock-rachel", Name: "Rachel", Category: "premade", Languages: []string{"en-US"}, Labels: map[string]string{"accent": "american", "gender": "female"}},
	{VoiceID: "mock-adam", Name: "Adam", Category: "premade", Languages: []string{"en-US"}, Labels: map[string]string{"accent": "american", "gender": "male"}},
	{VoiceID: "mock-charlotte", Name: "Charlotte", Category: "premade", Languages: []string{"en-GB", "sv-SE"}, Labels: map[string]string{"accent": "british", "gender": "female"}},
	{VoiceID: "mock-antoni", Name: "Antoni", Category: "cloned", Languages: []string{"es-ES"}, Labels: map[string]string{"gender": "male"}},
}

// ErrNoVoice is returned when a segment has no voice id.
var ErrNoVoice = errors.New("mock tts: voice id required")

// Renderer implements tts.Renderer. Audio is a fake header followed by a
// digest of voice and markup, so identical segments yield identical bytes.
type Renderer struct {
	// Delay simulates provider latency.
	Delay time.Duration
	// Err, when set, is returned by every Render call.
	Err error
	// AllowEmptyVoice accepts segments without a voice id.
	AllowEmptyVoice bool

	calls atomic.Int64
	mu    sync.Mutex
	segs  []tts.Segment
}

// New creates a mock renderer.
func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Name() string { return "mock" }

// Render records the segment and returns fake audio.
func (r *Renderer) Render(ctx context.Context, seg tts.Segment) ([]byte, error) {
	r.calls.Add(1)
	r.mu.Lock()
	r.segs = append(r.segs, seg)
	r.mu.Unlock()

	if r.Delay > 0 {
		t := time.NewTimer(r.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}
	if r.Err != nil {
		return nil, r.Err
	}
	if seg.VoiceID == "" && !r.AllowEmptyVoice {
		return nil, ErrNoVoice
	}

	sum := sha256.Sum256([]byte(seg.VoiceID + "\x00" + seg.Markup))
	out := append([]byte("MOCKAUDIO:"), sum[:8]...)
	return out, nil
}

// Voices returns DefaultVoices, filtered by language and paged by PageSize.
func (r *Renderer) Voices(ctx context.Context, q tts.VoiceQuery) (tts.VoicePage, error) {
	var all []models.Voice
	for _, v := range DefaultVoices {
		if q.Language == "" || hasLanguage(v, q.Language) {
			all = append(all, v)
		}
	}

	start := 0
	if q.PageToken != "" {
		for i, v := range all {
			if v.VoiceID == q.PageToken {
				start = i
				break
			}
		}
	}
	end := len(all)
	if q.PageSize > 0 && start+q.PageSize < end {
		end = start + q.PageSize
	}

	page := tts.VoicePage{Voices: all[start:end]}
	if end < len(all) {
		page.HasMore = true
		page.NextPageToken = all[end].VoiceID
	}
	return page, nil
}

func (r *Renderer) Close() error { return nil }

// Calls returns the number of Render calls.
func (r *Renderer) Calls() int64 { return r.calls.Load() }

// Segments returns every segment passed to Render.
func (r *Renderer) Segments() []tts.Segment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]tts.Segment(nil), r.segs...)
}

func hasLanguage(v models.Voice, lang string) bool {
	for _, l := range v.Languages {
		if l == lang {
			return true
		}
	}
	return false
}
