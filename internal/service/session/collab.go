package session

import (
	"context"
	"errors"
	"time"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/observability/logging"
	"ai-script-editor-service/internal/service/ai"
	"ai-script-editor-service/internal/service/document"
	"ai-script-editor-service/internal/service/external"
	"ai-script-editor-service/internal/service/inflight"
	"ai-script-editor-service/internal/service/markup"
	"ai-script-editor-service/internal/service/patch"
	"ai-script-editor-service/internal/service/render"
	"ai-script-editor-service/internal/service/tts"
)

// ErrNoRenderer is returned by audio operations when no TTS provider is set.
var ErrNoRenderer = errors.New("session has no renderer")

// begin issues a ticket stamped with the current document version.
func (s *Session) begin(service string) *inflight.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets.Issue(s.scope(), service, s.doc.Version())
}

func (s *Session) scope() string { return "script-" + itoa(s.id) }

// settle decides whether a response may be applied. Must be called with
// s.mu held.
func (s *Session) settle(t *inflight.Ticket, op string) error {
	if s.cfg.DiscardStale && t.IsStale(s.doc.Version()) {
		_ = t.Discard()
		s.metrics.RecordStaleResponse(op)
		l := logging.WithRequest(itoa(s.id), t.ID(), op)
		l.Info().
			Uint64("requestVersion", t.Version()).
			Uint64("currentVersion", s.doc.Version()).
			Msg("Discarding stale response")
		return ErrStaleResponse
	}
	return nil
}

func (s *Session) observeAI(op string, start time.Time, err error) {
	errType := ""
	if err != nil {
		errType = classify(err)
	}
	s.metrics.RecordAIRequest(op, errType, time.Since(start).Seconds())
}

// Generate seeds the document from an AI-generated script about topic and
// persists it when a store is configured. A failed save is logged only.
func (s *Session) Generate(ctx context.Context, topic string) (int, error) {
	if s.assistant == nil {
		return 0, ErrNoAssistant
	}
	t := s.begin(ai.OpGenerate)
	start := time.Now()
	sections, err := s.assistant.GenerateScript(ctx, topic)
	s.observeAI(ai.OpGenerate, start, err)
	if err != nil {
		_ = t.Fail(err)
		return 0, err
	}
	blocks := ai.SeedBlocks(sections)

	s.mu.Lock()
	if err := s.settle(t, ai.OpGenerate); err != nil {
		s.mu.Unlock()
		return 0, err
	}
	s.doc.ReplaceBlocks(blocks)
	version := s.doc.Version()
	_ = t.Apply()
	s.mu.Unlock()

	s.metrics.RecordMutation(ai.OpGenerate, "changed")
	s.publishEdited(ctx, "ai."+ai.OpGenerate, version, nil, 0)

	if s.store != nil {
		if _, err := s.Save(ctx); err != nil {
			s.log.Warn().Err(err).Msg("Failed to persist generated script")
		}
	}
	return len(blocks), nil
}

// Edit asks the assistant to apply instruction to the current page and
// applies the returned patch.
func (s *Session) Edit(ctx context.Context, instruction string) (patch.Result, error) {
	if s.assistant == nil {
		return patch.Result{}, ErrNoAssistant
	}
	s.mu.Lock()
	refs := models.Refs(s.doc.PageBlocks())
	t := s.tickets.Issue(s.scope(), ai.OpEdit, s.doc.Version())
	s.mu.Unlock()

	start := time.Now()
	ops, err := s.assistant.EditScript(ctx, instruction, refs)
	s.observeAI(ai.OpEdit, start, err)
	if err != nil {
		_ = t.Fail(err)
		return patch.Result{}, err
	}

	s.mu.Lock()
	if err := s.settle(t, ai.OpEdit); err != nil {
		s.mu.Unlock()
		return patch.Result{}, err
	}
	res, version := s.applyPatchLocked(ops)
	_ = t.Apply()
	s.mu.Unlock()

	s.observePatch(ctx, "ai."+ai.OpEdit, ai.OpEdit, ops, res, version)
	return res, nil
}

// ApplyPatch applies an externally supplied operation batch the same way an
// AI edit is applied. It returns the result and the document as it stood
// right after the batch.
func (s *Session) ApplyPatch(ctx context.Context, ops []patch.Operation) (patch.Result, document.Snapshot) {
	s.mu.Lock()
	res, version := s.applyPatchLocked(ops)
	snap := s.doc.Snapshot()
	s.mu.Unlock()

	s.observePatch(ctx, "editor.patch", "patch", ops, res, version)
	return res, snap
}

// applyPatchLocked must be called with s.mu held.
func (s *Session) applyPatchLocked(ops []patch.Operation) (patch.Result, uint64) {
	res := s.doc.ApplyPatch(ops)
	s.scheduleClear(res.Touched)
	return res, s.doc.Version()
}

func (s *Session) observePatch(ctx context.Context, source, op string, ops []patch.Operation, res patch.Result, version uint64) {
	for i, outcome := range res.Outcomes {
		s.metrics.RecordPatchOperation(string(ops[i].Operation), string(outcome))
	}
	if res.Changed() {
		s.metrics.RecordMutation(op, "changed")
		s.publishEdited(ctx, source, version, res.Touched, res.Skipped)
	} else {
		s.metrics.RecordMutation(op, "noop")
	}
}

// FactCheck reviews the current page. Failures clear pending corrections.
func (s *Session) FactCheck(ctx context.Context) ([]models.Correction, error) {
	if s.assistant == nil {
		return nil, ErrNoAssistant
	}
	s.mu.Lock()
	refs := models.Refs(s.doc.PageBlocks())
	t := s.tickets.Issue(s.scope(), ai.OpFactCheck, s.doc.Version())
	s.mu.Unlock()

	start := time.Now()
	corrections, err := s.assistant.FactCheck(ctx, refs)
	s.observeAI(ai.OpFactCheck, start, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		_ = t.Fail(err)
		s.doc.SetCorrections(nil)
		return nil, err
	}
	if err := s.settle(t, ai.OpFactCheck); err != nil {
		return nil, err
	}
	s.doc.SetCorrections(corrections)
	_ = t.Apply()
	return s.doc.Corrections(), nil
}

// RenderTarget selects which blocks Render synthesizes.
type RenderTarget int

const (
	// RenderSelection renders the multi-selection, or the whole document
	// when nothing is selected.
	RenderSelection RenderTarget = iota
	// RenderDocument always renders the whole document.
	RenderDocument
)

// Render synthesizes audio for the selection or the whole document.
func (s *Session) Render(ctx context.Context, target RenderTarget) (render.Result, error) {
	if s.render == nil {
		return render.Result{}, ErrNoRenderer
	}
	s.mu.Lock()
	req := render.Request{
		Blocks:         s.targetBlocks(target),
		DefaultVoiceID: s.doc.DefaultVoiceID(),
		Language:       s.doc.Language(),
	}
	s.mu.Unlock()

	return s.render.Render(ctx, req)
}

// SSML serializes the render target as a single speak document.
func (s *Session) SSML(target RenderTarget) string {
	s.mu.Lock()
	blocks := s.targetBlocks(target)
	lang := s.doc.Language()
	s.mu.Unlock()
	return markup.Document(blocks, markup.Options{Language: lang})
}

// targetBlocks must be called with s.mu held.
func (s *Session) targetBlocks(target RenderTarget) []models.Block {
	blocks := s.doc.SelectedBlocks()
	if target == RenderDocument || len(blocks) == 0 {
		blocks = s.doc.Blocks()
	}
	return models.StripTransient(blocks)
}

// Voices lists the provider's voice catalogue.
func (s *Session) Voices(ctx context.Context, q tts.VoiceQuery) (tts.VoicePage, error) {
	if s.render == nil {
		return tts.VoicePage{}, ErrNoRenderer
	}
	return s.render.Voices(ctx, q)
}

// CachedRenders returns the number of cached audio renders.
func (s *Session) CachedRenders() int {
	if s.render == nil {
		return 0
	}
	return s.render.Cache().Len()
}

func classify(err error) string {
	var se *external.ServiceError
	switch {
	case errors.Is(err, external.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, patch.ErrInvalidPatch):
		return "invalid_patch"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &se):
		if se.Retryable() {
			return "retryable"
		}
		return "service"
	default:
		return "other"
	}
}
