// Package session owns the editor state of one open script: its document,
// audio render cache, in-flight AI requests and animation timer. All entry
// points are serialized on the session mutex.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/observability/logging"
	"ai-script-editor-service/internal/observability/metrics"
	"ai-script-editor-service/internal/service/ai"
	"ai-script-editor-service/internal/service/document"
	"ai-script-editor-service/internal/service/fingerprint"
	"ai-script-editor-service/internal/service/inflight"
	"ai-script-editor-service/internal/service/patch"
	"ai-script-editor-service/internal/service/render"
	"ai-script-editor-service/internal/service/tts"
)

var (
	// ErrStaleResponse is returned when an AI response arrives after the
	// document changed and was discarded.
	ErrStaleResponse = errors.New("stale response discarded")
	// ErrNoStore is returned by Save when the session has no persistence.
	ErrNoStore = errors.New("session has no store")
	// ErrNoAssistant is returned by AI operations when none is configured.
	ErrNoAssistant = errors.New("session has no AI assistant")
)

// Store persists script blocks.
type Store interface {
	Get(ctx context.Context, id int64) (*models.Script, error)
	SaveBlocks(ctx context.Context, id int64, blocks []models.Block) error
}

// Publisher announces document changes.
type Publisher interface {
	PublishEdited(ctx context.Context, event models.DocumentEdited) error
	PublishSaved(ctx context.Context, event models.DocumentSaved) error
}

// Assistant is the AI collaborator.
type Assistant interface {
	GenerateScript(ctx context.Context, topic string) ([]models.GeneratedSection, error)
	EditScript(ctx context.Context, instruction string, refs []models.BlockRef) ([]patch.Operation, error)
	FactCheck(ctx context.Context, refs []models.BlockRef) ([]models.Correction, error)
}

// Config holds per-session editor settings.
type Config struct {
	PageSize       int
	AnimationCycle time.Duration // <= 0 disables automatic clearing
	Language       string
	DefaultVoice   *models.VoiceAssignment
	DiscardStale   bool
	IDGenerator    func() string
}

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Store     Store
	Publisher Publisher
	Assistant Assistant
	Renderer  tts.Renderer
	Metrics   *metrics.Metrics
	// RenderConcurrency bounds parallel voice-group synthesis.
	RenderConcurrency int
}

// Session is the editor state for one script.
type Session struct {
	mu  sync.Mutex
	id  int64
	doc *document.Document
	cfg Config

	render    *render.Service
	store     Store
	publisher Publisher
	assistant Assistant
	metrics   *metrics.Metrics
	tickets   *inflight.Generator
	log       zerolog.Logger

	animTimer   *time.Timer
	animPending map[string]struct{}
	closed      bool
}

// New creates a session with an empty document.
func New(id int64, cfg Config, deps Deps) *Session {
	m := deps.Metrics
	if m == nil {
		m = metrics.DefaultMetrics
	}
	opts := []document.Option{
		document.WithPageSize(cfg.PageSize),
		document.WithLanguage(cfg.Language),
		document.WithDefaultVoice(cfg.DefaultVoice),
	}
	if cfg.IDGenerator != nil {
		opts = append(opts, document.WithIDGenerator(cfg.IDGenerator))
	}
	s := &Session{
		id:          id,
		doc:         document.New(opts...),
		cfg:         cfg,
		store:       deps.Store,
		publisher:   deps.Publisher,
		assistant:   deps.Assistant,
		metrics:     m,
		tickets:     inflight.New(),
		log:         logging.WithScript(itoa(id)),
		animPending: make(map[string]struct{}),
	}
	if deps.Renderer != nil {
		s.render = render.New(deps.Renderer, nil,
			render.WithMetrics(m),
			render.WithConcurrency(deps.RenderConcurrency),
		)
	}
	return s
}

// ID returns the script id.
func (s *Session) ID() int64 { return s.id }

// Snapshot returns the current document state.
func (s *Session) Snapshot() document.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Snapshot()
}

// View runs fn with read access to the document. fn must not retain d.
func (s *Session) View(fn func(d *document.Document)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.doc)
}

// Do runs a local edit. An edit that bumps the document version is
// published as a document event.
func (s *Session) Do(ctx context.Context, op string, fn func(d *document.Document) error) error {
	s.mu.Lock()
	before := s.doc.Version()
	err := fn(s.doc)
	after := s.doc.Version()
	s.mu.Unlock()

	s.recordMutation(op, before, after, err)
	if after != before {
		s.publishEdited(ctx, "editor."+op, after, nil, 0)
	}
	return err
}

// Load replaces the document with the stored script.
func (s *Session) Load(ctx context.Context) error {
	if s.store == nil {
		return ErrNoStore
	}
	script, err := s.store.Get(ctx, s.id)
	if err != nil {
		return fmt.Errorf("load script %d: %w", s.id, err)
	}
	s.mu.Lock()
	s.doc.ReplaceBlocks(script.Blocks)
	s.mu.Unlock()
	s.log.Debug().Int("blocks", len(script.Blocks)).Msg("Script loaded")
	return nil
}

// Save persists the document without transient flags.
func (s *Session) Save(ctx context.Context) (models.DocumentSaved, error) {
	if s.store == nil {
		return models.DocumentSaved{}, ErrNoStore
	}
	s.mu.Lock()
	blocks := s.doc.Stripped()
	version := s.doc.Version()
	s.mu.Unlock()

	if err := s.store.SaveBlocks(ctx, s.id, blocks); err != nil {
		s.metrics.RecordMutation("save", "error")
		return models.DocumentSaved{}, fmt.Errorf("save script %d: %w", s.id, err)
	}
	s.metrics.RecordMutation("save", "changed")

	event := models.DocumentSaved{
		EventType:   models.EventDocumentSaved,
		ScriptID:    s.id,
		Version:     version,
		BlockCount:  len(blocks),
		Fingerprint: fingerprint.Of(blocks),
		Timestamp:   time.Now().UnixMilli(),
	}
	if s.publisher != nil {
		if err := s.publisher.PublishSaved(ctx, event); err != nil {
			s.log.Warn().Err(err).Msg("Failed to publish save event")
		}
	}
	return event, nil
}

// Close stops the animation timer. The session must not be used afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.animTimer != nil {
		s.animTimer.Stop()
		s.animTimer = nil
	}
}

func (s *Session) recordMutation(op string, before, after uint64, err error) {
	switch {
	case err != nil:
		s.metrics.RecordMutation(op, "error")
	case after != before:
		s.metrics.RecordMutation(op, "changed")
	default:
		s.metrics.RecordMutation(op, "noop")
	}
}

func (s *Session) publishEdited(ctx context.Context, source string, version uint64, ids []string, skipped int) {
	if s.publisher == nil {
		return
	}
	event := models.DocumentEdited{
		EventType: models.EventDocumentEdited,
		ScriptID:  s.id,
		Version:   version,
		Source:    source,
		BlockIDs:  ids,
		Skipped:   skipped,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := s.publisher.PublishEdited(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("source", source).Msg("Failed to publish edit event")
	}
}

// scheduleClear flags ids for animation clearing after one cycle. Must be
// called with s.mu held.
func (s *Session) scheduleClear(ids []string) {
	if len(ids) == 0 || s.cfg.AnimationCycle <= 0 || s.closed {
		return
	}
	for _, id := range ids {
		s.animPending[id] = struct{}{}
	}
	if s.animTimer != nil {
		s.animTimer.Stop()
	}
	s.animTimer = time.AfterFunc(s.cfg.AnimationCycle, s.clearAnimations)
}

func (s *Session) clearAnimations() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.animPending) == 0 {
		return
	}
	ids := make([]string, 0, len(s.animPending))
	for id := range s.animPending {
		ids = append(ids, id)
	}
	s.animPending = make(map[string]struct{})
	s.animTimer = nil
	s.doc.ClearAnimations(ids...)
}

var _ Assistant = (*ai.Client)(nil)

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
