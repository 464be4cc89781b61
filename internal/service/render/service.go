// Package render turns block sequences into audio: blocks are split into
// voice groups, each group is serialized to markup and synthesized, and the
// concatenated result is cached by content fingerprint.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/observability/logging"
	"ai-script-editor-service/internal/observability/metrics"
	"ai-script-editor-service/internal/service/audiocache"
	"ai-script-editor-service/internal/service/external"
	"ai-script-editor-service/internal/service/fingerprint"
	"ai-script-editor-service/internal/service/markup"
	"ai-script-editor-service/internal/service/tts"
	"ai-script-editor-service/internal/service/voicegroup"
)

const defaultConcurrency = 4

// ErrNothingToRender is returned for an empty block list.
var ErrNothingToRender = errors.New("render: no blocks")

// Request describes the blocks to render and the document-level options.
type Request struct {
	Blocks         []models.Block
	DefaultVoiceID string
	Language       string
}

// Key returns the cache key: the blocks' fingerprint composed with the
// options that change the audio.
func (r Request) Key() string {
	return fingerprint.Compose(fingerprint.Of(r.Blocks), r.DefaultVoiceID, r.language())
}

func (r Request) language() string {
	if r.Language == "" {
		return markup.DefaultLanguage
	}
	return r.Language
}

// Result is rendered audio plus its cache metadata.
type Result struct {
	Audio  []byte
	Key    string
	Cached bool
}

// Service renders audio through a TTS provider with a per-session cache.
type Service struct {
	renderer    tts.Renderer
	cache       *audiocache.Cache
	metrics     *metrics.Metrics
	concurrency int
	log         zerolog.Logger
}

// Option customizes the service.
type Option func(*Service)

// WithMetrics overrides the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithConcurrency bounds the number of groups synthesized in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New creates a render service. A nil cache gets a fresh one.
func New(renderer tts.Renderer, cache *audiocache.Cache, opts ...Option) *Service {
	if cache == nil {
		cache = audiocache.New()
	}
	s := &Service{
		renderer:    renderer,
		cache:       cache,
		metrics:     metrics.DefaultMetrics,
		concurrency: defaultConcurrency,
		log:         logging.WithComponent("render"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache returns the service's audio cache.
func (s *Service) Cache() *audiocache.Cache { return s.cache }

// Provider names the TTS provider.
func (s *Service) Provider() string { return s.renderer.Name() }

// Plan builds one synthesis segment per voice group, in order.
func Plan(req Request) []tts.Segment {
	groups := voicegroup.Split(req.Blocks)
	segs := make([]tts.Segment, 0, len(groups))
	for _, g := range groups {
		segs = append(segs, tts.Segment{
			VoiceID:  g.VoiceID(req.DefaultVoiceID),
			Markup:   markup.Document(g.Blocks, markup.Options{Language: req.language()}),
			Language: req.language(),
		})
	}
	return segs
}

// Render returns audio for the request, from the cache when an identical
// request was rendered before. Concurrent identical requests share a single
// provider call.
func (s *Service) Render(ctx context.Context, req Request) (Result, error) {
	if len(req.Blocks) == 0 {
		return Result{}, ErrNothingToRender
	}
	key := req.Key()

	audio, hit, err := s.cache.GetOrRender(ctx, key, func(ctx context.Context) ([]byte, error) {
		return s.synthesize(ctx, Plan(req))
	})
	s.metrics.RecordCacheLookup(hit)
	if err != nil {
		return Result{Key: key}, err
	}
	return Result{Audio: audio, Key: key, Cached: hit}, nil
}

// Voices lists the provider's voices.
func (s *Service) Voices(ctx context.Context, q tts.VoiceQuery) (tts.VoicePage, error) {
	return s.renderer.Voices(ctx, q)
}

func (s *Service) synthesize(ctx context.Context, segs []tts.Segment) ([]byte, error) {
	parts := make([][]byte, len(segs))
	provider := s.renderer.Name()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, seg := range segs {
		g.Go(func() error {
			start := time.Now()
			audio, err := s.renderer.Render(ctx, seg)
			s.metrics.RecordRender(provider, len(audio), err, time.Since(start).Seconds())
			if err != nil {
				s.metrics.RecordRenderError(provider, errorType(err))
				s.log.Warn().Err(err).Int("group", i).Str("voiceId", seg.VoiceID).Msg("Voice group render failed")
				return fmt.Errorf("render group %d: %w", i, err)
			}
			parts[i] = audio
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Debug().Int("groups", len(segs)).Str("provider", provider).Msg("Rendered audio")
	return bytes.Join(parts, nil), nil
}

func errorType(err error) string {
	var se *external.ServiceError
	switch {
	case errors.Is(err, external.ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &se) && se.StatusCode != 0:
		return fmt.Sprintf("http_%d", se.StatusCode)
	case errors.As(err, &se):
		return "transport"
	default:
		return "other"
	}
}
