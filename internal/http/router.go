// Package http exposes the script editor over a chi JSON API.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/observability/logging"
	"ai-script-editor-service/internal/observability/metrics"
	"ai-script-editor-service/internal/schema"
	"ai-script-editor-service/internal/service/external"
	"ai-script-editor-service/internal/service/session"
	"ai-script-editor-service/internal/service/tts"
)

// AudioKeyHeader carries a per-request TTS provider key.
const AudioKeyHeader = "X-Audioservice-Key"

// ScriptStore is the persistence used by the script routes.
type ScriptStore interface {
	Create(ctx context.Context, title string, blocks []models.Block) (*models.Script, error)
	Get(ctx context.Context, id int64) (*models.Script, error)
	Update(ctx context.Context, id int64, u models.ScriptUpdate) (*models.Script, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, page, pageSize int) ([]models.Script, error)
}

// VoiceLister lists the TTS provider's voices.
type VoiceLister interface {
	Voices(ctx context.Context, q tts.VoiceQuery) (tts.VoicePage, error)
}

// Deps are the router's collaborators. Nil collaborators disable their routes
// with 503 responses.
type Deps struct {
	Sessions    *session.Manager
	Scripts     ScriptStore
	Voices      VoiceLister
	Validator   *schema.Validator
	Metrics     *metrics.Metrics
	TTSProvider string
	// Ready reports readiness; nil means always ready.
	Ready func(ctx context.Context) error
}

type server struct {
	Deps
	log zerolog.Logger
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(deps Deps) http.Handler {
	if deps.Validator == nil {
		deps.Validator = schema.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.DefaultMetrics
	}
	s := &server{Deps: deps, log: logging.WithComponent("http")}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.Use(s.credentials)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, r *http.Request) {
		if s.Ready != nil {
			if err := s.Ready(r.Context()); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/voices", s.listVoices)

		r.Route("/scripts", func(r chi.Router) {
			r.Get("/", s.listScripts)
			r.Post("/", s.createScript)
			r.Route("/{scriptID}", func(r chi.Router) {
				r.Get("/", s.getScript)
				r.Patch("/", s.updateScript)
				r.Delete("/", s.deleteScript)

				r.Route("/document", s.documentRoutes)
			})
		})
	})

	return r
}

func (s *server) documentRoutes(r chi.Router) {
	r.Get("/", s.getDocument)
	r.Delete("/", s.closeDocument)
	r.Put("/blocks", s.replaceBlocks)
	r.Post("/blocks/split", s.splitBlock)
	r.Patch("/blocks/{blockID}", s.updateBlock)
	r.Delete("/blocks/{blockID}", s.deleteBlock)
	r.Post("/blocks/{blockID}/insert-after", s.insertAfter)
	r.Post("/blocks/{blockID}/merge", s.mergeBlock)
	r.Post("/blocks/{blockID}/move", s.moveBlock)
	r.Post("/keys", s.handleKey)
	r.Put("/focus", s.setFocus)
	r.Post("/selection/toggle", s.toggleSelection)
	r.Post("/selection/all", s.selectAll)
	r.Delete("/selection", s.clearSelection)
	r.Put("/page", s.setPage)
	r.Put("/settings", s.updateSettings)
	r.Post("/patch", s.applyPatch)
	r.Post("/corrections/{index}/apply", s.applyCorrection)
	r.Delete("/corrections/{index}", s.dismissCorrection)
	r.Post("/ai/generate", s.generate)
	r.Post("/ai/edit", s.edit)
	r.Post("/ai/factcheck", s.factCheck)
	r.Post("/save", s.save)
	r.Get("/ssml", s.ssml)
	r.Post("/audio", s.audio)
}

// instrument logs and counts requests by route pattern.
func (s *server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		s.Metrics.RecordHTTPRequest(route, r.Method, status, duration.Seconds())
		s.log.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", duration).
			Str("requestId", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// credentials moves the per-request audio key into the context.
func (s *server) credentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(AudioKeyHeader); key != "" && s.TTSProvider != "" {
			r = r.WithContext(external.WithCredential(r.Context(), s.TTSProvider, key))
		}
		next.ServeHTTP(w, r)
	})
}
