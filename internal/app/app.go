package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcapi "ai-script-editor-service/internal/api/grpc"
	"ai-script-editor-service/internal/config"
	"ai-script-editor-service/internal/events"
	httpapi "ai-script-editor-service/internal/http"
	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/observability"
	"ai-script-editor-service/internal/observability/logging"
	"ai-script-editor-service/internal/observability/metrics"
	"ai-script-editor-service/internal/service/ai"
	"ai-script-editor-service/internal/service/session"
	"ai-script-editor-service/internal/service/tts"
	"ai-script-editor-service/internal/service/tts/elevenlabs"
	"ai-script-editor-service/internal/service/tts/google"
	"ai-script-editor-service/internal/service/tts/mock"
	"ai-script-editor-service/internal/store"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Store     *store.Store
	Publisher *events.Publisher
	Renderer  tts.Renderer
	Assistant *ai.Client
	Sessions  *session.Manager

	httpServer *http.Server
	grpcServer *grpc.Server
	health     *health.Server
	obs        *observability.Server
}

// New constructs the application and all of its collaborators.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	a := &Application{Cfg: cfg}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("method", "New").
		Logger()

	st, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = st

	renderer, err := NewRenderer(ctx, cfg.TTS)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create %s renderer: %w", cfg.TTS.Provider, err)
	}
	a.Renderer = renderer

	a.Publisher = events.New(&events.Config{
		Enabled:     cfg.Kafka.Enabled,
		Brokers:     cfg.Kafka.Brokers,
		TopicEdited: cfg.Kafka.TopicEdited,
		TopicSaved:  cfg.Kafka.TopicSaved,
		Principal:   cfg.Kafka.Principal,
	})

	a.Assistant = ai.NewClient(ai.Config{
		APIKey:         cfg.AI.APIKey,
		BaseURL:        cfg.AI.BaseURL,
		Model:          cfg.AI.Model,
		TimeoutSeconds: cfg.AI.TimeoutSeconds,
	})

	a.Sessions = session.NewManager(sessionConfig(cfg.Editor), session.Deps{
		Store:             st,
		Publisher:         a.Publisher,
		Assistant:         a.Assistant,
		Renderer:          renderer,
		Metrics:           metrics.DefaultMetrics,
		RenderConcurrency: cfg.Editor.RenderConcurrency,
	})

	a.httpServer = &http.Server{
		Addr: ":" + cfg.Service.HTTPPort,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Sessions:    a.Sessions,
			Scripts:     st,
			Voices:      renderer,
			Metrics:     metrics.DefaultMetrics,
			TTSProvider: renderer.Name(),
			Ready:       st.Ping,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.grpcServer = grpc.NewServer(
		grpc.ChainUnaryInterceptor(observability.UnaryServerInterceptor(metrics.DefaultMetrics)),
		grpc.ChainStreamInterceptor(observability.StreamServerInterceptor(metrics.DefaultMetrics)),
	)
	a.health = health.NewServer()
	grpc_health_v1.RegisterHealthServer(a.grpcServer, a.health)
	grpcapi.Register(a.grpcServer, a.Sessions)
	// Enable gRPC reflection for debugging tools like grpcurl
	reflection.Register(a.grpcServer)

	a.obs = observability.NewServer(":"+cfg.Observability.MetricsPort, st.Ping)

	appLogger.Info().
		Str("tts", renderer.Name()).
		Str("model", a.Assistant.Model()).
		Str("store", st.Path()).
		Msg("AI script editor application created")
	return a, nil
}

// NewRenderer builds the configured TTS provider.
func NewRenderer(ctx context.Context, cfg config.TTSConfig) (tts.Renderer, error) {
	switch cfg.Provider {
	case "", "mock":
		return mock.New(), nil
	case elevenlabs.ServiceName:
		return elevenlabs.New(elevenlabs.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			ModelID:      cfg.ModelID,
			OutputFormat: cfg.OutputFormat,
			Timeout:      cfg.Timeout(),
		}), nil
	case "google":
		gcfg := google.DefaultConfig()
		if cfg.AudioEncoding != "" {
			gcfg.AudioEncoding = cfg.AudioEncoding
		}
		r, err := google.New(ctx, gcfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", cfg.Provider)
	}
}

func sessionConfig(e config.EditorConfig) session.Config {
	cfg := session.Config{
		PageSize:       e.PageSize,
		AnimationCycle: e.AnimationCycle(),
		Language:       e.Language,
		DiscardStale:   e.DiscardStale,
	}
	if e.DefaultVoiceID != "" {
		cfg.DefaultVoice = &models.VoiceAssignment{VoiceID: e.DefaultVoiceID, VoiceName: e.DefaultVoiceName}
	}
	return cfg
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	lc := logging.DefaultConfig()
	if a.Cfg.Observability.LogLevel != "" {
		lc.Level = a.Cfg.Observability.LogLevel
	}
	if a.Cfg.Observability.LogFormat != "" {
		lc.Format = a.Cfg.Observability.LogFormat
	}
	logging.Init(lc)

	a.Logger = logging.WithComponent("application").With().
		Str("service", "ai-script-editor-service").
		Logger()

	a.Logger.Info().
		Str("logLevel", lc.Level).
		Str("logFormat", lc.Format).
		Msg("Logger setup completed")
}

// Start serves HTTP, gRPC and observability traffic until ctx is cancelled
// or a listener fails.
func (a *Application) Start(ctx context.Context) error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	lis, err := net.Listen("tcp", ":"+a.Cfg.Service.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}

	a.StartupTime = time.Now().UTC()
	a.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	a.health.SetServingStatus(grpcapi.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	a.obs.Start()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		startLogger.Info().Str("addr", lis.Addr().String()).Msg("gRPC server started")
		return a.grpcServer.Serve(lis)
	})
	g.Go(func() error {
		startLogger.Info().Str("addr", a.httpServer.Addr).Msg("HTTP server started")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("AI script editor service starting")
	return g.Wait()
}

// Shutdown stops listeners, closes sessions and releases resources.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()
	shutdownLogger.Info().Msg("AI script editor service shutting down")

	a.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	var err error
	err = multierr.Append(err, a.httpServer.Shutdown(ctx))
	a.grpcServer.GracefulStop()
	err = multierr.Append(err, a.obs.Shutdown(ctx))

	a.Sessions.CloseAll()
	err = multierr.Append(err, a.Publisher.Close())
	err = multierr.Append(err, a.Renderer.Close())
	err = multierr.Append(err, a.Store.Close())
	if err != nil {
		shutdownLogger.Error().Err(err).Msg("Shutdown completed with errors")
	}
	return err
}
