// Package elevenlabs provides an ElevenLabs text-to-speech renderer.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/external"
	"ai-script-editor-service/internal/service/tts"
)

const (
	ServiceName = "elevenlabs"

	DefaultBaseURL      = "https://api.elevenlabs.io"
	DefaultModelID      = "eleven_multilingual_v2"
	DefaultOutputFormat = "mp3_44100_128"
	defaultTimeout      = 60 * time.Second
	defaultPageSize     = 20
	errorBodyLimit      = 200
)

// Config holds ElevenLabs settings.
type Config struct {
	APIKey       string
	BaseURL      string
	ModelID      string
	OutputFormat string
	Timeout      time.Duration
}

// Renderer implements tts.Renderer against the ElevenLabs REST API.
type Renderer struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the renderer.
type Option func(*Renderer)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Renderer) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// New creates an ElevenLabs renderer. An empty API key is allowed; callers
// then have to supply one per request.
func New(cfg Config, opts ...Option) *Renderer {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ModelID == "" {
		cfg.ModelID = DefaultModelID
	}
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = DefaultOutputFormat
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	r := &Renderer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Name() string { return ServiceName }

type synthesisRequest struct {
	Text              string `json:"text"`
	ModelID           string `json:"model_id"`
	EnableSSMLParsing bool   `json:"enable_ssml_parsing"`
}

// Render posts the markup to /v1/text-to-speech/{voice_id}.
func (r *Renderer) Render(ctx context.Context, seg tts.Segment) ([]byte, error) {
	key, err := external.Credential(ctx, ServiceName, r.cfg.APIKey)
	if err != nil {
		return nil, err
	}
	if seg.VoiceID == "" {
		return nil, &external.ServiceError{Service: ServiceName, Op: "render", Err: fmt.Errorf("voice id required")}
	}

	body, err := json.Marshal(synthesisRequest{
		Text:              seg.Markup,
		ModelID:           r.cfg.ModelID,
		EnableSSMLParsing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs render: encode body: %w", err)
	}

	endpoint := r.cfg.BaseURL + "/v1/text-to-speech/" + url.PathEscape(seg.VoiceID) +
		"?output_format=" + url.QueryEscape(r.cfg.OutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs render: new request: %w", err)
	}
	req.Header.Set("xi-api-key", key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	return r.do(req, "render")
}

type voicesResponse struct {
	Voices []struct {
		VoiceID          string            `json:"voice_id"`
		Name             string            `json:"name"`
		Category         string            `json:"category"`
		Description      string            `json:"description"`
		PreviewURL       string            `json:"preview_url"`
		Labels           map[string]string `json:"labels"`
		VerifiedLanguage []struct {
			Language string `json:"language"`
			Locale   string `json:"locale"`
		} `json:"verified_languages"`
	} `json:"voices"`
	HasMore       bool   `json:"has_more"`
	NextPageToken string `json:"next_page_token"`
}

// Voices lists voices via /v2/voices.
func (r *Renderer) Voices(ctx context.Context, q tts.VoiceQuery) (tts.VoicePage, error) {
	var page tts.VoicePage
	key, err := external.Credential(ctx, ServiceName, r.cfg.APIKey)
	if err != nil {
		return page, err
	}

	size := q.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	params := url.Values{}
	params.Set("page_size", strconv.Itoa(size))
	if q.PageToken != "" {
		params.Set("next_page_token", q.PageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/v2/voices?"+params.Encode(), nil)
	if err != nil {
		return page, fmt.Errorf("elevenlabs voices: new request: %w", err)
	}
	req.Header.Set("xi-api-key", key)

	raw, err := r.do(req, "voices")
	if err != nil {
		return page, err
	}
	var decoded voicesResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return page, &external.ServiceError{Service: ServiceName, Op: "voices", Err: fmt.Errorf("decode response: %w", err)}
	}

	page.HasMore = decoded.HasMore
	page.NextPageToken = decoded.NextPageToken
	page.Voices = make([]models.Voice, 0, len(decoded.Voices))
	for _, v := range decoded.Voices {
		voice := models.Voice{
			VoiceID:     v.VoiceID,
			Name:        v.Name,
			Category:    v.Category,
			Description: v.Description,
			PreviewURL:  v.PreviewURL,
			Labels:      v.Labels,
		}
		for _, l := range v.VerifiedLanguage {
			if l.Locale != "" {
				voice.Languages = append(voice.Languages, l.Locale)
			} else if l.Language != "" {
				voice.Languages = append(voice.Languages, l.Language)
			}
		}
		if q.Language != "" && len(voice.Languages) > 0 && !matchesLanguage(voice.Languages, q.Language) {
			continue
		}
		page.Voices = append(page.Voices, voice)
	}
	return page, nil
}

func (r *Renderer) Close() error { return nil }

func (r *Renderer) do(req *http.Request, op string) ([]byte, error) {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &external.ServiceError{Service: ServiceName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &external.ServiceError{Service: ServiceName, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &external.ServiceError{
			Service:    ServiceName,
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       external.Truncate(string(body), errorBodyLimit),
		}
	}
	return body, nil
}

func matchesLanguage(langs []string, want string) bool {
	for _, l := range langs {
		if strings.EqualFold(l, want) || strings.EqualFold(strings.SplitN(l, "-", 2)[0], strings.SplitN(want, "-", 2)[0]) {
			return true
		}
	}
	return false
}
