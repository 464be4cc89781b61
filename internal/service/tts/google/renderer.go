// Package google provides a Google Cloud Text-to-Speech renderer.
package google

import (
	"context"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/external"
	"ai-script-editor-service/internal/service/tts"
)

const serviceName = "google-tts"

// Config holds Google TTS settings.
type Config struct {
	LanguageCode  string
	AudioEncoding string // LINEAR16, MP3, OGG_OPUS, MULAW, ALAW
	SpeakingRate  float64
}

// DefaultConfig returns the default synthesis settings.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		AudioEncoding: "MP3",
		SpeakingRate:  1.0,
	}
}

// Renderer implements tts.Renderer using Google Cloud Text-to-Speech.
type Renderer struct {
	client *texttospeech.Client
	cfg    Config
}

// New creates a Google TTS renderer.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Renderer, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = DefaultConfig().LanguageCode
	}
	return &Renderer{client: c, cfg: cfg}, nil
}

func (r *Renderer) Name() string { return serviceName }

// Render synthesizes the SSML markup with the named voice.
func (r *Renderer) Render(ctx context.Context, seg tts.Segment) ([]byte, error) {
	resp, err := r.client.SynthesizeSpeech(ctx, buildRequest(r.cfg, seg))
	if err != nil {
		return nil, &external.ServiceError{Service: serviceName, Op: "render", Err: err}
	}
	return resp.AudioContent, nil
}

// Voices lists voices for the query language, or for every language.
// Google returns the whole catalogue at once, so paging is ignored.
func (r *Renderer) Voices(ctx context.Context, q tts.VoiceQuery) (tts.VoicePage, error) {
	resp, err := r.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: q.Language})
	if err != nil {
		return tts.VoicePage{}, &external.ServiceError{Service: serviceName, Op: "voices", Err: err}
	}
	page := tts.VoicePage{Voices: make([]models.Voice, 0, len(resp.GetVoices()))}
	for _, v := range resp.GetVoices() {
		page.Voices = append(page.Voices, toVoice(v))
	}
	return page, nil
}

// Close closes the underlying client.
func (r *Renderer) Close() error {
	return r.client.Close()
}

func buildRequest(cfg Config, seg tts.Segment) *texttospeechpb.SynthesizeSpeechRequest {
	lang := seg.Language
	if lang == "" {
		lang = voiceLanguage(seg.VoiceID)
	}
	if lang == "" {
		lang = cfg.LanguageCode
	}
	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Ssml{Ssml: seg.Markup},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         seg.VoiceID,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: parseAudioEncoding(cfg.AudioEncoding),
			SpeakingRate:  cfg.SpeakingRate,
		},
	}
}

func toVoice(v *texttospeechpb.Voice) models.Voice {
	labels := map[string]string{
		"gender": strings.ToLower(v.GetSsmlGender().String()),
	}
	if hz := v.GetNaturalSampleRateHertz(); hz > 0 {
		labels["sample_rate"] = fmt.Sprintf("%d", hz)
	}
	return models.Voice{
		VoiceID:   v.GetName(),
		Name:      v.GetName(),
		Category:  voiceCategory(v.GetName()),
		Languages: v.GetLanguageCodes(),
		Labels:    labels,
	}
}

// voiceLanguage extracts "en-US" from a voice name like "en-US-Wavenet-D".
func voiceLanguage(name string) string {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[0] + "-" + parts[1]
}

// voiceCategory extracts "Wavenet" from "en-US-Wavenet-D".
func voiceCategory(name string) string {
	parts := strings.Split(name, "-")
	if len(parts) < 4 {
		return ""
	}
	return parts[2]
}

func parseAudioEncoding(encoding string) texttospeechpb.AudioEncoding {
	switch encoding {
	case "LINEAR16":
		return texttospeechpb.AudioEncoding_LINEAR16
	case "MP3":
		return texttospeechpb.AudioEncoding_MP3
	case "OGG_OPUS":
		return texttospeechpb.AudioEncoding_OGG_OPUS
	case "MULAW":
		return texttospeechpb.AudioEncoding_MULAW
	case "ALAW":
		return texttospeechpb.AudioEncoding_ALAW
	default:
		return texttospeechpb.AudioEncoding_MP3
	}
}
