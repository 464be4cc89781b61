package google

import (
	"testing"

	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"ai-script-editor-service/internal/service/tts"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.LanguageCode)
	}
	if cfg.AudioEncoding != "MP3" {
		t.Errorf("expected default encoding 'MP3', got %s", cfg.AudioEncoding)
	}
	if cfg.SpeakingRate != 1.0 {
		t.Errorf("expected default speaking rate 1.0, got %v", cfg.SpeakingRate)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected texttospeechpb.AudioEncoding
	}{
		{"LINEAR16", texttospeechpb.AudioEncoding_LINEAR16},
		{"MP3", texttospeechpb.AudioEncoding_MP3},
		{"OGG_OPUS", texttospeechpb.AudioEncoding_OGG_OPUS},
		{"MULAW", texttospeechpb.AudioEncoding_MULAW},
		{"ALAW", texttospeechpb.AudioEncoding_ALAW},
		{"mp3", texttospeechpb.AudioEncoding_MP3},     // fallback
		{"invalid", texttospeechpb.AudioEncoding_MP3}, // fallback
		{"", texttospeechpb.AudioEncoding_MP3},        // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBuildRequest(t *testing.T) {
	cfg := Config{LanguageCode: "en-US", AudioEncoding: "OGG_OPUS", SpeakingRate: 1.25}

	tests := []struct {
		name     string
		seg      tts.Segment
		wantLang string
	}{
		{"segment language wins", tts.Segment{VoiceID: "de-DE-Wavenet-B", Language: "de-AT"}, "de-AT"},
		{"language from voice name", tts.Segment{VoiceID: "fr-FR-Neural2-A"}, "fr-FR"},
		{"config fallback", tts.Segment{VoiceID: "custom"}, "en-US"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.seg.Markup = "<speak>hi</speak>"
			req := buildRequest(cfg, tt.seg)

			if req.GetVoice().GetLanguageCode() != tt.wantLang {
				t.Errorf("language = %q, want %q", req.GetVoice().GetLanguageCode(), tt.wantLang)
			}
			if req.GetVoice().GetName() != tt.seg.VoiceID {
				t.Errorf("voice = %q", req.GetVoice().GetName())
			}
			if req.GetInput().GetSsml() != "<speak>hi</speak>" {
				t.Errorf("expected SSML input, got %v", req.GetInput())
			}
			if req.GetAudioConfig().GetAudioEncoding() != texttospeechpb.AudioEncoding_OGG_OPUS {
				t.Errorf("unexpected encoding %v", req.GetAudioConfig().GetAudioEncoding())
			}
			if req.GetAudioConfig().GetSpeakingRate() != 1.25 {
				t.Errorf("unexpected speaking rate %v", req.GetAudioConfig().GetSpeakingRate())
			}
		})
	}
}

func TestToVoice(t *testing.T) {
	v := toVoice(&texttospeechpb.Voice{
		Name:                   "en-GB-Wavenet-A",
		LanguageCodes:          []string{"en-GB"},
		SsmlGender:             texttospeechpb.SsmlVoiceGender_FEMALE,
		NaturalSampleRateHertz: 24000,
	})

	if v.VoiceID != "en-GB-Wavenet-A" || v.Category != "Wavenet" {
		t.Errorf("unexpected voice %+v", v)
	}
	if v.Labels["gender"] != "female" || v.Labels["sample_rate"] != "24000" {
		t.Errorf("unexpected labels %+v", v.Labels)
	}
	if len(v.Languages) != 1 || v.Languages[0] != "en-GB" {
		t.Errorf("unexpected languages %v", v.Languages)
	}
}
