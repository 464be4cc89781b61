package app

import (
	"context"
	"path/filepath"
	"testing"

	"ai-script-editor-service/internal/config"
)

func TestNewRenderer(t *testing.T) {
	tests := []struct {
		provider string
		want     string
		wantErr  bool
	}{
		{provider: "", want: "mock"},
		{provider: "mock", want: "mock"},
		{provider: "elevenlabs", want: "elevenlabs"},
		{provider: "festival", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			r, err := NewRenderer(context.Background(), config.TTSConfig{Provider: tt.provider})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewRenderer: %v", err)
			}
			if r.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", r.Name(), tt.want)
			}
		})
	}
}

func TestSessionConfig(t *testing.T) {
	e := config.Default().Editor
	e.DefaultVoiceID = "v1"
	e.DefaultVoiceName = "Rachel"

	cfg := sessionConfig(e)
	if cfg.PageSize != e.PageSize || cfg.AnimationCycle != e.AnimationCycle() {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.DefaultVoice == nil || cfg.DefaultVoice.VoiceID != "v1" {
		t.Errorf("DefaultVoice = %+v", cfg.DefaultVoice)
	}

	e.DefaultVoiceID = ""
	if sessionConfig(e).DefaultVoice != nil {
		t.Error("expected no default voice")
	}
}

func TestNewAndShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(t.TempDir(), "scripts.db")

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.Renderer.Name() != "mock" {
		t.Errorf("renderer = %q", a.Renderer.Name())
	}
	if err := a.Store.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
