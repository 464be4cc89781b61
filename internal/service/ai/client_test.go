package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ai-script-editor-service/internal/service/external"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		})
	}
}

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithHTTPClient(srv.Client()), WithSleeper(func(time.Duration) {})}, opts...)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, opts...)
}

func TestCompleteJSONSendsRequest(t *testing.T) {
	var got chatCompletionRequest
	var auth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		completionHandler(t, `{"ok":true}`)(w, r)
	})
	client := newTestClient(t, handler)

	content, err := client.CompleteJSON(context.Background(), "test", "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("content = %q", content)
	}
	if auth != "Bearer test-key" {
		t.Fatalf("Authorization = %q", auth)
	}
	if got.Model != defaultModel {
		t.Fatalf("model = %q, want %q", got.Model, defaultModel)
	}
	if got.ResponseFormat["type"] != jsonResponseType {
		t.Fatalf("response_format = %v", got.ResponseFormat)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "user" {
		t.Fatalf("messages = %+v", got.Messages)
	}
}

func TestCompleteUsesContextCredential(t *testing.T) {
	var auth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		completionHandler(t, "text")(w, r)
	})
	client := newTestClient(t, handler)

	ctx := external.WithCredential(context.Background(), ServiceName, "override")
	if _, err := client.Complete(ctx, "test", "", "hello"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if auth != "Bearer override" {
		t.Fatalf("Authorization = %q", auth)
	}
}

func TestCompleteMissingCredential(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0"})
	_, err := client.Complete(context.Background(), "test", "", "hello")
	if !errors.Is(err, external.ErrMissingCredential) {
		t.Fatalf("err = %v, want ErrMissingCredential", err)
	}
}

func TestCompleteRetries(t *testing.T) {
	tests := []struct {
		name      string
		fail      func(w http.ResponseWriter)
		wantCalls int32
		wantErr   bool
	}{
		{
			name: "server error then success",
			fail: func(w http.ResponseWriter) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
			wantCalls: 2,
		},
		{
			name: "rate limited with retry-after",
			fail: func(w http.ResponseWriter) {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "slow down", http.StatusTooManyRequests)
			},
			wantCalls: 2,
		},
		{
			name: "empty content then success",
			fail: func(w http.ResponseWriter) {
				_, _ = w.Write([]byte(`{"choices":[{"message":{"content":""},"finish_reason":"length"}]}`))
			},
			wantCalls: 2,
		},
		{
			name: "unauthorized is not retried",
			fail: func(w http.ResponseWriter) {
				http.Error(w, "nope", http.StatusUnauthorized)
			},
			wantCalls: 1,
			wantErr:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				if n == 1 || tt.wantErr {
					tt.fail(w)
					return
				}
				completionHandler(t, "done")(w, r)
			})
			client := newTestClient(t, handler)

			content, err := client.Complete(context.Background(), "test", "", "hello")
			if tt.wantErr {
				var se *external.ServiceError
				if !errors.As(err, &se) {
					t.Fatalf("err = %v, want ServiceError", err)
				}
			} else if err != nil || content != "done" {
				t.Fatalf("Complete = %q, %v", content, err)
			}
			if calls.Load() != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", calls.Load(), tt.wantCalls)
			}
		})
	}
}

func TestCompleteGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	})
	client := newTestClient(t, handler, WithRetryMaxAttempts(2))

	_, err := client.Complete(context.Background(), "test", "", "hello")
	if !external.IsRetryable(err) {
		t.Fatalf("err = %v, want retryable", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
}

func TestBackoffDelay(t *testing.T) {
	c := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 5 * time.Second},
	}
	for _, tt := range tests {
		if got := c.backoffDelay(tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("parseRetryAfter(3) = %v, %v", d, ok)
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Fatal("empty header should not parse")
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative seconds should not parse")
	}
	future := time.Now().Add(time.Hour).UTC().Format(http.TimeFormat)
	if d, ok := parseRetryAfter(future); !ok || d <= 0 {
		t.Fatalf("parseRetryAfter(date) = %v, %v", d, ok)
	}
}
