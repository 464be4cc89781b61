package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/document"
	"ai-script-editor-service/internal/service/external"
	"ai-script-editor-service/internal/service/patch"
	"ai-script-editor-service/internal/service/session"
	"ai-script-editor-service/internal/service/tts"
	"ai-script-editor-service/internal/service/tts/mock"
	"ai-script-editor-service/internal/store"
)

type stubAssistant struct {
	ops []patch.Operation
	err error
}

func (a *stubAssistant) GenerateScript(ctx context.Context, topic string) ([]models.GeneratedSection, error) {
	return []models.GeneratedSection{{Key: "block1", Name: "Intro", Texts: []string{"about " + topic}}}, a.err
}

func (a *stubAssistant) EditScript(ctx context.Context, instruction string, refs []models.BlockRef) ([]patch.Operation, error) {
	return a.ops, a.err
}

func (a *stubAssistant) FactCheck(ctx context.Context, refs []models.BlockRef) ([]models.Correction, error) {
	return nil, a.err
}

// keyRenderer records the credential each render sees.
type keyRenderer struct {
	*mock.Renderer
	keys []string
}

func (k *keyRenderer) Render(ctx context.Context, seg tts.Segment) ([]byte, error) {
	key, err := external.Credential(ctx, k.Name(), "")
	if err != nil {
		return nil, err
	}
	k.keys = append(k.keys, key)
	return k.Renderer.Render(ctx, seg)
}

type testEnv struct {
	srv       *httptest.Server
	store     *store.Store
	assistant *stubAssistant
	renderer  *keyRenderer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "scripts.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	renderer := &keyRenderer{Renderer: mock.New()}
	renderer.AllowEmptyVoice = true
	assistant := &stubAssistant{}
	n := 0
	manager := session.NewManager(session.Config{
		PageSize:     10,
		DiscardStale: true,
		IDGenerator: func() string {
			n++
			return fmt.Sprintf("n%d", n)
		},
	}, session.Deps{Store: st, Assistant: assistant, Renderer: renderer})
	t.Cleanup(manager.CloseAll)

	srv := httptest.NewServer(NewRouter(Deps{
		Sessions:    manager,
		Scripts:     st,
		Voices:      renderer,
		TTSProvider: renderer.Name(),
	}))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: st, assistant: assistant, renderer: renderer}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *http.Response {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := e.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func (e *testEnv) createScript(t *testing.T, texts ...string) int64 {
	t.Helper()
	blocks := make([]models.Block, len(texts))
	for i, text := range texts {
		blocks[i] = models.Block{ID: fmt.Sprintf("b%d", i+1), Text: text}
	}
	resp := e.do(t, http.MethodPost, "/v1/scripts", createScriptRequest{Title: "Test", Blocks: blocks})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	return decodeBody[models.Script](t, resp).ID
}

func blockTexts(snap document.Snapshot) []string {
	out := make([]string, 0, len(snap.Blocks))
	for _, b := range snap.Blocks {
		out = append(out, b.Text)
	}
	return out
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/v1/liveness", "/v1/readiness"} {
		if resp := env.do(t, http.MethodGet, path, nil); resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
		}
	}
}

func TestScriptCRUD(t *testing.T) {
	env := newTestEnv(t)
	id := env.createScript(t, "hello")
	path := fmt.Sprintf("/v1/scripts/%d", id)

	got := decodeBody[models.Script](t, env.do(t, http.MethodGet, path, nil))
	if got.Title != "Test" || len(got.Blocks) != 1 {
		t.Fatalf("script = %+v", got)
	}

	resp := env.do(t, http.MethodPatch, path, map[string]any{"title": "Renamed"})
	if updated := decodeBody[models.Script](t, resp); updated.Slug != "renamed" {
		t.Errorf("slug = %q", updated.Slug)
	}

	list := decodeBody[listScriptsResponse](t, env.do(t, http.MethodGet, "/v1/scripts?page=0&pageSize=5", nil))
	if len(list.Scripts) != 1 || list.PageSize != 5 {
		t.Errorf("list = %+v", list)
	}

	if resp := env.do(t, http.MethodDelete, path, nil); resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, path, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d", resp.StatusCode)
	}
	if body := decodeBody[errorBody](t, resp); body.Error != "not_found" {
		t.Errorf("error code = %q", body.Error)
	}
}

func TestCreateScriptValidation(t *testing.T) {
	env := newTestEnv(t)
	blocks := []models.Block{{ID: "a", Attributes: models.Attributes{Emphasis: &models.Emphasis{Level: "shouty"}}}}
	resp := env.do(t, http.MethodPost, "/v1/scripts", createScriptRequest{Title: "bad", Blocks: blocks})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodGet, "/v1/scripts/abc", nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", resp.StatusCode)
	}
}

func TestDocumentEditing(t *testing.T) {
	env := newTestEnv(t)
	id := env.createScript(t, "Hello world", "Second")
	base := fmt.Sprintf("/v1/scripts/%d/document", id)

	resp := env.do(t, http.MethodPost, base+"/blocks/split", document.CursorPosition{BlockID: "b1", Offset: 5})
	split := decodeBody[mutationResponse](t, resp)
	if !split.Changed || split.NewBlockID == "" {
		t.Fatalf("split = %+v", split)
	}
	if got := blockTexts(split.Document); strings.Join(got, "|") != "Hello| world|Second" {
		t.Errorf("texts after split = %v", got)
	}

	resp = env.do(t, http.MethodPost, base+"/keys", keyRequest{Key: "Backspace", BlockID: split.NewBlockID, Offset: 0})
	merged := decodeBody[mutationResponse](t, resp)
	if merged.Action != string(document.ActionMerge) {
		t.Errorf("action = %q", merged.Action)
	}
	if got := blockTexts(merged.Document); strings.Join(got, "|") != "Hello world|Second" {
		t.Errorf("texts after merge = %v", got)
	}

	resp = env.do(t, http.MethodPatch, base+"/blocks/b2", map[string]any{"break": map[string]int{"timeMs": 250}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodGet, base+"/ssml?scope=document", nil)
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	if !strings.Contains(buf.String(), `Second<break time="0.25s"/>`) {
		t.Errorf("ssml = %s", buf.String())
	}

	resp = env.do(t, http.MethodDelete, base+"/blocks/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete missing status = %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, base+"/save", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save status = %d", resp.StatusCode)
	}
	stored, err := env.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("store get: %v", err)
	}
	if len(stored.Blocks) != 2 || stored.Blocks[1].Break == nil {
		t.Errorf("stored blocks = %+v", stored.Blocks)
	}
}

func TestDocumentUnknownScript(t *testing.T) {
	env := newTestEnv(t)
	if resp := env.do(t, http.MethodGet, "/v1/scripts/999/document", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestPatchAndAIEdit(t *testing.T) {
	env := newTestEnv(t)
	id := env.createScript(t, "one")
	base := fmt.Sprintf("/v1/scripts/%d/document", id)

	resp := env.do(t, http.MethodPost, base+"/patch", patchRequest{Operations: []patch.Operation{patch.Create("two", ""), patch.Delete("nope")}})
	got := decodeBody[patchResponse](t, resp)
	if got.Skipped != 1 || len(got.Touched) != 1 {
		t.Errorf("patch = %+v", got)
	}
	if len(got.Document.Blocks) != 2 || got.Document.Blocks[1].Text != "two" || got.Document.Version == 0 {
		t.Errorf("patched document = %+v", got.Document)
	}

	resp = env.do(t, http.MethodPost, base+"/patch", map[string]any{"operations": []map[string]string{{"operation": "explode"}}})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid patch status = %d", resp.StatusCode)
	}

	env.assistant.ops = []patch.Operation{patch.Update("b1", "ONE")}
	edited := decodeBody[patchResponse](t, env.do(t, http.MethodPost, base+"/ai/edit", instructionRequest{Instruction: "caps"}))
	if texts := blockTexts(edited.Document); texts[0] != "ONE" {
		t.Errorf("texts after edit = %v", texts)
	}
}

func TestAIErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"missing credential", external.MissingCredential("ai"), http.StatusUnauthorized, "missing_credential"},
		{"retryable", &external.ServiceError{Service: "ai", Op: "edit", StatusCode: 503}, http.StatusBadGateway, "retryable"},
		{"upstream", &external.ServiceError{Service: "ai", Op: "edit", StatusCode: 400}, http.StatusBadGateway, "upstream_error"},
		{"invalid patch", fmt.Errorf("edit: %w", patch.ErrInvalidPatch), http.StatusUnprocessableEntity, "invalid_patch"},
		{"stale", session.ErrStaleResponse, http.StatusConflict, "stale_response"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	env := newTestEnv(t)
	id := env.createScript(t, "one")
	path := fmt.Sprintf("/v1/scripts/%d/document/ai/edit", id)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.assistant.err = tt.err
			resp := env.do(t, http.MethodPost, path, instructionRequest{Instruction: "x"})
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body := decodeBody[errorBody](t, resp); body.Error != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error, tt.wantCode)
			}
		})
	}
}

func TestAudioUsesHeaderCredential(t *testing.T) {
	env := newTestEnv(t)
	id := env.createScript(t, "one", "two")
	path := fmt.Sprintf("/v1/scripts/%d/document/audio?scope=document", id)

	resp := env.do(t, http.MethodPost, path, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want 401", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, path, nil, AudioKeyHeader, "secret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Render-Cached") != "false" || resp.Header.Get("X-Render-Key") == "" {
		t.Errorf("headers = %v", resp.Header)
	}
	if len(env.renderer.keys) != 1 || env.renderer.keys[0] != "secret" {
		t.Errorf("keys = %v", env.renderer.keys)
	}

	resp = env.do(t, http.MethodPost, path, nil, AudioKeyHeader, "secret")
	if resp.Header.Get("X-Render-Cached") != "true" {
		t.Errorf("second render not cached")
	}
}

func TestVoices(t *testing.T) {
	env := newTestEnv(t)
	page := decodeBody[tts.VoicePage](t, env.do(t, http.MethodGet, "/v1/voices?pageSize=2", nil))
	if len(page.Voices) != 2 || !page.HasMore {
		t.Errorf("page = %+v", page)
	}
}

func TestStatusFor(t *testing.T) {
	if status, _ := statusFor(invalid("x")); status != http.StatusBadRequest {
		t.Errorf("invalid status = %d", status)
	}
	if status, _ := statusFor(session.ErrNoAssistant); status != http.StatusServiceUnavailable {
		t.Errorf("no assistant status = %d", status)
	}
	if status, _ := statusFor(document.ErrNoCorrection); status != http.StatusNotFound {
		t.Errorf("no correction status = %d", status)
	}
}
