package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/tts"
)

type createScriptRequest struct {
	Title  string         `json:"title"`
	Blocks []models.Block `json:"blocks"`
}

type listScriptsResponse struct {
	Scripts  []models.Script `json:"scripts"`
	Page     int             `json:"page"`
	PageSize int             `json:"pageSize"`
}

func scriptID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "scriptID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid script id %q", raw)
	}
	return id, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("invalid %s %q", key, raw)
	}
	return v, nil
}

func (s *server) listScripts(w http.ResponseWriter, r *http.Request) {
	if s.Scripts == nil {
		s.fail(w, r, errUnavailable)
		return
	}
	page, err := queryInt(r, "page", 0)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	size, err := queryInt(r, "pageSize", 20)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	scripts, err := s.Scripts.List(r.Context(), page, size)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if scripts == nil {
		scripts = []models.Script{}
	}
	writeJSON(w, http.StatusOK, listScriptsResponse{Scripts: scripts, Page: page, PageSize: size})
}

func (s *server) createScript(w http.ResponseWriter, r *http.Request) {
	if s.Scripts == nil {
		s.fail(w, r, errUnavailable)
		return
	}
	var req createScriptRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Validator.Validate(req.Blocks); err != nil {
		s.fail(w, r, err)
		return
	}
	script, err := s.Scripts.Create(r.Context(), req.Title, req.Blocks)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, script)
}

func (s *server) getScript(w http.ResponseWriter, r *http.Request) {
	if s.Scripts == nil {
		s.fail(w, r, errUnavailable)
		return
	}
	id, err := scriptID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	script, err := s.Scripts.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, script)
}

func (s *server) updateScript(w http.ResponseWriter, r *http.Request) {
	if s.Scripts == nil {
		s.fail(w, r, errUnavailable)
		return
	}
	id, err := scriptID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var u models.ScriptUpdate
	if err := decode(r, &u); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Validator.Validate(u.Blocks); err != nil {
		s.fail(w, r, err)
		return
	}
	script, err := s.Scripts.Update(r.Context(), id, u)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, script)
}

func (s *server) deleteScript(w http.ResponseWriter, r *http.Request) {
	if s.Scripts == nil {
		s.fail(w, r, errUnavailable)
		return
	}
	id, err := scriptID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Scripts.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	if s.Sessions != nil {
		s.Sessions.Close(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) listVoices(w http.ResponseWriter, r *http.Request) {
	if s.Voices == nil {
		s.fail(w, r, errUnavailable)
		return
	}
	size, err := queryInt(r, "pageSize", 20)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := tts.VoiceQuery{
		PageToken: r.URL.Query().Get("pageToken"),
		PageSize:  size,
		Language:  r.URL.Query().Get("language"),
	}
	page, err := s.Voices.Voices(r.Context(), q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
