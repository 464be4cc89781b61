package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/document"
	"ai-script-editor-service/internal/service/patch"
	"ai-script-editor-service/internal/service/session"
)

// mutationResponse is returned by every document edit.
type mutationResponse struct {
	Changed    bool              `json:"changed"`
	NewBlockID string            `json:"newBlockId,omitempty"`
	Action     string            `json:"action,omitempty"`
	Document   document.Snapshot `json:"document"`
}

type blockRequest struct {
	BlockID string `json:"blockId"`
}

type textRequest struct {
	Text string `json:"text"`
}

type moveRequest struct {
	TargetID string `json:"targetId"`
}

type keyRequest struct {
	Key     string `json:"key"`
	BlockID string `json:"blockId"`
	Offset  int    `json:"offset"`
}

type pageRequest struct {
	Page int `json:"page"`
}

type settingsRequest struct {
	Language     *string                               `json:"language,omitempty"`
	DefaultVoice models.Change[models.VoiceAssignment] `json:"defaultVoice"`
}

type patchRequest struct {
	Operations []patch.Operation `json:"operations"`
}

type patchResponse struct {
	Touched  []string          `json:"touched"`
	Skipped  int               `json:"skipped"`
	Outcomes []patch.Outcome   `json:"outcomes"`
	Document document.Snapshot `json:"document"`
}

type topicRequest struct {
	Topic string `json:"topic"`
}

type instructionRequest struct {
	Instruction string `json:"instruction"`
}

type correctionsResponse struct {
	Corrections []models.Correction `json:"corrections"`
}

type correctionResponse struct {
	Correction models.Correction `json:"correction"`
	Document   document.Snapshot `json:"document"`
}

func (s *server) session(r *http.Request) (*session.Session, error) {
	if s.Sessions == nil {
		return nil, errUnavailable
	}
	id, err := scriptID(r)
	if err != nil {
		return nil, err
	}
	return s.Sessions.Open(r.Context(), id)
}

// mutate runs fn on the script's session and writes the resulting snapshot.
func (s *server) mutate(w http.ResponseWriter, r *http.Request, op string, fn func(d *document.Document, resp *mutationResponse) error) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var resp mutationResponse
	err = sess.Do(r.Context(), op, func(d *document.Document) error {
		before := d.Version()
		if err := fn(d, &resp); err != nil {
			return err
		}
		resp.Changed = resp.Changed || d.Version() != before
		resp.Document = d.Snapshot()
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) getDocument(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *server) closeDocument(w http.ResponseWriter, r *http.Request) {
	if s.Sessions == nil {
		s.fail(w, r, errUnavailable)
		return
	}
	id, err := scriptID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.Sessions.Close(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) replaceBlocks(w http.ResponseWriter, r *http.Request) {
	var blocks []models.Block
	if err := decode(r, &blocks); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Validator.Validate(blocks); err != nil {
		s.fail(w, r, err)
		return
	}
	s.mutate(w, r, "replace", func(d *document.Document, _ *mutationResponse) error {
		d.ReplaceBlocks(blocks)
		return nil
	})
}

func (s *server) splitBlock(w http.ResponseWriter, r *http.Request) {
	var pos document.CursorPosition
	if err := decode(r, &pos); err != nil {
		s.fail(w, r, err)
		return
	}
	s.mutate(w, r, "split", func(d *document.Document, resp *mutationResponse) (err error) {
		resp.NewBlockID, err = d.SplitAt(pos)
		return err
	})
}

func (s *server) insertAfter(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	blockID := chi.URLParam(r, "blockID")
	s.mutate(w, r, "insert", func(d *document.Document, resp *mutationResponse) (err error) {
		resp.NewBlockID, err = d.InsertAfter(blockID, req.Text)
		return err
	})
}

func (s *server) updateBlock(w http.ResponseWriter, r *http.Request) {
	var u models.AttributeUpdate
	if err := decode(r, &u); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Validator.Validate(u); err != nil {
		s.fail(w, r, err)
		return
	}
	blockID := chi.URLParam(r, "blockID")
	s.mutate(w, r, "update", func(d *document.Document, _ *mutationResponse) error {
		return d.UpdateAttributes(blockID, u)
	})
}

func (s *server) deleteBlock(w http.ResponseWriter, r *http.Request) {
	blockID := chi.URLParam(r, "blockID")
	s.mutate(w, r, "delete", func(d *document.Document, resp *mutationResponse) (err error) {
		resp.Changed, err = d.DeleteBlock(blockID)
		return err
	})
}

func (s *server) mergeBlock(w http.ResponseWriter, r *http.Request) {
	blockID := chi.URLParam(r, "blockID")
	s.mutate(w, r, "merge", func(d *document.Document, resp *mutationResponse) (err error) {
		resp.Changed, err = d.MergeWithPrevious(blockID)
		return err
	})
}

func (s *server) moveBlock(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	blockID := chi.URLParam(r, "blockID")
	s.mutate(w, r, "reorder", func(d *document.Document, resp *mutationResponse) (err error) {
		resp.Changed, err = d.Reorder(blockID, req.TargetID)
		return err
	})
}

func (s *server) handleKey(w http.ResponseWriter, r *http.Request) {
	var req keyRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	key, err := document.ParseKey(req.Key)
	if err != nil {
		s.fail(w, r, badRequest{err})
		return
	}
	s.mutate(w, r, "key", func(d *document.Document, resp *mutationResponse) error {
		res, err := d.HandleKey(key, document.CursorPosition{BlockID: req.BlockID, Offset: req.Offset})
		if err != nil {
			return err
		}
		resp.Action = string(res.Action)
		resp.NewBlockID = res.NewBlockID
		return nil
	})
}

func (s *server) setFocus(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.mutate(w, r, "focus", func(d *document.Document, _ *mutationResponse) error {
		return d.SetFocus(req.BlockID)
	})
}

func (s *server) toggleSelection(w http.ResponseWriter, r *http.Request) {
	var req blockRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.mutate(w, r, "select", func(d *document.Document, _ *mutationResponse) error {
		return d.ToggleMultiSelect(req.BlockID)
	})
}

func (s *server) selectAll(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "select_all", func(d *document.Document, _ *mutationResponse) error {
		d.SelectAll()
		return nil
	})
}

func (s *server) clearSelection(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "clear_selection", func(d *document.Document, _ *mutationResponse) error {
		d.ClearSelection()
		return nil
	})
}

func (s *server) setPage(w http.ResponseWriter, r *http.Request) {
	var req pageRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	s.mutate(w, r, "page", func(d *document.Document, resp *mutationResponse) error {
		resp.Changed = d.SetPage(req.Page)
		return nil
	})
}

func (s *server) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.DefaultVoice.IsSet() && req.DefaultVoice.Value().VoiceID == "" {
		s.fail(w, r, invalid("defaultVoice.voiceId required"))
		return
	}
	s.mutate(w, r, "settings", func(d *document.Document, resp *mutationResponse) error {
		if req.Language != nil {
			if err := d.SetLanguage(*req.Language); err != nil {
				return badRequest{err}
			}
			resp.Changed = true
		}
		switch {
		case req.DefaultVoice.IsSet():
			v := req.DefaultVoice.Value()
			d.SetDefaultVoice(&v)
			resp.Changed = true
		case req.DefaultVoice.IsClear():
			d.SetDefaultVoice(nil)
			resp.Changed = true
		}
		return nil
	})
}

func (s *server) applyPatch(w http.ResponseWriter, r *http.Request) {
	var req patchRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.Validator.Validate(req.Operations); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, snap := sess.ApplyPatch(r.Context(), req.Operations)
	writeJSON(w, http.StatusOK, patchResponse{
		Touched:  res.Touched,
		Skipped:  res.Skipped,
		Outcomes: res.Outcomes,
		Document: snap,
	})
}

func correctionIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalid("invalid correction index %q", raw)
	}
	return i, nil
}

func (s *server) applyCorrection(w http.ResponseWriter, r *http.Request) {
	s.takeCorrection(w, r, "apply_correction", (*document.Document).ApplyCorrection)
}

func (s *server) dismissCorrection(w http.ResponseWriter, r *http.Request) {
	s.takeCorrection(w, r, "dismiss_correction", (*document.Document).DismissCorrection)
}

func (s *server) takeCorrection(w http.ResponseWriter, r *http.Request, op string, take func(*document.Document, int) (models.Correction, error)) {
	index, err := correctionIndex(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var resp correctionResponse
	err = sess.Do(r.Context(), op, func(d *document.Document) error {
		c, err := take(d, index)
		resp = correctionResponse{Correction: c, Document: d.Snapshot()}
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) generate(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := sess.Generate(r.Context(), req.Topic); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{Changed: true, Document: sess.Snapshot()})
}

func (s *server) edit(w http.ResponseWriter, r *http.Request) {
	var req instructionRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := sess.Edit(r.Context(), req.Instruction)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, patchResponse{
		Touched:  res.Touched,
		Skipped:  res.Skipped,
		Outcomes: res.Outcomes,
		Document: sess.Snapshot(),
	})
}

func (s *server) factCheck(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	corrections, err := sess.FactCheck(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if corrections == nil {
		corrections = []models.Correction{}
	}
	writeJSON(w, http.StatusOK, correctionsResponse{Corrections: corrections})
}

func (s *server) save(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	event, err := sess.Save(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func renderTarget(r *http.Request) (session.RenderTarget, error) {
	switch scope := r.URL.Query().Get("scope"); scope {
	case "", "selection":
		return session.RenderSelection, nil
	case "document":
		return session.RenderDocument, nil
	default:
		return 0, invalid("invalid scope %q", scope)
	}
}

func (s *server) ssml(w http.ResponseWriter, r *http.Request) {
	target, err := renderTarget(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/ssml+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sess.SSML(target)))
}

func (s *server) audio(w http.ResponseWriter, r *http.Request) {
	target, err := renderTarget(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.session(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := sess.Render(r.Context(), target)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("X-Render-Key", res.Key)
	w.Header().Set("X-Render-Cached", strconv.FormatBool(res.Cached))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Audio)
}
