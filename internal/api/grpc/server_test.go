package grpcapi

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/document"
	"ai-script-editor-service/internal/service/patch"
	"ai-script-editor-service/internal/service/session"
	"ai-script-editor-service/internal/store"
)

type memStore struct {
	scripts map[int64]*models.Script
}

func (m *memStore) Get(ctx context.Context, id int64) (*models.Script, error) {
	if s, ok := m.scripts[id]; ok {
		return s, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) SaveBlocks(ctx context.Context, id int64, blocks []models.Block) error {
	return nil
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	st := &memStore{scripts: map[int64]*models.Script{
		1: {ID: 1, Blocks: []models.Block{{ID: "a", Text: "Hello"}, {ID: "b", Text: "World"}}},
	}}
	manager := session.NewManager(session.Config{}, session.Deps{Store: st})
	t.Cleanup(manager.CloseAll)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, manager)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestGetDocument(t *testing.T) {
	c := newTestClient(t)
	snap, err := c.GetDocument(context.Background(), &GetDocumentRequest{ScriptID: 1})
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if len(snap.Blocks) != 2 || snap.Blocks[0].Text != "Hello" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestApplyPatch(t *testing.T) {
	c := newTestClient(t)
	resp, err := c.ApplyPatch(context.Background(), &ApplyPatchRequest{
		ScriptID:   1,
		Operations: []patch.Operation{patch.Update("a", "Hi"), patch.Delete("zzz")},
	})
	if err != nil {
		t.Fatalf("ApplyPatch: %v", err)
	}
	if resp.Skipped != 1 || len(resp.Touched) != 1 || resp.Touched[0] != "a" {
		t.Errorf("resp = %+v", resp)
	}

	_, err = c.ApplyPatch(context.Background(), &ApplyPatchRequest{
		ScriptID:   1,
		Operations: []patch.Operation{{Operation: "explode"}},
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("invalid patch code = %v", status.Code(err))
	}
}

func TestRenderMarkup(t *testing.T) {
	c := newTestClient(t)
	resp, err := c.RenderMarkup(context.Background(), &RenderMarkupRequest{ScriptID: 1, Scope: "document"})
	if err != nil {
		t.Fatalf("RenderMarkup: %v", err)
	}
	want := `<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="en-US">HelloWorld</speak>`
	if resp.SSML != want {
		t.Errorf("ssml = %q", resp.SSML)
	}
	if len(resp.Fingerprint) != 16 {
		t.Errorf("fingerprint = %q", resp.Fingerprint)
	}

	if _, err := c.RenderMarkup(context.Background(), &RenderMarkupRequest{ScriptID: 1, Scope: "bogus"}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("bad scope code = %v", status.Code(err))
	}
}

func TestGetDocumentUnknownScript(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.GetDocument(context.Background(), &GetDocumentRequest{ScriptID: 99}); status.Code(err) != codes.NotFound {
		t.Errorf("code = %v", status.Code(err))
	}
}

func TestToStatus(t *testing.T) {
	if code := status.Code(toStatus(document.ErrNotFound)); code != codes.NotFound {
		t.Errorf("not found code = %v", code)
	}
	if code := status.Code(toStatus(session.ErrStaleResponse)); code != codes.Aborted {
		t.Errorf("stale code = %v", code)
	}
}
