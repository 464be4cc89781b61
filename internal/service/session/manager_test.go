package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-script-editor-service/internal/models"
)

func TestManagerOpenLoadsOnce(t *testing.T) {
	store := &fakeStore{scripts: map[int64]*models.Script{
		7: {ID: 7, Title: "t", Blocks: []models.Block{{ID: "a", Text: "hello"}}},
	}}
	m := NewManager(Config{}, Deps{Store: store})
	defer m.CloseAll()

	var wg sync.WaitGroup
	sessions := make([]*Session, 8)
	for i := range sessions {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.Open(context.Background(), 7)
			if err != nil {
				t.Errorf("Open: %v", err)
				return
			}
			sessions[i] = s
		}()
	}
	wg.Wait()

	for _, s := range sessions[1:] {
		if s != sessions[0] {
			t.Fatal("expected all opens to share one session")
		}
	}
	if store.loads != 1 {
		t.Errorf("loads = %d, want 1", store.loads)
	}
	if got := sessions[0].Snapshot().Blocks[0].Text; got != "hello" {
		t.Errorf("text = %q", got)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d", m.Len())
	}
}

func TestManagerOpenMissing(t *testing.T) {
	m := NewManager(Config{}, Deps{Store: &fakeStore{}})
	if _, err := m.Open(context.Background(), 1); err == nil {
		t.Fatal("expected error for missing script")
	}
	if m.Len() != 0 {
		t.Errorf("Len = %d, want 0", m.Len())
	}
}

func TestManagerClose(t *testing.T) {
	m := NewManager(Config{}, Deps{})
	if _, err := m.Open(context.Background(), 3); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !m.Close(3) {
		t.Error("Close returned false for open session")
	}
	if m.Close(3) {
		t.Error("Close returned true for closed session")
	}
	if _, ok := m.Get(3); ok {
		t.Error("session still present after Close")
	}
}

// slowStore blocks Get until release is closed or ctx is done.
type slowStore struct {
	fakeStore
	started chan struct{}
	release chan struct{}
}

func (s *slowStore) Get(ctx context.Context, id int64) (*models.Script, error) {
	close(s.started)
	select {
	case <-s.release:
		return s.fakeStore.Get(ctx, id)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestManagerOpenWaiterSurvivesStarterCancel(t *testing.T) {
	store := &slowStore{
		fakeStore: fakeStore{scripts: map[int64]*models.Script{
			4: {ID: 4, Blocks: []models.Block{{ID: "a", Text: "kept"}}},
		}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := NewManager(Config{}, Deps{Store: store})
	defer m.CloseAll()

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := m.Open(firstCtx, 4)
		firstErr <- err
	}()
	<-store.started

	type result struct {
		s   *Session
		err error
	}
	second := make(chan result, 1)
	go func() {
		s, err := m.Open(context.Background(), 4)
		second <- result{s, err}
	}()

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first Open err = %v, want context.Canceled", err)
	}

	time.Sleep(20 * time.Millisecond)
	close(store.release)

	got := <-second
	if got.err != nil {
		t.Fatalf("second Open: %v", got.err)
	}
	if text := got.s.Snapshot().Blocks[0].Text; text != "kept" {
		t.Errorf("text = %q", text)
	}
	if m.Len() != 1 {
		t.Errorf("Len = %d, want 1", m.Len())
	}
}
