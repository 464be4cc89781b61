package inflight

import (
	"errors"
	"testing"
)

func TestTicket_Transitions(t *testing.T) {
	failure := errors.New("boom")

	tests := []struct {
		name     string
		settle   func(*Ticket) error
		expected State
		err      error
	}{
		{"apply", (*Ticket).Apply, StateApplied, nil},
		{"discard", (*Ticket).Discard, StateDiscarded, nil},
		{"fail", func(t *Ticket) error { return t.Fail(failure) }, StateFailed, failure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := NewTicket("r-1", "ai", 1)

			if err := tt.settle(tk); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tk.State() != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, tk.State())
			}
			if tk.Err() != tt.err {
				t.Errorf("expected err %v, got %v", tt.err, tk.Err())
			}
			if !tk.State().IsTerminal() {
				t.Error("expected terminal state")
			}
		})
	}
}

func TestTicket_SettlesOnce(t *testing.T) {
	tk := NewTicket("r-1", "ai", 1)
	tk.Apply()

	if err := tk.Discard(); !errors.Is(err, ErrTicketSettled) {
		t.Errorf("expected ErrTicketSettled, got %v", err)
	}
	if err := tk.Fail(errors.New("late")); !errors.Is(err, ErrTicketSettled) {
		t.Errorf("expected ErrTicketSettled, got %v", err)
	}
	if tk.State() != StateApplied {
		t.Errorf("state changed after settle: %v", tk.State())
	}
}

func TestTicket_IsStale(t *testing.T) {
	tk := NewTicket("r-1", "ai", 3)

	if tk.IsStale(3) {
		t.Error("same version must not be stale")
	}
	if !tk.IsStale(4) {
		t.Error("newer version must be stale")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StatePending, "PENDING"},
		{StateApplied, "APPLIED"},
		{StateDiscarded, "DISCARDED"},
		{StateFailed, "FAILED"},
		{State(99), "UNKNOWN(99)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %v, want %v", tt.state, got, tt.expected)
		}
	}
}
