package models

import (
	"bytes"
	"encoding/json"
)

type changeOp uint8

const (
	changeKeep changeOp = iota
	changeSet
	changeClear
)

// Change is a tri-state field update: the zero value leaves the field
// untouched, Set replaces it and Clear removes it.
//
// When decoded from JSON a missing key keeps the field, an explicit null
// clears it and any other value sets it.
type Change[T any] struct {
	op    changeOp
	value T
}

// Set returns a change that assigns v.
func Set[T any](v T) Change[T] {
	return Change[T]{op: changeSet, value: v}
}

// Clear returns a change that removes the field.
func Clear[T any]() Change[T] {
	return Change[T]{op: changeClear}
}

// IsSet reports whether the change assigns a value.
func (c Change[T]) IsSet() bool { return c.op == changeSet }

// IsClear reports whether the change removes the field.
func (c Change[T]) IsClear() bool { return c.op == changeClear }

// IsZero reports whether the change leaves the field untouched.
func (c Change[T]) IsZero() bool { return c.op == changeKeep }

// Value returns the assigned value.
func (c Change[T]) Value() T { return c.value }

// UnmarshalJSON implements json.Unmarshaler.
func (c *Change[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = Clear[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Set(v)
	return nil
}

// apply resolves the change against the current pointer value.
func apply[T any](cur *T, c Change[T]) *T {
	switch c.op {
	case changeSet:
		v := c.value
		return &v
	case changeClear:
		return nil
	default:
		return cur
	}
}

// AttributeUpdate is a partial update of a block's text and attributes.
type AttributeUpdate struct {
	Text     *string                 `json:"text,omitempty"`
	Break    Change[Break]           `json:"break"`
	Emphasis Change[Emphasis]        `json:"emphasis"`
	Prosody  Change[Prosody]         `json:"prosody"`
	Phoneme  Change[Phoneme]         `json:"phoneme"`
	Voice    Change[VoiceAssignment] `json:"voice"`
}

// IsEmpty reports whether the update changes nothing.
func (u AttributeUpdate) IsEmpty() bool {
	return u.Text == nil && u.Break.IsZero() && u.Emphasis.IsZero() &&
		u.Prosody.IsZero() && u.Phoneme.IsZero() && u.Voice.IsZero()
}

// ApplyTo returns a copy of b with the update merged in.
func (u AttributeUpdate) ApplyTo(b Block) Block {
	out := b.Clone()
	if u.Text != nil {
		out.Text = *u.Text
	}
	out.Break = apply(out.Break, u.Break)
	out.Emphasis = apply(out.Emphasis, u.Emphasis)
	out.Prosody = apply(out.Prosody, u.Prosody)
	out.Phoneme = apply(out.Phoneme, u.Phoneme)
	out.Voice = apply(out.Voice, u.Voice)
	return out
}
