package document

import (
	"fmt"
	"strings"
)

// Key is an editing key handled at block granularity.
type Key string

const (
	KeyEnter     Key = "Enter"
	KeyBackspace Key = "Backspace"
	KeyArrowUp   Key = "ArrowUp"
	KeyArrowDown Key = "ArrowDown"
)

// ParseKey maps a key name, case-insensitively, to a Key.
func ParseKey(s string) (Key, error) {
	for _, k := range []Key{KeyEnter, KeyBackspace, KeyArrowUp, KeyArrowDown} {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unsupported key %q", s)
}

// Action is what HandleKey did.
type Action string

const (
	// ActionNone means the key stays inside the block text.
	ActionNone   Action = "none"
	ActionSplit  Action = "split"
	ActionMerge  Action = "merge"
	ActionDelete Action = "delete"
	ActionFocus  Action = "focus"
)

// KeyResult describes the effect of a key press.
type KeyResult struct {
	Action     Action `json:"action"`
	FocusedID  string `json:"focusedBlockId,omitempty"`
	NewBlockID string `json:"newBlockId,omitempty"`
}

// Handled reports whether the key changed block-level state.
func (r KeyResult) Handled() bool { return r.Action != ActionNone }

// HandleKey applies the block-level behaviour of a key pressed at pos.
//
//	Enter      split at the cursor
//	Backspace  empty block: merge into the predecessor, or delete when first
//	           offset 0: merge into the predecessor
//	ArrowUp    at offset 0: focus the previous block
//	ArrowDown  at end of text: focus the next block
func (d *Document) HandleKey(key Key, pos CursorPosition) (KeyResult, error) {
	i := d.index(pos.BlockID)
	if i < 0 {
		return KeyResult{Action: ActionNone}, notFound(pos.BlockID)
	}
	textLen := len([]rune(d.blocks[i].Text))
	offset := clamp(pos.Offset, 0, textLen)
	none := KeyResult{Action: ActionNone, FocusedID: d.focused}

	switch key {
	case KeyEnter:
		id, err := d.SplitAt(CursorPosition{BlockID: pos.BlockID, Offset: offset})
		if err != nil {
			return none, err
		}
		return KeyResult{Action: ActionSplit, FocusedID: id, NewBlockID: id}, nil

	case KeyBackspace:
		switch {
		case offset == 0 && i > 0:
			prevID := d.blocks[i-1].ID
			if _, err := d.MergeWithPrevious(pos.BlockID); err != nil {
				return none, err
			}
			return KeyResult{Action: ActionMerge, FocusedID: prevID}, nil
		case textLen == 0 && len(d.blocks) > 1:
			if _, err := d.DeleteBlock(pos.BlockID); err != nil {
				return none, err
			}
			d.focused = d.blocks[0].ID
			return KeyResult{Action: ActionDelete, FocusedID: d.focused}, nil
		}
		return none, nil

	case KeyArrowUp:
		if offset == 0 && i > 0 {
			d.focused = d.blocks[i-1].ID
			return KeyResult{Action: ActionFocus, FocusedID: d.focused}, nil
		}
		return none, nil

	case KeyArrowDown:
		if offset == textLen && i < len(d.blocks)-1 {
			d.focused = d.blocks[i+1].ID
			return KeyResult{Action: ActionFocus, FocusedID: d.focused}, nil
		}
		return none, nil
	}
	return none, fmt.Errorf("unsupported key %q", key)
}
