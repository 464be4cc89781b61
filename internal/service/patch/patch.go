// Package patch applies batches of AI-produced edit operations to a block list.
package patch

import (
	"encoding/json"
	"errors"
	"fmt"

	"ai-script-editor-service/internal/models"
)

// Kind is the type of a patch operation.
type Kind string

const (
	KindCreate Kind = "create"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// ErrInvalidPatch is returned when an operation batch cannot be decoded or
// contains a malformed operation. The whole batch is rejected.
var ErrInvalidPatch = errors.New("invalid patch")

// Operation is one create/update/delete step.
type Operation struct {
	Operation      Kind   `json:"operation"`
	Content        string `json:"content,omitempty"`
	InsertBeforeID string `json:"insertBeforeId,omitempty"`
	BlockID        string `json:"blockId,omitempty"`
}

// Create returns a create operation. An empty before id appends.
func Create(content, insertBeforeID string) Operation {
	return Operation{Operation: KindCreate, Content: content, InsertBeforeID: insertBeforeID}
}

// Update returns an update operation.
func Update(blockID, content string) Operation {
	return Operation{Operation: KindUpdate, BlockID: blockID, Content: content}
}

// Delete returns a delete operation.
func Delete(blockID string) Operation {
	return Operation{Operation: KindDelete, BlockID: blockID}
}

// Validate checks the operation shape.
func (op Operation) Validate() error {
	switch op.Operation {
	case KindCreate:
		return nil
	case KindUpdate, KindDelete:
		if op.BlockID == "" {
			return fmt.Errorf("%w: %s operation without blockId", ErrInvalidPatch, op.Operation)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown operation %q", ErrInvalidPatch, op.Operation)
	}
}

// Outcome records what happened to a single operation.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
)

// Result is the outcome of applying a batch.
type Result struct {
	Blocks []models.Block
	// Touched holds the ids created or updated by the batch that are still
	// present in Blocks, in first-touch order.
	Touched []string
	// Skipped counts operations that referenced a missing block or would
	// have emptied the document.
	Skipped  int
	Outcomes []Outcome
}

// Changed reports whether any operation was applied.
func (r Result) Changed() bool {
	return len(r.Outcomes) > r.Skipped
}

// IDFunc generates fresh block ids.
type IDFunc func() string

// Apply runs ops in order against a working copy of blocks. Later operations
// observe the effects of earlier ones. The input slice is never modified.
//
// Created and updated blocks carry the animation flag. A delete that would
// leave the working copy empty is skipped.
func Apply(blocks []models.Block, ops []Operation, newID IDFunc) Result {
	work := models.CloneBlocks(blocks)
	res := Result{Outcomes: make([]Outcome, 0, len(ops))}
	touched := make(map[string]bool)
	var order []string

	touch := func(id string) {
		if !touched[id] {
			touched[id] = true
			order = append(order, id)
		}
	}
	record := func(ok bool) {
		if ok {
			res.Outcomes = append(res.Outcomes, OutcomeApplied)
			return
		}
		res.Skipped++
		res.Outcomes = append(res.Outcomes, OutcomeSkipped)
	}

	for _, op := range ops {
		switch op.Operation {
		case KindCreate:
			b := models.Block{ID: newID(), Text: op.Content, Animated: true}
			at := len(work)
			if op.InsertBeforeID != "" {
				if i := indexOf(work, op.InsertBeforeID); i >= 0 {
					at = i
				}
			}
			work = insertAt(work, at, b)
			touch(b.ID)
			record(true)

		case KindUpdate:
			i := indexOf(work, op.BlockID)
			if i < 0 {
				record(false)
				continue
			}
			work[i].Text = op.Content
			work[i].Animated = true
			touch(work[i].ID)
			record(true)

		case KindDelete:
			i := indexOf(work, op.BlockID)
			if i < 0 || len(work) == 1 {
				record(false)
				continue
			}
			work = append(work[:i], work[i+1:]...)
			record(true)

		default:
			record(false)
		}
	}

	res.Blocks = work
	for _, id := range order {
		if indexOf(work, id) >= 0 {
			res.Touched = append(res.Touched, id)
		}
	}
	return res
}

// Parse decodes an operation batch. It accepts either a bare JSON array or an
// object with an "operations" array. Any malformed operation rejects the batch.
func Parse(data []byte) ([]Operation, error) {
	var ops []Operation
	if err := json.Unmarshal(data, &ops); err != nil {
		var wrapped struct {
			Operations *[]Operation `json:"operations"`
		}
		if werr := json.Unmarshal(data, &wrapped); werr != nil || wrapped.Operations == nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
		ops = *wrapped.Operations
	}
	for i, op := range ops {
		if err := op.Validate(); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
	}
	return ops, nil
}

func indexOf(blocks []models.Block, id string) int {
	for i := range blocks {
		if blocks[i].ID == id {
			return i
		}
	}
	return -1
}

func insertAt(blocks []models.Block, i int, b models.Block) []models.Block {
	blocks = append(blocks, models.Block{})
	copy(blocks[i+1:], blocks[i:])
	blocks[i] = b
	return blocks
}
