package document

import (
	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/patch"
)

// SplitAt splits the block at pos into [0, offset) and [offset, end). The
// first half stays in place, the second half moves to a new block inserted
// right after it, and the new block is focused. The offset is clamped to the
// text length.
func (d *Document) SplitAt(pos CursorPosition) (string, error) {
	i := d.index(pos.BlockID)
	if i < 0 {
		return "", notFound(pos.BlockID)
	}
	text := []rune(d.blocks[i].Text)
	k := clamp(pos.Offset, 0, len(text))

	d.blocks[i].Text = string(text[:k])
	return d.insert(i+1, string(text[k:])), nil
}

// InsertAfter inserts a new block holding initialText right after blockID and
// focuses it.
func (d *Document) InsertAfter(blockID, initialText string) (string, error) {
	i := d.index(blockID)
	if i < 0 {
		return "", notFound(blockID)
	}
	return d.insert(i+1, initialText), nil
}

func (d *Document) insert(at int, text string) string {
	b := models.Block{ID: d.freshID(), Text: text}
	d.blocks = append(d.blocks, models.Block{})
	copy(d.blocks[at+1:], d.blocks[at:])
	d.blocks[at] = b
	d.focused = b.ID
	d.changed()
	return b.ID
}

// UpdateAttributes merges u into the block. Fields left zero in u are
// untouched.
func (d *Document) UpdateAttributes(blockID string, u models.AttributeUpdate) error {
	i := d.index(blockID)
	if i < 0 {
		return notFound(blockID)
	}
	if u.IsEmpty() {
		return nil
	}
	d.blocks[i] = u.ApplyTo(d.blocks[i])
	d.changed()
	return nil
}

// DeleteBlock removes the block. Deleting the sole remaining block is refused
// and reported as changed=false.
func (d *Document) DeleteBlock(blockID string) (bool, error) {
	i := d.index(blockID)
	if i < 0 {
		return false, notFound(blockID)
	}
	if len(d.blocks) == 1 {
		return false, nil
	}
	d.removeAt(i)
	d.changed()
	return true, nil
}

// MergeWithPrevious appends the block's text to its predecessor, removes the
// block and focuses the predecessor. The predecessor keeps its own
// attributes. Merging the first block is a no-op.
func (d *Document) MergeWithPrevious(blockID string) (bool, error) {
	i := d.index(blockID)
	if i < 0 {
		return false, notFound(blockID)
	}
	if i == 0 {
		return false, nil
	}
	prev := &d.blocks[i-1]
	prev.Text += d.blocks[i].Text
	prevID := prev.ID

	d.removeAt(i)
	d.focused = prevID
	d.changed()
	return true, nil
}

// Reorder moves movedID to targetID's current position, shifting the blocks
// in between.
func (d *Document) Reorder(movedID, targetID string) (bool, error) {
	from := d.index(movedID)
	if from < 0 {
		return false, notFound(movedID)
	}
	to := d.index(targetID)
	if to < 0 {
		return false, notFound(targetID)
	}
	if from == to {
		return false, nil
	}

	moved := d.blocks[from]
	if from < to {
		copy(d.blocks[from:to], d.blocks[from+1:to+1])
	} else {
		copy(d.blocks[to+1:from+1], d.blocks[to:from])
	}
	d.blocks[to] = moved
	d.changed()
	return true, nil
}

// ApplyPatch applies an operation batch and swaps the result in as a whole.
func (d *Document) ApplyPatch(ops []patch.Operation) patch.Result {
	res := patch.Apply(d.blocks, ops, d.freshID)
	if !res.Changed() {
		res.Blocks = d.Blocks()
		return res
	}

	kept := make(map[string]bool, len(res.Blocks))
	for _, b := range res.Blocks {
		kept[b.ID] = true
	}
	for _, b := range d.blocks {
		if !kept[b.ID] {
			d.forget(b.ID)
		}
	}
	d.blocks = res.Blocks
	d.changed()
	res.Blocks = d.Blocks()
	return res
}

// ReplaceBlocks swaps in a new block list, as when loading or seeding a
// script. Empty or duplicate ids are regenerated, an empty list becomes a
// single empty block, focus moves to the first block and selection,
// corrections and the current page reset.
func (d *Document) ReplaceBlocks(blocks []models.Block) {
	out := make([]models.Block, 0, len(blocks)+1)
	seen := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		b = b.Clone()
		if b.ID == "" || seen[b.ID] {
			b.ID = d.uniqueID(seen)
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	if len(out) == 0 {
		out = append(out, models.Block{ID: d.uniqueID(seen)})
	}
	d.blocks = out

	d.focused = d.blocks[0].ID
	d.selected = make(map[string]struct{})
	d.corrections = nil
	d.page = 1
	d.changed()
}

// ClearAnimations resets the animation flag on the given blocks, or on every
// block when no id is given. It does not bump the version.
func (d *Document) ClearAnimations(ids ...string) bool {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	cleared := false
	for i := range d.blocks {
		if !d.blocks[i].Animated {
			continue
		}
		if len(ids) == 0 || want[d.blocks[i].ID] {
			d.blocks[i].Animated = false
			cleared = true
		}
	}
	return cleared
}

func (d *Document) uniqueID(seen map[string]bool) string {
	for {
		id := d.newID()
		if id != "" && !seen[id] {
			return id
		}
	}
}

func (d *Document) removeAt(i int) {
	id := d.blocks[i].ID
	d.blocks = append(d.blocks[:i], d.blocks[i+1:]...)
	d.forget(id)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
