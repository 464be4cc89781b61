package document

import (
	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/pagination"
)

// Focused returns the focused block id, or "".
func (d *Document) Focused() string { return d.focused }

// SetFocus focuses a block. An empty id clears focus.
func (d *Document) SetFocus(blockID string) error {
	if blockID == "" {
		d.focused = ""
		return nil
	}
	if d.index(blockID) < 0 {
		return notFound(blockID)
	}
	d.focused = blockID
	return nil
}

// ToggleMultiSelect adds the block to the multi-selection, or removes it if
// already selected.
func (d *Document) ToggleMultiSelect(blockID string) error {
	if d.index(blockID) < 0 {
		return notFound(blockID)
	}
	if _, ok := d.selected[blockID]; ok {
		delete(d.selected, blockID)
		return nil
	}
	d.selected[blockID] = struct{}{}
	return nil
}

// SelectAll selects every block.
func (d *Document) SelectAll() {
	for _, b := range d.blocks {
		d.selected[b.ID] = struct{}{}
	}
}

// ClearSelection empties the multi-selection.
func (d *Document) ClearSelection() {
	d.selected = make(map[string]struct{})
}

// IsSelected reports whether the block is in the multi-selection.
func (d *Document) IsSelected(blockID string) bool {
	_, ok := d.selected[blockID]
	return ok
}

// SelectedIDs returns the multi-selected ids in document order.
func (d *Document) SelectedIDs() []string {
	out := make([]string, 0, len(d.selected))
	for _, b := range d.blocks {
		if _, ok := d.selected[b.ID]; ok {
			out = append(out, b.ID)
		}
	}
	return out
}

// SelectedBlocks returns copies of the multi-selected blocks in document order.
func (d *Document) SelectedBlocks() []models.Block {
	var out []models.Block
	for _, b := range d.blocks {
		if _, ok := d.selected[b.ID]; ok {
			out = append(out, b.Clone())
		}
	}
	return out
}

// Page returns the current 1-based page.
func (d *Document) Page() int { return d.page }

// PageSize returns the number of blocks per page.
func (d *Document) PageSize() int { return d.pageSize }

// TotalPages returns the page count, at least 1.
func (d *Document) TotalPages() int {
	return pagination.TotalPages(len(d.blocks), d.pageSize)
}

// SetPage moves to page n. Pages outside [1, TotalPages] are ignored.
func (d *Document) SetPage(n int) bool {
	if n < 1 || n > d.TotalPages() {
		return false
	}
	d.page = n
	return true
}

// PageBlocks returns copies of the blocks on the current page.
func (d *Document) PageBlocks() []models.Block {
	return models.CloneBlocks(pagination.Page(d.blocks, d.pageSize, d.page))
}
