package document

import (
	"errors"

	"ai-script-editor-service/internal/models"
)

// ErrNoCorrection is returned for an out-of-range correction index.
var ErrNoCorrection = errors.New("no such correction")

// Corrections returns a copy of the pending fact-check corrections.
func (d *Document) Corrections() []models.Correction {
	out := make([]models.Correction, len(d.corrections))
	copy(out, d.corrections)
	return out
}

// SetCorrections replaces the pending corrections. nil clears them.
func (d *Document) SetCorrections(cs []models.Correction) {
	d.corrections = append([]models.Correction(nil), cs...)
}

// ApplyCorrection replaces the target block's text with the suggested
// content and removes the correction. If the block no longer exists the
// correction is still dropped and a NotFoundError is returned.
func (d *Document) ApplyCorrection(index int) (models.Correction, error) {
	c, err := d.takeCorrection(index)
	if err != nil {
		return c, err
	}
	i := d.index(c.BlockID)
	if i < 0 {
		return c, notFound(c.BlockID)
	}
	d.blocks[i].Text = c.UpdatedContent
	d.changed()
	return c, nil
}

// DismissCorrection removes a correction without applying it.
func (d *Document) DismissCorrection(index int) (models.Correction, error) {
	return d.takeCorrection(index)
}

// HighestSeverity returns the most severe pending correction for a block.
func (d *Document) HighestSeverity(blockID string) (models.Severity, bool) {
	var best models.Severity
	found := false
	for _, c := range d.corrections {
		if c.BlockID != blockID {
			continue
		}
		if !found || c.Severity.Rank() > best.Rank() {
			best = c.Severity
			found = true
		}
	}
	return best, found
}

func (d *Document) takeCorrection(index int) (models.Correction, error) {
	if index < 0 || index >= len(d.corrections) {
		return models.Correction{}, ErrNoCorrection
	}
	c := d.corrections[index]
	d.corrections = append(d.corrections[:index:index], d.corrections[index+1:]...)
	return c, nil
}
