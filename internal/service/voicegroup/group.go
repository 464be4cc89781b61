// Package voicegroup partitions blocks into contiguous runs sharing a voice.
package voicegroup

import "ai-script-editor-service/internal/models"

// Group is a contiguous run of blocks with the same effective voice.
type Group struct {
	// Voice is the assigned voice id of every block in the group,
	// or "" when the blocks have no voice.
	Voice  string
	Blocks []models.Block
}

// VoiceID returns the voice to render the group with, falling back to
// defaultVoiceID for unassigned groups.
func (g Group) VoiceID(defaultVoiceID string) string {
	if g.Voice == "" {
		return defaultVoiceID
	}
	return g.Voice
}

// Split groups blocks in a single left-to-right scan, starting a new group
// whenever the effective voice changes. The groups partition the input and
// preserve its order.
func Split(blocks []models.Block) []Group {
	if len(blocks) == 0 {
		return nil
	}

	var groups []Group
	current := Group{Voice: blocks[0].VoiceID()}
	for _, b := range blocks {
		voice := b.VoiceID()
		if voice != current.Voice {
			groups = append(groups, current)
			current = Group{Voice: voice}
		}
		current.Blocks = append(current.Blocks, b)
	}
	return append(groups, current)
}

// Flatten concatenates the blocks of all groups.
func Flatten(groups []Group) []models.Block {
	var out []models.Block
	for _, g := range groups {
		out = append(out, g.Blocks...)
	}
	return out
}
