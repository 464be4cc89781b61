// Package models defines the data structures shared by the editor core,
// its collaborators and the transport layers.
package models

// EmphasisLevel is the strength of an emphasis marker.
type EmphasisLevel string

const (
	EmphasisStrong   EmphasisLevel = "strong"
	EmphasisModerate EmphasisLevel = "moderate"
	EmphasisReduced  EmphasisLevel = "reduced"
)

// ProsodyRate is the speaking rate of a prosody marker.
type ProsodyRate string

const (
	RateXSlow  ProsodyRate = "x-slow"
	RateSlow   ProsodyRate = "slow"
	RateMedium ProsodyRate = "medium"
	RateFast   ProsodyRate = "fast"
	RateXFast  ProsodyRate = "x-fast"
)

// ProsodyPitch is the baseline pitch of a prosody marker.
type ProsodyPitch string

const (
	PitchXLow   ProsodyPitch = "x-low"
	PitchLow    ProsodyPitch = "low"
	PitchMedium ProsodyPitch = "medium"
	PitchHigh   ProsodyPitch = "high"
	PitchXHigh  ProsodyPitch = "x-high"
)

// ProsodyVolume is the volume of a prosody marker.
type ProsodyVolume string

const (
	VolumeSilent ProsodyVolume = "silent"
	VolumeXSoft  ProsodyVolume = "x-soft"
	VolumeSoft   ProsodyVolume = "soft"
	VolumeMedium ProsodyVolume = "medium"
	VolumeLoud   ProsodyVolume = "loud"
	VolumeXLoud  ProsodyVolume = "x-loud"
)

// PhonemeAlphabet is the phonetic alphabet used by a phoneme marker.
type PhonemeAlphabet string

const (
	AlphabetIPA    PhonemeAlphabet = "ipa"
	AlphabetXSampa PhonemeAlphabet = "x-sampa"
)

// Break is a pause appended after the block content.
type Break struct {
	TimeMs int `json:"timeMs"`
}

// Emphasis wraps the block content in an emphasis marker.
type Emphasis struct {
	Level EmphasisLevel `json:"level"`
}

// Prosody wraps the block content in a prosody marker. Every field is optional.
type Prosody struct {
	Rate   ProsodyRate   `json:"rate,omitempty"`
	Pitch  ProsodyPitch  `json:"pitch,omitempty"`
	Volume ProsodyVolume `json:"volume,omitempty"`
}

// IsEmpty reports whether no prosody sub-field is set.
func (p Prosody) IsEmpty() bool {
	return p.Rate == "" && p.Pitch == "" && p.Volume == ""
}

// Phoneme overrides the pronunciation of the block content.
type Phoneme struct {
	Alphabet      PhonemeAlphabet `json:"alphabet"`
	Pronunciation string          `json:"ph"`
}

// VoiceAssignment binds a block to a synthesis voice.
type VoiceAssignment struct {
	VoiceID   string `json:"voiceId"`
	VoiceName string `json:"voiceName"`
}

// Attributes is the set of speech-markup attributes of a block.
// Each attribute is independently present (non-nil) or absent (nil).
type Attributes struct {
	Break    *Break           `json:"break,omitempty"`
	Emphasis *Emphasis        `json:"emphasis,omitempty"`
	Prosody  *Prosody         `json:"prosody,omitempty"`
	Phoneme  *Phoneme         `json:"phoneme,omitempty"`
	Voice    *VoiceAssignment `json:"voice,omitempty"`
}

// Clone returns a deep copy of the attribute set.
func (a Attributes) Clone() Attributes {
	out := Attributes{}
	if a.Break != nil {
		v := *a.Break
		out.Break = &v
	}
	if a.Emphasis != nil {
		v := *a.Emphasis
		out.Emphasis = &v
	}
	if a.Prosody != nil {
		v := *a.Prosody
		out.Prosody = &v
	}
	if a.Phoneme != nil {
		v := *a.Phoneme
		out.Phoneme = &v
	}
	if a.Voice != nil {
		v := *a.Voice
		out.Voice = &v
	}
	return out
}

// Block is the atomic unit of a script document.
// ID is immutable for the lifetime of the block.
type Block struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Attributes
	// Animated is set right after an AI-driven create or update and cleared
	// after one UI animation cycle. It is never persisted or fingerprinted.
	Animated bool `json:"isAnimated,omitempty"`
}

// Clone returns a deep copy of the block.
func (b Block) Clone() Block {
	out := b
	out.Attributes = b.Attributes.Clone()
	return out
}

// VoiceID returns the assigned voice id, or "" when the block has no voice.
func (b Block) VoiceID() string {
	if b.Voice == nil {
		return ""
	}
	return b.Voice.VoiceID
}

// CloneBlocks deep-copies a block slice.
func CloneBlocks(blocks []Block) []Block {
	if blocks == nil {
		return nil
	}
	out := make([]Block, len(blocks))
	for i, b := range blocks {
		out[i] = b.Clone()
	}
	return out
}

// StripTransient returns a deep copy of blocks with transient flags cleared.
func StripTransient(blocks []Block) []Block {
	out := CloneBlocks(blocks)
	for i := range out {
		out[i].Animated = false
	}
	return out
}

// BlockRef is the id/text pair sent to AI collaborators.
type BlockRef struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Refs projects blocks to id/text pairs.
func Refs(blocks []Block) []BlockRef {
	out := make([]BlockRef, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, BlockRef{ID: b.ID, Text: b.Text})
	}
	return out
}
