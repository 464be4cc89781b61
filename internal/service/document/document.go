// Package document implements the block document model: an ordered,
// never-empty list of blocks plus focus, multi-selection and pagination state.
//
// A Document is not safe for concurrent use; callers serialize access.
package document

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/markup"
	"ai-script-editor-service/internal/service/pagination"
)

// ErrNotFound matches every NotFoundError.
var ErrNotFound = errors.New("block not found")

// NotFoundError reports a mutation that referenced a block id absent from
// the document. The mutation was a no-op.
type NotFoundError struct {
	BlockID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("block %q not found", e.BlockID)
}

// Is makes errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func notFound(id string) error {
	return &NotFoundError{BlockID: id}
}

// CursorPosition is a caret location inside a block, in runes.
type CursorPosition struct {
	BlockID string `json:"blockId"`
	Offset  int    `json:"offset"`
}

// Document is the editor state for one script.
type Document struct {
	blocks       []models.Block
	focused      string
	selected     map[string]struct{}
	page         int
	pageSize     int
	language     string
	defaultVoice *models.VoiceAssignment
	corrections  []models.Correction
	version      uint64
	newID        func() string
}

// Option configures a Document.
type Option func(*Document)

// WithPageSize sets the number of blocks per page.
func WithPageSize(n int) Option {
	return func(d *Document) {
		if n > 0 {
			d.pageSize = n
		}
	}
}

// WithIDGenerator overrides the block id generator.
func WithIDGenerator(fn func() string) Option {
	return func(d *Document) {
		if fn != nil {
			d.newID = fn
		}
	}
}

// WithLanguage sets the initial document language. Invalid tags are ignored.
func WithLanguage(lang string) Option {
	return func(d *Document) {
		if norm, err := markup.NormalizeLanguage(lang); err == nil {
			d.language = norm
		}
	}
}

// WithDefaultVoice sets the fallback rendering voice.
func WithDefaultVoice(v *models.VoiceAssignment) Option {
	return func(d *Document) {
		if v != nil && v.VoiceID != "" {
			vv := *v
			d.defaultVoice = &vv
		}
	}
}

// New creates a document holding a single empty block.
func New(opts ...Option) *Document {
	d := &Document{
		selected: make(map[string]struct{}),
		page:     1,
		pageSize: pagination.DefaultPageSize,
		language: markup.DefaultLanguage,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.blocks = []models.Block{{ID: d.freshID()}}
	return d
}

// Version is a counter bumped by every content mutation.
func (d *Document) Version() uint64 { return d.version }

// Len returns the number of blocks.
func (d *Document) Len() int { return len(d.blocks) }

// Blocks returns a deep copy of the ordered blocks.
func (d *Document) Blocks() []models.Block { return models.CloneBlocks(d.blocks) }

// Stripped returns a deep copy of the blocks without transient flags.
func (d *Document) Stripped() []models.Block { return models.StripTransient(d.blocks) }

// Block returns a copy of the block with the given id.
func (d *Document) Block(id string) (models.Block, bool) {
	i := d.index(id)
	if i < 0 {
		return models.Block{}, false
	}
	return d.blocks[i].Clone(), true
}

// Index returns the position of id, or -1.
func (d *Document) Index(id string) int { return d.index(id) }

// Language returns the document language tag.
func (d *Document) Language() string { return d.language }

// SetLanguage validates and stores a BCP-47 language tag.
func (d *Document) SetLanguage(lang string) error {
	norm, err := markup.NormalizeLanguage(lang)
	if err != nil {
		return err
	}
	d.language = norm
	return nil
}

// DefaultVoice returns the fallback rendering voice, or nil.
func (d *Document) DefaultVoice() *models.VoiceAssignment {
	if d.defaultVoice == nil {
		return nil
	}
	v := *d.defaultVoice
	return &v
}

// DefaultVoiceID returns the fallback voice id, or "".
func (d *Document) DefaultVoiceID() string {
	if d.defaultVoice == nil {
		return ""
	}
	return d.defaultVoice.VoiceID
}

// SetDefaultVoice sets the fallback rendering voice. nil clears it.
func (d *Document) SetDefaultVoice(v *models.VoiceAssignment) {
	if v == nil || v.VoiceID == "" {
		d.defaultVoice = nil
		return
	}
	vv := *v
	d.defaultVoice = &vv
}

// Snapshot is an immutable view of the document state.
type Snapshot struct {
	Blocks       []models.Block          `json:"blocks"`
	FocusedID    string                  `json:"focusedBlockId,omitempty"`
	SelectedIDs  []string                `json:"selectedBlockIds"`
	Page         int                     `json:"currentPage"`
	TotalPages   int                     `json:"totalPages"`
	PageSize     int                     `json:"pageSize"`
	Language     string                  `json:"language"`
	DefaultVoice *models.VoiceAssignment `json:"defaultVoice,omitempty"`
	Corrections  []models.Correction     `json:"corrections"`
	Version      uint64                  `json:"version"`
}

// Snapshot copies the full state.
func (d *Document) Snapshot() Snapshot {
	corrections := make([]models.Correction, len(d.corrections))
	copy(corrections, d.corrections)
	return Snapshot{
		Blocks:       d.Blocks(),
		FocusedID:    d.focused,
		SelectedIDs:  d.SelectedIDs(),
		Page:         d.page,
		TotalPages:   d.TotalPages(),
		PageSize:     d.pageSize,
		Language:     d.language,
		DefaultVoice: d.DefaultVoice(),
		Corrections:  corrections,
		Version:      d.version,
	}
}

func (d *Document) index(id string) int {
	if id == "" {
		return -1
	}
	for i := range d.blocks {
		if d.blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// freshID returns an id not used by any current block.
func (d *Document) freshID() string {
	for {
		id := d.newID()
		if id != "" && d.index(id) < 0 {
			return id
		}
	}
}

// changed records a content mutation.
func (d *Document) changed() {
	d.version++
	if total := d.TotalPages(); d.page > total {
		d.page = total
	}
}

// forget drops selection state pointing at a removed block.
func (d *Document) forget(id string) {
	delete(d.selected, id)
	if d.focused == id {
		d.focused = ""
	}
}
