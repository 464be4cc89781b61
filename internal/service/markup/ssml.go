// Package markup serializes script blocks into SSML.
package markup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/language"

	"ai-script-editor-service/internal/models"
)

const (
	ssmlVersion   = "1.0"
	ssmlNamespace = "http://www.w3.org/2001/10/synthesis"

	// DefaultLanguage is used when no document language is configured.
	DefaultLanguage = "en-US"
)

// Options controls the document envelope.
type Options struct {
	Language  string // xml:lang of the speak element
	VoiceName string // optional named-voice wrapper
}

// NormalizeLanguage validates a BCP-47 tag and returns its canonical form.
// An empty tag resolves to DefaultLanguage.
func NormalizeLanguage(lang string) (string, error) {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return DefaultLanguage, nil
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return "", fmt.Errorf("invalid language %q: %w", lang, err)
	}
	return tag.String(), nil
}

// Block renders a single block. Wrapping order from the inside out is
// phoneme, emphasis, prosody; a break marker is appended after the
// wrapped content.
func Block(b models.Block) string {
	doc := newDocument()
	appendBlock(&doc.Element, b)
	return write(doc)
}

// Document renders blocks in order inside a speak envelope.
func Document(blocks []models.Block, opts Options) string {
	lang := opts.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	doc := newDocument()
	speak := doc.CreateElement("speak")
	speak.CreateAttr("version", ssmlVersion)
	speak.CreateAttr("xmlns", ssmlNamespace)
	speak.CreateAttr("xml:lang", lang)

	parent := speak
	if opts.VoiceName != "" {
		parent = speak.CreateElement("voice")
		parent.CreateAttr("name", opts.VoiceName)
	}
	for _, b := range blocks {
		appendBlock(parent, b)
	}
	return write(doc)
}

// BreakTime formats a pause in milliseconds as an SSML seconds value.
func BreakTime(ms int) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', -1, 64) + "s"
}

func appendBlock(parent *etree.Element, b models.Block) {
	var content etree.Token
	if b.Text != "" {
		content = etree.NewText(b.Text)
	}

	if b.Phoneme != nil {
		el := etree.NewElement("phoneme")
		el.CreateAttr("alphabet", string(b.Phoneme.Alphabet))
		el.CreateAttr("ph", b.Phoneme.Pronunciation)
		content = wrap(el, content)
	}

	if b.Emphasis != nil {
		el := etree.NewElement("emphasis")
		el.CreateAttr("level", string(b.Emphasis.Level))
		content = wrap(el, content)
	}

	if b.Prosody != nil && !b.Prosody.IsEmpty() {
		el := etree.NewElement("prosody")
		if b.Prosody.Rate != "" {
			el.CreateAttr("rate", string(b.Prosody.Rate))
		}
		if b.Prosody.Pitch != "" {
			el.CreateAttr("pitch", string(b.Prosody.Pitch))
		}
		if b.Prosody.Volume != "" {
			el.CreateAttr("volume", string(b.Prosody.Volume))
		}
		content = wrap(el, content)
	}

	if content != nil {
		parent.AddChild(content)
	}

	if b.Break != nil {
		br := parent.CreateElement("break")
		br.CreateAttr("time", BreakTime(b.Break.TimeMs))
	}
}

func wrap(el *etree.Element, content etree.Token) etree.Token {
	if content != nil {
		el.AddChild(content)
	}
	return el
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	return doc
}

func write(doc *etree.Document) string {
	var sb strings.Builder
	_, _ = doc.WriteTo(&sb) // strings.Builder never fails
	return sb.String()
}
