// Package fingerprint derives deterministic content keys for block sequences.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"ai-script-editor-service/internal/models"
)

// Size is the number of hex characters in a fingerprint (64 bits).
const Size = 16

// projection is the content-only view of a block: no id, no transient flags.
type projection struct {
	Text string `json:"text"`
	models.Attributes
}

// Of returns the fingerprint of the semantic content of blocks.
// Block ids and transient animation flags do not contribute.
func Of(blocks []models.Block) string {
	items := make([]projection, len(blocks))
	for i, b := range blocks {
		items[i] = projection{Text: b.Text, Attributes: b.Attributes}
	}
	return digest(Canonical(items))
}

// Compose derives a key from a fingerprint and extra render parameters,
// so that the same blocks rendered with different options get distinct keys.
func Compose(fp string, parts ...string) string {
	if len(parts) == 0 {
		return fp
	}
	return digest(fp + "|" + strings.Join(parts, "|"))
}

// Canonical serializes v as JSON with object keys sorted lexicographically at
// every depth. Array order is preserved.
func Canonical(v any) string {
	raw, err := marshal(v)
	if err != nil {
		return ""
	}
	// Round-trip through generic maps: encoding/json writes map keys sorted.
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return ""
	}
	out, err := marshal(generic)
	if err != nil {
		return ""
	}
	return string(out)
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:Size]
}
