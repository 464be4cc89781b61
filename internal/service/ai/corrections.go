package ai

import (
	"strings"

	"github.com/beevik/etree"

	"ai-script-editor-service/internal/models"
)

const (
	responseTag   = "script-fact-correction-response"
	correctionTag = "script-fact-correction"
)

// ParseCorrections extracts fact-check corrections from free-form model
// output. Malformed output yields no corrections; entries missing any field
// are skipped.
func ParseCorrections(text string) []models.Correction {
	open, closing := "<"+responseTag+">", "</"+responseTag+">"
	start := strings.Index(text, open)
	if start < 0 {
		return nil
	}
	end := strings.Index(text[start:], closing)
	if end < 0 {
		return nil
	}
	fragment := text[start : start+end+len(closing)]

	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{Permissive: true}
	if err := doc.ReadFromString(fragment); err != nil {
		return nil
	}
	root := doc.SelectElement(responseTag)
	if root == nil {
		return nil
	}

	var out []models.Correction
	for _, el := range root.SelectElements(correctionTag) {
		blockID, ok1 := field(el, "block-id")
		justification, ok2 := field(el, "justification")
		updated, ok3 := field(el, "updated-content")
		severity, ok4 := field(el, "severity")
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		out = append(out, models.Correction{
			BlockID:        blockID,
			Justification:  justification,
			UpdatedContent: updated,
			Severity:       parseSeverity(severity),
		})
	}
	return out
}

func field(el *etree.Element, tag string) (string, bool) {
	child := el.SelectElement(tag)
	if child == nil {
		return "", false
	}
	return strings.TrimSpace(child.Text()), true
}

func parseSeverity(s string) models.Severity {
	switch sev := models.Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case models.SeverityHigh, models.SeverityMedium:
		return sev
	default:
		return models.SeverityLow
	}
}
