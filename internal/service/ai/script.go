package ai

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/maruel/natural"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/patch"
)

// Operation names used for logging, metrics and errors.
const (
	OpGenerate  = "generate"
	OpEdit      = "edit"
	OpFactCheck = "factcheck"
)

type generatedGroup struct {
	Name  string   `json:"name"`
	Texts []string `json:"texts"`
}

// GenerateScript asks the model for a new script about topic. Sections come
// back in natural key order (block2 before block10).
func (c *Client) GenerateScript(ctx context.Context, topic string) ([]models.GeneratedSection, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("%s: topic required", OpGenerate)
	}
	content, err := c.CompleteJSON(ctx, OpGenerate, generateSystemPrompt, generatePrompt(topic))
	if err != nil {
		return nil, err
	}
	var groups map[string]generatedGroup
	if err := DecodeJSON(content, &groups); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", OpGenerate, err)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return natural.Less(keys[i], keys[j]) })

	sections := make([]models.GeneratedSection, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		sections = append(sections, models.GeneratedSection{Key: k, Name: g.Name, Texts: g.Texts})
	}
	return sections, nil
}

// SeedBlocks flattens generated sections into one block per text entry,
// verbatim and in order. Ids are left empty for the document to assign.
func SeedBlocks(sections []models.GeneratedSection) []models.Block {
	var out []models.Block
	for _, s := range sections {
		for _, t := range s.Texts {
			out = append(out, models.Block{Text: t})
		}
	}
	return out
}

// EditScript asks the model to apply instruction to refs and returns the
// resulting patch. A malformed response rejects the whole batch.
func (c *Client) EditScript(ctx context.Context, instruction string, refs []models.BlockRef) ([]patch.Operation, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("%s: instruction required", OpEdit)
	}
	prompt, err := editPrompt(instruction, refs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpEdit, err)
	}
	content, err := c.CompleteJSON(ctx, OpEdit, editSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	ops, err := patch.Parse([]byte(Sanitize(content)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpEdit, err)
	}
	return ops, nil
}

// FactCheck asks the model to review refs for factual errors.
func (c *Client) FactCheck(ctx context.Context, refs []models.BlockRef) ([]models.Correction, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	prompt, err := factCheckPrompt(refs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpFactCheck, err)
	}
	content, err := c.Complete(ctx, OpFactCheck, factCheckSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}
	return ParseCorrections(content), nil
}
