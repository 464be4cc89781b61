package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"ai-script-editor-service/internal/models"
)

const generateSystemPrompt = `You are a content strategist and scriptwriter for spoken video scripts.
Write retention-focused scripts: a strong hook, clear sections, short spoken sentences and pattern interrupts.
Respond with JSON only. The top-level object has keys block1 through block8.
Each value is an object {"name": string, "texts": [string, ...]} where name is the section title
and each entry of texts is one paragraph to be spoken.`

const editSystemPrompt = `You edit spoken scripts that are made of blocks. Each block has an id and text.
Respond with JSON only: {"operations": [...]}. Each operation is one of
{"operation":"create","content":string,"insertBeforeId":string?} (omit insertBeforeId to append),
{"operation":"update","blockId":string,"content":string} (content replaces the full text),
{"operation":"delete","blockId":string}.
Only reference block ids that appear in the input. Return an empty list when no change is needed.`

const factCheckSystemPrompt = `You fact-check spoken scripts that are made of blocks. Each block has an id and text.
Report only factual errors. Answer with a single XML element of the form
<script-fact-correction-response>
  <script-fact-correction>
    <block-id>ID</block-id>
    <justification>why the block is wrong</justification>
    <updated-content>the full corrected block text</updated-content>
    <severity>low|medium|high</severity>
  </script-fact-correction>
</script-fact-correction-response>
Return an empty response element when every block is accurate.`

func generatePrompt(topic string) string {
	return fmt.Sprintf("Create a script for: %q", strings.TrimSpace(topic))
}

func editPrompt(instruction string, refs []models.BlockRef) (string, error) {
	blocks, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("encode blocks: %w", err)
	}
	return fmt.Sprintf("Instruction: %s\n\nBlocks:\n%s", strings.TrimSpace(instruction), blocks), nil
}

func factCheckPrompt(refs []models.BlockRef) (string, error) {
	blocks, err := json.Marshal(refs)
	if err != nil {
		return "", fmt.Errorf("encode blocks: %w", err)
	}
	return fmt.Sprintf("Fact-check these blocks:\n%s", blocks), nil
}
