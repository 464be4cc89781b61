package voicegroup

import (
	"fmt"
	"reflect"
	"testing"

	"ai-script-editor-service/internal/models"
)

func voiced(id, voice string) models.Block {
	b := models.Block{ID: id, Text: id}
	if voice != "" {
		b.Voice = &models.VoiceAssignment{VoiceID: voice, VoiceName: voice}
	}
	return b
}

func sizes(groups []Group) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = len(g.Blocks)
	}
	return out
}

func TestSplit_Scenario(t *testing.T) {
	blocks := []models.Block{voiced("a", "v1"), voiced("b", "v1"), voiced("c", "v2")}

	groups := Split(blocks)

	if got := sizes(groups); !reflect.DeepEqual(got, []int{2, 1}) {
		t.Fatalf("expected group sizes [2 1], got %v", got)
	}
	if groups[0].Voice != "v1" || groups[1].Voice != "v2" {
		t.Errorf("unexpected voices: %q, %q", groups[0].Voice, groups[1].Voice)
	}
}

func TestSplit_Empty(t *testing.T) {
	if groups := Split(nil); len(groups) != 0 {
		t.Errorf("expected no groups, got %d", len(groups))
	}
}

func TestSplit_UnassignedRuns(t *testing.T) {
	blocks := []models.Block{
		voiced("a", ""), voiced("b", ""), voiced("c", "v1"), voiced("d", ""), voiced("e", "v1"),
	}

	groups := Split(blocks)

	if got := sizes(groups); !reflect.DeepEqual(got, []int{2, 1, 1, 1}) {
		t.Errorf("expected sizes [2 1 1 1], got %v", got)
	}
	if groups[0].VoiceID("default") != "default" {
		t.Errorf("expected default voice fallback, got %q", groups[0].VoiceID("default"))
	}
	if groups[1].VoiceID("default") != "v1" {
		t.Errorf("expected assigned voice, got %q", groups[1].VoiceID("default"))
	}
}

func TestSplit_PartitionProperties(t *testing.T) {
	voices := []string{"", "v1", "v2"}
	for seed := 0; seed < 50; seed++ {
		var blocks []models.Block
		for i := 0; i < 12; i++ {
			blocks = append(blocks, voiced(fmt.Sprintf("b%d-%d", seed, i), voices[(seed*7+i*i)%len(voices)]))
		}

		groups := Split(blocks)

		if !reflect.DeepEqual(Flatten(groups), blocks) {
			t.Fatalf("seed %d: concatenated groups differ from input", seed)
		}
		for gi, g := range groups {
			for _, b := range g.Blocks {
				if b.VoiceID() != g.Voice {
					t.Fatalf("seed %d: group %d not uniform", seed, gi)
				}
			}
			if gi > 0 && groups[gi-1].Voice == g.Voice {
				t.Fatalf("seed %d: adjacent groups %d and %d share voice %q", seed, gi-1, gi, g.Voice)
			}
		}
	}
}
