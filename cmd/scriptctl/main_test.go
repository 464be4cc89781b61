package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, db, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", db}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func requireContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("output missing %q:\n%s", want, out)
	}
}

func TestCreateListShow(t *testing.T) {
	db := filepath.Join(t.TempDir(), "scripts.db")

	out, err := runCLI(t, db, "Hello there.\nSecond line.\n\nNext paragraph.\n", "create", "--title", "My First Script")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	requireContains(t, out, "Created script 1 (my-first-script) with 2 blocks")

	out, err = runCLI(t, db, "", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, "My First Script")

	out, err = runCLI(t, db, "", "show", "1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "Hello there. Second line.")
	requireContains(t, out, "(default)")

	out, err = runCLI(t, db, "", "ssml", "1", "--lang", "en-gb")
	if err != nil {
		t.Fatalf("ssml: %v", err)
	}
	requireContains(t, out, `xml:lang="en-GB"`)
	requireContains(t, out, "Next paragraph.")

	out, err = runCLI(t, db, "", "fingerprint", "1")
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	if got := strings.TrimSpace(out); len(got) != 16 {
		t.Errorf("fingerprint = %q", got)
	}

	if _, err := runCLI(t, db, "", "delete", "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := runCLI(t, db, "", "show", "1"); err == nil {
		t.Error("expected error showing deleted script")
	}
}

func TestInvalidID(t *testing.T) {
	db := filepath.Join(t.TempDir(), "scripts.db")
	if _, err := runCLI(t, db, "", "show", "abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestReadParagraphs(t *testing.T) {
	blocks, err := readParagraphs(strings.NewReader("\n\n a \n b\n\n\nc\n"))
	if err != nil {
		t.Fatalf("readParagraphs: %v", err)
	}
	if len(blocks) != 2 || blocks[0].Text != "a b" || blocks[1].Text != "c" {
		t.Errorf("blocks = %+v", blocks)
	}
	if blocks[0].ID == "" || blocks[0].ID == blocks[1].ID {
		t.Errorf("ids not unique: %q %q", blocks[0].ID, blocks[1].ID)
	}
}
