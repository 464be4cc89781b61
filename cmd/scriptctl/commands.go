package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ai-script-editor-service/internal/models"
	"ai-script-editor-service/internal/service/fingerprint"
	"ai-script-editor-service/internal/service/markup"
	"ai-script-editor-service/internal/service/voicegroup"
	"ai-script-editor-service/internal/store"
)

const stampLayout = "2006-01-02 15:04"

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid script id %q", arg)
	}
	return id, nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var page, size int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scripts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(st *store.Store) error {
				scripts, err := st.List(cmd.Context(), page, size)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, scripts)
				}
				if len(scripts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No scripts")
					return nil
				}
				rows := make([][]string, 0, len(scripts))
				for _, s := range scripts {
					rows = append(rows, []string{
						strconv.FormatInt(s.ID, 10),
						s.Title,
						s.Slug,
						strconv.Itoa(len(s.Blocks)),
						s.CreatedAt.Local().Format(stampLayout),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Slug", "Blocks", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "Page index (0-based)")
	cmd.Flags().IntVar(&size, "size", 20, "Page size")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a script's blocks grouped by voice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(st *store.Store) error {
				script, err := st.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, script)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (#%d, %s)\n", script.Title, script.ID, script.Slug)
				rows := make([][]string, 0, len(script.Blocks))
				n := 0
				for gi, g := range voicegroup.Split(script.Blocks) {
					voice := g.Voice
					if voice == "" {
						voice = "(default)"
					}
					for _, b := range g.Blocks {
						n++
						rows = append(rows, []string{
							strconv.Itoa(n),
							strconv.Itoa(gi + 1),
							voice,
							truncate(b.Text, 60),
							attributeSummary(b.Attributes),
						})
					}
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Group", "Voice", "Text", "Markup"},
					rows,
					[]columnAlignment{alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func attributeSummary(a models.Attributes) string {
	var parts []string
	if a.Break != nil {
		parts = append(parts, "break "+markup.BreakTime(a.Break.TimeMs))
	}
	if a.Emphasis != nil {
		parts = append(parts, "emphasis "+string(a.Emphasis.Level))
	}
	if a.Prosody != nil {
		parts = append(parts, "prosody")
	}
	if a.Phoneme != nil {
		parts = append(parts, "phoneme")
	}
	return strings.Join(parts, ", ")
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var title, file string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a script from a text file, one block per paragraph",
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			blocks, err := readParagraphs(r)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(st *store.Store) error {
				script, err := st.Create(cmd.Context(), title, blocks)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created script %d (%s) with %d blocks\n", script.ID, script.Slug, len(script.Blocks))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Script title")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Text file, - for stdin")
	return cmd
}

// readParagraphs splits text on blank lines. Lines within a paragraph are
// joined with a space.
func readParagraphs(r io.Reader) ([]models.Block, error) {
	var blocks []models.Block
	var lines []string
	flush := func() {
		if len(lines) > 0 {
			blocks = append(blocks, models.Block{ID: uuid.NewString(), Text: strings.Join(lines, " ")})
			lines = nil
		}
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			flush()
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return blocks, nil
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(st *store.Store) error {
				if err := st.Delete(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted script %d\n", id)
				return nil
			})
		},
	}
}

func newSSMLCommand(ctx *commandContext) *cobra.Command {
	var lang, voiceName string
	cmd := &cobra.Command{
		Use:   "ssml <id>",
		Short: "Print a script as an SSML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			tag, err := markup.NormalizeLanguage(lang)
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(st *store.Store) error {
				script, err := st.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), markup.Document(script.Blocks, markup.Options{Language: tag, VoiceName: voiceName}))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "xml:lang of the document (default en-US)")
	cmd.Flags().StringVar(&voiceName, "voice", "", "Wrap the content in a named voice")
	return cmd
}

func newFingerprintCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <id>",
		Short: "Print the content fingerprint of a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(st *store.Store) error {
				script, err := st.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), fingerprint.Of(models.StripTransient(script.Blocks)))
				return nil
			})
		},
	}
}
