package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"ai-script-editor-service/internal/config"
	"ai-script-editor-service/internal/store"
)

type commandContext struct {
	dbFlag *string

	storeOnce sync.Once
	store     *store.Store
	storeErr  error
}

func (c *commandContext) dbPath() string {
	if c.dbFlag != nil && strings.TrimSpace(*c.dbFlag) != "" {
		return *c.dbFlag
	}
	return config.Load().Store.Path
}

func (c *commandContext) withStore(cmd *cobra.Command, fn func(*store.Store) error) error {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = store.Open(cmd.Context(), c.dbPath())
	})
	if c.storeErr != nil {
		return c.storeErr
	}
	return fn(c.store)
}

func (c *commandContext) close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func newRootCommand() *cobra.Command {
	var dbFlag string
	ctx := &commandContext{dbFlag: &dbFlag}

	rootCmd := &cobra.Command{
		Use:           "scriptctl",
		Short:         "Inspect and edit stored scripts",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "Script database path (default from config)")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newCreateCommand(ctx))
	rootCmd.AddCommand(newDeleteCommand(ctx))
	rootCmd.AddCommand(newSSMLCommand(ctx))
	rootCmd.AddCommand(newFingerprintCommand(ctx))

	return rootCmd
}
