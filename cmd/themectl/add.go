package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themectl/internal/dialog"
	"github.com/jmylchreest/themectl/internal/theme"
)

var addCmd = &cobra.Command{
	Use:   "add <file.theme.css>...",
	Short: "Copy theme fragments into the themes directory",
	Long: `Copy theme fragments into the managed themes directory, encrypting them when
encryption is enabled. Only files ending in .theme.css are accepted; globs are
expanded.

Examples:
  themectl add ~/Downloads/nord.theme.css
  themectl add './palettes/*.theme.css'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	gate := newGate(cfg)
	if err := gate.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		logger.Warn("encryption capability not ready, continuing", "error", err)
	}

	importer := theme.NewImporter(cfg.ThemesDir(), gate, dialog.NewArgs(args, logger), logger)
	written, err := importer.Add(ctx, nil)
	for _, path := range written {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	if err != nil {
		return err
	}
	if len(written) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "nothing imported")
	}
	return nil
}
