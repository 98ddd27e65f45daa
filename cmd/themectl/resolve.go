package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var resolveOpts struct {
	timeout time.Duration
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <file>",
	Short: "Print the processed CSS of a single theme file",
	Long: `Decrypt a theme file, mark its color, background and custom property
declarations !important and expand its @import statements, then print the
result. Relative names are looked up in the themes directory first.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().DurationVar(&resolveOpts.timeout, "timeout", 2*time.Minute,
		"Give up after this long")
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), resolveOpts.timeout)
	defer cancel()

	path, err := themePath(args[0])
	if err != nil {
		return err
	}

	css, err := newLoader(cfg, newGate(cfg)).Process(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), css)
	return nil
}

// themePath resolves name against the themes directory when it is a bare
// file name that exists there.
func themePath(name string) (string, error) {
	if filepath.Base(name) == name {
		candidate := filepath.Join(cfg.ThemesDir(), name)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return filepath.Abs(name)
}
