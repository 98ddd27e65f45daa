package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themectl/internal/render"
)

var loadOpts struct {
	strict bool
	quiet  bool
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run one load pass and print the injected CSS",
	Long: `Run one load pass over the themes directory and print the CSS that would be
injected, one stylesheet per theme file in directory order.

Themes that fail to load are logged and skipped.

Examples:
  # Print the combined stylesheet
  themectl load

  # Fail if any theme could not be loaded
  themectl load --strict -q`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	loadCmd.Flags().BoolVar(&loadOpts.strict, "strict", false,
		"Exit with an error if any theme fails to load")
	loadCmd.Flags().BoolVarP(&loadOpts.quiet, "quiet", "q", false,
		"Do not print the resulting CSS")
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := newLoader(cfg, newGate(cfg))
	defer loader.Close()

	target := render.NewBuffer()
	result, err := loader.Load(ctx, target)
	if err != nil {
		return err
	}

	if !loadOpts.quiet {
		for _, css := range target.Sheets() {
			fmt.Fprintln(cmd.OutOrStdout(), css)
		}
	}

	for path, err := range result.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", path, err)
	}
	if loadOpts.strict && len(result.Failed) > 0 {
		return fmt.Errorf("%d of %d themes failed to load", len(result.Failed), len(result.Failed)+len(result.Injected))
	}
	return nil
}
