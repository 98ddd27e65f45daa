package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/themectl/internal/extension"
)

var extensionsOpts struct {
	yaml bool
}

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "Validate the unpacked extensions directory",
	Long: `Load every subdirectory of Extensions/Chrome as an unpacked extension and
report which ones have a valid manifest. The directory is created if it is
missing. Nothing is loaded when [extensions] persistent is false.`,
	Args: cobra.NoArgs,
	RunE: runExtensions,
}

func init() {
	rootCmd.AddCommand(extensionsCmd)

	extensionsCmd.Flags().BoolVar(&extensionsOpts.yaml, "yaml", false,
		"Print the loaded manifests as YAML")
}

func runExtensions(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	session := extension.NewManifestSession(cfg.Extensions.Persistent)
	result, err := extension.LoadExtensions(ctx, session, cfg.ExtensionsDir(), logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	loaded := session.Loaded()
	if extensionsOpts.yaml {
		if err := yaml.NewEncoder(out).Encode(loaded); err != nil {
			return err
		}
	} else {
		for _, m := range loaded {
			fmt.Fprintf(out, "%s %s\t%s\n", m.Name, m.Version, m.Path)
		}
	}

	for path, err := range result.Failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "failed: %s: %v\n", path, err)
	}
	return nil
}
