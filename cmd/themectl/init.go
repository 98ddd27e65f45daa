package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themectl/internal/config"
	"github.com/jmylchreest/themectl/internal/theme"
)

var initOpts struct {
	writeConfig bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the themes directory with example themes",
	Long: `Create the themes directory and copy the bundled example themes into it.
Existing files are never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initOpts.writeConfig, "write-config", false,
		"Also write the current configuration if no config file exists")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	gate := newGate(cfg)
	if err := gate.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return err
		}
		logger.Warn("encryption capability not ready, continuing", "error", err)
	}

	written, err := theme.SeedStarterThemes(cfg.ThemesDir(), gate)
	for _, path := range written {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	if err != nil {
		return err
	}

	if initOpts.writeConfig {
		path := globalOpts.configPath
		if path == "" {
			path = config.ConfigPath()
		}
		if fileExists(path) {
			logger.Info("config file exists, leaving it alone", "path", path)
			return nil
		}
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
