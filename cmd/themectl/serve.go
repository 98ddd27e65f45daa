package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/themectl/internal/extension"
	"github.com/jmylchreest/themectl/internal/render"
)

var serveOpts struct {
	listen string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the themes as a live-reloading stylesheet",
	Long: `Serve the loaded themes over HTTP and reload them whenever the themes
directory changes.

Endpoints:
  GET  /themes.css  the injected stylesheets
  GET  /events      server-sent "reload" events
  POST /reload      force a reload

Unpacked extensions under Extensions/Chrome are validated at startup.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveOpts.listen, "listen", "",
		"Address to listen on (default from config, 127.0.0.1:7331)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listen := cfg.Serve.Listen
	if serveOpts.listen != "" {
		listen = serveOpts.listen
	}

	session := extension.NewManifestSession(cfg.Extensions.Persistent)
	if _, err := extension.LoadExtensions(ctx, session, cfg.ExtensionsDir(), logger); err != nil {
		logger.Warn("failed to load extensions", "error", err)
	}

	loader := newLoader(cfg, newGate(cfg))
	defer loader.Close()

	server := render.NewServer(logger)
	server.OnReload(func(ctx context.Context) error {
		_, err := loader.Load(ctx, server)
		return err
	})

	if _, err := loader.Load(ctx, server); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "serving %s on http://%s/themes.css\n", loader.Dir(), listen)
	return server.ListenAndServe(ctx, listen)
}
