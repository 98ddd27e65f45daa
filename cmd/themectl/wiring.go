package main

import (
	"github.com/jmylchreest/themectl/internal/config"
	"github.com/jmylchreest/themectl/internal/crypt"
	"github.com/jmylchreest/themectl/internal/fetch"
	"github.com/jmylchreest/themectl/internal/httpclient"
	"github.com/jmylchreest/themectl/internal/theme"
)

// newFetcher builds the content fetcher from the [fetch] section.
func newFetcher(c *config.Config) *fetch.Fetcher {
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = c.Fetch.Timeout.Duration()
	httpCfg.UserAgent = c.Fetch.UserAgent
	httpCfg.CircuitThreshold = c.Fetch.CircuitThreshold
	httpCfg.CircuitTimeout = c.Fetch.CircuitTimeout.Duration()
	httpCfg.EnableDecompression = c.Fetch.Decompress
	httpCfg.Logger = logger

	return fetch.New(fetch.Options{
		HTTP:      httpCfg,
		RateLimit: c.Fetch.RateLimit,
		Burst:     c.Fetch.Burst,
		Logger:    logger,
	})
}

// newGate builds the encryption gate from the [encryption] section.
func newGate(c *config.Config) *crypt.Gate {
	opts := []crypt.Option{
		crypt.WithLogger(logger),
		crypt.WithAlwaysAvailable(c.Encryption.AlwaysAvailable),
		crypt.WithReadyTimeout(c.Encryption.ReadyTimeout.Duration()),
	}
	if !c.Encryption.Enabled {
		return crypt.NewGate(crypt.Disabled{}, opts...)
	}
	return crypt.NewGate(crypt.NewPassphrase(c.Passphrase(), c.SaltPath(), logger), opts...)
}

// newResolver builds the import resolver from the [imports] section. Local
// fragments are read through gate when one is given.
func newResolver(c *config.Config, gate *crypt.Gate) *theme.Resolver {
	opts := []theme.ResolverOption{
		theme.WithRetryDelay(c.Imports.RetryDelay.Duration()),
		theme.WithResolverLogger(logger),
	}
	if gate != nil {
		opts = append(opts, theme.WithImportDecrypter(gate))
	}
	return theme.NewResolver(newFetcher(c), opts...)
}

// newLoader wires the theme loader for the configured themes directory.
func newLoader(c *config.Config, gate *crypt.Gate) *theme.Loader {
	return theme.NewLoader(theme.LoaderOptions{
		Dir:         c.ThemesDir(),
		Gate:        gate,
		Resolver:    newResolver(c, gate),
		RetryBudget: c.Imports.RetryBudget,
		Logger:      logger,
	})
}
