package theme

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/themectl/internal/fetch"
)

// DefaultRetryBudget is the number of failed passes retried per theme file.
const DefaultRetryBudget = 5

// resolveState is a step of the import resolution state machine.
type resolveState int

const (
	stateScanning resolveState = iota
	stateResolving
	stateRetrying
	stateDone
	stateFailed
)

func (s resolveState) String() string {
	switch s {
	case stateScanning:
		return "scanning"
	case stateResolving:
		return "resolving"
	case stateRetrying:
		return "retrying"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Resolver expands @import statements by fetching and inlining their targets.
type Resolver struct {
	fetcher    ContentFetcher
	decrypter  Decrypter
	logger     *slog.Logger
	retryDelay time.Duration
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithRetryDelay pauses before each retried pass.
func WithRetryDelay(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.retryDelay = d
	}
}

// WithImportDecrypter reads local import targets through d, so fragments
// stored encrypted are inlined as CSS. Remote targets are never decrypted.
func WithImportDecrypter(d Decrypter) ResolverOption {
	return func(r *Resolver) {
		r.decrypter = d
	}
}

// WithResolverLogger sets the resolver's logger.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver that reads import targets through fetcher.
func NewResolver(fetcher ContentFetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		fetcher: fetcher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// resolution is the state owned by one top-level ParseImports call.
type resolution struct {
	text       string
	chain      []string
	visited    map[string]struct{}
	retries    int
	statements []importStatement
	lastErr    error
}

// commit records a successfully resolved import.
func (res *resolution) commit(stmt importStatement, locator, content string) {
	res.text = strings.Replace(res.text, stmt.Text, content, 1)
	if _, seen := res.visited[locator]; seen {
		// Identical statement resolved in the same pass
		return
	}
	res.chain = append(res.chain, locator)
	res.visited[locator] = struct{}{}
}

// ParseImports expands every @import in css. chain must hold at least the
// locator of css itself; imports resolve relative to its last entry.
//
// All imports found in one pass are fetched concurrently and the pass waits
// for every one of them. Successful substitutions are kept even when siblings
// fail. A failed pass is retried against the partially resolved text while
// retries remain; once exhausted the first failure is returned. A circular
// import fails immediately regardless of the remaining budget.
func (r *Resolver) ParseImports(ctx context.Context, css string, chain []string, retries int) (string, error) {
	if len(chain) == 0 {
		return "", ErrEmptyChain
	}

	res := &resolution{
		text:    css,
		chain:   slices.Clone(chain),
		visited: make(map[string]struct{}, len(chain)),
		retries: max(retries, 0),
	}
	for _, locator := range chain {
		res.visited[locator] = struct{}{}
	}

	state := stateScanning
	for {
		switch state {
		case stateScanning:
			res.statements = findImports(res.text)
			if len(res.statements) == 0 {
				state = stateDone
				continue
			}
			state = stateResolving

		case stateResolving:
			err := r.resolvePass(ctx, res)
			switch {
			case err == nil:
				// Newly inlined text may carry imports of its own; that is
				// new work, so the budget is left untouched.
				state = stateScanning
			case isCircular(err):
				res.lastErr = err
				state = stateFailed
			case res.retries == 0:
				res.lastErr = err
				state = stateFailed
			default:
				res.lastErr = err
				state = stateRetrying
			}

		case stateRetrying:
			res.retries--
			r.logger.Warn("import pass failed, retrying",
				"theme", res.chain[0],
				"retries_left", res.retries,
				"error", res.lastErr,
			)
			if err := sleepContext(ctx, r.retryDelay); err != nil {
				res.lastErr = err
				state = stateFailed
				continue
			}
			state = stateScanning

		case stateDone:
			return res.text, nil

		case stateFailed:
			return "", res.lastErr
		}
	}
}

// passResult is the outcome of one import in a pass.
type passResult struct {
	locator string
	content string
	err     error
}

// resolvePass resolves every pending statement concurrently, commits the
// successes in source order and returns the first failure observed.
func (r *Resolver) resolvePass(ctx context.Context, res *resolution) error {
	base := res.chain[len(res.chain)-1]
	results := make([]passResult, len(res.statements))

	var g errgroup.Group
	for i, stmt := range res.statements {
		g.Go(func() error {
			locator, content, err := r.resolveOne(ctx, stmt, base, res.visited, res.chain)
			results[i] = passResult{locator: locator, content: content, err: err}
			return err
		})
	}
	firstErr := g.Wait()

	var circular error
	for i, result := range results {
		if result.err != nil {
			if circular == nil && isCircular(result.err) {
				circular = result.err
			}
			continue
		}
		res.commit(res.statements[i], result.locator, result.content)
	}

	if circular != nil {
		return circular
	}
	return firstErr
}

// resolveOne resolves, checks and fetches a single import target. visited and
// chain are only read here.
func (r *Resolver) resolveOne(ctx context.Context, stmt importStatement, base string, visited map[string]struct{}, chain []string) (string, string, error) {
	locator, err := resolveLocator(stmt.Target, base)
	if err != nil {
		return "", "", &FetchError{Locator: stmt.Target, Err: err}
	}

	if _, seen := visited[locator]; seen {
		return "", "", &CircularImportError{Locator: locator, Chain: slices.Clone(chain)}
	}

	raw, err := r.fetcher.Fetch(ctx, locator)
	if err != nil {
		return "", "", &FetchError{Locator: locator, Err: err}
	}

	if r.decrypter != nil && !fetch.IsRemote(locator) {
		text, err := r.decrypter.Decrypt(ctx, raw)
		if err != nil {
			return "", "", &FetchError{Locator: locator, Err: fmt.Errorf("decrypting import: %w", err)}
		}
		raw = []byte(text)
	}

	content, err := decodeText(raw)
	if err != nil {
		return "", "", &FetchError{Locator: locator, Err: err}
	}

	r.logger.Debug("resolved import", "locator", locator, "bytes", len(raw))
	return locator, content, nil
}

func isCircular(err error) bool {
	var circular *CircularImportError
	return errors.As(err, &circular)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
