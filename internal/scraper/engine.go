// internal/scraper/engine.go
package scraper

import (
	"context"
	neturl "net/url"
	"strings"
	"time"

	apperrors "github.com/valpere/recipevault/internal/errors"
	"github.com/valpere/recipevault/pkg/types"
)

// Observer receives timing and rule outcomes from the engine.
type Observer interface {
	ObserveFetch(d time.Duration, err error)
	ObserveExtraction(d time.Duration, p *types.Provenance)
}

type nopObserver struct{}

func (nopObserver) ObserveFetch(time.Duration, error)                   {}
func (nopObserver) ObserveExtraction(time.Duration, *types.Provenance) {}

// Retrier re-runs a failed fetch. operationName keys per-host state such as
// a circuit breaker.
type Retrier interface {
	ExecuteWithRetry(ctx context.Context, operation func() error, operationName string) error
}

// TargetValidator refuses URLs that must not be fetched.
type TargetValidator interface {
	ValidateURL(ctx context.Context, url string) error
}

// Engine fetches a page and turns it into a Recipe.
type Engine struct {
	fetcher   Fetcher
	assembler *Assembler
	observer  Observer
	retrier   Retrier
	targets   TargetValidator
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithAssembler replaces the default assembler.
func WithAssembler(a *Assembler) EngineOption {
	return func(e *Engine) {
		if a != nil {
			e.assembler = a
		}
	}
}

// WithObserver attaches an Observer, typically the metrics collector.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithRetrier retries transient fetch failures through r.
func WithRetrier(r Retrier) EngineOption {
	return func(e *Engine) {
		e.retrier = r
	}
}

// WithTargetValidator checks every URL before it is fetched.
func WithTargetValidator(v TargetValidator) EngineOption {
	return func(e *Engine) {
		e.targets = v
	}
}

// NewEngine creates a new scraping engine around the given fetcher.
func NewEngine(fetcher Fetcher, opts ...EngineOption) *Engine {
	e := &Engine{
		fetcher:   fetcher,
		assembler: defaultAssembler,
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scrape fetches url and extracts a recipe from it. Only an invalid URL or a
// failed fetch produce an error; extraction itself always succeeds.
func (e *Engine) Scrape(ctx context.Context, url string) (*types.Recipe, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperrors.Input("URL is required")
	}
	if err := types.ValidateURL(url); err != nil {
		return nil, apperrors.Input("invalid URL: %v", err)
	}
	if e.targets != nil {
		if err := e.targets.ValidateURL(ctx, url); err != nil {
			return nil, apperrors.Input("URL not allowed: %v", err)
		}
	}

	var page string
	fetch := func() error {
		var err error
		page, err = e.fetch(ctx, url)
		return err
	}

	var err error
	if e.retrier != nil {
		err = e.retrier.ExecuteWithRetry(ctx, fetch, hostOf(url))
	} else {
		err = fetch()
	}
	if err != nil {
		return nil, err
	}

	return e.Extract(page, url), nil
}

func (e *Engine) fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()
	page, err := e.fetcher.Fetch(ctx, url)
	e.observer.ObserveFetch(time.Since(start), err)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeFetchFailed {
			return "", err
		}
		return "", apperrors.Fetch(err, "fetch %s", url)
	}
	return page, nil
}

func hostOf(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host
}

// Extract runs the extraction on an already fetched page.
func (e *Engine) Extract(page, url string) *types.Recipe {
	start := time.Now()
	recipe := e.assembler.Assemble(page, url)
	e.observer.ObserveExtraction(time.Since(start), recipe.Provenance)
	return recipe
}
