// internal/scraper/engine_test.go
package scraper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/valpere/recipevault/internal/errors"
	"github.com/valpere/recipevault/internal/security"
	"github.com/valpere/recipevault/pkg/types"
)

type stubFetcher struct {
	page  string
	err   error
	calls []string
}

func (s *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	s.calls = append(s.calls, url)
	return s.page, s.err
}

type recordingObserver struct {
	mu          sync.Mutex
	fetches     []error
	extractions []*types.Provenance
}

func (o *recordingObserver) ObserveFetch(_ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetches = append(o.fetches, err)
}

func (o *recordingObserver) ObserveExtraction(_ time.Duration, p *types.Provenance) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extractions = append(o.extractions, p)
}

func TestEngine_Scrape(t *testing.T) {
	fetcher := &stubFetcher{page: `<h1>Pasta</h1><div class="wprm-recipe-ingredient">200g flour</div>`}
	observer := &recordingObserver{}
	engine := NewEngine(fetcher, WithAssembler(newTestAssembler()), WithObserver(observer))

	r, err := engine.Scrape(context.Background(), "  https://example.com/pasta ")
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if r.Title != "Pasta" || r.Ingredients[0] != "200g flour" {
		t.Errorf("unexpected recipe: %+v", r)
	}
	if r.URL != "https://example.com/pasta" {
		t.Errorf("url = %q", r.URL)
	}
	if len(fetcher.calls) != 1 || fetcher.calls[0] != "https://example.com/pasta" {
		t.Errorf("fetch calls = %v", fetcher.calls)
	}
	if len(observer.fetches) != 1 || observer.fetches[0] != nil {
		t.Errorf("observed fetches = %v", observer.fetches)
	}
	if len(observer.extractions) != 1 || observer.extractions[0].Title != 0 {
		t.Errorf("observed extractions = %v", observer.extractions)
	}
}

func TestEngine_ScrapeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"relative", "/recipes/1"},
		{"unsupported scheme", "ftp://example.com/r"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &stubFetcher{}
			_, err := NewEngine(fetcher).Scrape(context.Background(), tt.url)
			if !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("expected input error, got %v", err)
			}
			if len(fetcher.calls) != 0 {
				t.Error("fetcher should not be called for invalid input")
			}
		})
	}

	_, err := NewEngine(&stubFetcher{}).Scrape(context.Background(), "")
	if got := apperrors.UserMessage(err, ""); got != "URL is required" {
		t.Errorf("user message = %q", got)
	}
}

func TestEngine_ScrapeFetchFailure(t *testing.T) {
	cause := errors.New("connection refused")
	observer := &recordingObserver{}
	engine := NewEngine(&stubFetcher{err: cause}, WithObserver(observer))

	r, err := engine.Scrape(context.Background(), "https://example.com")
	if r != nil {
		t.Errorf("expected no recipe, got %+v", r)
	}
	if !errors.Is(err, apperrors.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("cause should be preserved")
	}
	if len(observer.extractions) != 0 {
		t.Error("extraction should not run after a failed fetch")
	}

	already := apperrors.Fetch(cause, "GET failed")
	_, err = NewEngine(&stubFetcher{err: already}).Scrape(context.Background(), "https://example.com")
	if err != already {
		t.Errorf("classified fetch error was re-wrapped: %v", err)
	}
}

func TestEngine_ScrapeEmptyPageStillSucceeds(t *testing.T) {
	r, err := NewEngine(&stubFetcher{page: ""}).Scrape(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != DefaultTitle || r.Ingredients[0] != IngredientsPlaceholder {
		t.Errorf("defaults not applied: %+v", r)
	}
}

type flakyFetcher struct {
	failures int
	calls    int
}

func (f *flakyFetcher) Fetch(_ context.Context, _ string) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", &HTTPError{StatusCode: 503, Status: "503 Service Unavailable"}
	}
	return `<h1>Bread</h1>`, nil
}

func TestEngine_ScrapeRetriesTransientFailures(t *testing.T) {
	fetcher := &flakyFetcher{failures: 2}
	retrier := apperrors.NewService(apperrors.RetryConfig{MaxRetries: 2}, apperrors.CircuitBreakerConfig{})
	observer := &recordingObserver{}
	engine := NewEngine(fetcher, WithRetrier(retrier), WithObserver(observer))

	r, err := engine.Scrape(context.Background(), "https://example.com/bread")
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if r.Title != "Bread" || fetcher.calls != 3 {
		t.Errorf("title = %q after %d calls", r.Title, fetcher.calls)
	}
	if len(observer.fetches) != 3 {
		t.Errorf("expected every attempt observed, got %d", len(observer.fetches))
	}
}

func TestEngine_ScrapeDoesNotRetryClientErrors(t *testing.T) {
	fetcher := &stubFetcher{err: &HTTPError{StatusCode: 404, Status: "404 Not Found"}}
	retrier := apperrors.NewService(apperrors.RetryConfig{MaxRetries: 3}, apperrors.CircuitBreakerConfig{})

	_, err := NewEngine(fetcher, WithRetrier(retrier)).Scrape(context.Background(), "https://example.com/gone")
	if !errors.Is(err, apperrors.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if len(fetcher.calls) != 1 {
		t.Errorf("expected a single attempt, got %d", len(fetcher.calls))
	}
}

func TestEngine_ScrapeRefusesBlockedTargets(t *testing.T) {
	fetcher := &stubFetcher{page: `<h1>Soup</h1>`}
	validator := security.NewValidator(security.Config{BlockedDomains: []string{"blocked.example"}})
	engine := NewEngine(fetcher, WithTargetValidator(validator))

	_, err := engine.Scrape(context.Background(), "https://www.blocked.example/soup")
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	if len(fetcher.calls) != 0 {
		t.Error("blocked target should not be fetched")
	}

	if _, err := engine.Scrape(context.Background(), "https://open.example/soup"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
