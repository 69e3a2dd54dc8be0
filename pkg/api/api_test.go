// pkg/api/api_test.go
package api

import (
	"context"
	"net/http/httptest"
	"testing"

	internalapi "github.com/valpere/recipevault/internal/api"
	"github.com/valpere/recipevault/internal/scraper"
	"github.com/valpere/recipevault/internal/storage"
)

const breadPage = `<html><body><h1>Soda Bread</h1>
<ul><li class="ingredient">500g flour</li><li class="ingredient">400ml buttermilk</li></ul>
<ol><li>Mix everything together.</li><li>Bake for 40 minutes.</li></ol>
</body></html>`

type pageFetcher string

func (p pageFetcher) Fetch(context.Context, string) (string, error) {
	return string(p), nil
}

func setupClient(t *testing.T) *Client {
	t.Helper()
	engine := scraper.NewEngine(pageFetcher(breadPage))
	srv := internalapi.NewServer(engine, storage.NewMemoryStore(), nil, nil, internalapi.Options{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/", ts.Client())
}

func TestClient_ScrapeListDelete(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()
	pageURL := "https://bakery.example/soda-bread?x=1"

	r, err := client.Scrape(ctx, pageURL)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}
	if r.Title != "Soda Bread" || len(r.Ingredients) != 2 || r.URL != pageURL {
		t.Errorf("unexpected recipe: %+v", r)
	}

	recipes, err := client.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(recipes) != 1 {
		t.Fatalf("expected 1 recipe, got %d", len(recipes))
	}

	if err := client.Delete(ctx, pageURL); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	err = client.Delete(ctx, pageURL)
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestClient_PreviewAndSave(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	preview, err := client.Preview(ctx, "https://bakery.example/soda-bread")
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if recipes, _ := client.List(ctx); len(recipes) != 0 {
		t.Fatal("preview should not store anything")
	}

	preview.Title = "Grandma's Soda Bread"
	saved, err := client.Save(ctx, *preview)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Title != "Grandma's Soda Bread" || saved.ID == 0 {
		t.Errorf("unexpected saved recipe: %+v", saved)
	}
}

func TestClient_Errors(t *testing.T) {
	client := setupClient(t)
	ctx := context.Background()

	_, err := client.Scrape(ctx, "")
	apiErr, ok := err.(*Error)
	if !ok || apiErr.StatusCode != 400 || apiErr.Message != "URL is required" {
		t.Errorf("unexpected error: %#v", err)
	}

	if err := client.Health(ctx); err != nil {
		t.Errorf("Health failed: %v", err)
	}
}
