// cmd/server/server_test.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/valpere/recipevault/internal/config"
	"github.com/valpere/recipevault/pkg/types"
)

// setupTestServer builds the application from the default configuration,
// which uses the in-memory store.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("failed to load default config: %v", err)
	}
	cfg.Server.RateLimit = 0

	a, err := build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	server := httptest.NewServer(a.server.Handler())
	t.Cleanup(func() {
		server.Close()
		a.Close()
	})
	return server
}

func TestHealthEndpoint(t *testing.T) {
	server := setupTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Server is running") {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := setupTestServer(t)

	if resp, err := http.Get(server.URL + "/health"); err == nil {
		resp.Body.Close()
	}

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "recipevault_") {
		t.Errorf("metrics output missing namespace: %.200s", body)
	}
}

func TestSaveAndListRecipes(t *testing.T) {
	server := setupTestServer(t)

	payload, _ := json.Marshal(map[string]interface{}{
		"recipe": types.Recipe{
			Title:        "Tomato Soup",
			URL:          "https://example.com/soup",
			Ingredients:  []string{"4 tomatoes"},
			Instructions: []string{"Simmer."},
		},
	})
	resp, err := http.Post(server.URL+"/api/scrape/save", "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("save request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/scrape/recipes")
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	defer resp.Body.Close()

	var recipes []types.Recipe
	if err := json.NewDecoder(resp.Body).Decode(&recipes); err != nil {
		t.Fatalf("invalid list response: %v", err)
	}
	if len(recipes) != 1 || recipes[0].Title != "Tomato Soup" {
		t.Errorf("unexpected recipes: %+v", recipes)
	}
}

func TestScrapeRejectsMissingURL(t *testing.T) {
	server := setupTestServer(t)

	resp, err := http.Post(server.URL+"/api/scrape", "application/json", strings.NewReader(`{"url":""}`))
	if err != nil {
		t.Fatalf("scrape request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.StatusCode)
	}
}

func TestBuildRejectsUnknownFetcher(t *testing.T) {
	cfg := config.Default()
	cfg.Fetcher.Mode = "carrier-pigeon"
	if _, err := build(context.Background(), cfg); err == nil {
		t.Error("expected error for unknown fetcher mode")
	}
}
