// pkg/types/recipe.go

// Package types holds the public record types shared by the extraction
// engine, the stores and the REST surface.
package types

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Recipe is the normalized record produced from a recipe page.
type Recipe struct {
	ID           int64       `json:"id,omitempty" yaml:"id,omitempty"`
	Title        string      `json:"title" yaml:"title"`
	Ingredients  []string    `json:"ingredients" yaml:"ingredients"`
	Instructions []string    `json:"instructions" yaml:"instructions"`
	Image        *string     `json:"image,omitempty" yaml:"image,omitempty"`
	URL          string      `json:"url" yaml:"url"`
	ScrapedAt    time.Time   `json:"scrapedAt" yaml:"scraped_at"`
	CreatedAt    time.Time   `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	Provenance   *Provenance `json:"provenance,omitempty" yaml:"-"`
}

// Provenance records which rule of each field cascade produced the value.
// An index of -1 means no rule matched and the default was used.
type Provenance struct {
	Title        int `json:"title"`
	Image        int `json:"image"`
	Ingredients  int `json:"ingredients"`
	Instructions int `json:"instructions"`
}

// ImageURL returns the image URL or an empty string.
func (r *Recipe) ImageURL() string {
	if r.Image == nil {
		return ""
	}
	return *r.Image
}

// ValidateURL checks that raw is an absolute http(s) URL.
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL host is empty")
	}
	return nil
}

// Validate checks the fields a caller must supply when saving a record
// directly.
func (r *Recipe) Validate() error {
	if r == nil {
		return fmt.Errorf("recipe is required")
	}
	if err := ValidateURL(r.URL); err != nil {
		return err
	}
	return nil
}
