// internal/scraper/assembler.go
package scraper

import (
	"strings"
	"time"

	"github.com/valpere/recipevault/pkg/types"
)

// Assembler runs the field cascades over a page and builds the Recipe.
// It holds no mutable state and is safe for concurrent use.
type Assembler struct {
	now func() time.Time
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithClock overrides the clock used for ScrapedAt.
func WithClock(now func() time.Time) AssemblerOption {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAssembler creates an Assembler.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var defaultAssembler = NewAssembler()

// Extract builds a Recipe from raw HTML using the default assembler.
func Extract(rawHTML, sourceURL string) *types.Recipe {
	return defaultAssembler.Assemble(rawHTML, sourceURL)
}

// Assemble parses rawHTML and evaluates every field cascade. It always
// returns a structurally valid record.
func (a *Assembler) Assemble(rawHTML, sourceURL string) *types.Recipe {
	return a.AssembleDocument(NewHTMLDocument(rawHTML), sourceURL)
}

// AssembleDocument evaluates the field cascades against an already parsed
// document.
func (a *Assembler) AssembleDocument(doc Document, sourceURL string) *types.Recipe {
	title := TitleRules.Evaluate(doc)
	image := ImageRules.Evaluate(doc)
	ingredients := IngredientRules.Evaluate(doc)
	instructions := InstructionRules.Evaluate(doc)

	recipe := &types.Recipe{
		Title:        title.First(),
		Ingredients:  ingredients.Values,
		Instructions: instructions.Values,
		URL:          sourceURL,
		ScrapedAt:    a.now(),
		Provenance: &types.Provenance{
			Title:        title.Rule,
			Image:        image.Rule,
			Ingredients:  ingredients.Rule,
			Instructions: instructions.Rule,
		},
	}
	if image.Matched() {
		src := image.First()
		recipe.Image = &src
	}

	applyDefaults(recipe)
	return recipe
}

// Normalize applies the same defaults, placeholders and caps to a record
// that did not come from the extractor, such as one posted for saving.
func Normalize(r types.Recipe) types.Recipe {
	r.Title = Clean(r.Title)
	if r.Image != nil {
		img := Clean(*r.Image)
		if img == "" {
			r.Image = nil
		} else {
			r.Image = &img
		}
	}
	r.Ingredients = cleanList(r.Ingredients, CleanChecklist)
	r.Instructions = cleanList(r.Instructions, Clean)
	r.URL = strings.TrimSpace(r.URL)
	applyDefaults(&r)
	return r
}

func applyDefaults(r *types.Recipe) {
	if r.Title == "" {
		r.Title = DefaultTitle
	}
	r.Ingredients = Cap(r.Ingredients, MaxListItems)
	if len(r.Ingredients) == 0 {
		r.Ingredients = []string{IngredientsPlaceholder}
	}
	r.Instructions = Cap(r.Instructions, MaxListItems)
	if len(r.Instructions) == 0 {
		r.Instructions = []string{InstructionsPlaceholder}
	}
}

func cleanList(items []string, clean func(string) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := clean(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}
