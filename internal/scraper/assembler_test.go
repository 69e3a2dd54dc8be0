// internal/scraper/assembler_test.go
package scraper

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/valpere/recipevault/pkg/types"
)

var fixedTime = time.Date(2025, 6, 23, 12, 0, 0, 0, time.UTC)

func newTestAssembler() *Assembler {
	return NewAssembler(WithClock(func() time.Time { return fixedTime }))
}

func TestAssemble_PastaScenario(t *testing.T) {
	html := `<h1>Pasta</h1><div class="wprm-recipe-ingredient">200g flour</div><div class="wprm-recipe-ingredient">2 eggs</div><ol><li>Mix well</li></ol>`

	r := newTestAssembler().Assemble(html, "https://example.com/pasta")

	if r.Title != "Pasta" {
		t.Errorf("title = %q", r.Title)
	}
	if want := []string{"200g flour", "2 eggs"}; !reflect.DeepEqual(r.Ingredients, want) {
		t.Errorf("ingredients = %q, want %q", r.Ingredients, want)
	}
	if want := []string{"Mix well"}; !reflect.DeepEqual(r.Instructions, want) {
		t.Errorf("instructions = %q, want %q", r.Instructions, want)
	}
	if r.Image != nil {
		t.Errorf("image = %q, want absent", *r.Image)
	}
	if r.URL != "https://example.com/pasta" {
		t.Errorf("url = %q", r.URL)
	}
	if !r.ScrapedAt.Equal(fixedTime) {
		t.Errorf("scrapedAt = %v", r.ScrapedAt)
	}
}

func TestAssemble_BareListItems(t *testing.T) {
	r := newTestAssembler().Assemble(`<li>Buy milk</li><li>ok</li>`, "https://example.com")

	if want := []string{"Buy milk"}; !reflect.DeepEqual(r.Ingredients, want) {
		t.Errorf("ingredients = %q, want %q", r.Ingredients, want)
	}
	if want := []string{InstructionsPlaceholder}; !reflect.DeepEqual(r.Instructions, want) {
		t.Errorf("instructions = %q, want %q", r.Instructions, want)
	}
	if r.Provenance.Ingredients != 3 {
		t.Errorf("ingredients rule = %d, want 3", r.Provenance.Ingredients)
	}
}

func TestAssemble_DefaultsOnUnusableInput(t *testing.T) {
	inputs := map[string]string{
		"empty":       "",
		"plain text":  "just some words, no markup at all",
		"binary":      "\x00\x01\x02\xff\xfe",
		"broken tags": "<div <<< </p></span><h1",
		"empty title": "<html><head><title>   </title></head><body><p>nothing</p></body></html>",
	}

	for name, html := range inputs {
		t.Run(name, func(t *testing.T) {
			r := newTestAssembler().Assemble(html, "https://example.com")

			if r.Title != DefaultTitle {
				t.Errorf("title = %q, want %q", r.Title, DefaultTitle)
			}
			if !reflect.DeepEqual(r.Ingredients, []string{IngredientsPlaceholder}) {
				t.Errorf("ingredients = %q", r.Ingredients)
			}
			if !reflect.DeepEqual(r.Instructions, []string{InstructionsPlaceholder}) {
				t.Errorf("instructions = %q", r.Instructions)
			}
			if r.Image != nil {
				t.Errorf("image = %q, want absent", *r.Image)
			}
			p := r.Provenance
			if p.Title != -1 || p.Image != -1 || p.Ingredients != -1 || p.Instructions != -1 {
				t.Errorf("provenance = %+v, want all -1", *p)
			}
		})
	}
}

func TestAssemble_FirstTierWinsOverGenericClasses(t *testing.T) {
	html := `
		<ul class="ingredients">
			<li class="recipe-ingredient">generic flour</li>
			<li class="recipe-ingredient">generic sugar</li>
		</ul>
		<ul>
			<li class="wprm-recipe-ingredient">plugin butter</li>
			<li class="wprm-recipe-ingredient">plugin salt</li>
		</ul>`

	r := newTestAssembler().Assemble(html, "https://example.com")

	want := []string{"plugin butter", "plugin salt"}
	if !reflect.DeepEqual(r.Ingredients, want) {
		t.Fatalf("ingredients = %q, want %q", r.Ingredients, want)
	}
	for _, item := range r.Ingredients {
		if strings.HasPrefix(item, "generic") {
			t.Errorf("tier-3 item %q leaked into result", item)
		}
	}
}

func TestAssemble_CapKeepsFirstTwentyInDocumentOrder(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&b, `<span data-ingredient>item %02d</span>`, i)
		fmt.Fprintf(&b, `<ol><li>step number %02d</li></ol>`, i)
	}

	r := newTestAssembler().Assemble(b.String(), "https://example.com")

	if len(r.Ingredients) != MaxListItems || len(r.Instructions) != MaxListItems {
		t.Fatalf("lengths = %d/%d, want %d", len(r.Ingredients), len(r.Instructions), MaxListItems)
	}
	for i := 0; i < MaxListItems; i++ {
		if want := fmt.Sprintf("item %02d", i+1); r.Ingredients[i] != want {
			t.Errorf("ingredients[%d] = %q, want %q", i, r.Ingredients[i], want)
		}
		if want := fmt.Sprintf("step number %02d", i+1); r.Instructions[i] != want {
			t.Errorf("instructions[%d] = %q, want %q", i, r.Instructions[i], want)
		}
	}
}

func TestAssemble_TitleFallbackChain(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
		rule int
	}{
		{"h1", `<title>Page</title><meta property="og:title" content="OG"><h1> Heading </h1>`, "Heading", 0},
		{"og:title", `<title>Page</title><meta property="og:title" content=" OG Title ">`, "OG Title", 1},
		{"data marker", `<title>Page</title><span data-recipe-title> Marked </span>`, "Marked", 2},
		{"title element", `<title> Page </title>`, "Page", 3},
		{"blank first marker falls through", `<span data-recipe-title> </span><span data-recipe-title>Later</span><title>T</title>`, "T", 3},
		{"all empty", `<title></title><h1> </h1><meta property="og:title" content="  ">`, DefaultTitle, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestAssembler().Assemble(tt.html, "https://example.com")
			if r.Title != tt.want {
				t.Errorf("title = %q, want %q", r.Title, tt.want)
			}
			if r.Provenance.Title != tt.rule {
				t.Errorf("rule = %d, want %d", r.Provenance.Title, tt.rule)
			}
		})
	}
}

func TestAssemble_ImageChain(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"first img", `<img src=" /a.jpg "><img src="/b.jpg"><meta property="og:image" content="/og.jpg">`, "/a.jpg"},
		{"first img without src falls through", `<img alt="x"><div data-recipe-image src="/marker.jpg"></div>`, "/marker.jpg"},
		{"og:image", `<meta property="og:image" content="https://cdn.example.com/og.jpg">`, "https://cdn.example.com/og.jpg"},
		{"absent", `<p>no images</p>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestAssembler().Assemble(tt.html, "https://example.com")
			if got := r.ImageURL(); got != tt.want {
				t.Errorf("image = %q, want %q", got, tt.want)
			}
			if tt.want == "" && r.Image != nil {
				t.Error("image pointer should be nil when absent")
			}
		})
	}
}

func TestAssemble_ChecklistGlyphsStrippedFromIngredientsOnly(t *testing.T) {
	html := `<div class="wprm-recipe-ingredient">☐ 1 cup rice</div>
		<div class="wprm-recipe-instruction">☐ Rinse the rice</div>`

	r := newTestAssembler().Assemble(html, "https://example.com")

	if r.Ingredients[0] != "1 cup rice" {
		t.Errorf("ingredient = %q", r.Ingredients[0])
	}
	if r.Instructions[0] != "☐ Rinse the rice" {
		t.Errorf("instruction = %q", r.Instructions[0])
	}
}

func TestAssemble_ListItemsMayServeBothFields(t *testing.T) {
	html := `<ol><li>Preheat the oven</li><li>Bake for an hour</li></ol>`

	r := newTestAssembler().Assemble(html, "https://example.com")

	want := []string{"Preheat the oven", "Bake for an hour"}
	if !reflect.DeepEqual(r.Instructions, want) {
		t.Errorf("instructions = %q", r.Instructions)
	}
	if !reflect.DeepEqual(r.Ingredients, want) {
		t.Errorf("ingredients = %q", r.Ingredients)
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	html := `<html><head><meta property="og:image" content="/i.png"><title>Soup</title></head>
		<body><ul class="ingredients"><li>4 carrots</li><li>1 onion</li></ul>
		<div class="recipe-instructions"><ol><li>Chop everything</li><li>Simmer slowly</li></ol></div></body></html>`

	first, err := json.Marshal(Extract(html, "https://example.com/soup"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(Extract(html, "https://example.com/soup"))
	if err != nil {
		t.Fatal(err)
	}

	strip := func(b []byte) map[string]interface{} {
		var m map[string]interface{}
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatal(err)
		}
		delete(m, "scrapedAt")
		return m
	}
	if !reflect.DeepEqual(strip(first), strip(second)) {
		t.Errorf("outputs differ:\n%s\n%s", first, second)
	}
}

func TestAssemble_ListBoundsHold(t *testing.T) {
	inputs := []string{
		"",
		"<li>x</li>",
		strings.Repeat(`<li class="ingredient">long ingredient line</li>`, 50),
		strings.Repeat(`<div class="instruction-step">long instruction line</div>`, 25),
	}
	for i, html := range inputs {
		r := newTestAssembler().Assemble(html, "https://example.com")
		if n := len(r.Ingredients); n < 1 || n > MaxListItems {
			t.Errorf("input %d: %d ingredients", i, n)
		}
		if n := len(r.Instructions); n < 1 || n > MaxListItems {
			t.Errorf("input %d: %d instructions", i, n)
		}
	}
}

func TestNormalize(t *testing.T) {
	img := "   "
	var many []string
	for i := 0; i < 25; i++ {
		many = append(many, fmt.Sprintf("step %d", i))
	}
	in := types.Recipe{
		Title:        "  ",
		Ingredients:  []string{" ☐ salt ", "", "   "},
		Instructions: many,
		Image:        &img,
		URL:          " https://example.com/r ",
	}

	out := Normalize(in)

	if out.Title != DefaultTitle {
		t.Errorf("title = %q", out.Title)
	}
	if !reflect.DeepEqual(out.Ingredients, []string{"salt"}) {
		t.Errorf("ingredients = %q", out.Ingredients)
	}
	if len(out.Instructions) != MaxListItems || out.Instructions[0] != "step 0" {
		t.Errorf("instructions = %q", out.Instructions)
	}
	if out.Image != nil {
		t.Errorf("image = %q, want nil", *out.Image)
	}
	if out.URL != "https://example.com/r" {
		t.Errorf("url = %q", out.URL)
	}

	empty := Normalize(types.Recipe{URL: "https://example.com"})
	if empty.Ingredients[0] != IngredientsPlaceholder || empty.Instructions[0] != InstructionsPlaceholder {
		t.Errorf("placeholders not applied: %+v", empty)
	}
}
