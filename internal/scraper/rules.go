// internal/scraper/rules.go
package scraper

const (
	// MaxListItems bounds the ingredient and instruction lists.
	MaxListItems = 20

	DefaultTitle            = "Unknown Recipe"
	IngredientsPlaceholder  = "Ingredients could not be automatically extracted. Please check the original recipe."
	InstructionsPlaceholder = "Instructions could not be automatically extracted. Please check the original recipe."
)

// Field names used in provenance, logs and metrics.
const (
	FieldTitle        = "title"
	FieldImage        = "image"
	FieldIngredients  = "ingredients"
	FieldInstructions = "instructions"
)

var (
	TitleRules = FieldRules{
		Field: FieldTitle,
		Shape: Single,
		Rules: []Rule{
			TextRule("h1"),
			AttrRule(`meta[property="og:title"]`, "content"),
			TextRule("[data-recipe-title]"),
			TextRule("title"),
		},
	}

	ImageRules = FieldRules{
		Field: FieldImage,
		Shape: Single,
		Rules: []Rule{
			AttrRule("img", "src"),
			AttrRule("[data-recipe-image]", "src"),
			AttrRule(`meta[property="og:image"]`, "content"),
		},
	}

	IngredientRules = FieldRules{
		Field: FieldIngredients,
		Shape: Multi,
		Rules: checklist(
			// WP Recipe Maker
			ListRule(".wprm-recipe-ingredient", 0),
			ListRule("[data-ingredient]", 0),
			ListRule(`.ingredient, .ingredients li, .recipe-ingredient, [class*="ingredient"]`, 3),
			ListRule("li", 5),
		),
	}

	InstructionRules = FieldRules{
		Field: FieldInstructions,
		Shape: Multi,
		Rules: []Rule{
			ListRule(".wprm-recipe-instruction", 0),
			ListRule(`ol li, .instructions li, .steps li, .recipe-instructions li, [class*="instruction"]`, 5),
		},
	}
)

func checklist(rules ...Rule) []Rule {
	for i := range rules {
		rules[i].Checklist = true
	}
	return rules
}
