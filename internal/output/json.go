// internal/output/json.go
package output

import (
	"encoding/json"
	"io"

	"github.com/valpere/recipevault/pkg/types"
)

// JSONOptions tune JSON output.
type JSONOptions struct {
	Indent string
	// Provenance keeps the per-field rule indexes when present.
	Provenance bool
}

// JSONWriter writes recipes as one JSON array
type JSONWriter struct {
	opts JSONOptions
}

// NewJSONWriter creates a new JSON writer
func NewJSONWriter(opts JSONOptions) *JSONWriter {
	return &JSONWriter{opts: opts}
}

// Format implements Writer.
func (w *JSONWriter) Format() Format { return FormatJSON }

// Write implements Writer.
func (w *JSONWriter) Write(out io.Writer, recipes []types.Recipe) error {
	if recipes == nil {
		recipes = []types.Recipe{}
	}
	if !w.opts.Provenance {
		stripped := make([]types.Recipe, len(recipes))
		for i, r := range recipes {
			r.Provenance = nil
			stripped[i] = r
		}
		recipes = stripped
	}

	encoder := json.NewEncoder(out)
	encoder.SetEscapeHTML(false)
	if w.opts.Indent != "" {
		encoder.SetIndent("", w.opts.Indent)
	}
	return encoder.Encode(recipes)
}
