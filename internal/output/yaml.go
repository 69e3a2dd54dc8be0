// internal/output/yaml.go
package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/valpere/recipevault/pkg/types"
)

// YAMLOptions tune YAML output.
type YAMLOptions struct {
	Indent int
	// MultiDocument writes each recipe as a separate YAML document.
	MultiDocument bool
}

// YAMLWriter writes recipes as YAML
type YAMLWriter struct {
	opts YAMLOptions
}

// NewYAMLWriter creates a new YAML writer
func NewYAMLWriter(opts YAMLOptions) *YAMLWriter {
	if opts.Indent <= 0 {
		opts.Indent = 2
	}
	return &YAMLWriter{opts: opts}
}

// Format implements Writer.
func (w *YAMLWriter) Format() Format { return FormatYAML }

// Write implements Writer.
func (w *YAMLWriter) Write(out io.Writer, recipes []types.Recipe) error {
	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(w.opts.Indent)

	if w.opts.MultiDocument {
		for i := range recipes {
			if err := encoder.Encode(&recipes[i]); err != nil {
				return fmt.Errorf("failed to encode recipe %d: %w", i, err)
			}
		}
	} else {
		if recipes == nil {
			recipes = []types.Recipe{}
		}
		if err := encoder.Encode(recipes); err != nil {
			return fmt.Errorf("failed to encode recipes: %w", err)
		}
	}
	return encoder.Close()
}
