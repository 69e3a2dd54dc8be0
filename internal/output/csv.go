// internal/output/csv.go
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/valpere/recipevault/pkg/types"
)

// CSVOptions tune CSV output.
type CSVOptions struct {
	Delimiter rune
	// ListSeparator joins ingredient and instruction lines in one cell.
	ListSeparator string
	NoHeader      bool
}

// CSVWriter writes one row per recipe
type CSVWriter struct {
	opts CSVOptions
}

// NewCSVWriter creates a new CSV writer
func NewCSVWriter(opts CSVOptions) *CSVWriter {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.ListSeparator == "" {
		opts.ListSeparator = "\n"
	}
	return &CSVWriter{opts: opts}
}

// Format implements Writer.
func (w *CSVWriter) Format() Format { return FormatCSV }

// Write implements Writer.
func (w *CSVWriter) Write(out io.Writer, recipes []types.Recipe) error {
	cw := csv.NewWriter(out)
	cw.Comma = w.opts.Delimiter

	if !w.opts.NoHeader {
		if err := cw.Write(recipeColumns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i := range recipes {
		if err := cw.Write(w.row(&recipes[i])); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func (w *CSVWriter) row(r *types.Recipe) []string {
	var created string
	if !r.CreatedAt.IsZero() {
		created = r.CreatedAt.UTC().Format(timeLayout)
	}
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Title,
		r.URL,
		r.ImageURL(),
		r.ScrapedAt.UTC().Format(timeLayout),
		created,
		strings.Join(r.Ingredients, w.opts.ListSeparator),
		strings.Join(r.Instructions, w.opts.ListSeparator),
	}
}
