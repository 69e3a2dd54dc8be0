// internal/output/types.go

// Package output renders stored recipes to export files.
package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/valpere/recipevault/pkg/types"
)

// Format represents a supported export format
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
	FormatPDF   Format = "pdf"
)

// ValidFormats returns all supported formats
func ValidFormats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatCSV, FormatExcel, FormatPDF}
}

// Printable reports whether the format is text that can go to a terminal.
func (f Format) Printable() bool {
	return f != FormatExcel && f != FormatPDF
}

// ParseFormat accepts a format name or a common alias.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported output format: %q", name)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", fmt.Errorf("cannot infer format from %q", path)
	}
	return ParseFormat(ext)
}

// Writer renders a set of recipes to w.
type Writer interface {
	Write(w io.Writer, recipes []types.Recipe) error
	Format() Format
}

// Config selects the format and destination of an export. An empty or "-"
// File means standard output.
type Config struct {
	Format Format `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// Columns of the tabular formats.
var recipeColumns = []string{"id", "title", "url", "image", "scraped_at", "created_at", "ingredients", "instructions"}

const timeLayout = "2006-01-02 15:04:05"
