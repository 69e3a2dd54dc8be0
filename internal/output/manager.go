// internal/output/manager.go
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/valpere/recipevault/internal/utils"
	"github.com/valpere/recipevault/pkg/types"
)

// Manager picks a writer for the configured format and destination.
type Manager struct {
	config *Config
	stdout io.Writer
	logger zerolog.Logger
}

// NewManager creates a new output manager. The format is inferred from the
// file extension when not set.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("output configuration is required")
	}

	config := *cfg
	if config.Format == "" {
		if config.File == "" || config.File == "-" {
			config.Format = FormatJSON
		} else {
			f, err := FormatFromPath(config.File)
			if err != nil {
				return nil, err
			}
			config.Format = f
		}
	} else {
		f, err := ParseFormat(string(config.Format))
		if err != nil {
			return nil, err
		}
		config.Format = f
	}

	if config.toStdout() && !config.Format.Printable() {
		return nil, fmt.Errorf("%s output requires a file", config.Format)
	}

	return &Manager{
		config: &config,
		stdout: os.Stdout,
		logger: utils.NewComponentLogger("output"),
	}, nil
}

func (c *Config) toStdout() bool {
	return c.File == "" || c.File == "-"
}

// Format returns the resolved format.
func (m *Manager) Format() Format {
	return m.config.Format
}

// GetWriter returns the appropriate writer for the configured format
func (m *Manager) GetWriter() (Writer, error) {
	switch m.config.Format {
	case FormatJSON:
		return NewJSONWriter(JSONOptions{Indent: "  "}), nil
	case FormatYAML:
		return NewYAMLWriter(YAMLOptions{Indent: 2}), nil
	case FormatCSV:
		return NewCSVWriter(CSVOptions{}), nil
	case FormatExcel:
		return NewExcelWriter(ExcelOptions{}), nil
	case FormatPDF:
		return NewPDFWriter(PDFOptions{}), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", m.config.Format)
	}
}

// Write renders recipes to the configured destination.
func (m *Manager) Write(recipes []types.Recipe) error {
	writer, err := m.GetWriter()
	if err != nil {
		return fmt.Errorf("failed to get writer: %w", err)
	}

	if m.config.toStdout() {
		return writer.Write(m.stdout, recipes)
	}

	if err := os.MkdirAll(filepath.Dir(m.config.File), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(m.config.File)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writer.Write(f, recipes); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s output: %w", m.config.Format, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	m.logger.Info().
		Str("format", string(m.config.Format)).
		Str("file", m.config.File).
		Int("recipes", len(recipes)).
		Msg("export written")
	return nil
}
