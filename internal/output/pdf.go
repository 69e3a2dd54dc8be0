// internal/output/pdf.go
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/valpere/recipevault/pkg/types"
)

// PDFOptions tune the printable recipe cards.
type PDFOptions struct {
	PageSize string
	Title    string
	// Generated is stamped in the footer; zero means now.
	Generated time.Time
}

// PDFWriter renders one printable card per recipe: title, source link, an
// ingredient checklist and numbered steps.
type PDFWriter struct {
	opts PDFOptions
}

// NewPDFWriter creates a new PDF writer
func NewPDFWriter(opts PDFOptions) *PDFWriter {
	if opts.PageSize == "" {
		opts.PageSize = "A4"
	}
	if opts.Title == "" {
		opts.Title = "Recipes"
	}
	return &PDFWriter{opts: opts}
}

// Format implements Writer.
func (w *PDFWriter) Format() Format { return FormatPDF }

// Write implements Writer.
func (w *PDFWriter) Write(out io.Writer, recipes []types.Recipe) error {
	generated := w.opts.Generated
	if generated.IsZero() {
		generated = time.Now()
	}

	pdf := gofpdf.New("P", "mm", w.opts.PageSize, "")
	pdf.SetTitle(w.opts.Title, true)
	pdf.SetCreator("recipevault", true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)

	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s - generated %s", w.opts.Title, generated.UTC().Format("2006-01-02"))), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	if len(recipes) == 0 {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 10, "No recipes saved.", "", 1, "L", false, 0, "")
	}
	for i := range recipes {
		w.writeCard(pdf, tr, &recipes[i])
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return pdf.Output(out)
}

func (w *PDFWriter) writeCard(pdf *gofpdf.Fpdf, tr func(string) string, r *types.Recipe) {
	pdf.AddPage()
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(r.Title), "", "L", false)

	if r.URL != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(40, 80, 160)
		pdf.WriteLinkString(5, tr(r.URL), r.URL)
		pdf.Ln(5)
		pdf.SetTextColor(0, 0, 0)
	}
	if !r.ScrapedAt.IsZero() {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 5, "Saved "+r.ScrapedAt.UTC().Format("2 Jan 2006"), "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(4)

	sectionHeading(pdf, "Ingredients")
	pdf.SetFont("Helvetica", "", 11)
	left, _, _, _ := pdf.GetMargins()
	for _, item := range r.Ingredients {
		y := pdf.GetY()
		pdf.Rect(left, y+1.2, 3, 3, "D")
		pdf.SetX(left + 6)
		pdf.MultiCell(0, 5.5, tr(item), "", "L", false)
		pdf.Ln(0.8)
	}
	pdf.Ln(4)

	sectionHeading(pdf, "Instructions")
	for i, step := range r.Instructions {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.SetX(left)
		pdf.CellFormat(8, 5.5, fmt.Sprintf("%d.", i+1), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5.5, tr(step), "", "L", false)
		pdf.Ln(1.5)
	}
}

func sectionHeading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, text, "B", 1, "L", false, 0, "")
	pdf.Ln(2)
}
