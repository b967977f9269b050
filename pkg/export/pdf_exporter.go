package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets and documents with gofpdf.
type PDFExporter struct {
	author string
}

// NewPDFExporter constructs a PDF exporter. The author is written into document metadata.
func NewPDFExporter(author string) *PDFExporter {
	return &PDFExporter{author: author}
}

// Render lays the dataset out as a landscape table.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := e.newPDF("L", title)
	pdf.AddPage()
	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	colWidth := 277.0 / float64(len(data.Headers))
	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, data.label(header), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}
	return output(pdf)
}

// RenderDocument writes each group as a two column label/value table.
func (e *PDFExporter) RenderDocument(doc Document) ([]byte, error) {
	if len(doc.Groups) == 0 {
		return nil, fmt.Errorf("pdf document %q has no groups", doc.Title)
	}
	pdf := e.newPDF("P", doc.Title)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, doc.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	for _, group := range doc.Groups {
		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(220, 230, 241)
		pdf.CellFormat(0, 8, group.Heading, "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, row := range group.Rows {
			pdf.CellFormat(120, 7, row.Label, "1", 0, "L", false, 0, "")
			pdf.CellFormat(0, 7, row.Value, "1", 1, "R", false, 0, "")
		}
		pdf.Ln(3)
	}
	return output(pdf)
}

func (e *PDFExporter) newPDF(orientation, title string) *gofpdf.Fpdf {
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetTitle(title, true)
	if e.author != "" {
		pdf.SetAuthor(e.author, true)
	}
	return pdf
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
