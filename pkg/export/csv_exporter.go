package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders datasets and documents as CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes the dataset with one column per header.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	titles := make([]string, len(data.Headers))
	for i, header := range data.Headers {
		titles[i] = data.label(header)
	}
	records := make([][]string, 0, len(data.Rows))
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		records = append(records, record)
	}
	return writeCSV(titles, records)
}

// RenderDocument flattens a document into section,field,value rows.
func (e *CSVExporter) RenderDocument(doc Document) ([]byte, error) {
	var records [][]string
	for _, group := range doc.Groups {
		for _, row := range group.Rows {
			records = append(records, []string{group.Heading, row.Label, row.Value})
		}
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv document %q has no rows", doc.Title)
	}
	return writeCSV([]string{"section", "field", "value"}, records)
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	if err := writer.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}
