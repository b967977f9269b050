package export

// Dataset defines tabular export content. Labels optionally maps a header key
// to the column title written in the output.
type Dataset struct {
	Headers []string
	Labels  map[string]string
	Rows    []map[string]string
}

func (d Dataset) label(header string) string {
	if label, ok := d.Labels[header]; ok && label != "" {
		return label
	}
	return header
}

// Document is a filled report: labelled values grouped under headings.
type Document struct {
	Title    string
	Subtitle string
	Groups   []Group
}

// Group is one headed block of a Document.
type Group struct {
	Heading string
	Rows    []Row
}

// Row is a single labelled value.
type Row struct {
	Label string
	Value string
}
