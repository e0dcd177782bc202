// Package export renders carbon reports as CSV, Excel or PDF files.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is an output file type
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// ParseFormat accepts the format names used on the wire. "xlsx" is an alias
// for excel.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatExcel, FormatPDF:
		return f, nil
	case "xlsx":
		return FormatExcel, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// ContentType is the MIME type of the rendered file
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Extension is the file extension without the dot
func (f Format) Extension() string {
	if f == FormatExcel {
		return "xlsx"
	}
	return string(f)
}

// Row is one line of a rendered report.
type Row struct {
	Section  string
	Label    string
	Category string
	Value    float64
	Unit     string
}

// Columns are the headers every format writes.
var Columns = []string{"Section", "Label", "Category", "Value", "Unit"}

func (r Row) cells() []any {
	return []any{r.Section, r.Label, r.Category, r.Value, r.Unit}
}

// Document is a report ready to render.
type Document struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
	Rows        []Row
}

// Write renders doc to w in format f.
func Write(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatCSV:
		e := NewCSVExporter(w, DefaultCSVOptions())
		if err := e.WriteDocument(doc); err != nil {
			return err
		}
		return e.Flush()
	case FormatExcel:
		e := NewExcelExporter(DefaultExcelOptions())
		defer e.Close()
		if err := e.WriteDocument(doc); err != nil {
			return err
		}
		return e.WriteTo(w)
	case FormatPDF:
		opts := DefaultPDFOptions()
		opts.Title = doc.Title
		opts.Subtitle = doc.Subtitle
		g := NewPDFGenerator(opts)
		if err := g.WriteDocument(doc); err != nil {
			return err
		}
		return g.WriteTo(w)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, f)
}

// Render is Write into memory.
func Render(f Format, doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, f, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
