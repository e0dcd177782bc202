package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"
)

// PDFGenerator renders a report as a single-table PDF
type PDFGenerator struct {
	pdf     *gofpdf.Fpdf
	options PDFOptions
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize       string    `json:"page_size"`
	Orientation    string    `json:"orientation"`
	Title          string    `json:"title"`
	Subtitle       string    `json:"subtitle,omitempty"`
	DateFormat     string    `json:"date_format"`
	HeaderColor    PDFColor  `json:"header_color"`
	AlternateRows  bool      `json:"alternate_rows"`
	AlternateColor PDFColor  `json:"alternate_color"`
	FontFamily     string    `json:"font_family"`
	FontSize       float64   `json:"font_size"`
	TitleFontSize  float64   `json:"title_font_size"`
	Margin         float64   `json:"margin"`
	ColumnWidths   []float64 `json:"column_widths,omitempty"` // fractions of the printable width
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "portrait",
		Title:          "Carbon Report",
		DateFormat:     "2006-01-02 15:04",
		HeaderColor:    PDFColor{R: 46, G: 125, B: 50},
		AlternateRows:  true,
		AlternateColor: PDFColor{R: 240, G: 244, B: 240},
		FontFamily:     "Arial",
		FontSize:       9,
		TitleFontSize:  16,
		Margin:         15,
		ColumnWidths:   []float64{0.16, 0.34, 0.18, 0.18, 0.14},
	}
}

// NewPDFGenerator creates a new PDF generator
func NewPDFGenerator(options PDFOptions) *PDFGenerator {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margin, options.Margin, options.Margin)
	pdf.SetAutoPageBreak(false, options.Margin)

	g := &PDFGenerator{pdf: pdf, options: options}
	g.setFooter()
	return g
}

// WriteDocument lays out the title block and the report table
func (g *PDFGenerator) WriteDocument(doc Document) error {
	g.pdf.AddPage()

	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, g.options.Title, "", 1, "C", false, 0, "")

	if g.options.Subtitle != "" {
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize+2)
		g.pdf.SetTextColor(90, 90, 90)
		g.pdf.CellFormat(0, 7, g.options.Subtitle, "", 1, "C", false, 0, "")
	}
	if !doc.GeneratedAt.IsZero() {
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize-1)
		g.pdf.SetTextColor(128, 128, 128)
		g.pdf.CellFormat(0, 6, "Generated: "+doc.GeneratedAt.Format(g.options.DateFormat), "", 1, "R", false, 0, "")
	}
	g.pdf.Ln(4)

	widths := g.columnWidths()
	g.addTableHeader(widths)

	_, pageHeight := g.pdf.GetPageSize()
	for i, r := range doc.Rows {
		if g.pdf.GetY()+7 > pageHeight-g.options.Margin-10 {
			g.pdf.AddPage()
			g.addTableHeader(widths)
		}

		if g.options.AlternateRows && i%2 == 1 {
			g.pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
		} else {
			g.pdf.SetFillColor(255, 255, 255)
		}

		cells := []string{r.Section, r.Label, r.Category, strconv.FormatFloat(r.Value, 'f', 3, 64), r.Unit}
		for j, val := range cells {
			align := "L"
			if j == 3 {
				align = "R"
			}
			g.pdf.CellFormat(widths[j], 7, truncate(g.pdf, val, widths[j]), "1", 0, align, true, 0, "")
		}
		g.pdf.Ln(-1)
	}

	return g.pdf.Error()
}

func (g *PDFGenerator) columnWidths() []float64 {
	pageWidth, _ := g.pdf.GetPageSize()
	available := pageWidth - 2*g.options.Margin

	widths := make([]float64, len(Columns))
	for i := range widths {
		frac := 1 / float64(len(Columns))
		if i < len(g.options.ColumnWidths) {
			frac = g.options.ColumnWidths[i]
		}
		widths[i] = available * frac
	}
	return widths
}

func (g *PDFGenerator) addTableHeader(widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+1)
	g.pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.SetTextColor(255, 255, 255)

	for i, label := range Columns {
		g.pdf.CellFormat(widths[i], 8, label, "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)
}

// truncate shortens s until it fits in width.
func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s)+2 <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...")+2 > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func (g *PDFGenerator) setFooter() {
	g.pdf.SetFooterFunc(func() {
		g.pdf.SetY(-15)
		g.pdf.SetFont(g.options.FontFamily, "", 8)
		g.pdf.SetTextColor(128, 128, 128)
		g.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", g.pdf.PageNo()), "", 0, "C", false, 0, "")
	})
}

// WriteTo writes the PDF to w
func (g *PDFGenerator) WriteTo(w io.Writer) error {
	return g.pdf.Output(w)
}
