package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter writes report rows to an xlsx workbook
type ExcelExporter struct {
	file    *excelize.File
	options ExcelOptions
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SheetName    string            `json:"sheet_name"`
	FreezeHeader bool              `json:"freeze_header"`
	AutoFilter   bool              `json:"auto_filter"`
	NumberFormat string            `json:"number_format"`
	HeaderStyle  *ExcelStyleConfig `json:"header_style,omitempty"`
	ColumnWidths []float64         `json:"column_widths,omitempty"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold  bool   `json:"font_bold"`
	FontSize  int    `json:"font_size"`
	FontColor string `json:"font_color"`
	FillColor string `json:"fill_color"`
	Alignment string `json:"alignment"`
	Border    bool   `json:"border"`
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		SheetName:    "Carbon Report",
		FreezeHeader: true,
		AutoFilter:   true,
		NumberFormat: "#,##0.000",
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FontSize:  11,
			FillColor: "2E7D32",
			FontColor: "FFFFFF",
			Alignment: "center",
			Border:    true,
		},
		ColumnWidths: []float64{14, 34, 18, 16, 14},
	}
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", options.SheetName)

	return &ExcelExporter{
		file:    file,
		options: options,
	}
}

// WriteDocument writes a title block, the header row and every report row
func (e *ExcelExporter) WriteDocument(doc Document) error {
	sheet := e.options.SheetName

	if err := e.file.SetCellValue(sheet, "A1", doc.Title); err != nil {
		return fmt.Errorf("failed to write title: %w", err)
	}
	if doc.Subtitle != "" {
		e.file.SetCellValue(sheet, "A2", doc.Subtitle)
	}
	if !doc.GeneratedAt.IsZero() {
		e.file.SetCellValue(sheet, "E2", doc.GeneratedAt.Format("2006-01-02 15:04"))
	}
	titleStyle, err := e.file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("failed to create title style: %w", err)
	}
	e.file.SetCellStyle(sheet, "A1", "A1", titleStyle)

	const headerRow = 4
	if err := e.writeHeader(sheet, headerRow); err != nil {
		return err
	}

	numberStyle, err := e.file.NewStyle(&excelize.Style{CustomNumFmt: &e.options.NumberFormat})
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}

	for i, r := range doc.Rows {
		rowNum := headerRow + 1 + i
		for col, val := range r.cells() {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
			if err := e.file.SetCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
		valueCell, _ := excelize.CoordinatesToCellName(4, rowNum)
		e.file.SetCellStyle(sheet, valueCell, valueCell, numberStyle)
	}

	if e.options.AutoFilter && len(doc.Rows) > 0 {
		first, _ := excelize.CoordinatesToCellName(1, headerRow)
		last, _ := excelize.CoordinatesToCellName(len(Columns), headerRow+len(doc.Rows))
		if err := e.file.AutoFilter(sheet, first+":"+last, nil); err != nil {
			return fmt.Errorf("failed to set auto filter: %w", err)
		}
	}

	for i, width := range e.options.ColumnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		e.file.SetColWidth(sheet, col, col, width)
	}

	return nil
}

func (e *ExcelExporter) writeHeader(sheet string, row int) error {
	styleID := 0
	if e.options.HeaderStyle != nil {
		style, err := e.createStyle(e.options.HeaderStyle)
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		styleID = style
	}

	for i, col := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		e.file.SetCellValue(sheet, cell, col)
		if styleID > 0 {
			e.file.SetCellStyle(sheet, cell, cell, styleID)
		}
	}

	if e.options.FreezeHeader {
		topLeft, _ := excelize.CoordinatesToCellName(1, row+1)
		e.file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      row,
			TopLeftCell: topLeft,
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

func (e *ExcelExporter) createStyle(config *ExcelStyleConfig) (int, error) {
	style := &excelize.Style{
		Font: &excelize.Font{
			Bold:  config.FontBold,
			Size:  float64(config.FontSize),
			Color: config.FontColor,
		},
	}
	if config.FillColor != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{config.FillColor},
		}
	}
	if config.Alignment != "" {
		style.Alignment = &excelize.Alignment{Horizontal: config.Alignment}
	}
	if config.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}
	return e.file.NewStyle(style)
}

// WriteTo writes the workbook to w
func (e *ExcelExporter) WriteTo(w io.Writer) error {
	return e.file.Write(w)
}

// Close releases the workbook
func (e *ExcelExporter) Close() error {
	return e.file.Close()
}
