package analytics

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Car Analytics"

// ExportRow is one line of the analytics workbook.
type ExportRow struct {
	CarID string
	Title string
	Year  int
	Entry
}

var exportHeader = []interface{}{
	"Car ID", "Car", "Year", "Details Clicks", "Buy Clicks", "Today Details", "Today Buy",
}

// WriteWorkbook renders rows and their totals as an XLSX workbook.
func WriteWorkbook(w io.Writer, rows []ExportRow, generatedAt time.Time) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#f2f2f2"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(exportSheet, "A1", "G1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	var total Entry
	for i, r := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		values := []interface{}{
			r.CarID, r.Title, r.Year,
			r.DetailsClicks, r.BuyClicks, r.DailyDetailsClicks, r.DailyBuyClicks,
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
		total.DetailsClicks += r.DetailsClicks
		total.BuyClicks += r.BuyClicks
		total.DailyDetailsClicks += r.DailyDetailsClicks
		total.DailyBuyClicks += r.DailyBuyClicks
	}

	totalRow := len(rows) + 2
	totals := []interface{}{
		"Total", "", "",
		total.DetailsClicks, total.BuyClicks, total.DailyDetailsClicks, total.DailyBuyClicks,
	}
	if err := f.SetSheetRow(exportSheet, fmt.Sprintf("A%d", totalRow), &totals); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}
	if err := f.SetCellStyle(exportSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("G%d", totalRow), headerStyle); err != nil {
		return fmt.Errorf("style totals: %w", err)
	}

	if err := f.SetCellValue(exportSheet, fmt.Sprintf("A%d", totalRow+2), "Generated "+generatedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write footer: %w", err)
	}
	if err := f.SetColWidth(exportSheet, "A", "A", 38); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(exportSheet, "B", "B", 28); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
