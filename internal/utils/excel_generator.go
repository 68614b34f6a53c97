package utils

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"waterquality/internal/models"
)

const (
	measurementsSheet = "Measurements"
	infoSheet         = "Info"
	dateLayout        = "2006-01-02 15:04:05"
)

var measurementHeaders = []string{
	"ID", "Station", "Date", "pH", "Turbidity (NTU)", "Dissolved Oxygen (mg/L)", "Temperature (°C)", "Conductivity (µS/cm)",
}

// WriteExcel writes the measurements as an xlsx workbook with a data sheet and
// an info sheet.
func WriteExcel(w io.Writer, records []models.Measurement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", measurementsSheet); err != nil {
		return err
	}

	for i, header := range measurementHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(measurementsSheet, cell, header); err != nil {
			return err
		}
	}

	numberStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}

	for rowIdx, record := range records {
		row := []interface{}{
			record.ID,
			record.StationName,
			record.Date.UTC().Format(dateLayout),
			record.PH,
			record.Turbidity,
			record.DissolvedOxygen,
			record.Temperature,
			record.Conductivity,
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err := f.SetSheetRow(measurementsSheet, cell, &row); err != nil {
			return err
		}
	}

	if len(records) > 0 {
		last := len(records) + 1
		if err := f.SetCellStyle(measurementsSheet, "D2", fmt.Sprintf("H%d", last), numberStyle); err != nil {
			return err
		}
		lowStyle, err := conditionalFormatStyle(f, "#CCE5FF")
		if err != nil {
			return err
		}
		highStyle, err := conditionalFormatStyle(f, "#FFCCCC")
		if err != nil {
			return err
		}
		// pH outside the 6.5-8.5 drinking water band is highlighted
		if err := f.SetConditionalFormat(measurementsSheet, fmt.Sprintf("D2:D%d", last), []excelize.ConditionalFormatOptions{
			{Type: "cell", Criteria: "<", Value: "6.5", Format: lowStyle},
			{Type: "cell", Criteria: ">", Value: "8.5", Format: highStyle},
		}); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(measurementsSheet, "A", "H", 20); err != nil {
		return err
	}

	if err := writeInfoSheet(f, records); err != nil {
		return err
	}

	return f.Write(w)
}

func writeInfoSheet(f *excelize.File, records []models.Measurement) error {
	if _, err := f.NewSheet(infoSheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Report Generated", time.Now().UTC().Format(dateLayout)},
		{"Total Records", len(records)},
	}
	if len(records) > 0 {
		first, last := dateRange(records)
		minPH, maxPH := phRange(records)
		rows = append(rows,
			[]interface{}{"Time Range", fmt.Sprintf("%s to %s", first.Format(dateLayout), last.Format(dateLayout))},
			[]interface{}{"pH Range", fmt.Sprintf("%.2f - %.2f", minPH, maxPH)},
		)
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(infoSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func dateRange(records []models.Measurement) (time.Time, time.Time) {
	first, last := records[0].Date, records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return first.UTC(), last.UTC()
}

func phRange(records []models.Measurement) (float64, float64) {
	min, max := records[0].PH, records[0].PH
	for _, r := range records[1:] {
		if r.PH < min {
			min = r.PH
		}
		if r.PH > max {
			max = r.PH
		}
	}
	return min, max
}

func conditionalFormatStyle(f *excelize.File, color string) (*int, error) {
	style, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{color},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("conditional style %s: %w", color, err)
	}
	return &style, nil
}
