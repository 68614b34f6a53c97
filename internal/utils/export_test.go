package utils

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"waterquality/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleRecords() []models.Measurement {
	return []models.Measurement{
		{ID: 1, StationName: "Dock", Date: time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC), PH: 6.2, Turbidity: 1.5, DissolvedOxygen: 8, Temperature: 12.25, Conductivity: 400},
		{ID: 2, StationName: "Weir", Date: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC), PH: 7.4, Turbidity: 2, DissolvedOxygen: 7.5, Temperature: 13, Conductivity: 410},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"1", "Dock", "2026-10-17 08:00:00", "6.2", "1.5", "8", "12.25", "400"}, rows[1])
	assert.Equal(t, "Weir", rows[2][1])
}

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, sampleRecords()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(measurementsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Station", rows[0][1])
	assert.Equal(t, "Dock", rows[1][1])
	assert.Equal(t, "2026-10-17 09:00:00", rows[2][2])

	total, err := f.GetCellValue(infoSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", total)

	phRange, err := f.GetCellValue(infoSheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "6.20 - 7.40", phRange)
}

func TestWriteExcelEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(measurementsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestWriteExcelHighlightsPH(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, sampleRecords()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	formats, err := f.GetConditionalFormats(measurementsSheet)
	require.NoError(t, err)
	require.Contains(t, formats, "D2:D3")
	rules := formats["D2:D3"]
	require.Len(t, rules, 2)
	for _, rule := range rules {
		assert.NotNil(t, rule.Format)
	}
}

func TestConditionalFormatStyle(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	style, err := conditionalFormatStyle(f, "#FFCCCC")
	require.NoError(t, err)
	require.NotNil(t, style)
}
