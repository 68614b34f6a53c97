package utils

import (
	"encoding/csv"
	"io"
	"strconv"

	"waterquality/internal/models"
)

var csvHeader = []string{
	"id", "station_name", "date", "ph", "turbidity", "dissolved_oxygen", "temperature", "conductivity",
}

func WriteCSV(w io.Writer, records []models.Measurement) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, record := range records {
		row := []string{
			strconv.FormatInt(record.ID, 10),
			record.StationName,
			record.Date.UTC().Format(dateLayout),
			formatFloat(record.PH),
			formatFloat(record.Turbidity),
			formatFloat(record.DissolvedOxygen),
			formatFloat(record.Temperature),
			formatFloat(record.Conductivity),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
