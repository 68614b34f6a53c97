package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"waterquality/internal/metrics"
	"waterquality/internal/models"
	"waterquality/internal/repository"
	"waterquality/internal/utils"

	"go.uber.org/zap"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format, use 'csv' or 'xlsx'")
	ErrNoData            = errors.New("no measurements to export")
)

type ExportService interface {
	// Export writes the measurements, optionally limited to one station, to w.
	Export(ctx context.Context, format, station string, w io.Writer) (int, error)
	// Snapshot writes every measurement to a timestamped file in the output directory.
	Snapshot(ctx context.Context, format string) (string, error)
}

type exportService struct {
	repo      repository.MeasurementRepository
	outputDir string
	logger    *zap.Logger
}

func NewExportService(repo repository.MeasurementRepository, outputDir string, logger *zap.Logger) ExportService {
	if outputDir == "" {
		outputDir = "./data/exports"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &exportService{
		repo:      repo,
		outputDir: outputDir,
		logger:    logger,
	}
}

// ContentType returns the MIME type and file extension of an export format.
func ContentType(format string) (string, string, error) {
	switch format {
	case "csv":
		return "text/csv", "csv", nil
	case "xlsx", "excel":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", nil
	default:
		return "", "", ErrUnsupportedFormat
	}
}

func (s *exportService) Export(ctx context.Context, format, station string, w io.Writer) (int, error) {
	if _, _, err := ContentType(format); err != nil {
		return 0, err
	}

	var (
		records []models.Measurement
		err     error
	)
	if station != "" {
		records, err = s.repo.GetByStation(ctx, station)
	} else {
		records, err = s.repo.List(ctx)
	}
	if err != nil {
		metrics.ExportsTotal.WithLabelValues(format, "error").Inc()
		return 0, fmt.Errorf("failed to get measurements: %w", err)
	}
	if len(records) == 0 {
		return 0, ErrNoData
	}

	if err := write(format, w, records); err != nil {
		metrics.ExportsTotal.WithLabelValues(format, "error").Inc()
		return 0, err
	}
	metrics.ExportsTotal.WithLabelValues(format, "success").Inc()
	return len(records), nil
}

func (s *exportService) Snapshot(ctx context.Context, format string) (string, error) {
	_, ext, err := ContentType(format)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	n, err := s.Export(ctx, format, "", &buf)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	filename := fmt.Sprintf("measurements_%s.%s", time.Now().UTC().Format("20060102_150405"), ext)
	path := filepath.Join(s.outputDir, filename)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	s.logger.Info("measurement snapshot written", zap.String("path", path), zap.Int("records", n))
	return path, nil
}

func write(format string, w io.Writer, records []models.Measurement) error {
	switch format {
	case "csv":
		return utils.WriteCSV(w, records)
	default:
		return utils.WriteExcel(w, records)
	}
}
