package service

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"waterquality/internal/models"
	"waterquality/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededRepository(t *testing.T) *repository.MemoryMeasurementRepository {
	t.Helper()
	repo := repository.NewMemoryMeasurementRepository()
	for _, station := range []string{"Dock", "Weir", "Dock"} {
		require.NoError(t, repo.Create(context.Background(), &models.Measurement{StationName: station, PH: 7, Date: fixedNow}))
	}
	return repo
}

func TestExportCSVByStation(t *testing.T) {
	svc := NewExportService(seededRepository(t), t.TempDir(), nil)

	var buf bytes.Buffer
	n, err := svc.Export(context.Background(), "csv", "Dock", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "1,Dock,"))
	assert.True(t, strings.HasPrefix(lines[2], "3,Dock,"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(seededRepository(t), t.TempDir(), nil)
	_, err := svc.Export(context.Background(), "pdf", "", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExportNoData(t *testing.T) {
	svc := NewExportService(repository.NewMemoryMeasurementRepository(), t.TempDir(), nil)
	_, err := svc.Export(context.Background(), "xlsx", "", &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSnapshotWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	svc := NewExportService(seededRepository(t), dir, nil)

	path, err := svc.Snapshot(context.Background(), "xlsx")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, ".xlsx"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestContentType(t *testing.T) {
	ct, ext, err := ContentType("excel")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", ext)
	assert.Contains(t, ct, "spreadsheetml")

	_, _, err = ContentType("json")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
