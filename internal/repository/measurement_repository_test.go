package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"waterquality/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var measurementRowColumns = []string{
	"id", "station_name", "date", "ph", "turbidity", "dissolved_oxygen", "temperature", "conductivity",
}

func newMockRepository(t *testing.T) (MeasurementRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewMeasurementRepository(db), mock
}

func TestMeasurementRepositoryGetByID(t *testing.T) {
	repo, mock := newMockRepository(t)
	date := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(measurementRowColumns).
		AddRow(5, "Dock", date, 7.1, 1.2, 8.4, 13.5, 410.0)
	mock.ExpectQuery(`SELECT \* FROM "measurements" WHERE id = \$1`).
		WillReturnRows(rows)

	m, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), m.ID)
	assert.Equal(t, "Dock", m.StationName)
	assert.Equal(t, 410.0, m.Conductivity)
	assert.True(t, date.Equal(m.Date))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositoryGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT \* FROM "measurements" WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows(measurementRowColumns))

	_, err := repo.GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositoryGetByStationOrdersByID(t *testing.T) {
	repo, mock := newMockRepository(t)
	date := time.Now().UTC()

	rows := sqlmock.NewRows(measurementRowColumns).
		AddRow(2, "Weir", date, 7.0, 1.0, 8.0, 12.0, 300.0).
		AddRow(9, "Weir", date, 7.3, 1.1, 8.1, 12.5, 310.0)
	mock.ExpectQuery(`SELECT \* FROM "measurements" WHERE station_name = \$1 ORDER BY id`).
		WithArgs("Weir").
		WillReturnRows(rows)

	out, err := repo.GetByStation(context.Background(), "Weir")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, int64(9), out[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositoryDeleteNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "measurements" WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositoryDelete(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "measurements" WHERE id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositoryUpdateMissingRow(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE "measurements" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Measurement{ID: 3, StationName: "Dock", Date: time.Now().UTC()})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositoryUpdateWritesEveryColumn(t *testing.T) {
	repo, mock := newMockRepository(t)
	date := time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "measurements" SET "station_name"=$1,"date"=$2,"ph"=$3,"turbidity"=$4,"dissolved_oxygen"=$5,"temperature"=$6,"conductivity"=$7 WHERE "id" = $8`)).
		WithArgs("Dock", date, 0.0, 1.2, 8.4, 13.5, 410.0, int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), &models.Measurement{
		ID:              3,
		StationName:     "Dock",
		Date:            date,
		PH:              0,
		Turbidity:       1.2,
		DissolvedOxygen: 8.4,
		Temperature:     13.5,
		Conductivity:    410,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositoryTransactionCommits(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "measurements"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	m := &models.Measurement{StationName: "Dock", Date: time.Now().UTC(), PH: 7}
	err := repo.Transaction(context.Background(), func(tx MeasurementRepository) error {
		return tx.Create(context.Background(), m)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), m.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMeasurementRepositoryTransactionRollsBack(t *testing.T) {
	repo, mock := newMockRepository(t)
	abort := errors.New("abort")

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "measurements"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectRollback()

	err := repo.Transaction(context.Background(), func(tx MeasurementRepository) error {
		if err := tx.Create(context.Background(), &models.Measurement{StationName: "Dock", Date: time.Now().UTC()}); err != nil {
			return err
		}
		return abort
	})
	assert.ErrorIs(t, err, abort)
	require.NoError(t, mock.ExpectationsWereMet())
}
