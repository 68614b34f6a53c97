package repository

import (
	"context"
	"errors"
	"fmt"

	"waterquality/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when no row matches the requested id.
var ErrNotFound = errors.New("record not found")

type MeasurementRepository interface {
	List(ctx context.Context) ([]models.Measurement, error)
	GetByID(ctx context.Context, id int64) (*models.Measurement, error)
	GetByStation(ctx context.Context, station string) ([]models.Measurement, error)
	Create(ctx context.Context, m *models.Measurement) error
	Update(ctx context.Context, m *models.Measurement) error
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	CountStations(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	// Transaction runs fn against a repository bound to one transaction.
	// A non-nil error or a panic from fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx MeasurementRepository) error) error
}

var measurementColumns = []string{
	"station_name", "date", "ph", "turbidity", "dissolved_oxygen", "temperature", "conductivity",
}

type measurementRepository struct {
	db *gorm.DB
}

func NewMeasurementRepository(db *gorm.DB) MeasurementRepository {
	return &measurementRepository{db: db}
}

func (r *measurementRepository) List(ctx context.Context) ([]models.Measurement, error) {
	var measurements []models.Measurement
	err := r.db.WithContext(ctx).
		Order("id").
		Find(&measurements).
		Error
	if err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	return measurements, nil
}

func (r *measurementRepository) GetByID(ctx context.Context, id int64) (*models.Measurement, error) {
	var m models.Measurement
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&m).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get measurement %d: %w", id, err)
	}
	return &m, nil
}

func (r *measurementRepository) GetByStation(ctx context.Context, station string) ([]models.Measurement, error) {
	var measurements []models.Measurement
	err := r.db.WithContext(ctx).
		Where("station_name = ?", station).
		Order("id").
		Find(&measurements).
		Error
	if err != nil {
		return nil, fmt.Errorf("get measurements for station %q: %w", station, err)
	}
	return measurements, nil
}

func (r *measurementRepository) Create(ctx context.Context, m *models.Measurement) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}
	return nil
}

// Update writes every column of m over the row with m.ID.
func (r *measurementRepository) Update(ctx context.Context, m *models.Measurement) error {
	result := r.db.WithContext(ctx).
		Model(&models.Measurement{ID: m.ID}).
		Select(measurementColumns).
		Updates(m)
	if result.Error != nil {
		return fmt.Errorf("update measurement %d: %w", m.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *measurementRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Measurement{})
	if result.Error != nil {
		return fmt.Errorf("delete measurement %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *measurementRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Measurement{}).
		Count(&count).
		Error
	return count, err
}

func (r *measurementRepository) CountStations(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Measurement{}).
		Distinct("station_name").
		Count(&count).
		Error
	return count, err
}

func (r *measurementRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *measurementRepository) Transaction(ctx context.Context, fn func(tx MeasurementRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&measurementRepository{db: tx})
	})
}
