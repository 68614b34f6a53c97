package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"waterquality/internal/metrics"
	"waterquality/internal/models"
	"waterquality/internal/repository"

	"go.uber.org/zap"
)

const (
	cacheKeyAll       = "measurements:all"
	cacheKeyByID      = "measurements:id:%d"
	cacheKeyByStation = "measurements:station:%s"
	cachePattern      = "measurements:*"
)

type MeasurementService interface {
	ListAll(ctx context.Context) ([]models.Measurement, error)
	GetByID(ctx context.Context, id int64) (*models.Measurement, error)
	GetByStation(ctx context.Context, station string) ([]models.Measurement, error)
	CreateBatch(ctx context.Context, items []models.MeasurementInput) ([]int64, error)
	DeleteByID(ctx context.Context, id int64) error
	DeleteByIDList(ctx context.Context, rawIDs string) (*DeleteReport, error)
	UpdateByID(ctx context.Context, id int64, patch models.MeasurementPatch) error
	UpdateBatch(ctx context.Context, patches []models.MeasurementPatch) (*UpdateReport, error)
	Stats(ctx context.Context) (*Stats, error)
	Ping(ctx context.Context) error
}

type MeasurementConfig struct {
	CacheTTL time.Duration
	// Now supplies server timestamps. Defaults to UTC wall clock in whole seconds.
	Now func() time.Time
}

type DeleteReport struct {
	Deleted  []int64 `json:"deleted"`
	NotFound []int64 `json:"not_found,omitempty"`
}

type UpdateReport struct {
	Updated  []int64 `json:"updated"`
	NotFound []int64 `json:"not_found,omitempty"`
}

type Stats struct {
	Measurements int64 `json:"measurements"`
	Stations     int64 `json:"stations"`
}

type measurementService struct {
	repo      repository.MeasurementRepository
	cacheRepo repository.CacheRepository
	logger    *zap.Logger
	cacheTTL  time.Duration
	now       func() time.Time

	// generation advances on every invalidation. A read that loaded rows
	// under an older generation must not leave them in the cache.
	generation atomic.Uint64
}

func NewMeasurementService(
	repo repository.MeasurementRepository,
	cacheRepo repository.CacheRepository,
	logger *zap.Logger,
	config MeasurementConfig,
) MeasurementService {
	if cacheRepo == nil {
		cacheRepo = repository.NewNoopCacheRepository()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Now == nil {
		config.Now = func() time.Time { return time.Now().UTC().Truncate(time.Second) }
	}
	return &measurementService{
		repo:      repo,
		cacheRepo: cacheRepo,
		logger:    logger,
		cacheTTL:  config.CacheTTL,
		now:       config.Now,
	}
}

func (s *measurementService) ListAll(ctx context.Context) ([]models.Measurement, error) {
	var measurements []models.Measurement
	if s.cached(ctx, cacheKeyAll, &measurements) {
		return measurements, nil
	}

	gen := s.generation.Load()
	measurements, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, gen, cacheKeyAll, measurements)
	return measurements, nil
}

func (s *measurementService) GetByID(ctx context.Context, id int64) (*models.Measurement, error) {
	key := fmt.Sprintf(cacheKeyByID, id)
	var cached models.Measurement
	if s.cached(ctx, key, &cached) {
		return &cached, nil
	}

	gen := s.generation.Load()
	m, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.store(ctx, gen, key, m)
	return m, nil
}

func (s *measurementService) GetByStation(ctx context.Context, station string) ([]models.Measurement, error) {
	key := fmt.Sprintf(cacheKeyByStation, station)
	var measurements []models.Measurement
	if !s.cached(ctx, key, &measurements) {
		gen := s.generation.Load()
		var err error
		measurements, err = s.repo.GetByStation(ctx, station)
		if err != nil {
			return nil, err
		}
		s.store(ctx, gen, key, measurements)
	}

	if len(measurements) == 0 {
		return nil, &StationNotFoundError{Station: station}
	}
	return measurements, nil
}

// CreateBatch inserts every item or none: one item missing a required field
// rejects the whole batch before anything is written.
func (s *measurementService) CreateBatch(ctx context.Context, items []models.MeasurementInput) ([]int64, error) {
	for _, item := range items {
		if missing := item.MissingFields(); len(missing) > 0 {
			return nil, &ValidationError{Fields: missing}
		}
	}

	ids := make([]int64, 0, len(items))
	err := s.repo.Transaction(ctx, func(tx repository.MeasurementRepository) error {
		for _, item := range items {
			m := item.ToMeasurement(s.now())
			if err := tx.Create(ctx, &m); err != nil {
				return err
			}
			ids = append(ids, m.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	metrics.ObserveWrite("create", len(ids))
	s.logger.Info("measurements created", zap.Int64s("ids", ids))
	return ids, nil
}

func (s *measurementService) DeleteByID(ctx context.Context, id int64) error {
	err := s.repo.Transaction(ctx, func(tx repository.MeasurementRepository) error {
		return tx.Delete(ctx, id)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	metrics.ObserveWrite("delete", 1)
	return nil
}

// DeleteByIDList deletes every parseable id of a comma separated list and
// reports which ids existed. Missing ids never fail the call.
func (s *measurementService) DeleteByIDList(ctx context.Context, rawIDs string) (*DeleteReport, error) {
	ids, err := ParseIDList(rawIDs)
	if err != nil {
		return nil, err
	}

	report := &DeleteReport{Deleted: []int64{}}
	err = s.repo.Transaction(ctx, func(tx repository.MeasurementRepository) error {
		for _, id := range ids {
			err := tx.Delete(ctx, id)
			switch {
			case errors.Is(err, repository.ErrNotFound):
				report.NotFound = append(report.NotFound, id)
			case err != nil:
				return err
			default:
				report.Deleted = append(report.Deleted, id)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(report.Deleted) > 0 {
		s.invalidate(ctx)
	}
	metrics.ObserveWrite("delete", len(report.Deleted))
	return report, nil
}

func (s *measurementService) UpdateByID(ctx context.Context, id int64, patch models.MeasurementPatch) error {
	err := s.repo.Transaction(ctx, func(tx repository.MeasurementRepository) error {
		current, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		next := patch.Apply(*current, s.now())
		return tx.Update(ctx, &next)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	metrics.ObserveWrite("update", 1)
	return nil
}

// UpdateBatch applies patches in order inside one transaction. A patch without
// an id or repeating an earlier id aborts the batch and rolls back what was
// already applied; unknown ids are only reported.
func (s *measurementService) UpdateBatch(ctx context.Context, patches []models.MeasurementPatch) (*UpdateReport, error) {
	report := &UpdateReport{Updated: []int64{}}
	date := s.now()

	err := s.repo.Transaction(ctx, func(tx repository.MeasurementRepository) error {
		seen := make(map[int64]struct{}, len(patches))
		for _, patch := range patches {
			if patch.ID == nil {
				return &ValidationError{Fields: []string{"id"}}
			}
			id := *patch.ID
			if _, dup := seen[id]; dup {
				return ErrDuplicateID
			}
			seen[id] = struct{}{}

			current, err := tx.GetByID(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				report.NotFound = append(report.NotFound, id)
				continue
			}
			if err != nil {
				return err
			}

			next := patch.Apply(*current, date)
			if err := tx.Update(ctx, &next); err != nil {
				return err
			}
			report.Updated = append(report.Updated, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(report.Updated) > 0 {
		s.invalidate(ctx)
	}
	metrics.ObserveWrite("update", len(report.Updated))
	return report, nil
}

func (s *measurementService) Stats(ctx context.Context) (*Stats, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count measurements: %w", err)
	}
	stations, err := s.repo.CountStations(ctx)
	if err != nil {
		return nil, fmt.Errorf("count stations: %w", err)
	}
	return &Stats{Measurements: count, Stations: stations}, nil
}

func (s *measurementService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ParseIDList splits a comma separated id list. Tokens that are not made of
// digits after trimming are skipped; a list without a single valid token is
// ErrInvalidIDFormat.
func ParseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if !IsDigits(token) {
			continue
		}
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			// out of range for any stored id
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, ErrInvalidIDFormat
	}
	return ids, nil
}

// IsDigits reports whether s is a non-empty run of ASCII digits.
func IsDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (s *measurementService) cached(ctx context.Context, key string, dest interface{}) bool {
	found, err := s.cacheRepo.GetJSON(ctx, key, dest)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return found
}

// store caches value loaded under generation gen. When a write invalidated
// the cache meanwhile the value is dropped, or removed again if the
// invalidation ran between the check and the write.
func (s *measurementService) store(ctx context.Context, gen uint64, key string, value interface{}) {
	if s.generation.Load() != gen {
		return
	}
	if err := s.cacheRepo.SetJSON(ctx, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	if s.generation.Load() != gen {
		if err := s.cacheRepo.Delete(ctx, key); err != nil {
			s.logger.Warn("cache delete failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// invalidate must run after the write has committed.
func (s *measurementService) invalidate(ctx context.Context) {
	s.generation.Add(1)
	if err := s.cacheRepo.DeleteByPattern(ctx, cachePattern); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}
}
