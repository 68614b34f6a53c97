package repository

import (
	"context"
	"sort"
	"sync"

	"waterquality/internal/models"
)

// MemoryMeasurementRepository keeps measurements in process memory. Writers
// and transactions are serialized; a transaction works on a copy that replaces
// the live rows only when it succeeds. Like a database sequence, ids handed
// out inside a rolled back transaction are not reused.
type MemoryMeasurementRepository struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	rows    map[int64]models.Measurement
	nextID  int64
}

func NewMemoryMeasurementRepository() *MemoryMeasurementRepository {
	return &MemoryMeasurementRepository{
		rows:   make(map[int64]models.Measurement),
		nextID: 1,
	}
}

func (r *MemoryMeasurementRepository) List(_ context.Context) ([]models.Measurement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(models.Measurement) bool { return true }), nil
}

func (r *MemoryMeasurementRepository) GetByID(_ context.Context, id int64) (*models.Measurement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (r *MemoryMeasurementRepository) GetByStation(_ context.Context, station string) ([]models.Measurement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sorted(func(m models.Measurement) bool { return m.StationName == station }), nil
}

func (r *MemoryMeasurementRepository) Create(_ context.Context, m *models.Measurement) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	m.ID = r.nextID
	r.nextID++
	r.rows[m.ID] = *m
	return nil
}

func (r *MemoryMeasurementRepository) Update(_ context.Context, m *models.Measurement) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[m.ID]; !ok {
		return ErrNotFound
	}
	r.rows[m.ID] = *m
	return nil
}

func (r *MemoryMeasurementRepository) Delete(_ context.Context, id int64) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MemoryMeasurementRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.rows)), nil
}

func (r *MemoryMeasurementRepository) CountStations(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stations := make(map[string]struct{})
	for _, m := range r.rows {
		stations[m.StationName] = struct{}{}
	}
	return int64(len(stations)), nil
}

func (r *MemoryMeasurementRepository) Ping(_ context.Context) error {
	return nil
}

func (r *MemoryMeasurementRepository) Transaction(ctx context.Context, fn func(tx MeasurementRepository) error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.RLock()
	tx := &MemoryMeasurementRepository{
		rows:   make(map[int64]models.Measurement, len(r.rows)),
		nextID: r.nextID,
	}
	for id, m := range r.rows {
		tx.rows[id] = m
	}
	r.mu.RUnlock()

	committed := false
	defer func() {
		r.mu.Lock()
		r.nextID = tx.nextID
		if committed {
			r.rows = tx.rows
		}
		r.mu.Unlock()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	committed = true
	return nil
}

// sorted must be called with mu held.
func (r *MemoryMeasurementRepository) sorted(keep func(models.Measurement) bool) []models.Measurement {
	out := make([]models.Measurement, 0, len(r.rows))
	for _, m := range r.rows {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
