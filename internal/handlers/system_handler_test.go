package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"waterquality/internal/repository"
	"waterquality/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExportCSV(t *testing.T) {
	r, _ := setup(t)
	seed(t, r)

	rr := do(r, http.MethodGet, "/export/measurements?format=csv&station=Weir", "", "")

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "measurements_export.csv")
	assert.Equal(t, "1", rr.Header().Get("X-Record-Count"))
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "id,station_name"))
	assert.Contains(t, lines[1], "Weir")
}

func TestExportXLSXDefaultsAndErrors(t *testing.T) {
	r, _ := setup(t)

	rr := do(r, http.MethodGet, "/export/measurements", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(r, http.MethodGet, "/export/measurements?format=pdf", "", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	seed(t, r)
	rr = do(r, http.MethodGet, "/export/measurements?format=XLSX", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "measurements_export.xlsx")
	assert.NotZero(t, rr.Body.Len())
}

func TestHealth(t *testing.T) {
	r, _ := setup(t)

	rr := do(r, http.MethodGet, "/health", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]interface{}{"storage": "connected", "cache": "disabled"}, body["services"])
}

type downService struct {
	service.MeasurementService
}

func (downService) Ping(context.Context) error { return errors.New("dial tcp: connection refused") }

func TestHealthDegraded(t *testing.T) {
	r := newRouter(t, downService{}, repository.NewMemoryMeasurementRepository())

	rr := do(r, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "degraded", decode(t, rr)["status"])
}

func TestSystemStats(t *testing.T) {
	r, _ := setup(t)
	seed(t, r)
	seed(t, r)

	rr := do(r, http.MethodGet, "/system/stats", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	assert.Equal(t, map[string]interface{}{"measurements": 4.0, "stations": 2.0}, body["database"])
	assert.NotContains(t, body, "redis")
}

func TestSystemStatsWithCache(t *testing.T) {
	repo := repository.NewMemoryMeasurementRepository()
	svc := service.NewMeasurementService(repo, nil, zap.NewNop(), service.MeasurementConfig{})
	h := NewSystemHandler(svc, repository.NewNoopCacheRepository(), func(context.Context) (map[string]string, error) {
		return map[string]string{"redis_version": "7.2.4"}, nil
	}, "postgres", zap.NewNop())

	r := gin.New()
	r.GET("/system/stats", h.Stats)
	rr := do(r, http.MethodGet, "/system/stats", "", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]interface{}{"redis_version": "7.2.4"}, decode(t, rr)["redis"])
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := setup(t)

	rr := do(r, http.MethodGet, "/metrics", "", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}
