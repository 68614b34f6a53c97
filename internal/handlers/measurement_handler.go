package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"waterquality/internal/models"
	"waterquality/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MeasurementHandler serves /measurements. Several read and delete routes
// answer 201 rather than 200; clients depend on those codes.
type MeasurementHandler struct {
	service service.MeasurementService
	logger  *zap.Logger
}

func NewMeasurementHandler(service service.MeasurementService, logger *zap.Logger) *MeasurementHandler {
	return &MeasurementHandler{service: service, logger: logger}
}

func (h *MeasurementHandler) List(c *gin.Context) {
	measurements, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		internalError(c, h.logger, "failed to list measurements", err)
		return
	}
	c.JSON(http.StatusCreated, models.MeasurementIndex(measurements))
}

// Get answers both /measurements/{id} and /measurements/{station_name}: an
// all-digit segment is an id, anything else a station name.
func (h *MeasurementHandler) Get(c *gin.Context) {
	key := c.Param("key")
	if service.IsDigits(key) {
		h.getByID(c, key)
		return
	}

	measurements, err := h.service.GetByStation(c.Request.Context(), key)
	var notFound *service.StationNotFoundError
	switch {
	case errors.As(err, &notFound):
		errorJSON(c, http.StatusNotFound, notFound.Error())
	case err != nil:
		internalError(c, h.logger, "failed to get station measurements", err)
	default:
		c.JSON(http.StatusCreated, measurements)
	}
}

func (h *MeasurementHandler) getByID(c *gin.Context, key string) {
	id, ok := parseID(key)
	if !ok {
		errorJSON(c, http.StatusNotFound, "Measurement not found")
		return
	}

	m, err := h.service.GetByID(c.Request.Context(), id)
	switch {
	case errors.Is(err, service.ErrNotFound):
		errorJSON(c, http.StatusNotFound, "Measurement not found")
	case err != nil:
		internalError(c, h.logger, "failed to get measurement", err)
	default:
		c.JSON(http.StatusCreated, m.Attributes())
	}
}

func (h *MeasurementHandler) Create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	var items []models.MeasurementInput
	if err := decodeList(body, &items); err != nil {
		if errors.Is(err, errNotList) {
			errorJSON(c, http.StatusBadRequest, "Request body must be a list of measurements")
			return
		}
		errorJSON(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	ids, err := h.service.CreateBatch(c.Request.Context(), items)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		errorJSON(c, http.StatusNotFound, verr.Error())
		return
	case err != nil:
		internalError(c, h.logger, "failed to create measurements", err)
		return
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = strconv.FormatInt(id, 10)
	}
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Measurement(s) added with id(s): %s", strings.Join(idStrings, ", ")),
		"ids":     ids,
	})
}

// Delete removes one id, or every id of a comma separated list.
func (h *MeasurementHandler) Delete(c *gin.Context) {
	key := c.Param("key")
	if service.IsDigits(key) {
		h.deleteByID(c, key)
		return
	}

	report, err := h.service.DeleteByIDList(c.Request.Context(), key)
	switch {
	case errors.Is(err, service.ErrInvalidIDFormat):
		errorJSON(c, http.StatusBadRequest, "Invalid ID format")
	case err != nil:
		internalError(c, h.logger, "failed to delete measurements", err)
	default:
		c.JSON(http.StatusCreated, report)
	}
}

func (h *MeasurementHandler) deleteByID(c *gin.Context, key string) {
	id, ok := parseID(key)
	if !ok {
		errorJSON(c, http.StatusNotFound, "Measurement not found")
		return
	}

	err := h.service.DeleteByID(c.Request.Context(), id)
	switch {
	case errors.Is(err, service.ErrNotFound):
		errorJSON(c, http.StatusNotFound, "Measurement not found")
	case err != nil:
		internalError(c, h.logger, "failed to delete measurement", err)
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Measurement deleted"})
	}
}

func (h *MeasurementHandler) Update(c *gin.Context) {
	key := c.Param("key")
	if !service.IsDigits(key) {
		errorJSON(c, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !isJSONContentType(c.ContentType()) {
		errorJSON(c, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	var patch models.MeasurementPatch
	if err := json.NewDecoder(c.Request.Body).Decode(&patch); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	id, ok := parseID(key)
	if !ok {
		errorJSON(c, http.StatusNotFound, "Measurement not found")
		return
	}

	err := h.service.UpdateByID(c.Request.Context(), id, patch)
	switch {
	case errors.Is(err, service.ErrNotFound):
		errorJSON(c, http.StatusNotFound, "Measurement not found")
	case err != nil:
		internalError(c, h.logger, "failed to update measurement", err)
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Measurement updated"})
	}
}

func (h *MeasurementHandler) UpdateBatch(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		errorJSON(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	var patches []models.MeasurementPatch
	if err := decodeList(body, &patches); err != nil {
		if errors.Is(err, errNotList) {
			errorJSON(c, http.StatusNotFound, "Request body must be a list of measurement updates")
			return
		}
		errorJSON(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	report, err := h.service.UpdateBatch(c.Request.Context(), patches)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		errorJSON(c, http.StatusNotFound, verr.Error())
	case errors.Is(err, service.ErrDuplicateID):
		errorJSON(c, http.StatusNotFound, "Duplicate ID found")
	case err != nil:
		internalError(c, h.logger, "failed to update measurements", err)
	default:
		c.JSON(http.StatusCreated, report)
	}
}

// parseID fails only for digit strings too large for an id.
func parseID(key string) (int64, bool) {
	id, err := strconv.ParseInt(key, 10, 64)
	return id, err == nil
}

func isJSONContentType(ct string) bool {
	return ct == "application/json" || (strings.HasPrefix(ct, "application/") && strings.HasSuffix(ct, "+json"))
}
