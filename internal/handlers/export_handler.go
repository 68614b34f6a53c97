package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"waterquality/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ExportHandler struct {
	service       service.ExportService
	defaultFormat string
	logger        *zap.Logger
}

func NewExportHandler(service service.ExportService, defaultFormat string, logger *zap.Logger) *ExportHandler {
	if defaultFormat == "" {
		defaultFormat = "csv"
	}
	return &ExportHandler{service: service, defaultFormat: defaultFormat, logger: logger}
}

// Export streams measurements as a CSV or XLSX attachment.
// Query: format=csv|xlsx, station=<name>.
func (h *ExportHandler) Export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", h.defaultFormat))
	station := c.Query("station")

	contentType, ext, err := service.ContentType(format)
	if err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}

	// Buffered so a failed export still gets a JSON error instead of a
	// truncated file.
	var buf bytes.Buffer
	n, err := h.service.Export(c.Request.Context(), format, station, &buf)
	switch {
	case errors.Is(err, service.ErrNoData):
		errorJSON(c, http.StatusNotFound, err.Error())
		return
	case err != nil:
		internalError(c, h.logger, "failed to export measurements", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="measurements_export.%s"`, ext))
	c.Header("X-Record-Count", fmt.Sprint(n))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
