package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"waterquality/internal/metrics"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

type Handlers struct {
	Measurements *MeasurementHandler
	Export       *ExportHandler
	System       *SystemHandler
}

type routeInfo struct {
	Method      string
	Path        string
	Description string
}

var apiRoutes = []routeInfo{
	{http.MethodGet, "/measurements", "all measurements keyed by id"},
	{http.MethodGet, "/measurements/{id}", "one measurement"},
	{http.MethodGet, "/measurements/{station_name}", "measurements of one station"},
	{http.MethodPost, "/measurements", "add a list of measurements"},
	{http.MethodPut, "/measurements/{id}", "update one measurement"},
	{http.MethodPut, "/measurements/batch", "update a list of measurements"},
	{http.MethodDelete, "/measurements/{id}", "delete one measurement"},
	{http.MethodDelete, "/measurements/{id1,id2,...}", "delete a list of measurements"},
	{http.MethodGet, "/export/measurements?format=csv|xlsx", "download measurements"},
	{http.MethodGet, "/health", "health check"},
	{http.MethodGet, "/system/stats", "storage and cache statistics"},
}

// RegisterRoutes mounts every endpoint on r and installs the landing page
// template.
func RegisterRoutes(r *gin.Engine, h Handlers) {
	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"Title":   "Water Quality Measurements",
			"Storage": h.System.storage,
			"Routes":  apiRoutes,
		})
	})

	m := r.Group("/measurements")
	{
		m.GET("", h.Measurements.List)
		m.POST("", h.Measurements.Create)
		m.GET("/:key", h.Measurements.Get)
		m.DELETE("/:key", h.Measurements.Delete)
		m.PUT("/batch", h.Measurements.UpdateBatch)
		m.PUT("/:key", h.Measurements.Update)
	}

	r.GET("/export/measurements", h.Export.Export)

	r.GET("/health", h.System.Health)
	r.GET("/system/stats", h.System.Stats)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
}
