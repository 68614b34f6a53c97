package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var (
	errMalformedJSON = errors.New("invalid JSON body")
	errNotList       = errors.New("request body must be a list")
)

// decodeList decodes a JSON array body into dest, telling a body that is not
// JSON at all apart from valid JSON that is not an array.
func decodeList(body []byte, dest interface{}) error {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return errMalformedJSON
	}
	if trimmed[0] != '[' {
		return errNotList
	}
	if err := json.Unmarshal(trimmed, dest); err != nil {
		return fmt.Errorf("%w: %v", errMalformedJSON, err)
	}
	return nil
}

func errorJSON(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// internalError logs an unexpected failure and answers 500. Store errors carry
// their SQLSTATE when they come from Postgres.
func internalError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	fields := []zap.Field{
		zap.String("request_id", c.GetString("request_id")),
		zap.Error(err),
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		fields = append(fields,
			zap.String("sqlstate", pgErr.Code),
			zap.String("constraint", pgErr.ConstraintName))
	}
	logger.Error(msg, fields...)
	_ = c.Error(err)
	errorJSON(c, http.StatusInternalServerError, "internal server error")
}
