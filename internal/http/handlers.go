package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"dbstatic/internal/apperr"
	"dbstatic/internal/db"
	"dbstatic/internal/logging"
)

// Bodies written in plain-text mode when a database call fails.
const (
	insertFailedBody = "Err"
	readFailedBody   = "[]"
)

type insertResponse struct {
	Command      string `json:"command"`
	RowsAffected int64  `json:"rows_affected"`
}

func (s *Server) insertValue(c *gin.Context) {
	raw := c.Param("number")
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		e := apperr.Validation("number must be a signed 32-bit integer").WithContext("number", raw)
		s.writeError(c, e, e.Message)
		return
	}

	tag, err := s.Values.Insert(c.Request.Context(), int32(n))
	if err != nil {
		s.writeError(c, dbError("insert failed", err), insertFailedBody)
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, insertResponse{Command: tag.String(), RowsAffected: tag.RowsAffected()})
		return
	}
	c.String(http.StatusOK, tag.String())
}

func (s *Server) readValues(c *gin.Context) {
	values, err := s.Values.List(c.Request.Context())
	if err != nil {
		s.writeError(c, dbError("read failed", err), readFailedBody)
		return
	}

	if wantsJSON(c) {
		if values == nil {
			values = []int32{}
		}
		c.JSON(http.StatusOK, values)
		return
	}
	c.String(http.StatusOK, formatValues(values))
}

// formatValues renders values as [1, 2, 3].
func formatValues(values []int32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.FormatInt(int64(v), 10))
	}
	b.WriteByte(']')
	return b.String()
}

func dbError(message string, err error) *apperr.Error {
	if errors.Is(err, db.ErrPoolTimeout) {
		return apperr.Unavailable(message, err)
	}
	return apperr.Internal(message, err)
}

func wantsJSON(c *gin.Context) bool {
	return c.NegotiateFormat(binding.MIMEPlain, binding.MIMEJSON) == binding.MIMEJSON
}

// writeError logs err and answers with its status; plain-text clients get
// textBody, JSON clients the structured error.
func (s *Server) writeError(c *gin.Context, err *apperr.Error, textBody string) {
	logError(c, err)

	if wantsJSON(c) {
		c.AbortWithStatusJSON(err.HTTPStatus(), err.ToResponse())
		return
	}
	c.Abort()
	c.String(err.HTTPStatus(), textBody)
}

func logError(c *gin.Context, err *apperr.Error) {
	fields := []zap.Field{
		zap.String("error_type", string(err.Type)),
		zap.String("message", err.Message),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", err.HTTPStatus()),
	}
	for k, v := range err.Context {
		fields = append(fields, zap.Any(k, v))
	}
	if err.Cause != nil {
		fields = append(fields, zap.NamedError("cause", err.Cause))
	}

	log := logging.FromContext(c.Request.Context())
	switch err.Type {
	case apperr.TypeValidation, apperr.TypeUnauthorized:
		log.Info("Request rejected", fields...)
	case apperr.TypeUnavailable:
		log.Warn("Dependency unavailable", fields...)
	default:
		log.Error("Request failed", fields...)
	}
}
