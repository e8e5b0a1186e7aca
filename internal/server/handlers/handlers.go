package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/alm9/grades-escolares-api/internal/grades"
	"github.com/alm9/grades-escolares-api/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GradeService is the engine surface the HTTP layer depends on.
type GradeService interface {
	ListAll() ([]types.Grade, error)
	GetByID(id int) (types.Grade, error)
	TotalFor(student, subject string) (float64, error)
	AverageFor(subject, typ string) (float64, error)
	TopN(subject, typ string, n int) ([]types.Grade, error)
	Insert(p types.PartialGrade) (types.Grade, error)
	Update(id int, p types.PartialGrade) (types.Grade, error)
	Delete(id int) (types.Grade, error)
}

// Handler serves the grades API over a GradeService.
type Handler struct {
	grades GradeService
	logger *zap.Logger
}

// New returns a Handler. A nil logger discards handler logs.
func New(svc GradeService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{grades: svc, logger: logger}
}

// Health responds with a simple service heartbeat.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "Grades API is running",
	})
}

// respondError maps engine failures onto HTTP statuses. Missing records are
// ordinary 404s; only store failures are reported as unavailable.
func (h *Handler) respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, grades.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, grades.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, grades.ErrInvalidGrade):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case grades.StoreUnavailable(err):
		h.logger.Error("grade store unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "grade store unavailable"})
	default:
		h.logger.Error("unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func parseID(value string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || id < 0 {
		return 0, fmt.Errorf("id must be a non-negative integer")
	}
	return id, nil
}

func parseIDOrRespond(c *gin.Context) (int, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return id, true
}

// parseLimit reads the optional n query parameter. Absent means the engine
// default.
func parseLimit(c *gin.Context) (int, error) {
	value := strings.TrimSpace(c.Query("n"))
	if value == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("n parameter must be a positive integer")
	}
	return n, nil
}
