package handlers

import (
	"net/http"

	"github.com/alm9/grades-escolares-api/internal/types"
	"github.com/gin-gonic/gin"
)

// updateRequest is the body of PUT /grades, which carries the id inline.
type updateRequest struct {
	ID *int `json:"id"`
	types.PartialGrade
}

// ListGrades returns every grade in insertion order.
func (h *Handler) ListGrades(c *gin.Context) {
	all, err := h.grades.ListAll()
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(all),
		"grades": all,
	})
}

// GetGrade loads a single grade by id.
func (h *Handler) GetGrade(c *gin.Context) {
	id, ok := parseIDOrRespond(c)
	if !ok {
		return
	}

	grade, err := h.grades.GetByID(id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"grade": grade})
}

// CreateGrade inserts a grade. Any id or timestamp in the body is ignored.
func (h *Handler) CreateGrade(c *gin.Context) {
	var req types.PartialGrade
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grade, err := h.grades.Insert(req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"grade": grade})
}

// UpdateGrade merges the supplied fields into an existing grade. The id comes
// from the path when present, otherwise from the body.
func (h *Handler) UpdateGrade(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var id int
	if c.Param("id") != "" {
		var ok bool
		if id, ok = parseIDOrRespond(c); !ok {
			return
		}
		if req.ID != nil && *req.ID != id {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id in body does not match id in path"})
			return
		}
	} else {
		if req.ID == nil || *req.ID < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}
		id = *req.ID
	}

	if req.PartialGrade.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one of student, subject, type or value is required"})
		return
	}

	grade, err := h.grades.Update(id, req.PartialGrade)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"grade": grade})
}

// DeleteGrade removes a grade and echoes it back without its id.
func (h *Handler) DeleteGrade(c *gin.Context) {
	id, ok := parseIDOrRespond(c)
	if !ok {
		return
	}

	grade, err := h.grades.Delete(id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"grade": grade.Deleted()})
}
