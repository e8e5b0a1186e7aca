package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetTotal sums a student's grades in a subject.
func (h *Handler) GetTotal(c *gin.Context) {
	student := c.Param("student")
	subject := c.Param("subject")

	if student == "" || subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Student and subject are required"})
		return
	}

	total, err := h.grades.TotalFor(student, subject)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"student": student,
		"subject": subject,
		"total":   total,
	})
}

// GetAverage averages the grades of a subject and type.
func (h *Handler) GetAverage(c *gin.Context) {
	subject := c.Param("subject")
	typ := c.Param("type")

	if subject == "" || typ == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subject and type are required"})
		return
	}

	avg, err := h.grades.AverageFor(subject, typ)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subject": subject,
		"type":    typ,
		"average": avg,
	})
}

// GetTop ranks the best grades of a subject and type.
func (h *Handler) GetTop(c *gin.Context) {
	subject := c.Param("subject")
	typ := c.Param("type")

	if subject == "" || typ == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subject and type are required"})
		return
	}

	n, err := parseLimit(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	top, err := h.grades.TopN(subject, typ, n)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"subject": subject,
		"type":    typ,
		"count":   len(top),
		"grades":  top,
	})
}
