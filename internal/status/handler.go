package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qvhoang/huffpress/internal/registry"
)

type JobHandler struct {
	store registry.Store
}

func NewJobHandler(s registry.Store) *JobHandler {
	return &JobHandler{store: s}
}

func (h *JobHandler) GetByID(c *gin.Context) {
	id := c.Param("id")
	job, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, job)
}

func registerRoutes(r *gin.Engine, h *JobHandler) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.GET("/:id", h.GetByID)
		}
	}
}
