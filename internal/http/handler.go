package http

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/pm25-assess/internal/adapter/store/results"
	"go.ngs.io/pm25-assess/internal/domain"
)

// ResultReader reads persisted experiment results.
type ResultReader interface {
	Load(location string, date time.Time) (results.Document, error)
	ListDates(location string) ([]time.Time, error)
	ListLocations() ([]string, error)
}

// Handler handles HTTP requests for assessment results.
type Handler struct {
	results ResultReader
}

// NewHandler creates a new HTTP handler.
func NewHandler(reader ResultReader) *Handler {
	return &Handler{
		results: reader,
	}
}

// ListLocations handles GET /v1/results.
func (h *Handler) ListLocations(c *gin.Context) {
	locations, err := h.results.ListLocations()
	if err != nil {
		log.Printf("http: failed to list locations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list locations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"locations": locations,
		"count":     len(locations),
	})
}

// ListDates handles GET /v1/results/:location.
func (h *Handler) ListDates(c *gin.Context) {
	location := c.Param("location")

	dates, err := h.results.ListDates(location)
	if err != nil {
		log.Printf("http: failed to list dates for %s: %v", location, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list dates"})
		return
	}
	if len(dates) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no results for location %q", location)})
		return
	}

	response := make([]string, len(dates))
	for i, d := range dates {
		response[i] = d.Format(domain.DateLayout)
	}
	c.JSON(http.StatusOK, gin.H{
		"location": domain.Slug(location),
		"dates":    response,
		"count":    len(response),
	})
}

// GetResult handles GET /v1/results/:location/:date.
func (h *Handler) GetResult(c *gin.Context) {
	location := c.Param("location")
	dateStr := c.Param("date")

	date, err := time.Parse(domain.DateLayout, dateStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid date (expected YYYY-MM-DD): %v", err)})
		return
	}

	doc, err := h.results.Load(location, date)
	if err != nil {
		if errors.Is(err, results.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		log.Printf("http: failed to load %s %s: %v", location, dateStr, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"location": domain.Slug(location),
		"date":     dateStr,
		"metrics":  doc,
	})
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
