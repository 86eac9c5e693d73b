package controllers

import (
	"net/http"
	"time"

	"github.com/alphasafe/alphasafe-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TechnicianController exposes technicians and their availability
type TechnicianController struct {
	technicians *services.TechnicianService
	logger      *zap.Logger
	now         func() time.Time
}

// NewTechnicianController creates the technician controller
func NewTechnicianController(technicians *services.TechnicianService, logger *zap.Logger) *TechnicianController {
	return &TechnicianController{technicians: technicians, logger: logger, now: time.Now}
}

// List handles GET /api/v1/technicians. With ?date= every technician carries
// its availability on that day.
func (tc *TechnicianController) List(c *gin.Context) {
	technicians, err := tc.technicians.List(c.Request.Context())
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}

	raw := c.Query("date")
	if raw == "" {
		respondOK(c, http.StatusOK, technicians)
		return
	}
	day, ok := dateQuery(c, raw)
	if !ok {
		return
	}
	respondOK(c, http.StatusOK, services.WithAvailability(technicians, day))
}

// Available handles GET /api/v1/technicians/available?date=, defaulting to today
func (tc *TechnicianController) Available(c *gin.Context) {
	day := tc.now()
	if raw := c.Query("date"); raw != "" {
		parsed, ok := dateQuery(c, raw)
		if !ok {
			return
		}
		day = parsed
	}

	technicians, err := tc.technicians.ListAvailable(c.Request.Context(), day)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, technicians)
}

// Get handles GET /api/v1/technicians/:id
func (tc *TechnicianController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	technician, err := tc.technicians.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, technician)
}

// Create handles POST /api/v1/technicians (admin only)
func (tc *TechnicianController) Create(c *gin.Context) {
	var req services.TechnicianInput
	if !bindJSON(c, &req) {
		return
	}
	technician, err := tc.technicians.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, technician)
}

// Update handles PUT and PATCH /api/v1/technicians/:id (admin only)
func (tc *TechnicianController) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.TechnicianInput
	if !bindJSON(c, &req) {
		return
	}
	technician, err := tc.technicians.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, tc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, technician)
}

// Delete handles DELETE /api/v1/technicians/:id (admin only)
func (tc *TechnicianController) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := tc.technicians.Delete(c.Request.Context(), id); err != nil {
		respondError(c, tc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Technician deleted",
	})
}

func dateQuery(c *gin.Context, raw string) (time.Time, bool) {
	day, err := services.ParseDate(raw, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "date must be a valid date",
				"field":   "date",
			},
		})
		return time.Time{}, false
	}
	return day, true
}
