package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/alphasafe/alphasafe-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InterventionController exposes interventions, their photos and the export
type InterventionController struct {
	interventions *services.InterventionService
	exports       *services.ExportService
	logger        *zap.Logger
}

// NewInterventionController creates the intervention controller
func NewInterventionController(interventions *services.InterventionService, exports *services.ExportService, logger *zap.Logger) *InterventionController {
	return &InterventionController{interventions: interventions, exports: exports, logger: logger}
}

// List handles GET /api/v1/interventions?status=&technician=&client_id=
func (ic *InterventionController) List(c *gin.Context) {
	filter, ok := interventionFilter(c)
	if !ok {
		return
	}
	interventions, err := ic.interventions.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	respondOK(c, http.StatusOK, interventions)
}

// Export handles GET /api/v1/interventions/export with the list filters
func (ic *InterventionController) Export(c *gin.Context) {
	filter, ok := interventionFilter(c)
	if !ok {
		return
	}
	content, err := ic.exports.Export(c.Request.Context(), filter)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}

	filename := fmt.Sprintf("interventions-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, content)
}

// Get handles GET /api/v1/interventions/:id
func (ic *InterventionController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	intervention, err := ic.interventions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	respondOK(c, http.StatusOK, intervention)
}

// Create handles POST /api/v1/interventions
func (ic *InterventionController) Create(c *gin.Context) {
	var req services.InterventionInput
	if !bindJSON(c, &req) {
		return
	}
	intervention, err := ic.interventions.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, intervention)
}

// Update handles PUT and PATCH /api/v1/interventions/:id
func (ic *InterventionController) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.InterventionInput
	if !bindJSON(c, &req) {
		return
	}
	intervention, err := ic.interventions.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	respondOK(c, http.StatusOK, intervention)
}

// Delete handles DELETE /api/v1/interventions/:id. Photos go with it.
func (ic *InterventionController) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := ic.interventions.Delete(c.Request.Context(), id); err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Intervention deleted",
	})
}

// AddPhoto handles POST /api/v1/interventions/:id/photos with a JSON url
func (ic *InterventionController) AddPhoto(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.PhotoInput
	if !bindJSON(c, &req) {
		return
	}
	photo, err := ic.interventions.AddPhoto(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, photo)
}

// UploadPhoto handles POST /api/v1/interventions/:id/photos/upload with a
// multipart "file" field
func (ic *InterventionController) UploadPhoto(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_FILE",
				"message": "No file provided",
				"field":   "file",
			},
		})
		return
	}

	photo, err := ic.interventions.UploadPhoto(c.Request.Context(), id, file)
	if err != nil {
		respondError(c, ic.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, photo)
}

// DeletePhoto handles DELETE /api/v1/photos/:id
func (ic *InterventionController) DeletePhoto(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := ic.interventions.DeletePhoto(c.Request.Context(), id); err != nil {
		respondError(c, ic.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Photo deleted",
	})
}

func interventionFilter(c *gin.Context) (services.InterventionFilter, bool) {
	filter := services.InterventionFilter{
		Status:     c.Query("status"),
		Technician: c.Query("technician"),
	}
	if raw := c.Query("client_id"); raw != "" {
		clientID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || clientID == 0 {
			abort(c, http.StatusBadRequest, "INVALID_ID", "Invalid client_id")
			return filter, false
		}
		filter.ClientID = uint(clientID)
	}
	return filter, true
}
