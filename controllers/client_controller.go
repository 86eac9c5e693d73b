package controllers

import (
	"net/http"

	"github.com/alphasafe/alphasafe-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ClientController exposes client CRUD
type ClientController struct {
	clients *services.ClientService
	logger  *zap.Logger
}

// NewClientController creates the client controller
func NewClientController(clients *services.ClientService, logger *zap.Logger) *ClientController {
	return &ClientController{clients: clients, logger: logger}
}

// List handles GET /api/v1/clients?search=
func (cc *ClientController) List(c *gin.Context) {
	clients, err := cc.clients.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, clients)
}

// Get handles GET /api/v1/clients/:id
func (cc *ClientController) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	client, err := cc.clients.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, client)
}

// Create handles POST /api/v1/clients
func (cc *ClientController) Create(c *gin.Context) {
	var req services.ClientInput
	if !bindJSON(c, &req) {
		return
	}
	client, err := cc.clients.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, client)
}

// Update handles PUT and PATCH /api/v1/clients/:id. Absent fields are kept.
func (cc *ClientController) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req services.ClientInput
	if !bindJSON(c, &req) {
		return
	}
	client, err := cc.clients.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, cc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, client)
}

// Delete handles DELETE /api/v1/clients/:id
func (cc *ClientController) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := cc.clients.Delete(c.Request.Context(), id); err != nil {
		respondError(c, cc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Client deleted",
	})
}
