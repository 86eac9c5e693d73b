package controllers

import (
	"net/http"

	"github.com/alphasafe/alphasafe-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserController exposes account administration. Every route is admin only.
type UserController struct {
	users  *services.UserService
	logger *zap.Logger
}

// NewUserController creates the user controller
func NewUserController(users *services.UserService, logger *zap.Logger) *UserController {
	return &UserController{users: users, logger: logger}
}

// List handles GET /api/v1/users
func (uc *UserController) List(c *gin.Context) {
	users, err := uc.users.List(c.Request.Context())
	if err != nil {
		respondError(c, uc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, users)
}

// Create handles POST /api/v1/users. The registration whitelist does not apply.
func (uc *UserController) Create(c *gin.Context) {
	var req services.UserInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := uc.users.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, uc.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, user)
}

// Update handles PUT and PATCH /api/v1/users/:id
func (uc *UserController) Update(c *gin.Context) {
	var req services.UserInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := uc.users.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, uc.logger, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// Delete handles DELETE /api/v1/users/:id
func (uc *UserController) Delete(c *gin.Context) {
	if err := uc.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, uc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted",
	})
}
