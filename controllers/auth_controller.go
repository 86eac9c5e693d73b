package controllers

import (
	"net/http"
	"time"

	"github.com/alphasafe/alphasafe-api/middleware"
	"github.com/alphasafe/alphasafe-api/models"
	"github.com/alphasafe/alphasafe-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthController handles registration, login and the session cookie
type AuthController struct {
	users        *services.UserService
	sessions     *services.SessionIssuer
	secureCookie bool
	logger       *zap.Logger
}

// NewAuthController creates the auth controller. secureCookie marks the
// session cookie HTTPS-only.
func NewAuthController(users *services.UserService, sessions *services.SessionIssuer, secureCookie bool, logger *zap.Logger) *AuthController {
	return &AuthController{users: users, sessions: sessions, secureCookie: secureCookie, logger: logger}
}

// Register handles POST /api/v1/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := ac.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	ac.startSession(c, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req services.LoginInput
	if !bindJSON(c, &req) {
		return
	}

	user, err := ac.users.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	ac.startSession(c, http.StatusOK, user)
}

// Logout handles POST /api/v1/auth/logout by expiring the session cookie
func (ac *AuthController) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookieName, "", -1, "/", "", ac.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Logged out",
	})
}

// CurrentUser handles GET /api/v1/auth/user
func (ac *AuthController) CurrentUser(c *gin.Context) {
	respondOK(c, http.StatusOK, middleware.CurrentUser(c))
}

func (ac *AuthController) startSession(c *gin.Context, status int, user *models.PublicUser) {
	token, expiresAt, err := ac.sessions.Issue(user.ID)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AuthCookieName, token, int(time.Until(expiresAt).Seconds()), "/", "", ac.secureCookie, true)
	respondOK(c, status, gin.H{
		"user":       user,
		"expires_at": expiresAt,
	})
}
