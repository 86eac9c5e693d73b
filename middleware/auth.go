package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/alphasafe/alphasafe-api/models"
	"github.com/alphasafe/alphasafe-api/services"
	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthCookieName is the cookie carrying the session token
const AuthCookieName = "auth_token"

const userContextKey = "current_user"

// UserResolver loads the user a session token names
type UserResolver interface {
	Get(ctx context.Context, id string) (*models.PublicUser, error)
}

// NewTokenValidator builds the validator for HS256 session tokens
func NewTokenValidator(secret, issuer, audience string) (*validator.Validator, error) {
	keyFunc := func(context.Context) (interface{}, error) {
		return []byte(secret), nil
	}
	return validator.New(
		keyFunc,
		validator.HS256,
		issuer,
		[]string{audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
}

// cookieTokenExtractor reads the session cookie. A missing cookie is not an
// error so the Authorization header is tried next.
func cookieTokenExtractor(r *http.Request) (string, error) {
	cookie, err := r.Cookie(AuthCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// Authenticate verifies the session token and loads the current user.
// The role always comes from the user store, never from the token.
func Authenticate(tokenValidator *validator.Validator, users UserResolver, logger *zap.Logger) gin.HandlerFunc {
	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		if !errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			logger.Debug("rejected session token", zap.Error(err))
		}
	}

	checker := jwtmiddleware.New(
		tokenValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
			cookieTokenExtractor,
			jwtmiddleware.AuthHeaderTokenExtractor,
		)),
	)

	return func(c *gin.Context) {
		var (
			user    *models.PublicUser
			failure error
		)

		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok {
				return
			}
			resolved, err := users.Get(r.Context(), claims.RegisteredClaims.Subject)
			if err != nil {
				failure = err
				return
			}
			user = resolved
			c.Request = r
		}

		checker.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)

		if failure != nil && services.KindOf(failure) != services.KindNotFound {
			logger.Error("failed to resolve session user", zap.Error(failure))
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
			return
		}
		if user == nil {
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil
func CurrentUser(c *gin.Context) *models.PublicUser {
	value, exists := c.Get(userContextKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.PublicUser)
	return user
}

// SetCurrentUser stores user as the authenticated user (primarily for testing)
func SetCurrentUser(c *gin.Context, user *models.PublicUser) {
	c.Set(userContextKey, user)
}

// Authorize rejects requests whose user may not perform op
func Authorize(op services.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := services.Authorize(CurrentUser(c), op)
		switch services.KindOf(err) {
		case services.KindUnauthorized:
			abortWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		case services.KindForbidden:
			abortWithError(c, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions to access this resource")
			return
		}
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
