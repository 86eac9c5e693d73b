package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/alphasafe/alphasafe-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondOK writes the success envelope
func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// respondError writes the error envelope for a service error
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validationErr *services.ValidationError
		conflictErr   *services.ConflictError
		internalErr   *services.InternalError
	)

	switch services.KindOf(err) {
	case services.KindValidation:
		errors.As(err, &validationErr)
		body := gin.H{"code": "VALIDATION_ERROR", "message": err.Error()}
		if validationErr.Field != "" {
			body["field"] = validationErr.Field
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": body})
	case services.KindNotFound:
		abort(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case services.KindForbidden:
		abort(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	case services.KindUnauthorized:
		abort(c, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case services.KindConflict:
		errors.As(err, &conflictErr)
		status := http.StatusConflict
		if conflictErr.Code == services.CodeEmailNotWhitelisted {
			status = http.StatusForbidden
		}
		abort(c, status, conflictErr.Code, conflictErr.Message)
	default:
		fields := []zap.Field{zap.String("path", c.FullPath()), zap.Error(err)}
		if errors.As(err, &internalErr) {
			fields = append(fields, zap.String("op", internalErr.Op), zap.NamedError("cause", internalErr.Err))
		}
		logger.Error("request failed with internal error", fields...)
		abort(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// bindJSON decodes the body or writes a validation error
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return false
	}
	return true
}

// idParam parses a positive numeric path parameter or writes a 400
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		abort(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}
