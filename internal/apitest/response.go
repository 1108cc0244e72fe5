package apitest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "smartlife/client/internal/errors"
)

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	if apiErr == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "internal_error",
				"message": "internal server error",
			},
		})
		return
	}

	errorBody := gin.H{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Data != nil {
		errorBody["details"] = apiErr.Data
	}

	c.AbortWithStatusJSON(apiErr.Status, gin.H{
		"error": errorBody,
	})
}

func invalidJSON(c *gin.Context) {
	writeError(c, apperrors.BadRequest("invalid_json", "invalid request body"))
}
