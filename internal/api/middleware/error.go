package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"tariff-bench/internal/api/models"
)

// ErrorHandler recovers from handler panics and returns the standard
// error envelope. Panic details are logged, not echoed to the client;
// solver and validation failures are handled per-endpoint and never
// reach this middleware.
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Printf("panic recovered: %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "An unexpected error occurred",
			},
		})
		c.Abort()
	})
}
