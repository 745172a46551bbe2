package middlewares

import "github.com/gin-gonic/gin"

// abortError writes the standard error envelope and stops the chain.
func abortError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"statusCode": status,
		"data":       nil,
		"message":    message,
		"success":    false,
		"errors":     []any{},
	})
}
