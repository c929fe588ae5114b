package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/scribelink/internal/app/models/dto"
)

const validatedBodyKey = "validatedBody"

// ValidateRequest binds the JSON body into a fresh T on every request and
// stores it for the handler. Invalid bodies are answered with 400.
func ValidateRequest[T any]() gin.HandlerFunc {
	return func(c *gin.Context) {
		body := new(T)
		if !BindJSON(c, body) {
			return
		}
		c.Set(validatedBodyKey, body)
		c.Next()
	}
}

// ValidatedBody returns the body bound by ValidateRequest[T].
func ValidatedBody[T any](c *gin.Context) (*T, bool) {
	v, ok := c.Get(validatedBodyKey)
	if !ok {
		return nil, false
	}
	body, ok := v.(*T)
	return body, ok
}

// BindJSON binds and validates obj, writing the error response on failure.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return false
	}
	return true
}
