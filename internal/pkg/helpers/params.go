package helpers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
)

// ParseUUIDParam reads the path parameter name as a UUID.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, apperrors.NewValidationError(map[string]string{name: "must be a valid id"})
	}
	return id, nil
}
