package helpers

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 90*time.Second, ParseDuration("90s", time.Hour))
	assert.Equal(t, time.Hour, ParseDuration("soon", time.Hour))
	assert.Equal(t, time.Hour, ParseDuration("", time.Hour))
}

func TestParseUUIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.New()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: id.String()}}
	got, err := ParseUUIDParam(c, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	for _, raw := range []string{"", "42", uuid.Nil.String()} {
		c.Params = gin.Params{{Key: "id", Value: raw}}
		_, err := ParseUUIDParam(c, "id")
		assert.True(t, errors.Is(err, apperrors.ErrValidationFailed), "value %q", raw)
	}
}
