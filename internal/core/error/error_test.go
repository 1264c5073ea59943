package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("load session abc: %w", ErrSessionNotFound)

	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.False(t, errors.Is(err, ErrUnknownPersona))
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Equal(t, "session not found", MessageOf(err))
}

func TestWrapRedis(t *testing.T) {
	assert.Nil(t, WrapRedis(nil))

	notFound := WrapRedis(redis.Nil)
	require.Error(t, notFound)
	assert.Equal(t, http.StatusNotFound, StatusOf(notFound))
	assert.True(t, errors.Is(notFound, redis.Nil))

	failed := WrapRedis(errors.New("connection refused"))
	assert.Equal(t, http.StatusBadGateway, StatusOf(failed))
	assert.Equal(t, RedisErrorMessage, MessageOf(failed))
}

func TestWrapGenerator(t *testing.T) {
	cause := errors.New("deadline exceeded")
	err := WrapGenerator(cause)

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, WrapGenerator(nil))
}

func TestStatusOfPlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
	assert.Equal(t, SystemErrorMessage, MessageOf(errors.New("boom")))
}
