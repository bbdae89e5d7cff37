package errx

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))

	err := WrapRedis(redis.Nil)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, redis.Nil))

	err = WrapRedis(errors.New("connection refused"))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, RedisErrorMessage, MessageOf(err))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestWrapKeepsAppError(t *testing.T) {
	nf := NotFound("agent %s", "a1")
	assert.Same(t, nf, WrapRedis(nf))
	assert.Same(t, nf, WrapSQL(nf))
}

func TestWrapSQL(t *testing.T) {
	err := WrapSQL(sql.ErrNoRows)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, http.StatusNotFound, StatusOf(err))

	err = WrapSQL(errors.New("disk I/O error"))
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
}

func TestAppErrorThroughWrapping(t *testing.T) {
	base := NotFound("client %s", "c1")
	wrapped := fmt.Errorf("load client: %w", base)

	var appErr *AppError
	assert.True(t, errors.As(wrapped, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Status)
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Contains(t, wrapped.Error(), "client c1")
}

func TestStatusOfPlainError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, SystemErrorMessage, MessageOf(err))

	inv := Invalid("text is required")
	assert.Equal(t, http.StatusBadRequest, StatusOf(inv))
	assert.Equal(t, "text is required", MessageOf(inv))
}
