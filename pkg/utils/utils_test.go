package utils

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnowflakeIDIsMonotonic(t *testing.T) {
	gen := NewSnowflakeID(7)
	prev := gen.Generate()
	for i := 0; i < 5000; i++ {
		id := gen.Generate()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestSnowflakeIDClockRollback(t *testing.T) {
	gen := NewSnowflakeID(1)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	gen.now = func() time.Time { return base }
	first := gen.Generate()

	gen.now = func() time.Time { return base.Add(-time.Second) }
	second := gen.Generate()
	assert.Greater(t, second, first)
}

func TestPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	assert.Equal(t, 40, p.Offset())
	assert.Equal(t, 20, p.Limit())
	assert.Equal(t, int64(3), p.Pages)

	p = NewPagination(-1, 0, 0)
	assert.Equal(t, 0, p.Page)
	assert.Equal(t, 20, p.PageSize)
	assert.Equal(t, int64(0), p.Pages)
}

func TestErrorCodes(t *testing.T) {
	notFound := fmt.Errorf("failed to load asset: %w", NotFoundError("asset %s not found", "XYZ"))
	assert.True(t, IsNotFound(notFound))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(notFound))

	assert.True(t, IsValidation(ValidationError("quantity must be positive")))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ValidationError("bad")))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(UpstreamError("db down", assert.AnError)))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(assert.AnError))
	assert.Equal(t, "", CodeOf(nil))

	wrapped := UpstreamError("db down", assert.AnError)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.Contains(t, wrapped.Error(), "UPSTREAM_UNAVAILABLE")
}
