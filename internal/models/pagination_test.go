package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	p := NewPagination(3, 10, 25)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 10, p.PageSize)
	assert.Equal(t, 25, p.TotalCount)
	assert.Equal(t, 3, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrevious)
}

func TestNewPaginationEmptyResult(t *testing.T) {
	p := NewPagination(1, 20, 0)
	assert.Equal(t, 1, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrevious)
}

func TestNewPaginationExactMultiple(t *testing.T) {
	p := NewPagination(2, 10, 20)
	assert.Equal(t, 2, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrevious)
}

func TestNormalizePageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NormalizePageSize(0))
	assert.Equal(t, MinPageSize, NormalizePageSize(-3))
	assert.Equal(t, MaxPageSize, NormalizePageSize(500))
	assert.Equal(t, 42, NormalizePageSize(42))
}

func TestNormalizePage(t *testing.T) {
	assert.Equal(t, 1, NormalizePage(0))
	assert.Equal(t, 1, NormalizePage(-1))
	assert.Equal(t, 7, NormalizePage(7))
}

func TestPaginationOffset(t *testing.T) {
	p := NewPagination(3, 10, 100)
	assert.Equal(t, 20, p.Offset())
}
