package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	got, meta := Paginate(items, PageRequest{Limit: 2, Offset: 1})
	assert.Equal(t, []int{2, 3}, got)
	assert.Equal(t, PageResponse{Limit: 2, Offset: 1, Total: 5}, meta)

	got, meta = Paginate(items, PageRequest{Limit: 10, Offset: 4})
	assert.Equal(t, []int{5}, got)
	assert.Equal(t, 5, meta.Total)

	got, _ = Paginate(items, PageRequest{Limit: 10, Offset: 9})
	assert.Empty(t, got)

	got, meta = Paginate([]int(nil), PageRequest{Limit: 20})
	assert.Empty(t, got)
	assert.Equal(t, 0, meta.Total)
}

func TestDefaultPage(t *testing.T) {
	p := PageRequest{Offset: 3}
	p.DefaultPage()
	assert.Equal(t, DefaultPageLimit, p.Limit)
	assert.Equal(t, 3, p.Offset)

	p = PageRequest{Limit: 7}
	p.DefaultPage()
	assert.Equal(t, 7, p.Limit)
}
