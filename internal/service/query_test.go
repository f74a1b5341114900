package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskman/internal/service"
)

func TestQueryApply_ResetsPageNumber(t *testing.T) {
	q := service.Query{Priority: service.PriorityHigh, PageSize: 3, PageNumber: 2}

	got := q.Apply(service.StatusFilter(service.StatusPending))

	assert.Equal(t, service.Query{
		Priority:   service.PriorityHigh,
		Status:     service.StatusPending,
		PageSize:   3,
		PageNumber: 0,
	}, got)
}

func TestQueryApply_PageSizeResetsPage(t *testing.T) {
	q := service.Query{PageSize: 3, PageNumber: 4}

	got := q.Apply(service.PageSizeFilter(10))

	assert.Equal(t, 10, got.PageSize)
	assert.Equal(t, 0, got.PageNumber)
}

func TestQueryApply_ClearFilter(t *testing.T) {
	q := service.Query{Priority: service.PriorityLow, Search: "report", PageSize: 5}

	got := q.Apply(service.Filter{
		Priority: new(service.Priority),
		Search:   new(string),
	})

	assert.Empty(t, got.Priority)
	assert.Empty(t, got.Search)
	assert.Equal(t, 5, got.PageSize)
}

func TestQueryApply_IgnoresNonPositivePageSize(t *testing.T) {
	q := service.Query{PageSize: 5, PageNumber: 1}

	got := q.Apply(service.PageSizeFilter(0))

	assert.Equal(t, 5, got.PageSize)
	assert.Equal(t, 0, got.PageNumber)
}

func TestQueryWithPage_KeepsFilters(t *testing.T) {
	q := service.Query{Status: service.StatusCompleted, Search: "x", PageSize: 3}

	got := q.WithPage(4)
	assert.Equal(t, 4, got.PageNumber)
	assert.Equal(t, service.StatusCompleted, got.Status)
	assert.Equal(t, "x", got.Search)

	assert.Equal(t, 0, q.WithPage(-1).PageNumber)
}

func TestQueryNormalize(t *testing.T) {
	got := service.Query{PageNumber: -3}.Normalize()

	assert.Equal(t, service.DefaultPageSize, got.PageSize)
	assert.Equal(t, 0, got.PageNumber)
}
