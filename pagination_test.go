package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestPaginationNormalize(t *testing.T) {
	tests := []struct {
		name      string
		in        accounts.Pagination
		wantPage  int
		wantLimit int
	}{
		{"zero value gets defaults", accounts.Pagination{}, 1, 10},
		{"negative page clamps to first", accounts.Pagination{Page: -3, Limit: 20}, 1, 20},
		{"limit above cap clamps", accounts.Pagination{Page: 2, Limit: 500}, 2, 100},
		{"valid values pass through", accounts.Pagination{Page: 4, Limit: 25}, 4, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.in.Normalize()
			assert.Equal(t, tt.wantPage, n.Page)
			assert.Equal(t, tt.wantLimit, n.Limit)
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	assert.Zero(t, accounts.Pagination{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 30, accounts.Pagination{Page: 4, Limit: 10}.Offset())
	assert.Zero(t, accounts.Pagination{}.Offset())
}

func TestNewPaginated(t *testing.T) {
	page := accounts.NewPaginated([]int{1, 2, 3}, 23, accounts.Pagination{Page: 2, Limit: 10})

	assert.Equal(t, []int{1, 2, 3}, page.Data)
	assert.Equal(t, 23, page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrev)

	last := accounts.NewPaginated([]int{1}, 23, accounts.Pagination{Page: 3, Limit: 10})
	assert.False(t, last.Pagination.HasNext)
}
