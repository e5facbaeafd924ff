package dto

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListBookingsQuery_Normalize(t *testing.T) {
	tests := []struct {
		name           string
		in             ListBookingsQuery
		page, pageSize int
		offset         int
	}{
		{"defaults", ListBookingsQuery{}, 1, 20, 0},
		{"explicit", ListBookingsQuery{Page: 3, PageSize: 10}, 3, 10, 20},
		{"page size capped", ListBookingsQuery{Page: 2, PageSize: 500}, 2, 100, 100},
		{"huge page capped", ListBookingsQuery{Page: math.MaxInt, PageSize: 100}, MaxPage, 100, (MaxPage - 1) * 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.in
			q.Normalize()
			assert.Equal(t, tt.page, q.Page)
			assert.Equal(t, tt.pageSize, q.PageSize)
			assert.Equal(t, tt.offset, q.Offset())
			assert.GreaterOrEqual(t, q.Offset(), 0)
		})
	}
}
