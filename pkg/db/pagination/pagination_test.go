package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, PageSize: DefaultPageSize}, Pagination{}.Normalize())
	assert.Equal(t, Pagination{Page: 3, PageSize: MaxPageSize}, Pagination{Page: 3, PageSize: 5000}.Normalize())
	assert.Equal(t, 40, Pagination{Page: 3, PageSize: 20}.Offset())
}

func TestNewPageInfo(t *testing.T) {
	info := NewPageInfo(Pagination{Page: 2, PageSize: 10}, 25)
	assert.Equal(t, PageInfo{Page: 2, PageSize: 10, Total: 25, HasMore: true}, info)

	info = NewPageInfo(Pagination{Page: 3, PageSize: 10}, 25)
	assert.False(t, info.HasMore)
}
