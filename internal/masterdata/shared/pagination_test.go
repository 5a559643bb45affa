package shared

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFiltersFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/products?page=3&limit=500&search=sofa&sort=name&dir=desc", nil)
	f := FiltersFromRequest(req)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, MaxLimit, f.PageSize())
	assert.Equal(t, "sofa", f.Search)
	assert.Equal(t, 200, f.Offset())
}

func TestOrderByWhitelist(t *testing.T) {
	allowed := map[string]string{"name": "name", "sku": "sku"}
	assert.Equal(t, "name DESC, id DESC", OrderBy("name", SortDesc, allowed, "sku"))
	assert.Equal(t, "sku ASC, id ASC", OrderBy("price; DROP TABLE", "", allowed, "sku"))
}
