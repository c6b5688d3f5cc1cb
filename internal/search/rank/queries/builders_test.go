// internal/search/rank/queries/builders_test.go
package queries

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchRequest_RequiresIndex(t *testing.T) {
	_, err := BuildSearchRequest(SearchSpec{Tenant: "tenant-sa"})
	assert.ErrorIs(t, err, ErrMissingIndex)
}

func TestBuildSearchRequest_SetsPaging(t *testing.T) {
	req, err := BuildSearchRequest(SearchSpec{Index: "listings", Tenant: "tenant-sa", From: 0, Size: 500})
	require.NoError(t, err)
	assert.Equal(t, []string{"listings"}, req.Index)
	require.NotNil(t, req.Size)
	assert.Equal(t, 500, *req.Size)
}

func TestBuildBoolQuery(t *testing.T) {
	priceMin := 50.0
	ratingMin := 4.0

	t.Run("always filters on tenant and active", func(t *testing.T) {
		q := buildBoolQuery(SearchSpec{Tenant: "tenant-sa"})
		filters := q["filter"].([]interface{})
		require.Len(t, filters, 2)
		assert.Nil(t, q["must"])
	})

	t.Run("terms become a should group", func(t *testing.T) {
		q := buildBoolQuery(SearchSpec{Tenant: "tenant-sa", Terms: []string{"marble", "granite"}})
		must := q["must"].([]interface{})
		require.Len(t, must, 1)
		group := must[0].(map[string]interface{})["bool"].(map[string]interface{})
		assert.Equal(t, 1, group["minimum_should_match"])
		assert.Len(t, group["should"].([]interface{}), 4)
	})

	t.Run("thickness uses tolerance ranges", func(t *testing.T) {
		q := buildBoolQuery(SearchSpec{Tenant: "tenant-sa", Thickness: []float64{2.0}, ThicknessTol: 0.05})
		filters := q["filter"].([]interface{})
		require.Len(t, filters, 3)
		group := filters[2].(map[string]interface{})["bool"].(map[string]interface{})
		ranges := group["should"].([]interface{})
		require.Len(t, ranges, 1)
		bounds := ranges[0].(map[string]interface{})["range"].(map[string]interface{})["thickness"].(map[string]interface{})
		assert.InDelta(t, 1.95, bounds["gte"].(float64), 1e-9)
		assert.InDelta(t, 2.05, bounds["lte"].(float64), 1e-9)
	})

	t.Run("price and rating ranges", func(t *testing.T) {
		q := buildBoolQuery(SearchSpec{Tenant: "tenant-sa", PriceMin: &priceMin, RatingMin: &ratingMin})
		filters := q["filter"].([]interface{})
		require.Len(t, filters, 4)
	})
}
