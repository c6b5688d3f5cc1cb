// internal/search/rank/queries/builders.go
package queries

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ErrMissingIndex = errors.New("index name is required")

// SearchSpec describes one catalog search to be pushed down to Elasticsearch.
type SearchSpec struct {
	Index        string
	Tenant       string
	Terms        []string // synonym-expanded query alternations
	Category     string
	Material     string
	Thickness    []float64
	ThicknessTol float64
	PriceMin     *float64
	PriceMax     *float64
	RatingMin    *float64
	From         int
	Size         int
}

// BuildSearchRequest builds the catalog search request. Filters become bool
// filter clauses; the expanded text terms become a should group with
// substring semantics on the listing name.
func BuildSearchRequest(spec SearchSpec) (*esapi.SearchRequest, error) {
	if spec.Index == "" {
		return nil, ErrMissingIndex
	}

	queryBody := map[string]interface{}{
		"query":            map[string]interface{}{"bool": buildBoolQuery(spec)},
		"track_total_hits": true,
	}

	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{spec.Index},
		Body:  strings.NewReader(string(body)),
		From:  &spec.From,
		Size:  &spec.Size,
	}

	return &req, nil
}

func buildBoolQuery(spec SearchSpec) map[string]interface{} {
	boolQuery := make(map[string]interface{})
	mustClauses := []interface{}{}
	filterClauses := []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"tenant": spec.Tenant},
		},
		map[string]interface{}{
			"term": map[string]interface{}{"active": true},
		},
	}

	// Text match over name and material via the expanded alternations
	if len(spec.Terms) > 0 {
		shouldClauses := make([]interface{}, 0, len(spec.Terms)*2)
		for _, term := range spec.Terms {
			shouldClauses = append(shouldClauses,
				map[string]interface{}{
					"wildcard": map[string]interface{}{
						"name": map[string]interface{}{
							"value":            "*" + strings.ToLower(term) + "*",
							"case_insensitive": true,
						},
					},
				},
				map[string]interface{}{
					"match": map[string]interface{}{"material": term},
				},
			)
		}
		mustClauses = append(mustClauses, map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               shouldClauses,
				"minimum_should_match": 1,
			},
		})
	}

	if spec.Category != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"category": strings.ToLower(spec.Category)},
		})
	}

	if spec.Material != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"material": strings.ToLower(spec.Material)},
		})
	}

	// Thickness set membership with a small numeric tolerance per value
	if len(spec.Thickness) > 0 {
		thicknessShould := make([]interface{}, 0, len(spec.Thickness))
		for _, th := range spec.Thickness {
			thicknessShould = append(thicknessShould, map[string]interface{}{
				"range": map[string]interface{}{
					"thickness": map[string]interface{}{
						"gte": th - spec.ThicknessTol,
						"lte": th + spec.ThicknessTol,
					},
				},
			})
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"bool": map[string]interface{}{
				"should":               thicknessShould,
				"minimum_should_match": 1,
			},
		})
	}

	if spec.PriceMin != nil || spec.PriceMax != nil {
		priceRange := map[string]interface{}{}
		if spec.PriceMin != nil {
			priceRange["gte"] = *spec.PriceMin
		}
		if spec.PriceMax != nil {
			priceRange["lte"] = *spec.PriceMax
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{"price": priceRange},
		})
	}

	if spec.RatingMin != nil {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"credibility": map[string]interface{}{"gte": *spec.RatingMin},
			},
		})
	}

	if len(mustClauses) > 0 {
		boolQuery["must"] = mustClauses
	}
	boolQuery["filter"] = filterClauses
	return boolQuery
}
