// Package validation validates raw search request payloads at the subsystem
// boundary before they are mapped onto models.SearchRequest.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// searchRequestSchema is the JSON schema for the external query contract.
// Validation failures here are the only error category surfaced to callers.
const searchRequestSchema = `{
	"type": "object",
	"properties": {
		"tenant":    {"type": "string", "minLength": 1},
		"q":         {"type": "string", "maxLength": 256},
		"category":  {"type": "string"},
		"material":  {"type": "string"},
		"thickness": {"type": "array", "items": {"type": "number", "minimum": 0}},
		"priceMin":  {"type": "number", "minimum": 0},
		"priceMax":  {"type": "number", "minimum": 0},
		"ratingMin": {"type": "number", "minimum": 0},
		"sort": {
			"type": "string",
			"enum": ["rank", "price_asc", "price_desc", "newest", "popular"]
		},
		"page":  {"type": "integer", "minimum": 1},
		"limit": {"type": "integer", "minimum": 1},
		"expand": {
			"type": "array",
			"items": {"type": "string", "enum": ["vendor", "warehouse", "media", "variants"]}
		},
		"mode":        {"type": "string", "enum": ["facets"]},
		"rankWeights": {"type": "string", "pattern": "^[a-z]+:[0-9.]+(,[a-z]+:[0-9.]+)*$"}
	},
	"required": ["tenant"],
	"additionalProperties": false
}`

var compiledSearchSchema *gojsonschema.Schema

func init() {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(searchRequestSchema))
	if err != nil {
		panic(fmt.Sprintf("search request schema is invalid: %v", err))
	}
	compiledSearchSchema = schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorSummary flattens validation errors into a single details string.
func (r *ValidationResult) ErrorSummary() string {
	if r.Valid {
		return ""
	}
	summary := ""
	for i, e := range r.Errors {
		if i > 0 {
			summary += "; "
		}
		summary += fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return summary
}

// ValidateSearchRequest validates a raw request payload against the search
// request schema with per-field errors.
func ValidateSearchRequest(payload map[string]interface{}) (*ValidationResult, error) {
	result, err := compiledSearchSchema.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	if result.Valid() {
		return &ValidationResult{Valid: true}, nil
	}

	out := &ValidationResult{Valid: false}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return out, nil
}
