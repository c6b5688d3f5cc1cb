// internal/search/synonyms/expander_test.go
package synonyms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpander_Expand(t *testing.T) {
	e := NewExpander(map[string][]string{
		"marble": {"marmor", "marbre"},
	})

	tests := []struct {
		name     string
		token    string
		expected []string
	}{
		{"known token", "marble", []string{"marble", "marmor", "marbre"}},
		{"synonym member resolves to full group", "marmor", []string{"marmor", "marble", "marbre"}},
		{"case insensitive", "MARBLE", []string{"marble", "marmor", "marbre"}},
		{"unknown token is singleton", "onyx", []string{"onyx"}},
		{"empty token", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, e.Expand(tt.token))
		})
	}
}

func TestExpander_Pattern(t *testing.T) {
	e := NewExpander(map[string][]string{
		"marble": {"marmor"},
	})

	re := e.Pattern("marble slab")
	require.NotNil(t, re)

	assert.True(t, re.MatchString("Carrara MARBLE block"))
	assert.True(t, re.MatchString("polished marmor tile"))
	assert.True(t, re.MatchString("granite slab"))
	assert.False(t, re.MatchString("granite block"))

	assert.Nil(t, e.Pattern(""))
	assert.Nil(t, e.Pattern("   "))
}

func TestExpander_Pattern_QuotesMetaCharacters(t *testing.T) {
	e := NewExpander(map[string][]string{})

	re := e.Pattern("a+b")
	require.NotNil(t, re)
	assert.True(t, re.MatchString("sku a+b variant"))
	assert.False(t, re.MatchString("aab"))
}

func TestExpander_DefaultTable(t *testing.T) {
	e := NewExpander(nil)
	assert.Contains(t, e.Expand("marble"), "marmor")
	assert.Contains(t, e.Expand("worktop"), "countertop")
}
