package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONVar(t *testing.T) {
	html := `<html><script>
		var other = {"x": 1};
		var collection = {"key": "AbC123", "name": "My Comp"};
	</script></html>`

	payload, err := ExtractJSONVar(html, "collection")
	require.NoError(t, err)
	assert.Equal(t, "AbC123", payload["key"])
	assert.Equal(t, "My Comp", payload["name"])
}

func TestExtractJSONVar_Multiline(t *testing.T) {
	html := "var collectionDTO = {\n\"key\": \"k\",\n\"comparisons\": []\n};"
	payload, err := ExtractJSONVar(html, "collectionDTO")
	require.NoError(t, err)
	assert.Equal(t, "k", payload["key"])
}

func TestExtractJSONVar_UncachedName(t *testing.T) {
	payload, err := ExtractJSONVar(`var customVar = {"a": true};`, "customVar")
	require.NoError(t, err)
	assert.Equal(t, true, payload["a"])
	assert.NotContains(t, jsonVarRe, "customVar", "lookups never grow the shared pattern map")
}

func TestExtractJSONVar_Missing(t *testing.T) {
	_, err := ExtractJSONVar("<html></html>", "collection")
	assert.Error(t, err)
}

func TestExtractJSONVar_Malformed(t *testing.T) {
	_, err := ExtractJSONVar(`var collection = {"key": };`, "collection")
	assert.Error(t, err)
}

func TestParseCompKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://slow.pics/c/AbC123", "AbC123"},
		{"https://slow.pics/s/xYz789/", "xYz789"},
		{"AbC123", "AbC123"},
		{"  AbC123  ", "AbC123"},
		{"not a key!", ""},
		{"", ""},
		{"https://example.com/c/AbC123", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseCompKey(tt.in), "input %q", tt.in)
	}
}

func TestParseViewPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://slow.pics/c/AbC123", "/c/AbC123"},
		{"https://slow.pics/s/xYz789", "/s/xYz789"},
		{"AbC123", "/c/AbC123"},
		{"not a key!", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseViewPath(tt.in), "input %q", tt.in)
	}
}

func TestParseFramesFromCompNames(t *testing.T) {
	parsed, failed := ParseFramesFromCompNames([]string{"Foo / 120", "bar/7", "nope"})
	assert.Equal(t, []int{120, 7}, parsed)
	assert.Equal(t, []int{2}, failed)
}

func TestParseFramesFromCompNames_WhitespaceTolerant(t *testing.T) {
	parsed, failed := ParseFramesFromCompNames([]string{"00:01:02.345 /  42  ", "x / 0"})
	assert.Equal(t, []int{42, 0}, parsed)
	assert.Empty(t, failed)
}

func TestParseFramesFromCompNames_AllFailed(t *testing.T) {
	parsed, failed := ParseFramesFromCompNames([]string{"", "Frame 12", "12 /"})
	assert.Empty(t, parsed)
	assert.Equal(t, []int{0, 1, 2}, failed)
}

func TestBuildAppendCollectionName(t *testing.T) {
	// No duplicate suffix for an already-present token.
	assert.Equal(t, "A vs B", BuildAppendCollectionName("A vs B", []string{"B"}, "fallback"))
	// Normal append.
	assert.Equal(t, "A vs C", BuildAppendCollectionName("A", []string{"C"}, "fallback"))
	// Empty target -> fallback.
	assert.Equal(t, "fallback", BuildAppendCollectionName("", []string{"C"}, "fallback"))
	// Boundary-anchored: substring matches do not count as present.
	assert.Equal(t, "A vs BD vs B", BuildAppendCollectionName("A vs BD", []string{"B"}, "fallback"))
	// Multiple names, mixed.
	assert.Equal(t, "A vs B vs C", BuildAppendCollectionName("A vs B", []string{"B", "C"}, "fallback"))
}
