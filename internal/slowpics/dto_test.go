package slowpics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCollectionDTO_LooseFields(t *testing.T) {
	dto, err := DecodeCollectionDTO(map[string]any{
		"key":         "k",
		"name":        "n",
		"public":      true,
		"removeAfter": float64(3),
		"tmdbId":      map[string]any{"value": "movie/1"},
		"comparisons": []any{
			map[string]any{"name": "row", "images": []any{
				map[string]any{"uuid": "i1", "name": "BD", "sortOrder": float64(0)},
			}},
		},
		"files": []any{[]any{map[string]any{"url": "u", "name": "f", "type": "image/png"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "k", dto.KeyOrDefault(""))
	assert.Equal(t, "n", dto.NameOrDefault(""))
	assert.Equal(t, float64(3), dto.RemoveAfter)
	require.Len(t, dto.Comparisons, 1)
	require.Len(t, dto.Comparisons[0].Images, 1)
	assert.Equal(t, "i1", *dto.Comparisons[0].Images[0].UUID)
	require.Len(t, dto.Files, 1)
	assert.Equal(t, "u", dto.Files[0][0].URL)
}

func TestClone_IsIndependent(t *testing.T) {
	orig := baseEditDTO()
	cp, err := orig.Clone()
	require.NoError(t, err)

	cp.Comparisons[0].Images = append(cp.Comparisons[0].Images, Image{Name: "new"})
	cp.Comparisons[0].Name = "changed"

	assert.Len(t, orig.Comparisons[0].Images, 1)
	assert.Equal(t, "Intro / 120", orig.Comparisons[0].Name)
}

func TestKeyNameDefaults(t *testing.T) {
	var d CollectionDTO
	assert.Equal(t, "fb", d.KeyOrDefault("fb"))
	assert.Equal(t, "fb", d.NameOrDefault("fb"))
	d.Key = strPtr("")
	assert.Equal(t, "fb", d.KeyOrDefault("fb"))
}
