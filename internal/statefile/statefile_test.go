package statefile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip_SameSourceNames(t *testing.T) {
	offsets := map[int]map[int]int{
		100: {0: -3, 1: 5},
		200: {1: 2},
	}
	indexToName := map[int]string{0: "BD", 1: "WEB"}
	nameToIndex := map[string]int{"BD": 0, "WEB": 1}

	st := Serialize([]int{200, 100}, offsets, indexToName)
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, Save(path, st))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Version, loaded.Version)

	gotFrames, gotOffsets := Deserialize(loaded, nameToIndex)
	assert.Equal(t, []int{100, 200}, gotFrames)
	assert.Equal(t, offsets, gotOffsets)
}

func TestRoundTrip_MissingSourceDropsOnlyThatSource(t *testing.T) {
	offsets := map[int]map[int]int{
		100: {0: -3, 1: 5},
	}
	st := Serialize([]int{100}, offsets, map[int]string{0: "BD", 1: "WEB"})

	// New session does not have "WEB".
	_, gotOffsets := Deserialize(st, map[string]int{"BD": 0})
	assert.Equal(t, map[int]map[int]int{100: {0: -3}}, gotOffsets)
}

func TestSerialize_DropsUnknownIndicesAndEmptyRows(t *testing.T) {
	offsets := map[int]map[int]int{
		100: {7: 4}, // index 7 has no name
	}
	st := Serialize([]int{100}, offsets, map[int]string{0: "BD"})
	assert.Empty(t, st.Offsets)
}

func TestLoad_SkipsNonIntegerKeysAndValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	data := `{
		"version": 1,
		"selected_frames": [10, "x", 20.5, 30],
		"offsets": {
			"100": {"BD": 3, "WEB": "oops", "TV": 1.5},
			"abc": {"BD": 1}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	st, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 30}, st.SelectedFrames)
	assert.Equal(t, map[string]map[string]int{"100": {"BD": 3}}, st.Offsets)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}
