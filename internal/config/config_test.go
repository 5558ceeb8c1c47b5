package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supertouch/offsetcomp/internal/config"
)

func TestParseConfig(t *testing.T) {
	t.Run("full config", func(t *testing.T) {
		input := []byte(`cookies: /home/u/.offsetcomp/cookies.json
frame_type: true
collection:
  name_template: "{script_name} comparison"
  public: true
  optimize_images: false
  tmdb_id: movie/603
  remove_after: "7"
  tags:
    - anime
sampling:
  start: 1000
  end: 20000
  random: 10
  manual: [120, 9000]
sources:
  - name: BD
    dir: /frames/bd
  - name: WEB
    dir: /frames/web
`)
		cfg, err := config.Parse(input)
		require.NoError(t, err)
		assert.Equal(t, "/home/u/.offsetcomp/cookies.json", cfg.Cookies)
		assert.True(t, cfg.FrameType)
		assert.Equal(t, "{script_name} comparison", cfg.Collection.NameTemplate)
		assert.True(t, cfg.Collection.Public)
		assert.False(t, cfg.Collection.OptimizeImagesOrDefault())
		assert.Equal(t, "movie/603", cfg.Collection.TMDBID)
		assert.Equal(t, []string{"anime"}, cfg.Collection.Tags)
		assert.Equal(t, 10, cfg.Sampling.Random)
		assert.Equal(t, []int{120, 9000}, cfg.Sampling.Manual)
		require.Len(t, cfg.Sources, 2)
		assert.Equal(t, "BD", cfg.Sources[0].Name)
	})

	t.Run("empty config", func(t *testing.T) {
		cfg, err := config.Parse([]byte(""))
		require.NoError(t, err)
		assert.False(t, cfg.FrameType)
		assert.True(t, cfg.Collection.OptimizeImagesOrDefault())
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := config.Parse([]byte(`{{{`))
		assert.Error(t, err)
	})

	t.Run("empty sampling range rejected", func(t *testing.T) {
		_, err := config.Parse([]byte("sampling:\n  start: 100\n  end: 100\n  random: 5\n"))
		assert.Error(t, err)
	})

	t.Run("source without dir rejected", func(t *testing.T) {
		_, err := config.Parse([]byte("sources:\n  - name: BD\n"))
		assert.Error(t, err)
	})
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := config.Config{
		Cookies:   "/c.json",
		FrameType: true,
		Collection: config.CollectionConfig{
			NameTemplate: "{script_name}",
			Tags:         []string{"a", "b"},
		},
		Sources: []config.SourceConfig{{Name: "BD", Dir: "/frames"}},
	}

	data, err := config.Marshal(cfg)
	require.NoError(t, err)

	parsed, err := config.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.Cookies, parsed.Cookies)
	assert.Equal(t, cfg.Collection.Tags, parsed.Collection.Tags)
	assert.Equal(t, cfg.Sources, parsed.Sources)
}

func TestLoad_MissingFileYieldsZeroConfig(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Sources)
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frame_type: true\n"), 0644))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.FrameType)
}

func TestResolveCollectionName(t *testing.T) {
	vars := map[string]string{"script_name": "ep01"}

	name, err := config.ResolveCollectionName("{script_name} comparison", vars)
	require.NoError(t, err)
	assert.Equal(t, "ep01 comparison", name)

	_, err = config.ResolveCollectionName("{unknown} comparison", vars)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "{unknown}")

	_, err = config.ResolveCollectionName("  x ", vars)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestFrameLabel(t *testing.T) {
	assert.Equal(t, "00120 / 120", config.FrameLabel(120, 34567))
	assert.Equal(t, "9000 / 9000", config.FrameLabel(9000, 9000))
	assert.Equal(t, "0 / 0", config.FrameLabel(0, 0))
}
