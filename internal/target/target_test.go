package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supertouch/offsetcomp/internal/slowpics"
)

func loadedDTO() *slowpics.CollectionDTO {
	return &slowpics.CollectionDTO{
		Comparisons: []slowpics.Comparison{{Name: "a / 1"}, {Name: "b / 2"}},
	}
}

func readyInput() ReadinessInput {
	return ReadinessInput{
		FeatureAvailable: true,
		SourcesLoaded:    true,
		FrameCount:       2,
		SelectedSources:  1,
	}
}

func TestContext_LoadedRequiresAllPieces(t *testing.T) {
	c := New()
	assert.False(t, c.Loaded())

	c.ApplyLoad("k", "set", "/c/k", "clone", "Comp", 2, loadedDTO(), nil)
	assert.True(t, c.Loaded())
	assert.True(t, c.ParseComplete)
	assert.Equal(t, SourceTarget, c.MapSource())
}

func TestContext_ApplyLoadWithFailedRows(t *testing.T) {
	c := New()
	c.ApplyLoad("k", "set", "/c/k", "clone", "Comp", 3, loadedDTO(), []int{2})

	assert.True(t, c.Loaded())
	assert.False(t, c.ParseComplete)
	assert.Equal(t, SourceNone, c.MapSource())
	assert.Equal(t, []int{2}, c.ParseFailedRows)
}

func TestContext_MarkExternalIsOneWayLatch(t *testing.T) {
	c := New()
	c.ApplyLoad("k", "set", "/c/k", "clone", "Comp", 2, loadedDTO(), nil)

	c.MarkExternal("added frame")
	assert.Equal(t, SourceExternal, c.MapSource())
	assert.False(t, c.ParseComplete)
	assert.Equal(t, "added frame", c.ChangeReason())

	// Only a fresh load or manual map restores provenance.
	c.ApplyManualMap()
	assert.Equal(t, SourceManual, c.MapSource())
	assert.False(t, c.ParseComplete)
}

func TestContext_MarkExternalNoopBeforeLoad(t *testing.T) {
	c := New()
	c.MarkExternal("edited frame")
	assert.Equal(t, SourceNone, c.MapSource())
}

func TestReadiness_AllConditions(t *testing.T) {
	c := New()
	c.ApplyLoad("k", "set", "/c/k", "clone", "Comp", 2, loadedDTO(), nil)

	ok, reason := c.Readiness(readyInput())
	require.True(t, ok)
	assert.Equal(t, "Ready to upload.", reason)
}

func TestReadiness_FailureReasons(t *testing.T) {
	c := New()
	c.ApplyLoad("k", "set", "/c/k", "clone", "Comp", 2, loadedDTO(), nil)

	tests := []struct {
		name   string
		mutate func(*ReadinessInput, *Context)
		want   string
	}{
		{"unavailable", func(in *ReadinessInput, _ *Context) { in.FeatureAvailable = false },
			"Remote comparison support not available."},
		{"append busy", func(in *ReadinessInput, _ *Context) { in.AppendInFlight = true },
			"Clone append in progress..."},
		{"upload busy", func(in *ReadinessInput, _ *Context) { in.UploadInFlight = true },
			"Upload in progress..."},
		{"no sources", func(in *ReadinessInput, _ *Context) { in.SourcesLoaded = false },
			"Load local sources first."},
		{"no frames", func(in *ReadinessInput, _ *Context) { in.FrameCount = 0 },
			"Provide frame map for target comparisons."},
		{"count mismatch", func(in *ReadinessInput, _ *Context) { in.FrameCount = 3 },
			"Frame map rows 3/2."},
		{"no selection", func(in *ReadinessInput, _ *Context) { in.SelectedSources = 0 },
			"Select at least one source."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := New()
			ctx.ApplyLoad("k", "set", "/c/k", "clone", "Comp", 2, loadedDTO(), nil)
			in := readyInput()
			tt.mutate(&in, ctx)
			ok, reason := ctx.Readiness(in)
			assert.False(t, ok)
			assert.Equal(t, tt.want, reason)
		})
	}
}

func TestReadiness_NotLoaded(t *testing.T) {
	c := New()
	ok, reason := c.Readiness(readyInput())
	assert.False(t, ok)
	assert.Equal(t, "Load target comparison.", reason)
}

func TestReadiness_ExternalProvenanceBlocksEvenWithMatchingCounts(t *testing.T) {
	c := New()
	c.ApplyLoad("k", "set", "/c/k", "clone", "Comp", 2, loadedDTO(), nil)
	c.MarkExternal("removed frame")

	// Counts coincide, provenance still blocks.
	ok, reason := c.Readiness(readyInput())
	assert.False(t, ok)
	assert.Contains(t, reason, "Frame map mismatch (2/2, removed frame)")
}
