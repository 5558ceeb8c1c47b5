// Package target tracks the reconciliation state between the local
// frame list and a loaded remote comparison, and gates the append
// operation on that state.
package target

import (
	"fmt"

	"github.com/supertouch/offsetcomp/internal/slowpics"
)

// MapSource records how the current local frame list was derived.
// Appends are only safe when the list provably matches the remote
// comparison's rows, which means target or manual provenance.
type MapSource int

const (
	// SourceNone means no frame map has been established.
	SourceNone MapSource = iota
	// SourceTarget means the list was parsed from the loaded target.
	SourceTarget
	// SourceManual means the user supplied the list for the target.
	SourceManual
	// SourceExternal means the list diverged after a load (edited,
	// regenerated, loaded from file).
	SourceExternal
)

func (s MapSource) String() string {
	switch s {
	case SourceTarget:
		return "target"
	case SourceManual:
		return "manual"
	case SourceExternal:
		return "external"
	default:
		return "none"
	}
}

// Context holds a loaded remote comparison's identity and structure.
// It is populated atomically by a successful target load and
// invalidated (not destroyed) when the local frame list diverges.
type Context struct {
	CompKey         string
	SetKey          string
	ViewPath        string
	PostMode        string
	CollectionName  string
	ComparisonCount int
	EditDTO         *slowpics.CollectionDTO
	// ParseFailedRows lists rows whose frame number could not be
	// recovered from their display name, in row order.
	ParseFailedRows []int
	// ParseComplete is true only while every row parsed and the local
	// list has not diverged since the load.
	ParseComplete bool

	mapSource    MapSource
	changeReason string
}

// New returns an empty context.
func New() *Context {
	return &Context{}
}

// Reset clears everything back to the unloaded state.
func (c *Context) Reset() {
	*c = Context{}
}

// Loaded reports whether a target load has populated the context.
func (c *Context) Loaded() bool {
	return c.SetKey != "" && c.EditDTO != nil && c.ComparisonCount > 0
}

// MapSource returns the current frame-map provenance.
func (c *Context) MapSource() MapSource { return c.mapSource }

// ChangeReason returns the recorded reason for the last divergence.
func (c *Context) ChangeReason() string { return c.changeReason }

// ApplyLoad publishes a successful load. parsedAll marks whether every
// row name yielded a frame; when false the caller clears the frame
// list and provenance stays none until a manual map is applied.
func (c *Context) ApplyLoad(compKey, setKey, viewPath, postMode, collectionName string, comparisonCount int, dto *slowpics.CollectionDTO, failedRows []int) {
	c.CompKey = compKey
	c.SetKey = setKey
	c.ViewPath = viewPath
	c.PostMode = postMode
	c.CollectionName = collectionName
	c.ComparisonCount = comparisonCount
	c.EditDTO = dto
	c.ParseFailedRows = failedRows
	c.changeReason = ""

	if len(failedRows) > 0 {
		c.ParseComplete = false
		c.mapSource = SourceNone
		return
	}
	c.ParseComplete = true
	c.mapSource = SourceTarget
}

// ApplyManualMap records that the user supplied the frame list by hand.
// Manual provenance permits appends but is not a parsed map.
func (c *Context) ApplyManualMap() {
	c.ParseComplete = false
	c.ParseFailedRows = nil
	c.mapSource = SourceManual
	c.changeReason = ""
}

// MarkExternal demotes the frame map after any local list mutation.
// One-way latch per load cycle: only a fresh load or manual map
// restores valid provenance. Before a load it is a no-op.
func (c *Context) MarkExternal(reason string) {
	if !c.Loaded() {
		return
	}
	c.mapSource = SourceExternal
	c.ParseComplete = false
	c.changeReason = reason
}

// ReadinessInput carries the session facts the readiness predicate
// needs beyond the context itself.
type ReadinessInput struct {
	FeatureAvailable bool
	AppendInFlight   bool
	UploadInFlight   bool
	SourcesLoaded    bool
	FrameCount       int
	SelectedSources  int
}

// Readiness decides whether an append may start. Every failing
// condition yields a specific human-readable reason.
func (c *Context) Readiness(in ReadinessInput) (bool, string) {
	if !in.FeatureAvailable {
		return false, "Remote comparison support not available."
	}
	if in.AppendInFlight {
		return false, "Clone append in progress..."
	}
	if in.UploadInFlight {
		return false, "Upload in progress..."
	}
	if !in.SourcesLoaded {
		return false, "Load local sources first."
	}
	if !c.Loaded() {
		return false, "Load target comparison."
	}
	if in.FrameCount == 0 {
		return false, "Provide frame map for target comparisons."
	}
	if c.mapSource != SourceTarget && c.mapSource != SourceManual {
		reason := c.changeReason
		if reason == "" {
			reason = "local edit"
		}
		return false, fmt.Sprintf(
			"Frame map mismatch (%d/%d, %s). Reload or press Apply.",
			in.FrameCount, c.ComparisonCount, reason)
	}
	if in.FrameCount != c.ComparisonCount {
		return false, fmt.Sprintf("Frame map rows %d/%d.", in.FrameCount, c.ComparisonCount)
	}
	if in.SelectedSources == 0 {
		return false, "Select at least one source."
	}
	return true, "Ready to upload."
}
