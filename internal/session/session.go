// Package session owns the live comparison state: the loaded sources,
// the frame list and offset table, the loaded target context, and the
// navigation position. All mutation happens on the owner's goroutine;
// worker operations get immutable snapshots and report back through
// correlation-tagged events.
package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/supertouch/offsetcomp/internal/frames"
	"github.com/supertouch/offsetcomp/internal/names"
	"github.com/supertouch/offsetcomp/internal/slowpics"
	"github.com/supertouch/offsetcomp/internal/statefile"
	"github.com/supertouch/offsetcomp/internal/target"
	"github.com/supertouch/offsetcomp/internal/video"
)

// OpKind distinguishes the operation families that may each have at
// most one instance in flight.
type OpKind int

const (
	OpTargetLoad OpKind = iota
	OpAppend
	OpUpload
)

func (k OpKind) String() string {
	switch k {
	case OpTargetLoad:
		return "target load"
	case OpAppend:
		return "append"
	case OpUpload:
		return "upload"
	default:
		return "unknown"
	}
}

func (k OpKind) busyMessage() string {
	switch k {
	case OpTargetLoad:
		return "Target load in progress..."
	case OpAppend:
		return "Clone append in progress..."
	default:
		return "Upload in progress..."
	}
}

// Session is the mutable center of one comparison editing session.
type Session struct {
	List    *frames.List
	Offsets *frames.Offsets
	Target  *target.Context

	display      video.Display
	sources      []video.Source
	activeSource int
	navIndex     int // -1 while the list is empty

	inflight map[OpKind]string // correlation id per running operation

	// applying suppresses the external-provenance latch while the
	// session itself rewrites the list (target load, manual map).
	applying bool
}

// New creates an empty session. display may be nil for headless use.
func New(display video.Display) *Session {
	if display == nil {
		display = video.NopDisplay{}
	}
	s := &Session{
		List:     frames.NewList(),
		Offsets:  frames.NewOffsets(),
		Target:   target.New(),
		display:  display,
		navIndex: -1,
		inflight: make(map[OpKind]string),
	}
	s.Offsets.BindList(s.List)
	s.List.OnChange(s.onListChange)
	return s
}

func (s *Session) onListChange(c frames.Change) {
	s.clampNav()
	if s.applying {
		return
	}
	switch c.Kind {
	case frames.ChangeAdd:
		s.Target.MarkExternal("added frame")
	case frames.ChangeRemove:
		s.Target.MarkExternal("removed frame")
	case frames.ChangeEdit:
		s.Target.MarkExternal("edited frame")
	case frames.ChangeSet:
		s.Target.MarkExternal("replaced frame list")
	}
}

// LoadSources installs the comparison columns. Loading new sources
// resets the active source but keeps frames and offsets: offsets are
// index-keyed, so callers that change the source set should restore
// state from file instead.
func (s *Session) LoadSources(sources []video.Source) {
	s.sources = sources
	s.activeSource = 0
	s.syncDisplay()
}

// Sources returns the loaded sources.
func (s *Session) Sources() []video.Source { return s.sources }

// SourcesLoaded reports whether any sources are present.
func (s *Session) SourcesLoaded() bool { return len(s.sources) > 0 }

// SourceNames returns the loaded source names in index order.
func (s *Session) SourceNames() []string {
	out := make([]string, len(s.sources))
	for i, src := range s.sources {
		out[i] = src.Name()
	}
	return out
}

// ActiveSource returns the index of the displayed source.
func (s *Session) ActiveSource() int { return s.activeSource }

// SetActiveSource switches the displayed source. The reference frame
// stays put; only the effective frame changes through the offsets.
func (s *Session) SetActiveSource(i int) {
	if i < 0 || i >= len(s.sources) {
		return
	}
	s.activeSource = i
	s.display.SwitchSource(i)
	s.syncDisplay()
}

// NavIndex returns the current row position, or -1 with no frames.
func (s *Session) NavIndex() int { return s.navIndex }

// CurrentFrame returns the reference frame under the cursor.
func (s *Session) CurrentFrame() (int, bool) {
	if s.navIndex < 0 || s.navIndex >= s.List.Len() {
		return 0, false
	}
	return s.List.At(s.navIndex), true
}

// Next moves the cursor forward one row. No wraparound.
func (s *Session) Next() {
	if s.navIndex >= 0 && s.navIndex < s.List.Len()-1 {
		s.navIndex++
		s.syncDisplay()
	}
}

// Prev moves the cursor back one row. No wraparound.
func (s *Session) Prev() {
	if s.navIndex > 0 {
		s.navIndex--
		s.syncDisplay()
	}
}

// SelectRow positions the cursor on a specific row.
func (s *Session) SelectRow(i int) {
	if i < 0 || i >= s.List.Len() {
		return
	}
	s.navIndex = i
	s.syncDisplay()
}

// clampNav keeps the cursor valid across list mutations.
func (s *Session) clampNav() {
	n := s.List.Len()
	switch {
	case n == 0:
		s.navIndex = -1
	case s.navIndex < 0:
		s.navIndex = 0
	case s.navIndex >= n:
		s.navIndex = n - 1
	}
}

// syncDisplay asks the host to show the effective frame for the
// current row and active source.
func (s *Session) syncDisplay() {
	ref, ok := s.CurrentFrame()
	if !ok || s.activeSource >= len(s.sources) {
		return
	}
	src := s.sources[s.activeSource]
	eff := frames.Effective(ref, s.Offsets.Get(ref, s.activeSource), src.TotalFrames())
	s.display.ShowFrame(s.activeSource, eff)
}

// AddFrame inserts a reference frame, clamping it to the active
// source's range first. Returns the stored frame and whether it was
// adjusted.
func (s *Session) AddFrame(frame int) (stored int, adjusted bool, added bool) {
	stored = frame
	if len(s.sources) > 0 {
		stored = frames.Effective(frame, 0, s.sources[s.activeSource].TotalFrames())
		adjusted = stored != frame
	}
	return stored, adjusted, s.List.Add(stored)
}

// EditFrame replaces a reference frame with another, clamping the
// replacement to the active source's range first. The old frame's
// offsets move to the new frame.
func (s *Session) EditFrame(oldFrame, newFrame int) (stored int, adjusted bool, err error) {
	stored = newFrame
	if len(s.sources) > 0 {
		stored = frames.Effective(newFrame, 0, s.sources[s.activeSource].TotalFrames())
		adjusted = stored != newFrame
	}
	if err := s.List.Edit(oldFrame, stored); err != nil {
		return 0, false, err
	}
	return stored, adjusted, nil
}

// Begin claims the in-flight slot for an operation kind and returns
// its correlation id. A second start of the same kind is rejected, not
// queued.
func (s *Session) Begin(kind OpKind) (string, error) {
	if _, busy := s.inflight[kind]; busy {
		return "", fmt.Errorf("%s", kind.busyMessage())
	}
	id := uuid.NewString()
	s.inflight[kind] = id
	return id, nil
}

// Release frees the in-flight slot. Idempotent: releasing with a stale
// or unknown id is a no-op, so the cleanup path can run more than once.
func (s *Session) Release(kind OpKind, id string) {
	if s.inflight[kind] == id {
		delete(s.inflight, kind)
	}
}

// InFlight reports whether an operation of the given kind is running.
func (s *Session) InFlight(kind OpKind) bool {
	_, ok := s.inflight[kind]
	return ok
}

// Accept filters one worker event against the tracked operations.
// Events with an unknown correlation id are stale deliveries from an
// abandoned operation and must be discarded. A finished event releases
// its slot.
func (s *Session) Accept(e slowpics.Event) (OpKind, bool) {
	for kind, id := range s.inflight {
		if id != e.ID {
			continue
		}
		if e.Type == slowpics.EventFinished {
			s.Release(kind, id)
		}
		return kind, true
	}
	return 0, false
}

// ApplyTargetLoad publishes a successful target load into the session:
// parses row names back into frames, installs the recovered list (or
// clears it when any row fails to parse), and populates the target
// context atomically.
func (s *Session) ApplyTargetLoad(targetText string, result *slowpics.TargetLoadResult) {
	rowNames := result.RowNames()
	parsed, failed := names.ParseFramesFromCompNames(rowNames)

	s.applying = true
	if len(failed) > 0 {
		s.List.Set(nil)
	} else {
		s.List.Set(parsed)
	}
	s.applying = false

	compKey := names.ParseCompKey(targetText)
	if compKey == "" {
		compKey = result.SetKey
	}
	s.Target.ApplyLoad(compKey, result.SetKey, names.ParseViewPath(targetText),
		result.PostMode, result.CollectionName(), len(rowNames), result.EditDTO, failed)
}

// ApplyManualFrames installs a comma-separated frame list as the
// manual frame map for the loaded target. The count must equal the
// target's row count exactly.
func (s *Session) ApplyManualFrames(text string) error {
	if !s.Target.Loaded() {
		return fmt.Errorf("no target comparison loaded")
	}
	parts := strings.Split(text, ",")
	list := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid frame number %q", p)
		}
		list = append(list, n)
	}
	if len(list) != s.Target.ComparisonCount {
		return fmt.Errorf("expected %d frames, got %d", s.Target.ComparisonCount, len(list))
	}

	s.applying = true
	s.List.Set(list)
	s.applying = false
	s.Target.ApplyManualMap()
	return nil
}

// Readiness evaluates whether an append may start right now.
func (s *Session) Readiness(featureAvailable bool, selectedSources int) (bool, string) {
	return s.Target.Readiness(target.ReadinessInput{
		FeatureAvailable: featureAvailable,
		AppendInFlight:   s.InFlight(OpAppend),
		UploadInFlight:   s.InFlight(OpUpload),
		SourcesLoaded:    s.SourcesLoaded(),
		FrameCount:       s.List.Len(),
		SelectedSources:  selectedSources,
	})
}

// FramesCSV renders the frame list as a comma-separated string for
// export or clipboard use.
func (s *Session) FramesCSV() string {
	list := s.List.Frames()
	parts := make([]string, len(list))
	for i, f := range list {
		parts[i] = strconv.Itoa(f)
	}
	return strings.Join(parts, ",")
}

// SaveState persists the frame list and offsets keyed by source name.
func (s *Session) SaveState(path string) error {
	indexToName := make(map[int]string, len(s.sources))
	for i, src := range s.sources {
		indexToName[i] = src.Name()
	}
	st := statefile.Serialize(s.List.Frames(), s.Offsets.Snapshot(), indexToName)
	return statefile.Save(path, st)
}

// LoadState restores frames and offsets from a state file. Offsets for
// source names not present in this session are dropped. Restoring is a
// local list mutation, so a loaded target's frame map goes stale.
func (s *Session) LoadState(path string) error {
	st, err := statefile.Load(path)
	if err != nil {
		return err
	}
	nameToIndex := make(map[string]int, len(s.sources))
	for i, src := range s.sources {
		nameToIndex[src.Name()] = i
	}
	selected, offsets := statefile.Deserialize(st, nameToIndex)

	s.List.Set(selected)
	s.Offsets.Restore(offsets)
	s.Target.MarkExternal("loaded frame list from file")
	return nil
}
