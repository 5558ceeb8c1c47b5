// Package statefile reads and writes the versioned JSON file holding a
// session's selected frames and per-source offsets. Offsets are keyed
// by source name, which is stable across sessions; source indices are
// not.
package statefile

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// Version is the current schema version.
const Version = 1

// State is the on-disk schema.
type State struct {
	Version        int                       `json:"version"`
	SelectedFrames []int                     `json:"selected_frames"`
	Offsets        map[string]map[string]int `json:"offsets"`
}

// Serialize converts the in-memory offset table (keyed by source
// index) into the on-disk form (keyed by source name). Indices with no
// known name are dropped; frames whose rows end up empty are omitted.
func Serialize(selectedFrames []int, offsets map[int]map[int]int, indexToName map[int]string) State {
	st := State{
		Version:        Version,
		SelectedFrames: append([]int(nil), selectedFrames...),
		Offsets:        make(map[string]map[string]int),
	}
	sort.Ints(st.SelectedFrames)

	for frame, row := range offsets {
		out := make(map[string]int)
		for idx, offset := range row {
			name, ok := indexToName[idx]
			if !ok {
				continue
			}
			out[name] = offset
		}
		if len(out) > 0 {
			st.Offsets[strconv.Itoa(frame)] = out
		}
	}
	return st
}

// Deserialize converts on-disk offsets back to index keying. Source
// names not found among the current sources are silently dropped, as
// are non-integer frame keys.
func Deserialize(st State, nameToIndex map[string]int) (selectedFrames []int, offsets map[int]map[int]int) {
	selectedFrames = append([]int(nil), st.SelectedFrames...)
	sort.Ints(selectedFrames)

	offsets = make(map[int]map[int]int)
	for frameKey, row := range st.Offsets {
		frame, err := strconv.Atoi(frameKey)
		if err != nil {
			continue
		}
		out := make(map[int]int)
		for name, offset := range row {
			idx, ok := nameToIndex[name]
			if !ok {
				continue
			}
			out[idx] = offset
		}
		offsets[frame] = out
	}
	return selectedFrames, offsets
}

// Save writes the state as indented JSON.
func Save(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// Load reads and parses a state file. Non-integer frames and offset
// values are silently skipped rather than failing the load.
func Load(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, fmt.Errorf("reading state file: %w", err)
	}
	var raw struct {
		Version        int                       `json:"version"`
		SelectedFrames []any                     `json:"selected_frames"`
		Offsets        map[string]map[string]any `json:"offsets"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return State{}, fmt.Errorf("parsing state file %q: %w", path, err)
	}

	st := State{Version: raw.Version, Offsets: make(map[string]map[string]int)}
	for _, v := range raw.SelectedFrames {
		if n, ok := asInt(v); ok {
			st.SelectedFrames = append(st.SelectedFrames, n)
		}
	}
	for frameKey, row := range raw.Offsets {
		if _, err := strconv.Atoi(frameKey); err != nil {
			continue
		}
		out := make(map[string]int)
		for name, v := range row {
			if n, ok := asInt(v); ok {
				out[name] = n
			}
		}
		st.Offsets[frameKey] = out
	}
	return st, nil
}

// asInt accepts the integral values JSON decoding can produce.
func asInt(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != float64(int64(f)) {
		return 0, false
	}
	return int(f), true
}
