// Package video defines the capabilities the engine needs from the
// host's video sources: naming, frame counts, and rendering single
// frames to PNG files. Decoding itself stays outside this tool.
package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Source is one comparison column: a named timeline of frames that can
// be rendered to PNG files one frame at a time.
type Source interface {
	Name() string
	TotalFrames() int
	// RenderFrame writes frame n as a PNG to outPath.
	RenderFrame(ctx context.Context, n int, outPath string) error
	// PictType reports the coding type of frame n as a one-letter tag
	// ("I", "P", "B"), or "?" when unknown.
	PictType(n int) string
}

// Display receives frame-switch requests from the navigation state
// machine. Out-of-range requests never reach it; effective frames are
// clamped first.
type Display interface {
	ShowFrame(source int, frame int)
	SwitchSource(source int)
}

// NopDisplay ignores all display requests. Used by headless commands.
type NopDisplay struct{}

func (NopDisplay) ShowFrame(int, int) {}
func (NopDisplay) SwitchSource(int)   {}

// DirSource serves frames from a directory of numbered PNG files
// ("000123.png", "frame_000123.png" and similar). Rendering a frame is
// a file copy, which keeps the append pipeline testable without a
// decoder.
type DirSource struct {
	name   string
	dir    string
	frames []string // file path per frame, ascending frame order
}

// OpenDir scans dir for .png files with a trailing frame number and
// returns a source ordered by that number.
func OpenDir(name, dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source dir %q: %w", dir, err)
	}

	type numbered struct {
		n    int
		path string
	}
	var found []numbered
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".png") {
			continue
		}
		base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		i := len(base)
		for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
			i--
		}
		if i == len(base) {
			continue
		}
		n, err := strconv.Atoi(base[i:])
		if err != nil {
			continue
		}
		found = append(found, numbered{n: n, path: filepath.Join(dir, e.Name())})
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no numbered .png frames in %q", dir)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	frames := make([]string, len(found))
	for i, f := range found {
		frames[i] = f.path
	}
	return &DirSource{name: name, dir: dir, frames: frames}, nil
}

func (s *DirSource) Name() string     { return s.name }
func (s *DirSource) TotalFrames() int { return len(s.frames) }

func (s *DirSource) RenderFrame(ctx context.Context, n int, outPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n < 0 || n >= len(s.frames) {
		return fmt.Errorf("frame %d out of range for source %q (%d frames)", n, s.name, len(s.frames))
	}
	data, err := os.ReadFile(s.frames[n])
	if err != nil {
		return fmt.Errorf("reading frame %d of %q: %w", n, s.name, err)
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("writing rendered frame: %w", err)
	}
	return nil
}

// PictType is unknown for image sequences.
func (s *DirSource) PictType(int) string { return "?" }
