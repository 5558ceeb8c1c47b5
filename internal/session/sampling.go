package session

import (
	"fmt"
	"math/rand"

	"github.com/supertouch/offsetcomp/internal/config"
)

// GenerateFrames replaces the frame list with the configured manual
// frames plus randomly sampled ones. Random frames are drawn without
// repetition from [start, end) clamped to the shortest loaded source,
// so every sampled frame exists in every column before offsets apply.
// Regenerating is a local list mutation; a loaded target's frame map
// goes stale.
func (s *Session) GenerateFrames(sampling config.SamplingConfig, includeCurrent bool, rng *rand.Rand) ([]int, error) {
	start, end := sampling.Start, sampling.End
	if shortest, ok := s.shortestSource(); ok && end > shortest {
		end = shortest
	}

	list := append([]int(nil), sampling.Manual...)
	if includeCurrent {
		if frame, ok := s.CurrentFrame(); ok {
			list = append(list, frame)
		}
	}

	if sampling.Random > 0 {
		if end <= start {
			return nil, fmt.Errorf("sampling range [%d, %d) is empty after clamping to the shortest source", start, end)
		}
		span := end - start
		count := sampling.Random
		if count > span {
			count = span
		}
		seen := make(map[int]bool, count)
		for len(seen) < count {
			f := start + rng.Intn(span)
			if seen[f] {
				continue
			}
			seen[f] = true
			list = append(list, f)
		}
	}

	s.List.Set(list)
	return s.List.Frames(), nil
}

func (s *Session) shortestSource() (int, bool) {
	if len(s.sources) == 0 {
		return 0, false
	}
	shortest := s.sources[0].TotalFrames()
	for _, src := range s.sources[1:] {
		if n := src.TotalFrames(); n < shortest {
			shortest = n
		}
	}
	return shortest, true
}
