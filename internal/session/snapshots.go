package session

import (
	"fmt"

	"github.com/supertouch/offsetcomp/internal/config"
	"github.com/supertouch/offsetcomp/internal/names"
	"github.com/supertouch/offsetcomp/internal/slowpics"
	"github.com/supertouch/offsetcomp/internal/video"
)

// BuildTargetLoadConfig snapshots the inputs for a target load.
func (s *Session) BuildTargetLoadConfig(id, targetText, cookiesPath string, frameType bool) (slowpics.TargetLoadConfig, error) {
	viewPath := names.ParseViewPath(targetText)
	if viewPath == "" {
		return slowpics.TargetLoadConfig{}, fmt.Errorf("unrecognized comparison URL or key %q", targetText)
	}
	return slowpics.TargetLoadConfig{
		ID:          id,
		TargetText:  targetText,
		ViewPath:    viewPath,
		CookiesPath: cookiesPath,
		FrameType:   frameType,
	}, nil
}

// BuildAppendConfig snapshots everything an append needs from the live
// session: frame list, offsets, selected sources, and the captured edit
// document. The operation works only on this copy so concurrent edits
// cannot race it.
func (s *Session) BuildAppendConfig(id string, selected []int, cfg config.Config, normalizeNames bool) (slowpics.AppendConfig, error) {
	if !s.Target.Loaded() {
		return slowpics.AppendConfig{}, fmt.Errorf("no target comparison loaded")
	}
	sources, err := s.resolveSelection(selected)
	if err != nil {
		return slowpics.AppendConfig{}, err
	}

	selectedNames := make([]string, len(sources))
	for i, src := range sources {
		selectedNames[i] = src.Name()
	}

	return slowpics.AppendConfig{
		ID:             id,
		TargetKey:      s.Target.SetKey,
		PostMode:       s.Target.PostMode,
		EditDTO:        s.Target.EditDTO,
		BaseFrames:     s.List.Frames(),
		SourceIndices:  append([]int(nil), selected...),
		Sources:        sources,
		Offsets:        s.Offsets.Snapshot(),
		FrameType:      cfg.FrameType,
		NormalizeNames: normalizeNames,
		FrameLabel:     config.FrameLabel,
		TargetCollectionName: s.Target.CollectionName,
		GeneratedCollectionName: names.BuildAppendCollectionName(
			s.Target.CollectionName, selectedNames, "Comp "+s.Target.SetKey),
		ExpectedComparisonCount: s.Target.ComparisonCount,
	}, nil
}

// BuildUploadConfig snapshots the inputs for a brand-new comparison.
// collectionName must already be template-resolved and validated.
func (s *Session) BuildUploadConfig(id, collectionName string, selected []int, cfg config.Config) (slowpics.UploadConfig, error) {
	if s.List.Len() == 0 {
		return slowpics.UploadConfig{}, fmt.Errorf("no frames selected")
	}
	sources, err := s.resolveSelection(selected)
	if err != nil {
		return slowpics.UploadConfig{}, err
	}

	return slowpics.UploadConfig{
		ID:             id,
		CollectionName: collectionName,
		Public:         cfg.Collection.Public,
		OptimizeImages: cfg.Collection.OptimizeImagesOrDefault(),
		TMDBID:         cfg.Collection.TMDBID,
		RemoveAfter:    cfg.Collection.RemoveAfter,
		Tags:           append([]string(nil), cfg.Collection.Tags...),
		BaseFrames:     s.List.Frames(),
		SourceIndices:  append([]int(nil), selected...),
		Sources:        sources,
		Offsets:        s.Offsets.Snapshot(),
		FrameType:      cfg.FrameType,
		FrameLabel:     config.FrameLabel,
	}, nil
}

func (s *Session) resolveSelection(selected []int) ([]video.Source, error) {
	if len(selected) == 0 {
		return nil, fmt.Errorf("no sources selected")
	}
	sources := make([]video.Source, len(selected))
	for i, idx := range selected {
		if idx < 0 || idx >= len(s.sources) {
			return nil, fmt.Errorf("source index %d out of range", idx)
		}
		sources[i] = s.sources[idx]
	}
	return sources, nil
}
