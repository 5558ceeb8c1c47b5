package slowpics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/supertouch/offsetcomp/internal/frames"
	"github.com/supertouch/offsetcomp/internal/video"
)

// UploadConfig is the immutable snapshot for a brand-new comparison.
// Collection-level settings come from the tool config (the sibling
// provider role); the frame lists are already offset-corrected per
// source by construction here.
type UploadConfig struct {
	ID             string
	CollectionName string
	Public         bool
	OptimizeImages bool
	TMDBID         string
	RemoveAfter    string
	Tags           []string
	BaseFrames     []int
	SourceIndices  []int
	Sources        []video.Source
	Offsets        map[int]map[int]int
	FrameType      bool
	// FrameLabel names each row; it must follow the "<label> / <frame>"
	// convention so a later append can recover the frame map.
	FrameLabel func(frame, maxFrame int) string
}

// RunUpload creates a new comparison from scratch: one row per base
// frame, one column per source, using the offset-corrected frame for
// every cell.
func (c *Client) RunUpload(ctx context.Context, conf UploadConfig, emit EmitFunc) {
	em := newEmitter(conf.ID, emit)
	defer em.finish()

	tempDir, err := os.MkdirTemp("", "spo_upload_")
	if err != nil {
		em.error(fmt.Errorf("upload failed: %w", err))
		return
	}
	defer os.RemoveAll(tempDir)

	url, err := c.uploadComparison(ctx, conf, tempDir, em)
	if err != nil {
		em.error(fmt.Errorf("upload failed: %w", err))
		return
	}
	em.url(url)
}

func (c *Client) uploadComparison(ctx context.Context, conf UploadConfig, tempDir string, em *emitter) (string, error) {
	if len(conf.BaseFrames) == 0 {
		return "", validationf("no frames selected for upload")
	}
	if len(conf.Sources) == 0 {
		return "", validationf("no sources selected for upload")
	}

	browserID := uuid.NewString()

	appendConf := AppendConfig{
		ID:            conf.ID,
		BaseFrames:    conf.BaseFrames,
		SourceIndices: conf.SourceIndices,
		Sources:       conf.Sources,
		Offsets:       conf.Offsets,
		FrameType:     conf.FrameType,
	}
	totalExtract, paths, imageNames, err := c.extractFrames(ctx, appendConf, tempDir, em)
	if err != nil {
		return "", err
	}

	maxFrame := 0
	for _, f := range conf.BaseFrames {
		if f > maxFrame {
			maxFrame = f
		}
	}

	var fields []formField
	add := func(key, value string) {
		fields = append(fields, formField{key: key, value: value})
	}
	add("collectionName", conf.CollectionName)
	add("browserId", browserID)
	add("public", strconv.FormatBool(conf.Public))
	add("hentai", "false")
	add("optimizeImages", strconv.FormatBool(conf.OptimizeImages))
	if conf.RemoveAfter != "" {
		add("removeAfter", conf.RemoveAfter)
	}
	if conf.TMDBID != "" {
		add("tmdbId", conf.TMDBID)
	}
	for i, tag := range conf.Tags {
		add(fmt.Sprintf("tags[%d]", i), tag)
	}
	for row, baseFrame := range conf.BaseFrames {
		rowName := strconv.Itoa(baseFrame)
		if conf.FrameLabel != nil {
			rowName = conf.FrameLabel(baseFrame, maxFrame)
		}
		add(fmt.Sprintf("comparisons[%d].name", row), rowName)
		add(fmt.Sprintf("comparisons[%d].sortOrder", row), strconv.Itoa(row))
		for col := range conf.Sources {
			add(fmt.Sprintf("comparisons[%d].images[%d].name", row, col), imageNames[col][row])
			add(fmt.Sprintf("comparisons[%d].images[%d].sortOrder", row, col), strconv.Itoa(col))
		}
	}

	_, _, _ = c.get(ctx, c.base+"/comparison")

	status, body, _, err := c.postMultipart(ctx, c.base+"/upload/comparison", fields, nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", statusError("upload", status, body)
	}

	var resp struct {
		Key            string      `json:"key"`
		CollectionUUID string      `json:"collectionUuid"`
		Images         [][]*string `json:"images"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if resp.CollectionUUID == "" || resp.Images == nil {
		return "", validationf("upload response missing collectionUuid or images")
	}

	uploaded := 0
	totalProgress := totalExtract * 2
	for row := range conf.BaseFrames {
		if row >= len(resp.Images) {
			return "", validationf("upload response missing comparison row %d", row)
		}
		for col := range conf.Sources {
			imageUUID, err := matrixUUID(resp.Images[row], row, col)
			if err != nil {
				return "", err
			}
			framePath := paths[col][row]
			data, err := os.ReadFile(framePath)
			if err != nil {
				return "", fmt.Errorf("reading rendered frame %q: %w", framePath, err)
			}
			em.step("upload", uploaded+1, totalExtract)
			if err := c.uploadImage(ctx, resp.CollectionUUID, imageUUID, browserID, filepath.Base(framePath), "image/png", data); err != nil {
				return "", err
			}
			uploaded++
			em.percent(totalExtract+uploaded, totalProgress)
		}
	}

	return c.base + "/c/" + resp.Key, nil
}

// OffsetAdjustedFrames computes the per-source effective frame lists
// for the new-comparison path (the offset correction the sibling's
// plain upload lacks).
func OffsetAdjustedFrames(baseFrames []int, sourceIndices []int, sources []video.Source, offsets map[int]map[int]int) [][]int {
	out := make([][]int, len(sources))
	for listIdx, src := range sources {
		sessionIdx := sourceIndices[listIdx]
		row := make([]int, len(baseFrames))
		for i, f := range baseFrames {
			row[i] = frames.Effective(f, offsets[f][sessionIdx], src.TotalFrames())
		}
		out[listIdx] = row
	}
	return out
}
