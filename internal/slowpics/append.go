package slowpics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/supertouch/offsetcomp/internal/frames"
	"github.com/supertouch/offsetcomp/internal/video"
)

// taggedNameRe matches the "(I) Name" picture-type naming convention.
var taggedNameRe = regexp.MustCompile(`^\([IBP?]\)\s+.+`)

// AppendConfig is an immutable per-operation snapshot. It is copied
// from live session state rather than referencing it, because the
// operation runs concurrently with further UI edits.
type AppendConfig struct {
	ID                      string
	TargetKey               string
	PostMode                string // "clone" or "edit"
	EditDTO                 *CollectionDTO
	BaseFrames              []int
	SourceIndices           []int          // session index per selected source
	Sources                 []video.Source // resolved handles, parallel to SourceIndices
	Offsets                 map[int]map[int]int
	FrameType               bool
	NormalizeNames          bool
	// FrameLabel produces the normalized row display name for a base
	// frame (a timestamp label in the sibling naming convention).
	FrameLabel              func(frame, maxFrame int) string
	TargetCollectionName    string
	GeneratedCollectionName string
	ExpectedComparisonCount int
}

// existingSlot records an already-uploaded cell that must be
// re-uploaded verbatim to survive the edit.
type existingSlot struct {
	row, col int
	url      string
	name     string
	mimeType string
}

// HasNonstandardExistingNames reports whether any existing image name
// in the edit payload does not follow the "(I/P/B) Name" convention.
// Used to warn that old columns keep their names when tagging is on.
func HasNonstandardExistingNames(dto *CollectionDTO) bool {
	for _, comp := range dto.Comparisons {
		for _, img := range comp.Images {
			if !taggedNameRe.MatchString(img.Name) {
				return true
			}
		}
	}
	return false
}

// RunAppend merges the selected sources into the target comparison as
// new columns. The temp directory is always removed and the finished
// event always fires exactly once, success or failure.
func (c *Client) RunAppend(ctx context.Context, conf AppendConfig, emit EmitFunc) {
	em := newEmitter(conf.ID, emit)
	defer em.finish()

	tempDir, err := os.MkdirTemp("", "spo_append_")
	if err != nil {
		em.error(fmt.Errorf("append failed: %w", err))
		return
	}
	defer os.RemoveAll(tempDir)

	url, err := c.appendSources(ctx, conf, tempDir, em)
	if err != nil {
		em.error(fmt.Errorf("append failed: %w", err))
		return
	}
	em.url(url)
}

func (c *Client) appendSources(ctx context.Context, conf AppendConfig, tempDir string, em *emitter) (string, error) {
	// Re-validated here, not trusted from the readiness check: the
	// session may have been edited between check and start.
	if len(conf.BaseFrames) != conf.ExpectedComparisonCount {
		return "", validationf(
			"frame count mismatch: got %d frames but target has %d comparisons",
			len(conf.BaseFrames), conf.ExpectedComparisonCount)
	}

	browserID := uuid.NewString()

	totalExtract, extractedPaths, imageNames, err := c.extractFrames(ctx, conf, tempDir, em)
	if err != nil {
		return "", err
	}

	dto, slots, err := prepareAppendDTO(conf, imageNames)
	if err != nil {
		return "", err
	}

	fields := buildAppendFields(conf, dto, browserID)

	// Warm-up request primes session cookies the way a browser visit
	// would before the form POST.
	_, _, _ = c.get(ctx, c.base+"/comparison")

	postURL := c.base + "/upload/comparison"
	modeLabel := "clone"
	if conf.PostMode == "edit" {
		postURL = c.base + "/c/" + conf.TargetKey + "/edit"
		modeLabel = "edit"
	}
	status, body, _, err := c.postMultipart(ctx, postURL, fields, nil)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", statusError(modeLabel, status, body)
	}

	var editResp struct {
		Key            string      `json:"key"`
		CollectionUUID string      `json:"collectionUuid"`
		Images         [][]*string `json:"images"`
	}
	if err := json.Unmarshal(body, &editResp); err != nil {
		return "", fmt.Errorf("decoding %s response: %w", modeLabel, err)
	}
	if editResp.CollectionUUID == "" || editResp.Images == nil {
		return "", validationf("%s response missing collectionUuid or images", modeLabel)
	}

	existingCols := len(dto.Comparisons[0].Images) - len(conf.Sources)
	if err := c.uploadCells(ctx, conf, uploadPlan{
		tempDir:      tempDir,
		browserID:    browserID,
		collection:   editResp.CollectionUUID,
		uuidMatrix:   editResp.Images,
		slots:        slots,
		extracted:    extractedPaths,
		existingCols: existingCols,
		totalExtract: totalExtract,
	}, em); err != nil {
		return "", err
	}

	resultKey := editResp.Key
	if resultKey == "" {
		resultKey = conf.TargetKey
	}
	return c.base + "/c/" + resultKey, nil
}

// extractFrames renders every selected source at every base frame's
// offset-corrected position into tempDir. Returns the unit count, the
// per-source file paths, and the per-source per-row display names.
func (c *Client) extractFrames(ctx context.Context, conf AppendConfig, tempDir string, em *emitter) (int, [][]string, [][]string, error) {
	totalExtract := len(conf.BaseFrames) * len(conf.Sources)
	extracted := 0

	paths := make([][]string, len(conf.Sources))
	imageNames := make([][]string, len(conf.Sources))

	for listIdx, src := range conf.Sources {
		sessionIdx := conf.SourceIndices[listIdx]
		paths[listIdx] = make([]string, len(conf.BaseFrames))
		imageNames[listIdx] = make([]string, len(conf.BaseFrames))

		for row, baseFrame := range conf.BaseFrames {
			em.step("extract", extracted+1, totalExtract)

			offset := conf.Offsets[baseFrame][sessionIdx]
			target := frames.Effective(baseFrame, offset, src.TotalFrames())

			framePath := filepath.Join(tempDir, fmt.Sprintf("output_%d_cmp_%d_%d.png", listIdx, row, target))
			if err := src.RenderFrame(ctx, target, framePath); err != nil {
				return 0, nil, nil, fmt.Errorf("rendering frame %d of %q: %w", target, src.Name(), err)
			}

			name := src.Name()
			if conf.FrameType {
				name = "(" + pictTag(src, target) + ") " + name
			}
			paths[listIdx][row] = framePath
			imageNames[listIdx][row] = name

			extracted++
			// Upload count is unknown until the DTO is prepared, so
			// percent assumes an equal-sized upload stage for now.
			em.percent(extracted, totalExtract*2)
		}
	}
	return totalExtract, paths, imageNames, nil
}

func pictTag(src video.Source, frame int) string {
	tag := strings.TrimSpace(src.PictType(frame))
	if tag == "" {
		return "?"
	}
	return tag[:1]
}

// prepareAppendDTO deep-copies the captured edit document, validates
// its shape against the expected row count, collects the existing file
// cells to re-upload, optionally normalizes row names, and appends one
// new image slot per selected source to every row.
func prepareAppendDTO(conf AppendConfig, imageNames [][]string) (*CollectionDTO, []existingSlot, error) {
	dto, err := conf.EditDTO.Clone()
	if err != nil {
		return nil, nil, err
	}

	if len(dto.Comparisons) != conf.ExpectedComparisonCount {
		return nil, nil, validationf(
			"target edit payload mismatch: expected %d comparisons, got %d",
			conf.ExpectedComparisonCount, len(dto.Comparisons))
	}

	// Row 0's column count is authoritative only because every row is
	// checked equal first; new columns are always appended last.
	cols := -1
	for row := range dto.Comparisons {
		n := len(dto.Comparisons[row].Images)
		if cols == -1 {
			cols = n
		} else if n != cols {
			return nil, nil, validationf("target comparison has inconsistent source column counts")
		}
	}
	if cols <= 0 {
		return nil, nil, validationf("target comparison has inconsistent source column counts")
	}

	if len(dto.Files) != conf.ExpectedComparisonCount {
		return nil, nil, validationf("invalid clone files matrix: expected %d rows", conf.ExpectedComparisonCount)
	}

	var slots []existingSlot
	for row, fileRow := range dto.Files {
		if len(fileRow) < cols {
			return nil, nil, validationf("invalid clone files row %d", row)
		}
		for col := 0; col < cols; col++ {
			cell := fileRow[col]
			fileURL := strings.TrimSpace(cell.URL)
			if fileURL == "" {
				continue
			}
			name := strings.TrimSpace(cell.Name)
			if name == "" {
				name = fmt.Sprintf("existing_%d_%d", row, col)
			}
			mimeType := strings.TrimSpace(cell.Type)
			if mimeType == "" {
				mimeType = "application/octet-stream"
			}
			slots = append(slots, existingSlot{row: row, col: col, url: fileURL, name: name, mimeType: mimeType})
		}
	}

	if conf.NormalizeNames && conf.FrameLabel != nil {
		maxFrame := 0
		for _, f := range conf.BaseFrames {
			if f > maxFrame {
				maxFrame = f
			}
		}
		for row, baseFrame := range conf.BaseFrames {
			dto.Comparisons[row].Name = conf.FrameLabel(baseFrame, maxFrame)
		}
	}

	for row := range dto.Comparisons {
		comp := &dto.Comparisons[row]
		if comp.SortOrder == nil {
			comp.SortOrder = intPtr(row)
		}
		for srcPos := range conf.Sources {
			comp.Images = append(comp.Images, Image{
				Name:      imageNames[srcPos][row],
				SortOrder: intPtr(len(comp.Images)),
			})
		}
	}

	return dto, slots, nil
}

// buildAppendFields flattens the DTO into the form fields the remote
// API expects. Row and image field order mirrors the DTO arrays.
func buildAppendFields(conf AppendConfig, dto *CollectionDTO, browserID string) []formField {
	var fields []formField
	add := func(key, value string) {
		fields = append(fields, formField{key: key, value: value})
	}

	if conf.PostMode == "edit" {
		add("key", dto.KeyOrDefault(conf.TargetKey))
	}

	collectionName := conf.GeneratedCollectionName
	if collectionName == "" {
		collectionName = conf.TargetCollectionName
	}
	if collectionName == "" {
		collectionName = dto.NameOrDefault("Comp " + conf.TargetKey)
	}
	add("collectionName", collectionName)
	add("browserId", browserID)

	add("public", strconv.FormatBool(dto.Public))
	add("hentai", strconv.FormatBool(dto.Hentai))
	optimize := true
	if dto.OptimizeImages != nil {
		optimize = *dto.OptimizeImages
	}
	add("optimizeImages", strconv.FormatBool(optimize))

	for _, simple := range []struct {
		key   string
		value any
	}{
		{"removeAfter", dto.RemoveAfter},
		{"canvasMode", dto.CanvasMode},
		{"imageFit", dto.ImageFit},
		{"imagePosition", dto.ImagePosition},
	} {
		if s := scalarString(simple.value); s != "" {
			add(simple.key, s)
		}
	}

	if s := valueOrScalar(dto.TmdbID); s != "" {
		add("tmdbId", s)
	}
	if s := valueOrScalar(dto.MetaCollection); s != "" {
		add("metaCollection", s)
	}

	for i, tag := range dto.Tags {
		if s := valueOrScalar(tag); s != "" {
			add(fmt.Sprintf("tags[%d]", i), s)
		}
	}

	for row, comp := range dto.Comparisons {
		if comp.UUID != nil && *comp.UUID != "" {
			add(fmt.Sprintf("comparisons[%d].uuid", row), *comp.UUID)
		}
		add(fmt.Sprintf("comparisons[%d].name", row), comp.Name)
		if comp.SortOrder != nil {
			add(fmt.Sprintf("comparisons[%d].sortOrder", row), strconv.Itoa(*comp.SortOrder))
		}
		for col, img := range comp.Images {
			if img.UUID != nil && *img.UUID != "" {
				add(fmt.Sprintf("comparisons[%d].images[%d].uuid", row, col), *img.UUID)
			}
			add(fmt.Sprintf("comparisons[%d].images[%d].name", row, col), img.Name)
			if img.SortOrder != nil {
				add(fmt.Sprintf("comparisons[%d].images[%d].sortOrder", row, col), strconv.Itoa(*img.SortOrder))
			}
		}
	}

	return fields
}

// scalarString renders a string/number scalar, or "" for nil/empty.
func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// valueOrScalar handles the API's {value: ...} object form alongside
// plain scalars (tmdbId, metaCollection, tags).
func valueOrScalar(v any) string {
	if obj, ok := v.(map[string]any); ok {
		return scalarString(obj["value"])
	}
	return scalarString(v)
}

type uploadPlan struct {
	tempDir      string
	browserID    string
	collection   string
	uuidMatrix   [][]*string
	slots        []existingSlot
	extracted    [][]string
	existingCols int
	totalExtract int
}

// uploadCells walks the server's UUID matrix row by row: existing
// columns get their prior file re-uploaded (download then upload), new
// columns get the locally rendered frame.
func (c *Client) uploadCells(ctx context.Context, conf AppendConfig, plan uploadPlan, em *emitter) error {
	slotAt := make(map[[2]int]existingSlot, len(plan.slots))
	for _, s := range plan.slots {
		slotAt[[2]int{s.row, s.col}] = s
	}

	uploaded := 0
	totalUpload := len(plan.slots) + plan.totalExtract
	totalProgress := plan.totalExtract + totalUpload
	em.percent(plan.totalExtract, totalProgress)

	for row := range conf.BaseFrames {
		if row >= len(plan.uuidMatrix) {
			return validationf("edit response missing comparison row %d", row)
		}
		matrixRow := plan.uuidMatrix[row]

		for col := 0; col < plan.existingCols; col++ {
			imageUUID, err := matrixUUID(matrixRow, row, col)
			if err != nil {
				return err
			}
			slot, ok := slotAt[[2]int{row, col}]
			if !ok {
				continue
			}

			em.step("upload", uploaded+1, totalUpload)
			data, err := c.downloadImage(ctx, slot.url)
			if err != nil {
				return err
			}
			if err := c.uploadImage(ctx, plan.collection, imageUUID, plan.browserID, slot.name, slot.mimeType, data); err != nil {
				return err
			}
			uploaded++
			em.percent(plan.totalExtract+uploaded, totalProgress)
		}

		for listIdx := range conf.Sources {
			col := plan.existingCols + listIdx
			imageUUID, err := matrixUUID(matrixRow, row, col)
			if err != nil {
				return err
			}

			framePath := plan.extracted[listIdx][row]
			data, err := os.ReadFile(framePath)
			if err != nil {
				return fmt.Errorf("reading rendered frame %q: %w", framePath, err)
			}

			em.step("upload", uploaded+1, totalUpload)
			if err := c.uploadImage(ctx, plan.collection, imageUUID, plan.browserID, filepath.Base(framePath), "image/png", data); err != nil {
				return err
			}
			uploaded++
			em.percent(plan.totalExtract+uploaded, totalProgress)
		}
	}
	return nil
}

func matrixUUID(matrixRow []*string, row, col int) (string, error) {
	if col >= len(matrixRow) || matrixRow[col] == nil || strings.TrimSpace(*matrixRow[col]) == "" {
		return "", validationf("edit response missing UUID for comparison %d, column %d", row+1, col+1)
	}
	return strings.TrimSpace(*matrixRow[col]), nil
}
