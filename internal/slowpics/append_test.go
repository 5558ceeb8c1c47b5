package slowpics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supertouch/offsetcomp/internal/video"
)

// fakeSource renders deterministic bytes and records requested frames.
type fakeSource struct {
	name     string
	total    int
	pictType string
	rendered []int
}

func (s *fakeSource) Name() string     { return s.name }
func (s *fakeSource) TotalFrames() int { return s.total }
func (s *fakeSource) PictType(int) string {
	if s.pictType == "" {
		return "?"
	}
	return s.pictType
}

func (s *fakeSource) RenderFrame(_ context.Context, n int, outPath string) error {
	if n < 0 || n >= s.total {
		return fmt.Errorf("frame %d out of range", n)
	}
	s.rendered = append(s.rendered, n)
	return os.WriteFile(outPath, []byte(fmt.Sprintf("%s-frame-%d", s.name, n)), 0644)
}

func baseEditDTO() *CollectionDTO {
	return &CollectionDTO{
		Key:    strPtr("abc123"),
		Name:   strPtr("My Comp"),
		Public: true,
		Comparisons: []Comparison{
			{UUID: strPtr("c1"), Name: "Intro / 120", SortOrder: intPtr(0),
				Images: []Image{{UUID: strPtr("i1"), Name: "BD", SortOrder: intPtr(0)}}},
			{UUID: strPtr("c2"), Name: "Credits / 9000", SortOrder: intPtr(1),
				Images: []Image{{UUID: strPtr("i2"), Name: "BD", SortOrder: intPtr(1)}}},
		},
		Files: [][]FileRef{
			{{URL: "/img/1.png", Name: "bd_1.png", Type: "image/png"}},
			{{URL: "/img/2.png", Name: "bd_2.png", Type: "image/png"}},
		},
	}
}

func appendConfig(src video.Source) AppendConfig {
	return AppendConfig{
		ID:                      "op-append",
		TargetKey:               "abc123",
		PostMode:                "clone",
		EditDTO:                 baseEditDTO(),
		BaseFrames:              []int{120, 9000},
		SourceIndices:           []int{1},
		Sources:                 []video.Source{src},
		Offsets:                 map[int]map[int]int{120: {1: -20}, 9000: {1: 0}},
		TargetCollectionName:    "My Comp",
		ExpectedComparisonCount: 2,
	}
}

func TestPrepareAppendDTO_AppendsSlotsPerSource(t *testing.T) {
	src := &fakeSource{name: "WEB", total: 10000}
	conf := appendConfig(src)
	imageNames := [][]string{{"WEB", "WEB"}}

	dto, slots, err := prepareAppendDTO(conf, imageNames)
	require.NoError(t, err)

	// Original copy untouched.
	assert.Len(t, conf.EditDTO.Comparisons[0].Images, 1)

	require.Len(t, dto.Comparisons, 2)
	for row := range dto.Comparisons {
		require.Len(t, dto.Comparisons[row].Images, 2)
		added := dto.Comparisons[row].Images[1]
		assert.Nil(t, added.UUID)
		assert.Equal(t, "WEB", added.Name)
		assert.Equal(t, 1, *added.SortOrder)
	}

	require.Len(t, slots, 2)
	assert.Equal(t, existingSlot{row: 0, col: 0, url: "/img/1.png", name: "bd_1.png", mimeType: "image/png"}, slots[0])
}

func TestPrepareAppendDTO_InconsistentColumnsFailsBeforeAnyUpload(t *testing.T) {
	src := &fakeSource{name: "WEB", total: 10000}
	conf := appendConfig(src)
	conf.EditDTO.Comparisons[1].Images = append(conf.EditDTO.Comparisons[1].Images,
		Image{UUID: strPtr("i3"), Name: "extra", SortOrder: intPtr(1)})

	_, _, err := prepareAppendDTO(conf, [][]string{{"WEB", "WEB"}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "inconsistent source column counts")
}

func TestPrepareAppendDTO_RowCountMismatch(t *testing.T) {
	src := &fakeSource{name: "WEB", total: 10000}
	conf := appendConfig(src)
	conf.ExpectedComparisonCount = 3
	conf.BaseFrames = []int{1, 2, 3}

	_, _, err := prepareAppendDTO(conf, [][]string{{"WEB", "WEB", "WEB"}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "expected 3 comparisons")
}

func TestPrepareAppendDTO_NormalizeNames(t *testing.T) {
	src := &fakeSource{name: "WEB", total: 10000}
	conf := appendConfig(src)
	conf.NormalizeNames = true
	conf.FrameLabel = func(frame, maxFrame int) string {
		return fmt.Sprintf("t / %d", frame)
	}

	dto, _, err := prepareAppendDTO(conf, [][]string{{"WEB", "WEB"}})
	require.NoError(t, err)
	assert.Equal(t, "t / 120", dto.Comparisons[0].Name)
	assert.Equal(t, "t / 9000", dto.Comparisons[1].Name)
}

func TestBuildAppendFields_OrderMirrorsDTO(t *testing.T) {
	src := &fakeSource{name: "WEB", total: 10000}
	conf := appendConfig(src)
	conf.PostMode = "edit"
	conf.GeneratedCollectionName = "My Comp vs WEB"

	dto, _, err := prepareAppendDTO(conf, [][]string{{"WEB", "WEB"}})
	require.NoError(t, err)
	dto.RemoveAfter = float64(7)
	dto.TmdbID = map[string]any{"value": "movie/123"}
	dto.Tags = []any{"anime", map[string]any{"value": "remux"}}

	fields := buildAppendFields(conf, dto, "browser-1")

	keys := make([]string, len(fields))
	byKey := make(map[string]string)
	for i, f := range fields {
		keys[i] = f.key
		byKey[f.key] = f.value
	}

	assert.Equal(t, "abc123", byKey["key"])
	assert.Equal(t, "My Comp vs WEB", byKey["collectionName"])
	assert.Equal(t, "browser-1", byKey["browserId"])
	assert.Equal(t, "true", byKey["public"])
	assert.Equal(t, "7", byKey["removeAfter"])
	assert.Equal(t, "movie/123", byKey["tmdbId"])
	assert.Equal(t, "anime", byKey["tags[0]"])
	assert.Equal(t, "remux", byKey["tags[1]"])

	// Existing column keeps its uuid; the new column has none.
	assert.Equal(t, "i1", byKey["comparisons[0].images[0].uuid"])
	assert.NotContains(t, byKey, "comparisons[0].images[1].uuid")
	assert.Equal(t, "WEB", byKey["comparisons[0].images[1].name"])

	// Rows and images appear in DTO array order.
	var ordered []string
	for _, k := range keys {
		if strings.HasPrefix(k, "comparisons[") && strings.HasSuffix(k, ".name") {
			ordered = append(ordered, k)
		}
	}
	assert.Equal(t, []string{
		"comparisons[0].name",
		"comparisons[0].images[0].name",
		"comparisons[0].images[1].name",
		"comparisons[1].name",
		"comparisons[1].images[0].name",
		"comparisons[1].images[1].name",
	}, ordered)
}

func TestHasNonstandardExistingNames(t *testing.T) {
	dto := &CollectionDTO{Comparisons: []Comparison{
		{Images: []Image{{Name: "(I) BD"}, {Name: "(P) WEB"}}},
	}}
	assert.False(t, HasNonstandardExistingNames(dto))

	dto.Comparisons[0].Images = append(dto.Comparisons[0].Images, Image{Name: "plain"})
	assert.True(t, HasNonstandardExistingNames(dto))
}

func TestRunAppend_FrameCountMismatchMakesNoRequests(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	src := &fakeSource{name: "WEB", total: 10000}
	conf := appendConfig(src)
	conf.BaseFrames = []int{120} // target has 2 rows

	c := testClient(t, srv)
	var events []Event
	c.RunAppend(context.Background(), conf, func(e Event) { events = append(events, e) })

	assert.Equal(t, int32(0), hits.Load())
	assert.Empty(t, src.rendered)
	require.Len(t, events, 2)
	assert.Equal(t, EventError, events[0].Type)
	assert.Contains(t, events[0].Err.Error(), "frame count mismatch")
	assert.Equal(t, EventFinished, events[1].Type)
}

func TestRunAppend_EndToEnd(t *testing.T) {
	var uploads atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/comparison", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "existing-bytes")
	})
	mux.HandleFunc("/upload/comparison", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "My Comp", r.FormValue("collectionName"))
		assert.NotEmpty(t, r.FormValue("browserId"))
		json.NewEncoder(w).Encode(map[string]any{
			"key":            "newkey",
			"collectionUuid": "coll-uuid",
			"images": [][]*string{
				{strPtr("u00"), strPtr("u01")},
				{strPtr("u10"), strPtr("u11")},
			},
		})
	})
	mux.HandleFunc("/upload/image/", func(w http.ResponseWriter, r *http.Request) {
		uploads.Add(1)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "coll-uuid", r.FormValue("collectionUuid"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := &fakeSource{name: "WEB", total: 10000}
	conf := appendConfig(src)
	conf.EditDTO.Files = [][]FileRef{
		{{URL: srv.URL + "/img/1.png", Name: "bd_1.png", Type: "image/png"}},
		{{URL: srv.URL + "/img/2.png", Name: "bd_2.png", Type: "image/png"}},
	}

	c := testClient(t, srv)
	var events []Event
	c.RunAppend(context.Background(), conf, func(e Event) { events = append(events, e) })

	// Offset -20 on frame 120, none on 9000.
	assert.Equal(t, []int{100, 9000}, src.rendered)
	// 2 existing cells re-uploaded + 2 new cells.
	assert.Equal(t, int32(4), uploads.Load())

	var url string
	finished := 0
	for _, e := range events {
		switch e.Type {
		case EventURL:
			url = e.URL
		case EventError:
			t.Fatalf("unexpected error event: %v", e.Err)
		case EventFinished:
			finished++
		}
	}
	assert.Equal(t, srv.URL+"/c/newkey", url)
	assert.Equal(t, 1, finished)
}

func TestRunAppend_PostFailureRetainsTaxonomy(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/comparison", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/upload/comparison", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message":"login required"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := &fakeSource{name: "WEB", total: 10000}
	c := testClient(t, srv)

	var errEvent Event
	c.RunAppend(context.Background(), appendConfig(src), func(e Event) {
		if e.Type == EventError {
			errEvent = e
		}
	})
	require.NotNil(t, errEvent.Err)
	var perm *PermissionError
	assert.ErrorAs(t, errEvent.Err, &perm)
}

func TestExtractFrames_PictTypeTagging(t *testing.T) {
	src := &fakeSource{name: "WEB", total: 10000, pictType: "B"}
	conf := appendConfig(src)
	conf.FrameType = true

	c := &Client{sleep: func(time.Duration) {}}
	em := newEmitter("x", nil)
	_, _, imageNames, err := c.extractFrames(context.Background(), conf, t.TempDir(), em)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"(B) WEB", "(B) WEB"}}, imageNames)
}

func TestMatrixUUID(t *testing.T) {
	row := []*string{strPtr("a"), nil, strPtr("  ")}
	got, err := matrixUUID(row, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	_, err = matrixUUID(row, 0, 1)
	assert.Error(t, err)
	_, err = matrixUUID(row, 0, 2)
	assert.Error(t, err)
	_, err = matrixUUID(row, 0, 5)
	assert.Error(t, err)
}
