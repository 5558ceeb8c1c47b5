// Package slowpics implements the slow.pics remote protocol: loading an
// existing comparison's edit payload, appending new source columns to
// it, and uploading brand-new comparisons.
package slowpics

import (
	"encoding/json"
	"fmt"
)

// DefaultBaseURL is the production endpoint. Tests point a Client at an
// httptest server instead.
const DefaultBaseURL = "https://slow.pics"

// Image is one cell of a comparison row. A nil UUID marks a slot the
// server has not assigned yet (new columns before submit).
type Image struct {
	UUID      *string `json:"uuid"`
	Name      string  `json:"name"`
	SortOrder *int    `json:"sortOrder"`
}

// Comparison is one row of a collection: one image per source column.
type Comparison struct {
	UUID      *string `json:"uuid"`
	Name      string  `json:"name"`
	SortOrder *int    `json:"sortOrder"`
	Images    []Image `json:"images"`
}

// FileRef points at an already-uploaded image that must be re-uploaded
// verbatim to survive an edit.
type FileRef struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// CollectionDTO is the mutable edit document extracted from the remote
// clone/edit page. Loosely-typed fields mirror the server's payload,
// which mixes strings, numbers, and objects for the same keys.
type CollectionDTO struct {
	Key            *string      `json:"key"`
	Name           *string      `json:"name"`
	Public         bool         `json:"public"`
	Hentai         bool         `json:"hentai"`
	OptimizeImages *bool        `json:"optimizeImages"`
	RemoveAfter    any          `json:"removeAfter"`
	CanvasMode     any          `json:"canvasMode"`
	ImageFit       any          `json:"imageFit"`
	ImagePosition  any          `json:"imagePosition"`
	TmdbID         any          `json:"tmdbId"`
	MetaCollection any          `json:"metaCollection"`
	Tags           []any        `json:"tags"`
	Comparisons    []Comparison `json:"comparisons"`
	Files          [][]FileRef  `json:"files"`
}

// DecodeCollectionDTO converts the loosely-typed JSON object extracted
// from the page into a CollectionDTO.
func DecodeCollectionDTO(payload map[string]any) (*CollectionDTO, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("re-encoding collectionDTO: %w", err)
	}
	var dto CollectionDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("decoding collectionDTO: %w", err)
	}
	return &dto, nil
}

// Clone deep-copies the DTO through a JSON round trip so an operation
// can mutate its own copy while the loaded context keeps the original.
func (d *CollectionDTO) Clone() (*CollectionDTO, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("copying collectionDTO: %w", err)
	}
	var cp CollectionDTO
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("copying collectionDTO: %w", err)
	}
	return &cp, nil
}

// KeyOrDefault returns the DTO key, or fallback when unset.
func (d *CollectionDTO) KeyOrDefault(fallback string) string {
	if d.Key != nil && *d.Key != "" {
		return *d.Key
	}
	return fallback
}

// NameOrDefault returns the DTO name, or fallback when unset.
func (d *CollectionDTO) NameOrDefault(fallback string) string {
	if d.Name != nil && *d.Name != "" {
		return *d.Name
	}
	return fallback
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
