package slowpics

import (
	"context"
	"fmt"

	"github.com/supertouch/offsetcomp/internal/names"
)

// TargetLoadConfig is the immutable input for one target load.
type TargetLoadConfig struct {
	ID          string // correlation id
	TargetText  string // raw URL/key as the user entered it
	ViewPath    string // normalized /c/<key> or /s/<key>
	CookiesPath string
	// FrameType is threaded through for the append stage; the load
	// itself does not use it.
	FrameType bool
}

// TargetLoadResult is published atomically on success; nothing is
// published on failure.
type TargetLoadResult struct {
	Collection map[string]any
	SetKey     string
	EditDTO    *CollectionDTO
	PostMode   string // "clone" or "edit"
}

// RowNames extracts the display name of every comparison row from the
// public collection payload. Rows that are not objects yield "" so the
// caller's parse step reports them as failed at the right index.
func (r *TargetLoadResult) RowNames() []string {
	comparisons, _ := r.Collection["comparisons"].([]any)
	rowNames := make([]string, 0, len(comparisons))
	for _, raw := range comparisons {
		comp, ok := raw.(map[string]any)
		if !ok {
			rowNames = append(rowNames, "")
			continue
		}
		name, _ := comp["name"].(string)
		rowNames = append(rowNames, name)
	}
	return rowNames
}

// CollectionName resolves the display name, falling back to the edit
// payload when the public page omits it.
func (r *TargetLoadResult) CollectionName() string {
	if name, _ := r.Collection["name"].(string); name != "" {
		return name
	}
	if r.EditDTO != nil {
		return r.EditDTO.NameOrDefault("")
	}
	return ""
}

// LoadTarget fetches and parses a remote comparison's public and
// edit-mode payloads:
//
//  1. GET the public view page and extract the embedded `collection`
//     JSON variable.
//  2. Resolve the set key from the payload, falling back to parsing
//     the input text.
//  3. GET the clone page with stored cookies and extract
//     `collectionDTO`; 401/403 means the user must authenticate.
func (c *Client) LoadTarget(ctx context.Context, conf TargetLoadConfig) (*TargetLoadResult, error) {
	// Re-read the jar on every load so a login performed after startup
	// is picked up without restarting the tool.
	if conf.CookiesPath != "" {
		if err := c.ReloadCookies(conf.CookiesPath); err != nil {
			return nil, err
		}
	}

	status, body, err := c.get(ctx, c.base+conf.ViewPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load target comparison: %w", err)
	}
	if status != 200 {
		return nil, fmt.Errorf("failed to load target comparison: HTTP %d", status)
	}

	collection, err := names.ExtractJSONVar(string(body), "collection")
	if err != nil {
		return nil, fmt.Errorf("failed to load target comparison: %w", err)
	}

	setKey, _ := collection["key"].(string)
	if setKey == "" {
		setKey = names.ParseCompKey(conf.TargetText)
		if setKey == "" {
			return nil, fmt.Errorf("could not resolve target comparison data")
		}
	}

	cloneStatus, cloneBody, err := c.get(ctx, c.base+"/c/"+setKey+"/clone")
	if err != nil {
		return nil, fmt.Errorf("failed to load clone page: %w", err)
	}
	switch {
	case cloneStatus == 200:
		// fall through to DTO extraction
	case cloneStatus == 401 || cloneStatus == 403:
		return nil, &PermissionError{Mode: "clone", Detail: "login with a suitable account first"}
	default:
		return nil, &HTTPError{Mode: "clone", Status: cloneStatus}
	}

	dtoPayload, err := names.ExtractJSONVar(string(cloneBody), "collectionDTO")
	if err != nil {
		return nil, fmt.Errorf("failed to load clone page: %w", err)
	}
	editDTO, err := DecodeCollectionDTO(dtoPayload)
	if err != nil {
		return nil, fmt.Errorf("failed to load clone page: %w", err)
	}

	return &TargetLoadResult{
		Collection: collection,
		SetKey:     setKey,
		EditDTO:    editDTO,
		PostMode:   "clone",
	}, nil
}

// RunTargetLoad executes LoadTarget and delivers the outcome through
// the event stream: EventError on failure, then EventFinished either
// way. The result callback runs before the finished event so the owner
// can publish state while the operation is still tracked.
func (c *Client) RunTargetLoad(ctx context.Context, conf TargetLoadConfig, emit EmitFunc, onResult func(*TargetLoadResult)) {
	em := newEmitter(conf.ID, emit)
	defer em.finish()

	result, err := c.LoadTarget(ctx, conf)
	if err != nil {
		em.error(fmt.Errorf("target load error: %w", err))
		return
	}
	if onResult != nil {
		onResult(result)
	}
}
