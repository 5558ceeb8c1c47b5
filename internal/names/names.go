// Package names recovers frame numbers from remote comparison row names
// and builds the outgoing name strings used when appending sources.
package names

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// jsonVarRe holds the patterns for the page variables the remote
	// service embeds. Read-only after init, so concurrent loads are safe.
	jsonVarRe = map[string]*regexp.Regexp{
		"collection":    jsonVarPattern("collection"),
		"collectionDTO": jsonVarPattern("collectionDTO"),
	}
	compKeyRe     = regexp.MustCompile(`slow\.pics/([cs])/([A-Za-z0-9]+)`)
	bareKeyRe     = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	trailingNumRe = regexp.MustCompile(`/\s*(\d+)\s*$`)
)

func jsonVarPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`var\s+` + regexp.QuoteMeta(name) + `\s*=\s*(\{(?s).*?\});`)
}

// ExtractJSONVar pulls an embedded `var <name> = {...};` JSON object out
// of an HTML page. The remote view and clone pages both carry their
// payload this way.
func ExtractJSONVar(html, name string) (map[string]any, error) {
	re, ok := jsonVarRe[name]
	if !ok {
		re = jsonVarPattern(name)
	}
	m := re.FindStringSubmatch(html)
	if m == nil {
		return nil, fmt.Errorf("could not find %q in page", name)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(m[1]), &payload); err != nil {
		return nil, fmt.Errorf("parsing %q payload: %w", name, err)
	}
	return payload, nil
}

// ParseCompKey extracts the alphanumeric comparison key from a
// slow.pics /c/ or /s/ URL, or accepts a bare key. Returns "" when the
// text holds neither.
func ParseCompKey(text string) string {
	candidate := strings.TrimSpace(text)
	if candidate == "" {
		return ""
	}
	if m := compKeyRe.FindStringSubmatch(candidate); m != nil {
		return m[2]
	}
	if bareKeyRe.MatchString(candidate) {
		return candidate
	}
	return ""
}

// ParseViewPath normalizes a URL or bare key to a "/c/<key>" or
// "/s/<key>" path. Bare keys default to the /c/ form. Returns "" when
// the text is not a recognizable target.
func ParseViewPath(text string) string {
	candidate := strings.TrimSpace(text)
	if candidate == "" {
		return ""
	}
	if m := compKeyRe.FindStringSubmatch(candidate); m != nil {
		return "/" + m[1] + "/" + m[2]
	}
	if bareKeyRe.MatchString(candidate) {
		return "/c/" + candidate
	}
	return ""
}

// ParseFramesFromCompNames recovers frame numbers from comparison row
// names. By convention a row name ends with "/ <frame>". Rows whose
// name does not match are reported in failed, preserving row order in
// both outputs.
func ParseFramesFromCompNames(compNames []string) (parsed []int, failed []int) {
	for i, name := range compNames {
		m := trailingNumRe.FindStringSubmatch(name)
		if m == nil {
			failed = append(failed, i)
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			failed = append(failed, i)
			continue
		}
		parsed = append(parsed, n)
	}
	return parsed, failed
}

// BuildAppendCollectionName appends each source name to the target
// collection name with " vs " joins, skipping names already present as
// whole " vs "-delimited tokens so repeated appends do not stack
// duplicate suffixes. An empty target name yields the fallback.
func BuildAppendCollectionName(targetName string, sourceNames []string, fallbackName string) string {
	if targetName == "" {
		return fallbackName
	}
	result := targetName
	for _, src := range sourceNames {
		re := regexp.MustCompile(`(^| vs )` + regexp.QuoteMeta(src) + `($| vs )`)
		if re.MatchString(result) {
			continue
		}
		result = result + " vs " + src
	}
	return result
}
