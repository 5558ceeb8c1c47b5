// Package config loads ~/.offsetcomp/config.yaml: the cookie jar
// location, collection defaults, sampling ranges, and source
// definitions the commands share.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// MinCollectionNameLen is the shortest collection name the remote
// service accepts after template resolution.
const MinCollectionNameLen = 3

// Config represents ~/.offsetcomp/config.yaml.
type Config struct {
	// BaseURL overrides the slow.pics endpoint, mainly for testing
	// against a local stand-in. Empty means production.
	BaseURL string `yaml:"base_url,omitempty"`
	// Cookies is the path to a JSON cookie-jar file (name -> value).
	Cookies string `yaml:"cookies,omitempty"`
	// FrameType enables "(I/P/B) Name" picture-type tagging of uploaded
	// image names.
	FrameType bool `yaml:"frame_type"`
	// StateFile is where selected frames and offsets persist between
	// sessions.
	StateFile string `yaml:"state_file,omitempty"`

	Collection CollectionConfig `yaml:"collection,omitempty"`
	Sampling   SamplingConfig   `yaml:"sampling,omitempty"`
	Sources    []SourceConfig   `yaml:"sources,omitempty"`
}

// CollectionConfig holds the defaults for brand-new comparisons.
type CollectionConfig struct {
	// NameTemplate may contain {placeholder} marks resolved at upload
	// time ({script_name} and friends).
	NameTemplate   string   `yaml:"name_template,omitempty"`
	Public         bool     `yaml:"public"`
	OptimizeImages *bool    `yaml:"optimize_images,omitempty"`
	TMDBID         string   `yaml:"tmdb_id,omitempty"`
	RemoveAfter    string   `yaml:"remove_after,omitempty"`
	Tags           []string `yaml:"tags,omitempty"`
}

// SamplingConfig controls random frame generation. Random frames are
// drawn from [Start, End) clamped to the shortest source.
type SamplingConfig struct {
	Start  int `yaml:"start,omitempty"`
	End    int `yaml:"end,omitempty"`
	Random int `yaml:"random,omitempty"`
	// Manual frames are always included on top of random ones.
	Manual []int `yaml:"manual,omitempty"`
}

// SourceConfig names a directory of numbered PNG frames to load as one
// comparison column.
type SourceConfig struct {
	Name string `yaml:"name"`
	Dir  string `yaml:"dir"`
}

// OptimizeImagesOrDefault returns the configured value, defaulting to
// true the way the remote form does.
func (c CollectionConfig) OptimizeImagesOrDefault() bool {
	if c.OptimizeImages == nil {
		return true
	}
	return *c.OptimizeImages
}

// DefaultPath returns ~/.offsetcomp/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".offsetcomp", "config.yaml"), nil
}

// DefaultStatePath returns ~/.offsetcomp/state.json.
func DefaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".offsetcomp", "state.json"), nil
}

// Parse parses config.yaml bytes into a Config.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal serializes a Config to YAML bytes.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Load reads the config file at path. A missing file yields the zero
// config rather than an error so the tool works unconfigured.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

func (c Config) validate() error {
	if c.Sampling.Random < 0 {
		return fmt.Errorf("invalid config: sampling.random must not be negative")
	}
	if c.Sampling.Random > 0 && c.Sampling.End <= c.Sampling.Start {
		return fmt.Errorf("invalid config: sampling range [%d, %d) is empty",
			c.Sampling.Start, c.Sampling.End)
	}
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("invalid config: sources[%d] has no name", i)
		}
		if src.Dir == "" {
			return fmt.Errorf("invalid config: source %q has no dir", src.Name)
		}
	}
	return nil
}

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// ResolveCollectionName substitutes {placeholder} marks in template
// from vars and validates the result. Unknown placeholders and names
// shorter than MinCollectionNameLen are errors.
func ResolveCollectionName(template string, vars map[string]string) (string, error) {
	var unknown []string
	name := placeholderRe.ReplaceAllStringFunc(template, func(mark string) string {
		key := mark[1 : len(mark)-1]
		value, ok := vars[key]
		if !ok {
			unknown = append(unknown, key)
			return mark
		}
		return value
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("unresolved collection name placeholder {%s}", unknown[0])
	}
	name = strings.TrimSpace(name)
	if len(name) < MinCollectionNameLen {
		return "", fmt.Errorf("collection name %q is too short (minimum %d characters)", name, MinCollectionNameLen)
	}
	return name, nil
}

// FrameLabel names a comparison row as "<padded frame> / <frame>".
// The trailing " / <frame>" part is what a later target load parses to
// recover the frame map, so every generated row name must carry it.
func FrameLabel(frame, maxFrame int) string {
	width := len(strconv.Itoa(maxFrame))
	return fmt.Sprintf("%0*d / %d", width, frame, frame)
}
