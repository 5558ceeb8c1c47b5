package main

import (
	"fmt"
	"os"

	"github.com/supertouch/offsetcomp/internal/config"
	"github.com/supertouch/offsetcomp/internal/session"
	"github.com/supertouch/offsetcomp/internal/slowpics"
	"github.com/supertouch/offsetcomp/internal/video"
)

// loadToolConfig reads the config file named by --config, falling back
// to ~/.offsetcomp/config.yaml.
func loadToolConfig() (config.Config, error) {
	path := configFlag
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(path)
}

// statePath resolves the state file location from config or default.
func statePath(cfg config.Config) (string, error) {
	if cfg.StateFile != "" {
		return cfg.StateFile, nil
	}
	return config.DefaultStatePath()
}

// newSession builds a session with the configured sources loaded.
func newSession(cfg config.Config) (*session.Session, error) {
	s := session.New(nil)
	if len(cfg.Sources) == 0 {
		return s, nil
	}
	sources := make([]video.Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		src, err := video.OpenDir(sc.Name, sc.Dir)
		if err != nil {
			return nil, fmt.Errorf("loading source %q: %w", sc.Name, err)
		}
		sources = append(sources, src)
	}
	s.LoadSources(sources)
	return s, nil
}

// newClient builds the slow.pics client from config.
func newClient(cfg config.Config) (*slowpics.Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = slowpics.DefaultBaseURL
	}
	return slowpics.NewClient(base, cfg.Cookies)
}

// restoreState loads the state file into the session if one exists.
func restoreState(s *session.Session, cfg config.Config) error {
	path, err := statePath(cfg)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return s.LoadState(path)
}

// saveState persists the session's frames and offsets.
func saveState(s *session.Session, cfg config.Config) error {
	path, err := statePath(cfg)
	if err != nil {
		return err
	}
	return s.SaveState(path)
}

// selectSources resolves --sources names to session indices. Empty
// means every loaded source.
func selectSources(s *session.Session, wanted []string) ([]int, error) {
	all := s.SourceNames()
	if len(wanted) == 0 {
		out := make([]int, len(all))
		for i := range all {
			out[i] = i
		}
		return out, nil
	}
	byName := make(map[string]int, len(all))
	for i, name := range all {
		byName[name] = i
	}
	out := make([]int, 0, len(wanted))
	for _, name := range wanted {
		idx, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q (have: %v)", name, all)
		}
		out = append(out, idx)
	}
	return out, nil
}

// drainEvents consumes one operation's event stream, printing progress
// to stdout, until the finished event. Events carrying a stale
// correlation id are dropped. Returns the final URL on success.
func drainEvents(s *session.Session, events <-chan slowpics.Event) (string, error) {
	var url string
	var opErr error
	for e := range events {
		if _, ok := s.Accept(e); !ok {
			continue
		}
		switch e.Type {
		case slowpics.EventStep:
			fmt.Printf("\r%s %d/%d", e.Step, e.Current, e.Total)
		case slowpics.EventPercent:
			fmt.Printf("\r%d%%    ", e.Percent)
		case slowpics.EventURL:
			url = e.URL
		case slowpics.EventError:
			opErr = e.Err
		case slowpics.EventFinished:
			fmt.Print("\r        \r")
			return url, opErr
		}
	}
	return url, opErr
}
