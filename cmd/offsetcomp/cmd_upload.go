package main

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/supertouch/offsetcomp/internal/config"
	"github.com/supertouch/offsetcomp/internal/session"
	"github.com/supertouch/offsetcomp/internal/slowpics"
)

var (
	uploadNameFlag       string
	uploadScriptNameFlag string
	uploadSourcesFlag    []string
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a brand-new comparison from the configured sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadToolConfig()
		if err != nil {
			return err
		}
		s, err := newSession(cfg)
		if err != nil {
			return err
		}
		if !s.SourcesLoaded() {
			return fmt.Errorf("no sources configured; add them to the config file first")
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		if err := restoreState(s, cfg); err != nil {
			return err
		}
		if s.List.Len() == 0 {
			if _, err := s.GenerateFrames(cfg.Sampling, false, rand.New(rand.NewSource(rand.Int63()))); err != nil {
				return err
			}
			fmt.Printf("Sampled frames: %s\n", s.FramesCSV())
		}

		name, err := resolveUploadName(s, cfg)
		if err != nil {
			return err
		}

		selected, err := selectSources(s, uploadSourcesFlag)
		if err != nil {
			return err
		}

		id, err := s.Begin(session.OpUpload)
		if err != nil {
			return err
		}
		conf, err := s.BuildUploadConfig(id, name, selected, cfg)
		if err != nil {
			s.Release(session.OpUpload, id)
			return err
		}

		fmt.Printf("Uploading %q (%d rows x %d sources)...\n",
			name, len(conf.BaseFrames), len(conf.Sources))
		if n := offsetSummary(conf); n > 0 {
			fmt.Printf("%d cell(s) offset-corrected.\n", n)
		}

		events := make(chan slowpics.Event, 64)
		go client.RunUpload(context.Background(), conf, func(e slowpics.Event) { events <- e })

		url, err := drainEvents(s, events)
		if err != nil {
			return err
		}
		fmt.Printf("Done: %s\n", url)
		return nil
	},
}

// resolveUploadName picks the collection name: the --name flag wins,
// then the configured template, then the first source name.
func resolveUploadName(s *session.Session, cfg config.Config) (string, error) {
	scriptName := uploadScriptNameFlag
	if scriptName == "" {
		if names := s.SourceNames(); len(names) > 0 {
			scriptName = names[0]
		}
	}
	vars := map[string]string{"script_name": filepath.Base(scriptName)}

	if uploadNameFlag != "" {
		return config.ResolveCollectionName(uploadNameFlag, vars)
	}
	if cfg.Collection.NameTemplate != "" {
		return config.ResolveCollectionName(cfg.Collection.NameTemplate, vars)
	}
	return config.ResolveCollectionName("{script_name} comparison", vars)
}

// offsetSummary reports how many cells deviate from the raw frames.
func offsetSummary(conf slowpics.UploadConfig) int {
	adjusted := 0
	rows := slowpics.OffsetAdjustedFrames(conf.BaseFrames, conf.SourceIndices, conf.Sources, conf.Offsets)
	for _, row := range rows {
		for i, eff := range row {
			if eff != conf.BaseFrames[i] {
				adjusted++
			}
		}
	}
	return adjusted
}

func init() {
	uploadCmd.Flags().StringVar(&uploadNameFlag, "name", "", "Collection name (may contain {script_name})")
	uploadCmd.Flags().StringVar(&uploadScriptNameFlag, "script-name", "", "Value for the {script_name} placeholder")
	uploadCmd.Flags().StringSliceVar(&uploadSourcesFlag, "sources", nil, "Source names to upload (default: all configured)")
}
