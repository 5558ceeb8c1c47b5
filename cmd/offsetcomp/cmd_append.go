package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/supertouch/offsetcomp/internal/session"
	"github.com/supertouch/offsetcomp/internal/slowpics"
)

var (
	appendSourcesFlag   []string
	appendFramesFlag    string
	appendNormalizeFlag bool
	appendYesFlag       bool
)

var appendCmd = &cobra.Command{
	Use:   "append <url-or-key>",
	Short: "Append local sources as new columns of an existing comparison",
	Args:  cobra.ExactArgs(1),
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

		if err := loadTarget(s, client, cfg, args[0]); err != nil {
			return err
		}
		fmt.Printf("Loaded %q (%d rows, %s mode)\n",
			s.Target.CollectionName, s.Target.ComparisonCount, s.Target.PostMode)

		if len(s.Target.ParseFailedRows) > 0 {
			fmt.Printf("Could not recover frame numbers for rows %v.\n", s.Target.ParseFailedRows)
			if err := applyManualMap(s, appendFramesFlag); err != nil {
				return err
			}
		}

		selected, err := selectSources(s, appendSourcesFlag)
		if err != nil {
			return err
		}

		if ok, reason := s.Readiness(true, len(selected)); !ok {
			return fmt.Errorf("%s", reason)
		}

		normalize := appendNormalizeFlag
		if cfg.FrameType && slowpics.HasNonstandardExistingNames(s.Target.EditDTO) {
			fmt.Println("Note: existing columns do not use picture-type tags and will keep their current names.")
		}
		if !cmd.Flags().Changed("normalize-names") && !appendYesFlag {
			if err := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title("Rewrite existing row names from the frame map?").
					Value(&normalize),
			)).Run(); err != nil {
				return err
			}
		}

		id, err := s.Begin(session.OpAppend)
		if err != nil {
			return err
		}
		conf, err := s.BuildAppendConfig(id, selected, cfg, normalize)
		if err != nil {
			s.Release(session.OpAppend, id)
			return err
		}

		names := make([]string, len(selected))
		for i, idx := range selected {
			names[i] = s.SourceNames()[idx]
		}
		fmt.Printf("Appending %s to %s...\n", strings.Join(names, ", "), conf.TargetKey)

		events := make(chan slowpics.Event, 64)
		go client.RunAppend(context.Background(), conf, func(e slowpics.Event) { events <- e })

		url, err := drainEvents(s, events)
		if err != nil {
			return err
		}
		fmt.Printf("Done: %s\n", url)
		return nil
	},
}

func init() {
	appendCmd.Flags().StringSliceVar(&appendSourcesFlag, "sources", nil, "Source names to append (default: all configured)")
	appendCmd.Flags().StringVar(&appendFramesFlag, "frames", "", "Manual comma-separated frame map for unparseable rows")
	appendCmd.Flags().BoolVar(&appendNormalizeFlag, "normalize-names", false, "Rewrite existing row names from the frame map")
	appendCmd.Flags().BoolVarP(&appendYesFlag, "yes", "y", false, "Skip confirmation prompts")
}
