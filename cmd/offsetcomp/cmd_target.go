package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/supertouch/offsetcomp/internal/config"
	"github.com/supertouch/offsetcomp/internal/session"
	"github.com/supertouch/offsetcomp/internal/slowpics"
)

var targetFramesFlag string

var targetCmd = &cobra.Command{
	Use:   "target <url-or-key>",
	Short: "Load a remote comparison and recover its frame map",
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
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		if err := loadTarget(s, client, cfg, args[0]); err != nil {
			return err
		}

		fmt.Printf("Loaded %q (%d rows, %s mode)\n",
			s.Target.CollectionName, s.Target.ComparisonCount, s.Target.PostMode)

		if len(s.Target.ParseFailedRows) > 0 {
			fmt.Printf("Could not recover frame numbers for rows %v.\n", s.Target.ParseFailedRows)
			if err := applyManualMap(s, targetFramesFlag); err != nil {
				return err
			}
		}
		if s.List.Len() > 0 {
			fmt.Printf("Frame map (%s): %s\n", s.Target.MapSource(), s.FramesCSV())
		}
		return nil
	},
}

// loadTarget runs one target load operation to completion and applies
// its result to the session.
func loadTarget(s *session.Session, client *slowpics.Client, cfg config.Config, targetText string) error {
	id, err := s.Begin(session.OpTargetLoad)
	if err != nil {
		return err
	}
	conf, err := s.BuildTargetLoadConfig(id, targetText, cfg.Cookies, cfg.FrameType)
	if err != nil {
		s.Release(session.OpTargetLoad, id)
		return err
	}

	events := make(chan slowpics.Event, 64)
	var result *slowpics.TargetLoadResult
	go client.RunTargetLoad(context.Background(), conf,
		func(e slowpics.Event) { events <- e },
		func(r *slowpics.TargetLoadResult) { result = r })

	if _, err := drainEvents(s, events); err != nil {
		return err
	}
	s.ApplyTargetLoad(targetText, result)
	return nil
}

// applyManualMap installs a manual frame list, prompting when none was
// given on the command line.
func applyManualMap(s *session.Session, framesText string) error {
	if framesText == "" {
		prompt := fmt.Sprintf("Enter %d comma-separated frame numbers", s.Target.ComparisonCount)
		if err := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title(prompt).Value(&framesText),
		)).Run(); err != nil {
			return err
		}
	}
	return s.ApplyManualFrames(framesText)
}

func init() {
	targetCmd.Flags().StringVar(&targetFramesFlag, "frames", "", "Manual comma-separated frame map for unparseable rows")
}
