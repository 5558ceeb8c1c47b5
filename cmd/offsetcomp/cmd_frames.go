package main

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/supertouch/offsetcomp/internal/config"
	"github.com/supertouch/offsetcomp/internal/session"
)

var framesCurrentFlag bool

var framesCmd = &cobra.Command{
	Use:   "frames",
	Short: "Manage the saved frame list and offsets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return framesListCmd.RunE(cmd, args)
	},
}

var framesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the saved frame list and offsets",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := sessionFromState()
		if err != nil {
			return err
		}
		if s.List.Len() == 0 {
			fmt.Println("No frames saved. Run 'offsetcomp frames generate' or 'offsetcomp frames add <n>'.")
			return nil
		}
		fmt.Println(s.FramesCSV())
		printOffsets(s)
		return nil
	},
}

var framesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Regenerate the frame list from the configured sampling",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := sessionFromState()
		if err != nil {
			return err
		}
		got, err := s.GenerateFrames(cfg.Sampling, framesCurrentFlag, rand.New(rand.NewSource(rand.Int63())))
		if err != nil {
			return err
		}
		fmt.Printf("Generated %d frames: %s\n", len(got), s.FramesCSV())
		return saveState(s, cfg)
	},
}

var framesAddCmd = &cobra.Command{
	Use:   "add <frame>...",
	Short: "Add reference frames",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := sessionFromState()
		if err != nil {
			return err
		}
		for _, arg := range args {
			frame, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid frame number %q", arg)
			}
			stored, adjusted, added := s.AddFrame(frame)
			switch {
			case adjusted && added:
				fmt.Printf("Frame %d out of range, adjusted to %d.\n", frame, stored)
			case !added:
				fmt.Printf("Frame %d already in the list.\n", stored)
			}
		}
		return saveState(s, cfg)
	},
}

var framesEditCmd = &cobra.Command{
	Use:   "edit <old> <new>",
	Short: "Replace a reference frame, keeping its offsets",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := sessionFromState()
		if err != nil {
			return err
		}
		oldFrame, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid frame number %q", args[0])
		}
		newFrame, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid frame number %q", args[1])
		}
		stored, adjusted, err := s.EditFrame(oldFrame, newFrame)
		if err != nil {
			return err
		}
		if adjusted {
			fmt.Printf("Frame %d out of range, adjusted to %d.\n", newFrame, stored)
		}
		return saveState(s, cfg)
	},
}

var framesRemoveCmd = &cobra.Command{
	Use:   "remove <frame>...",
	Short: "Remove reference frames (their offsets are pruned)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := sessionFromState()
		if err != nil {
			return err
		}
		for _, arg := range args {
			frame, err := strconv.Atoi(arg)
			if err != nil {
				return fmt.Errorf("invalid frame number %q", arg)
			}
			if !s.List.Remove(frame) {
				fmt.Printf("Frame %d not in the list.\n", frame)
			}
		}
		return saveState(s, cfg)
	},
}

var framesOffsetCmd = &cobra.Command{
	Use:   "offset <frame> <source-name> <offset>",
	Short: "Set the per-source offset for a reference frame",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cfg, err := sessionFromState()
		if err != nil {
			return err
		}
		frame, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid frame number %q", args[0])
		}
		if s.List.IndexOf(frame) < 0 {
			return fmt.Errorf("frame %d not in the list", frame)
		}
		idx, err := selectSources(s, []string{args[1]})
		if err != nil {
			return err
		}
		offset, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid offset %q", args[2])
		}
		s.Offsets.Set(frame, idx[0], offset)
		return saveState(s, cfg)
	},
}

// sessionFromState builds a session with configured sources and the
// saved state restored.
func sessionFromState() (*session.Session, config.Config, error) {
	cfg, err := loadToolConfig()
	if err != nil {
		return nil, cfg, err
	}
	s, err := newSession(cfg)
	if err != nil {
		return nil, cfg, err
	}
	if err := restoreState(s, cfg); err != nil {
		return nil, cfg, err
	}
	return s, cfg, nil
}

func printOffsets(s *session.Session) {
	names := s.SourceNames()
	for _, frame := range s.List.Frames() {
		row := s.Offsets.Row(frame)
		if len(row) == 0 {
			continue
		}
		indices := make([]int, 0, len(row))
		for idx := range row {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		fmt.Printf("  %d:", frame)
		for _, idx := range indices {
			name := strconv.Itoa(idx)
			if idx < len(names) {
				name = names[idx]
			}
			fmt.Printf(" %s%+d", name, row[idx])
		}
		fmt.Println()
	}
}

func init() {
	framesGenerateCmd.Flags().BoolVar(&framesCurrentFlag, "include-current", false, "Keep the currently selected frame in the regenerated list")
	framesCmd.AddCommand(framesListCmd)
	framesCmd.AddCommand(framesGenerateCmd)
	framesCmd.AddCommand(framesAddCmd)
	framesCmd.AddCommand(framesEditCmd)
	framesCmd.AddCommand(framesRemoveCmd)
	framesCmd.AddCommand(framesOffsetCmd)
}
