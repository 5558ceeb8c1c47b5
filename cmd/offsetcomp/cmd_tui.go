package main

import (
	"github.com/spf13/cobra"

	"github.com/supertouch/offsetcomp/cmd/offsetcomp/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive frame and offset editor",
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
		if err := restoreState(s, cfg); err != nil {
			return err
		}
		return tui.Run(s, cfg, client)
	},
}
