package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/scrub"
)

var scrubCmd = &cobra.Command{
	Use:   "scrub [file|-]",
	Short: "Remove leaked protocol lines from markup",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, argOrStdin(args))
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), scrub.Scrub(raw))
		return err
	},
}

func init() {
	rootCmd.AddCommand(scrubCmd)
}
