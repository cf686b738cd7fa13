package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/configuration"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

// cfg is loaded before every command runs.
var cfg *configuration.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "unicorn",
	Short: "Parse AI page-edit responses and patch HTML documents",
	Long: `unicorn reads the structured responses a language model writes when it
edits a web page, turns them into edit directives and applies them to the
page's HTML.

Available commands:
  parse    - Show the directives found in a response
  apply    - Apply a response to a document or a stored page
  scrub    - Remove leaked protocol lines from markup
  preview  - Serve a live preview of a response while it streams in
  history  - List or restore stored page revisions
  log      - Print the engine log`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := configuration.Load()
		if utils.IsValidationError(err) {
			return fmt.Errorf("%s: %w (fix the value or delete the file to restore defaults)", configuration.GetConfigPath(), err)
		}
		if err != nil {
			return err
		}
		cfg = loaded
		if cfg.JSONLogs {
			utils.GetLogger().SetJSON(true)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
