package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/directive"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

var (
	parseAll     bool
	parseMessage bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [file|-]",
	Short: "Show the directives found in a response",
	Long: `Reads a model response and prints what it asks for as JSON.

By default only the first page directive is printed. --all prints every
block of the response: page directives, components, sections, design tokens,
menus and content entries.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseAll, "all", false, "Print every block of the response")
	parseCmd.Flags().BoolVar(&parseMessage, "render-message", false, "Also print the message rendered to HTML")
	rootCmd.AddCommand(parseCmd)
}

type parsedDirective struct {
	directive.Directive
	MessageHTML string `json:"message_html,omitempty"`
}

type parsedResponse struct {
	directive.Response
	MessageHTML string `json:"message_html,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) error {
	name := argOrStdin(args)
	raw, err := readInput(cmd, name)
	if err != nil {
		return err
	}

	utils.GetLogger().LogOperation("parse", fmt.Sprintf("input=%s all=%t", name, parseAll))
	if parseAll {
		resp, ok := directive.ParseResponse(raw)
		if !ok {
			return fmt.Errorf("%s: %w", name, utils.ErrGrammarViolation)
		}
		html, err := renderedMessage(resp.Message)
		if err != nil {
			return err
		}
		return writeJSON(cmd.OutOrStdout(), parsedResponse{Response: resp, MessageHTML: html})
	}

	d, ok := directive.Parse(raw)
	if !ok {
		return fmt.Errorf("%s: %w", name, utils.ErrGrammarViolation)
	}
	html, err := renderedMessage(d.Message)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), parsedDirective{Directive: d, MessageHTML: html})
}

func renderedMessage(message string) (string, error) {
	if !parseMessage || message == "" {
		return "", nil
	}
	return directive.RenderMessage(message)
}
