package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/directive"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/markup"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/pagestore"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/patch"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

var (
	applyDoc      string
	applyPage     string
	applyResponse string
	applyOut      string
	applyDryRun   bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a response to a document or a stored page",
	Long: `Parses a model response and applies its page directives, in order, to
an HTML document.

With --doc the file is rewritten in place (or written to --out). With --page
the document comes from the page store and the result is saved as a new
revision; if the page changed in the meantime the edit is merged into it.

The change is printed as a line diff. --dry-run prints it without saving.`,
	Args: cobra.NoArgs,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringVar(&applyDoc, "doc", "", "HTML file to patch")
	applyCmd.Flags().StringVar(&applyPage, "page", "", "Stored page to patch")
	applyCmd.Flags().StringVarP(&applyResponse, "response", "r", "-", "Response file, - for stdin")
	applyCmd.Flags().StringVarP(&applyOut, "out", "o", "", "Write the patched document here instead of over --doc")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "Show the change without writing it")
	applyCmd.MarkFlagsMutuallyExclusive("doc", "page")
	applyCmd.MarkFlagsOneRequired("doc", "page")
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := utils.GetLogger()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	raw, err := readInput(cmd, applyResponse)
	if err != nil {
		return err
	}
	resp, ok := directive.ParseResponse(raw)
	if !ok {
		logger.LogError(fmt.Errorf("apply %s: %w", applyResponse, utils.ErrGrammarViolation))
		return utils.NewUserError("could not understand the response", utils.ErrGrammarViolation)
	}

	var (
		base  string
		name  string
		store *pagestore.Store
	)
	if applyPage != "" {
		name = applyPage
		store, err = openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		page, err := store.Get(ctx, applyPage)
		switch {
		case errors.Is(err, pagestore.ErrNotFound):
		case err != nil:
			return utils.NewStorageError("get", applyPage, err)
		default:
			base = page.Document
		}
	} else {
		name = applyDoc
		data, err := os.ReadFile(applyDoc)
		if err != nil {
			return utils.NewFileSystemError("read", applyDoc, err)
		}
		base = string(data)
	}

	updated := applyDirectives(stderr, base, resp.Directives)
	if skipped := siblingUpdates(resp); skipped > 0 {
		fmt.Fprintf(stderr, "note: %d non-page update(s) not applied; see `unicorn parse --all`\n", skipped)
	}

	summary := patch.Summarize(base, updated)
	fmt.Fprint(stdout, summary.Render(name, colorFor(stdout)))
	if applyDryRun || !summary.Changed() {
		return nil
	}

	if store != nil {
		page, err := store.Save(ctx, applyPage, base, updated, resp.Message)
		if err != nil {
			if errors.Is(err, pagestore.ErrConflict) {
				return utils.NewUserError(fmt.Sprintf("page %s was edited concurrently", applyPage), err)
			}
			return utils.NewStorageError("save", applyPage, err)
		}
		fmt.Fprintf(stdout, "saved %s revision %d\n", page.ID, page.Revision)
		return nil
	}

	target := applyDoc
	if applyOut != "" {
		target = applyOut
	}
	if err := os.WriteFile(target, []byte(updated), 0644); err != nil {
		return utils.NewFileSystemError("write", target, err)
	}
	fmt.Fprintf(stdout, "wrote %s\n", target)
	return nil
}

// applyDirectives runs ds over doc in order, warning on stderr about edits
// that found nothing to change.
func applyDirectives(stderr io.Writer, doc string, ds []directive.Directive) string {
	logger := utils.GetLogger()
	for i, d := range ds {
		if n := selectorMatches(doc, d); n > 1 {
			fmt.Fprintf(stderr, "warning: %q matches %d elements, only the first is changed\n", d.Selector, n)
		}
		res := patch.ApplyWithResult(doc, d)
		logger.LogOperation("apply", fmt.Sprintf("directive=%d operation=%s selector=%q matched=%t fell_back=%t",
			i+1, d.Kind, d.Selector, res.Matched, res.FellBack))
		switch {
		case !res.Matched:
			fmt.Fprintf(stderr, "warning: %s %q matched nothing\n", d.Kind, d.Selector)
		case res.FellBack:
			fmt.Fprintf(stderr, "warning: target %q not found, inserted at the end\n", d.Target)
		}
		doc = res.Document
	}
	return doc
}

// selectorMatches counts the elements a Replace or Delete selector could mean.
func selectorMatches(doc string, d directive.Directive) int {
	if d.Kind != directive.Replace && d.Kind != directive.Delete {
		return 0
	}
	m, ok := markup.Compile(d.Selector)
	if !ok {
		return 0
	}
	return len(m.FindAll(doc))
}

func siblingUpdates(r directive.Response) int {
	return len(r.Components) + len(r.Sections) + len(r.Tokens) + len(r.Menus) + len(r.Entries)
}
