package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/pagestore"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

var (
	historyPage    string
	historyLimit   int
	historyRestore int64
	historyJSON    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List or restore stored page revisions",
	Long: `Lists the stored revisions of a page, newest first.

--restore N makes revision N current again; it is saved as a new revision,
so the restore itself can be undone.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyPage, "page", "", "Page id")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of revisions to list, 0 for all")
	historyCmd.Flags().Int64Var(&historyRestore, "restore", 0, "Revision to restore")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print revisions as JSON")
	historyCmd.MarkFlagRequired("page")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if historyRestore > 0 {
		page, err := store.Restore(ctx, historyPage, historyRestore)
		if errors.Is(err, pagestore.ErrNotFound) {
			return utils.NewUserError(fmt.Sprintf("page %s has no revision %d", historyPage, historyRestore), err)
		}
		if err != nil {
			return utils.NewStorageError("restore", historyPage, err)
		}
		utils.GetLogger().LogOperation("restore", fmt.Sprintf("page=%s from=%d to=%d", page.ID, historyRestore, page.Revision))
		fmt.Fprintf(cmd.OutOrStdout(), "restored %s revision %d as revision %d\n", page.ID, historyRestore, page.Revision)
		return nil
	}

	revs, err := store.History(ctx, historyPage, historyLimit)
	if errors.Is(err, pagestore.ErrNotFound) {
		return utils.NewUserError(fmt.Sprintf("no page %s", historyPage), err)
	}
	if err != nil {
		return utils.NewStorageError("history", historyPage, err)
	}
	if historyJSON {
		return writeJSON(cmd.OutOrStdout(), revs)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REVISION\tSAVED\tMERGED\tNOTE")
	for _, r := range revs {
		merged := ""
		if r.Merged {
			merged = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.Revision, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), merged, r.Note)
	}
	return tw.Flush()
}
