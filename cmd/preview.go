package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/directive"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/events"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/pagestore"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/preview"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

var (
	previewAddr string
	previewPage string
	previewKeep bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Serve a live preview of a response while it streams in",
	Long: `Reads a model response from stdin as it is produced and serves the
markup written so far at /preview. Browsers can follow updates on the /ws
websocket.

When stdin ends the response is parsed. With --page its page directives are
applied to the stored page and saved.`,
	Args: cobra.NoArgs,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewAddr, "addr", "", "Listen address (default from config)")
	previewCmd.Flags().StringVar(&previewPage, "page", "", "Apply the finished response to this stored page")
	previewCmd.Flags().BoolVar(&previewKeep, "keep", false, "Keep serving after the response ended, until interrupted")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	addr := previewAddr
	if addr == "" {
		addr = cfg.PreviewAddr
	}
	logger := utils.GetLogger()
	stderr := cmd.ErrOrStderr()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := events.NewEventBus()
	srv := preview.NewServer(bus, logger)
	sess := srv.NewSession()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.ListenAndServe(ctx, addr) }()
	fmt.Fprintf(stderr, "preview at http://%s/preview\n", addr)

	err := sess.Stream(ctx, cmd.InOrStdin(), func(u preview.Update) {
		logger.LogOperation("preview", fmt.Sprintf("session=%s bytes=%d", u.Session, u.BytesSeen))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		stop()
		<-serveErr
		return utils.NewFileSystemError("read", "stdin", err)
	}

	if err := finishPreview(ctx, cmd, bus, sess); err != nil {
		stop()
		<-serveErr
		return err
	}

	if !previewKeep {
		stop()
	}
	return <-serveErr
}

// finishPreview parses the streamed response and, with --page, saves it. An
// interrupted stream is never saved.
func finishPreview(ctx context.Context, cmd *cobra.Command, bus *events.EventBus, sess *preview.Session) error {
	stderr := cmd.ErrOrStderr()
	if ctx.Err() != nil {
		fmt.Fprintln(stderr, "interrupted, nothing saved")
		return nil
	}

	resp, ok := sess.Finish()
	switch {
	case !ok:
		fmt.Fprintln(stderr, "could not understand the response")
	case previewPage != "":
		return savePreview(ctx, cmd, bus, sess.ID, resp)
	default:
		fmt.Fprintf(stderr, "parsed %d page directive(s)\n", len(resp.Directives))
	}
	return nil
}

// savePreview applies the finished session to the --page page and saves it.
func savePreview(ctx context.Context, cmd *cobra.Command, bus *events.EventBus, session string, resp directive.Response) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	var base string
	page, err := store.Get(ctx, previewPage)
	switch {
	case errors.Is(err, pagestore.ErrNotFound):
	case err != nil:
		return utils.NewStorageError("get", previewPage, err)
	default:
		base = page.Document
	}

	updated := applyDirectives(cmd.ErrOrStderr(), base, resp.Directives)
	if updated == base {
		bus.Publish(events.EventTypeDocumentPatched, session, events.DocumentPatchedEvent(previewPage, page.Revision, false))
		return nil
	}
	page, err = store.Save(ctx, previewPage, base, updated, resp.Message)
	if err != nil {
		bus.Publish(events.EventTypeError, session, events.ErrorEvent("save failed", err))
		return utils.NewStorageError("save", previewPage, err)
	}
	bus.Publish(events.EventTypeDocumentPatched, session, events.DocumentPatchedEvent(previewPage, page.Revision, true))
	return nil
}
