package cmd

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/pagestore"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

var errNoInput = errors.New("no input: pass a file or pipe a response on stdin")

// readInput reads the named file, or the command's stdin for "" and "-".
func readInput(cmd *cobra.Command, name string) (string, error) {
	if name == "" || name == "-" {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && utils.IsTerminal(f) {
			return "", utils.NewUserError("nothing to read", errNoInput)
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return "", utils.NewFileSystemError("read", "stdin", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", utils.NewFileSystemError("read", name, err)
	}
	return string(data), nil
}

// argOrStdin returns the first positional argument, or "-".
func argOrStdin(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "-"
}

func openStore() (*pagestore.Store, error) {
	store, err := pagestore.Open(cfg.PagesDB,
		pagestore.WithMaxRevisions(cfg.MaxRevisions),
		pagestore.WithLogger(utils.GetLogger()))
	if err != nil {
		return nil, utils.NewStorageError("open", cfg.PagesDB, err)
	}
	return store, nil
}

// colorFor reports whether diff output to w may be colored.
func colorFor(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && utils.UseColor(f, cfg.ColorDiff)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
