package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

var logLines int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the engine log",
	Long: `Prints the last lines of the engine log, where every parse, apply and
page store operation is recorded.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return displayLog(cmd, filepath.Join(utils.HomeDir(), "engine.log"), logLines)
	},
}

func init() {
	logCmd.Flags().IntVarP(&logLines, "lines", "n", 100, "Number of lines to print, 0 for all")
	rootCmd.AddCommand(logCmd)
}

// displayLog prints the last n lines of path.
func displayLog(cmd *cobra.Command, path string, n int) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "Log file not found at %s. No log entries yet.\n", path)
		return nil
	}
	if err != nil {
		return utils.NewFileSystemError("open", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if n > 0 && len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return utils.NewFileSystemError("read", path, err)
	}

	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
