package main

import (
	"fmt"
	"os"

	"github.com/Felixzink96/UnicornStudio-sub002/cmd"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

func main() {
	logger := utils.GetLogger()
	defer func() {
		if err := logger.Close(); err != nil {
			os.Stderr.WriteString("Error closing logger: " + err.Error() + "\n")
		}
	}()

	if err := cmd.Execute(); err != nil {
		logger.LogError(err)
		fmt.Fprintln(os.Stderr, utils.FormatError(err))
		logger.Close()
		os.Exit(1)
	}
}
