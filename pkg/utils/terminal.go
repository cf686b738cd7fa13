package utils

import (
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// UseColor decides whether output to f may carry ANSI colors. NO_COLOR
// always wins.
func UseColor(f *os.File, wanted bool) bool {
	if !wanted || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return IsTerminal(f)
}
