package patch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// ANSI colors for Render.
const (
	ResetColor  = "\033[0m"
	RedColor    = "\033[31m"
	GreenColor  = "\033[32m"
	YellowColor = "\033[33m"
	BoldStyle   = "\033[1m"
)

// ErrMergeConflict is returned by Merge when a hunk no longer applies.
var ErrMergeConflict = errors.New("three-way merge conflict")

// LineOp classifies one line of a Summary.
type LineOp int

const (
	LineEqual LineOp = iota
	LineInserted
	LineDeleted
)

// Line is one line of a line-level diff.
type Line struct {
	Op   LineOp
	Text string
}

// Summary is a line-level diff between two versions of a document.
type Summary struct {
	Inserted int
	Deleted  int
	Lines    []Line
}

// Changed reports whether the versions differ.
func (s Summary) Changed() bool {
	return s.Inserted > 0 || s.Deleted > 0
}

// Summarize diffs oldDoc and newDoc line by line.
func Summarize(oldDoc, newDoc string) Summary {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(oldDoc, newDoc)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var s Summary
	for _, d := range diffs {
		op := LineEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = LineInserted
		case diffmatchpatch.DiffDelete:
			op = LineDeleted
		}
		for _, l := range splitLines(d.Text) {
			s.Lines = append(s.Lines, Line{Op: op, Text: l})
			switch op {
			case LineInserted:
				s.Inserted++
			case LineDeleted:
				s.Deleted++
			}
		}
	}
	return s
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

// Render prints the stats line and the changed lines with one line of
// context around each change block.
func (s Summary) Render(name string, color bool) string {
	paint := func(c, text string) string {
		if !color {
			return text
		}
		return c + text + ResetColor
	}

	var out strings.Builder
	out.WriteString(paint(BoldStyle+YellowColor, name))
	if s.Inserted > 0 {
		out.WriteString(" " + paint(GreenColor, fmt.Sprintf("+%d", s.Inserted)))
	}
	if s.Deleted > 0 {
		out.WriteString(" " + paint(RedColor, fmt.Sprintf("-%d", s.Deleted)))
	}
	out.WriteString("\n")

	lastPrinted := -1
	for i, l := range s.Lines {
		if l.Op == LineEqual {
			continue
		}
		if i > 0 && s.Lines[i-1].Op == LineEqual && lastPrinted < i-1 {
			if lastPrinted >= 0 && lastPrinted < i-2 {
				out.WriteString("  ...\n")
			}
			out.WriteString("  " + s.Lines[i-1].Text + "\n")
		}
		if l.Op == LineInserted {
			out.WriteString(paint(GreenColor, "+ "+l.Text) + "\n")
		} else {
			out.WriteString(paint(RedColor, "- "+l.Text) + "\n")
		}
		lastPrinted = i
		if next := i + 1; next < len(s.Lines) && s.Lines[next].Op == LineEqual {
			out.WriteString("  " + s.Lines[next].Text + "\n")
			lastPrinted = next
		}
	}
	return out.String()
}

// Merge applies the changes from base to proposed onto current, for when the
// stored document moved on while an edit was being generated.
func Merge(base, current, proposed string) (string, error) {
	if base == current {
		return proposed, nil
	}
	if proposed == current {
		return current, nil
	}
	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake(base, proposed)
	merged, results := dmp.PatchApply(patches, current)
	for _, ok := range results {
		if !ok {
			return "", ErrMergeConflict
		}
	}
	return merged, nil
}
