// Package diff renders compact unified diffs for tool output.
//
// File tools report what they changed back to the agent runtime; a bounded
// unified diff is the densest honest rendering of an edit. Computation uses
// the sergi/go-diff line mode rather than a hand-rolled LCS.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// contextLines is the number of unchanged lines kept around each change.
const contextLines = 3

type lineOp struct {
	kind byte // ' ', '-' or '+'
	text string
	oldN int // 1-based line number in before, 0 for additions
	newN int // 1-based line number in after, 0 for removals
}

// Unified renders the differences between before and after as unified-diff
// hunks ("@@ -l,c +l,c @@" headers with prefixed lines). Returns "" when the
// inputs are identical.
func Unified(before, after string) string {
	if before == after {
		return ""
	}

	ops := lineOps(before, after)
	var marks []int
	for i, op := range ops {
		if op.kind != ' ' {
			marks = append(marks, i)
		}
	}
	if len(marks) == 0 {
		return ""
	}

	var b strings.Builder
	for g := 0; g < len(marks); {
		lo := marks[g]
		hi := marks[g]
		g++
		// Changes separated by at most two context margins share a hunk.
		for g < len(marks) && marks[g]-hi <= 2*contextLines {
			hi = marks[g]
			g++
		}
		from := lo - contextLines
		if from < 0 {
			from = 0
		}
		to := hi + contextLines
		if to > len(ops)-1 {
			to = len(ops) - 1
		}
		writeHunk(&b, ops[from:to+1])
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Preview renders Unified capped at maxLines, appending an elision note when
// the diff is longer. maxLines <= 0 means no cap.
func Preview(before, after string, maxLines int) string {
	out := Unified(before, after)
	if out == "" {
		return ""
	}
	lines := strings.Split(out, "\n")
	if maxLines <= 0 || len(lines) <= maxLines {
		return out
	}
	return strings.Join(lines[:maxLines], "\n") +
		fmt.Sprintf("\n... (%d more diff lines)", len(lines)-maxLines)
}

// lineOps diffs at line granularity and flattens the result into per-line
// operations carrying running line numbers for both sides.
func lineOps(before, after string) []lineOp {
	dmp := diffmatchpatch.New()
	a, b, arr := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, arr)

	var ops []lineOp
	oldN, newN := 0, 0
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldN++
				newN++
				ops = append(ops, lineOp{' ', text, oldN, newN})
			case diffmatchpatch.DiffDelete:
				oldN++
				ops = append(ops, lineOp{'-', text, oldN, 0})
			case diffmatchpatch.DiffInsert:
				newN++
				ops = append(ops, lineOp{'+', text, 0, newN})
			}
		}
	}
	return ops
}

// splitLines splits diff text into lines, dropping the empty fragment a
// trailing newline produces.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func writeHunk(b *strings.Builder, ops []lineOp) {
	oldStart, newStart := 0, 0
	oldCount, newCount := 0, 0
	for _, op := range ops {
		if op.kind != '+' {
			oldCount++
			if oldStart == 0 {
				oldStart = op.oldN
			}
		}
		if op.kind != '-' {
			newCount++
			if newStart == 0 {
				newStart = op.newN
			}
		}
	}
	fmt.Fprintf(b, "@@ -%d,%d +%d,%d @@\n", oldStart, oldCount, newStart, newCount)
	for _, op := range ops {
		b.WriteByte(op.kind)
		b.WriteString(op.text)
		b.WriteByte('\n')
	}
}
