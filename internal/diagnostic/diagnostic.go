// Package diagnostic renders a frontend.Error against the kernel source it
// came from, with a caret pointing at the offending column.
package diagnostic

import (
	"fmt"
	"go/token"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// caretColor wraps the caret line in red when stderr is an interactive
// terminal, and leaves plain text otherwise (redirected output, CI logs).
var caretColor = isatty.IsTerminal(os.Stderr.Fd())

const (
	ansiRed   = "\x1b[31m"
	ansiReset = "\x1b[0m"
)

// Positioned is implemented by any error that can report where in the
// source it occurred.
type Positioned interface {
	error
	Pos() token.Position
}

// Render formats err against source, showing the offending line and a
// caret under the reported column.
func Render(err Positioned, source string) string {
	pos := err.Pos()
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteByte('\n')

	line := sourceLine(source, pos.Line)
	if line == "" {
		return sb.String()
	}

	gutter := fmt.Sprintf("  %d | ", pos.Line)
	sb.WriteString(gutter)
	sb.WriteString(line)
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat(" ", len(gutter)))
	if pos.Column > 1 {
		sb.WriteString(strings.Repeat(" ", pos.Column-1))
	}
	if caretColor {
		sb.WriteString(ansiRed + "^" + ansiReset + "\n")
	} else {
		sb.WriteString("^\n")
	}
	return sb.String()
}

func sourceLine(source string, n int) string {
	lines := strings.Split(source, "\n")
	if n < 1 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}
