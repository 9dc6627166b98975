package interpreted

import "strings"

// textBlock accumulates indented source lines, tracking nesting depth so
// callers can push lines at the current indent level and step in or out
// of a block without managing whitespace by hand.
type textBlock struct {
	indent    int
	indentStr string
	lines     []string
}

func newTextBlock() *textBlock {
	return &textBlock{indentStr: "\t"}
}

func (b *textBlock) push(line string) {
	b.lines = append(b.lines, strings.Repeat(b.indentStr, b.indent)+line)
}

func (b *textBlock) in()  { b.indent++ }
func (b *textBlock) out() { b.indent-- }

func (b *textBlock) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}
