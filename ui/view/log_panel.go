package view

import (
	"strings"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// LogPanel is the event log, newest line on top.
type LogPanel interface {
	Append(lines []string)
}

type logPanel struct {
	text  *TextWidget
	lines []string
	limit int
}

// NewLogPanel grids a text area at row that keeps the last limit lines.
func NewLogPanel(row, limit int) LogPanel {
	t := Text(Height(12), Width(96))
	Grid(t, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	return &logPanel{text: t, limit: max(limit, 1)}
}

func (p *logPanel) Append(lines []string) {
	if p == nil || p.text == nil || len(lines) == 0 {
		return
	}
	p.lines = TrimTail(append(p.lines, lines...), p.limit)
	shown := make([]string, len(p.lines))
	for i, l := range p.lines {
		shown[len(shown)-1-i] = l
	}
	p.text.Delete("1.0", END)
	p.text.Insert("1.0", strings.Join(shown, "\n"))
}

// TrimTail keeps the last n entries of s.
func TrimTail(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return append(s[:0:0], s[len(s)-n:]...)
}
