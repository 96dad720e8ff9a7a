package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Console prints the text of every Nth frame, for headless runs
type Console struct {
	w      io.Writer
	every  uint64
	header lipgloss.Style
	body   lipgloss.Style
}

// NewConsole creates a console sink writing one of every `every` frames to w.
// every below 1 prints every frame.
func NewConsole(w io.Writer, every int) *Console {
	if every < 1 {
		every = 1
	}
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:      w,
		every:  uint64(every),
		header: r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		body:   r.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("252")),
	}
}

// Present writes the frame's text when its sequence number is due.
// Frames without text are skipped.
func (c *Console) Present(f Frame) error {
	if f.Seq%c.every != 0 {
		return nil
	}
	texts := f.Texts()
	if len(texts) == 0 {
		return nil
	}

	out := lipgloss.JoinVertical(lipgloss.Left,
		c.header.Render(fmt.Sprintf("frame %d", f.Seq)),
		c.body.Render(strings.Join(texts, "\n")),
	)
	_, err := fmt.Fprintln(c.w, out)
	return err
}
