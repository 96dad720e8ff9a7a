package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/younwookim/aegis/internal/application/trace"
)

// WriteReport prints a styled summary of a trace to w
func WriteReport(w io.Writer, data trace.TraceData) error {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	label := r.NewStyle().Width(14).Foreground(lipgloss.Color("244"))
	warn := r.NewStyle().Foreground(lipgloss.Color("196"))
	box := r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	s := trace.Summarize(data)
	mode := "locked"
	if data.Unlocked {
		mode = "unlocked"
	}

	overloaded := fmt.Sprintf("%d", s.Overloaded)
	if s.Overloaded > 0 {
		overloaded = warn.Render(overloaded)
	}

	rows := []string{
		title.Render("trace " + data.Session),
		label.Render("started") + data.StartTime,
		label.Render("target") + fmt.Sprintf("%.2f fps (%s)", data.TargetRate, mode),
		label.Render("frames") + fmt.Sprintf("%d", s.Frames),
		label.Render("overloaded") + overloaded,
		label.Render("max runtime") + s.MaxRuntime.String(),
		label.Render("mean runtime") + s.MeanRuntime.String(),
		label.Render("mean ratio") + fmt.Sprintf("%.3f", s.MeanRatio),
	}
	if len(s.Scenes) > 0 {
		var scenes []string
		for _, sf := range s.Busiest() {
			scenes = append(scenes, fmt.Sprintf("%s=%d", sf.Scene, sf.Frames))
		}
		rows = append(rows, label.Render("scenes")+strings.Join(scenes, " "))
	}

	_, err := fmt.Fprintln(w, box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	return err
}
