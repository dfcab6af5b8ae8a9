package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/zenc-lang/zc-conform/types"
)

// SkippedWarning introduces the list of unavailable backends.
const SkippedWarning = "WARNING: The following compilers were not found and their tests were skipped:"

// FormatBanner renders the line printed before each backend's suite.
func FormatBanner(backend string) string {
	return fmt.Sprintf("=== Testing with %s ===", backend)
}

// FormatSkipped renders the advisory for unavailable backends, or "" if there are none.
func FormatSkipped(backends []string) string {
	if len(backends) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n" + SkippedWarning + "\n")
	for _, backend := range backends {
		fmt.Fprintf(&b, "  - %s\n", backend)
	}
	return b.String()
}

// RenderMatrix writes a table with one row per backend, followed by the skipped advisory.
func RenderMatrix(out io.Writer, summary *types.MatrixSummary, color bool) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("Backend Results")
	t.AppendHeader(table.Row{"Backend", "Passed", "Failed", "Duration", "Status", "Log"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Log", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, r := range summary.Results {
		switch {
		case r.Skipped:
			t.AppendRow(table.Row{r.Backend, "-", "-", "-", "skipped", ""})
		case r.Summary == nil:
			t.AppendRow(table.Row{r.Backend, "-", "-", "-", getResultString(r.Status()), errorText(r.Err)})
		default:
			t.AppendRow(table.Row{
				r.Backend,
				r.Summary.Passed,
				r.Summary.Failed,
				formatDuration(r.Summary.Duration),
				getResultString(r.Status()),
				r.Summary.LogPath,
			})
		}
	}

	switch {
	case !color:
		t.SetStyle(table.StyleDefault)
	case summary.Status() == types.TestStatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.Render()

	if warning := FormatSkipped(summary.Skipped()); warning != "" {
		fmt.Fprint(out, warning)
	}
}

func getResultString(status types.TestStatus) string {
	if status == types.TestStatusPass {
		return "✓ pass"
	}
	return "✗ fail"
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
