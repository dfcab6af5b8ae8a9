package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/zenc-lang/zc-conform/types"
)

const (
	// TimestampLayout is used both in the run header and in log file names.
	TimestampLayout = "20060102_150405"

	nameColumnWidth = 40
	ruleWidth       = 50
)

// OutcomeStream yields test outcomes by submission index, blocking until each is ready.
type OutcomeStream interface {
	Len() int
	Await(i int) types.TestOutcome
}

// Reporter prints progress and the final summary of a suite run, in submission order.
type Reporter struct {
	out   io.Writer
	color bool
	log   log.Logger
}

// NewReporter creates a Reporter writing to out. When color is false no escape
// sequences are emitted.
func NewReporter(out io.Writer, color bool, logger log.Logger) *Reporter {
	if logger == nil {
		logger = log.New()
	}
	return &Reporter{
		out:   out,
		color: color,
		log:   logger.New("component", "reporter"),
	}
}

func (r *Reporter) paint(colors text.Colors, s string) string {
	if !r.color {
		return s
	}
	return colors.Sprint(s)
}

// Header prints the run header and returns its uncoloured form for the log.
func (r *Reporter) Header(backend string, startedAt time.Time) string {
	header := FormatHeader(backend, startedAt)
	fmt.Fprintln(r.out, r.paint(text.Colors{text.Bold}, header))
	return header
}

// Consume reads every outcome from stream in index order, printing one progress line as
// soon as each index resolves. It folds the outcomes into summary and returns the log
// status entries.
func (r *Reporter) Consume(stream OutcomeStream, summary *types.SuiteSummary) []string {
	total := stream.Len()
	entries := make([]string, 0, total)

	for i := 0; i < total; i++ {
		outcome := stream.Await(i)
		status := statusText(outcome.Success)

		colors := text.Colors{text.FgHiGreen}
		if !outcome.Success {
			colors = text.Colors{text.FgHiRed}
		}
		fmt.Fprintf(r.out, "%s %s\n",
			FormatProgress(i+1, total, outcome.Case.Name), r.paint(colors, status))

		entries = append(entries, FormatEntry(outcome))
		summary.Add(outcome)

		r.log.Debug("Test finished", "test", outcome.Case.Name, "status", outcome.Status(),
			"duration", outcome.Duration, "timedOut", outcome.TimedOut)
	}

	return entries
}

// Summary prints the summary block and returns it for the log.
func (r *Reporter) Summary(summary *types.SuiteSummary) string {
	block := FormatSummary(summary)
	fmt.Fprintln(r.out, block)
	return block
}

// LogSaved prints where the run log was written.
func (r *Reporter) LogSaved(path string) {
	fmt.Fprintf(r.out, "%s %s\n", r.paint(text.Colors{text.Bold}, "Log saved to:"), path)
}

// NoTests prints the notice for an empty test directory.
func (r *Reporter) NoTests(dir string) {
	fmt.Fprintf(r.out, "No tests found in %s\n", dir)
}

// FormatHeader renders the two-line run header.
func FormatHeader(backend string, startedAt time.Time) string {
	return fmt.Sprintf("** Zen C Test Suite: %s **\nStarted: %s\n", backend, startedAt.Format(TimestampLayout))
}

// FormatProgress renders the uncoloured part of a progress line, without the status.
func FormatProgress(position, total int, name string) string {
	return fmt.Sprintf("[%3d/%d] Testing %-*s", position, total, nameColumnWidth, name)
}

// FormatEntry renders the log line for one outcome.
func FormatEntry(outcome types.TestOutcome) string {
	return fmt.Sprintf("[%s] %s", statusText(outcome.Success), outcome.Case.Name)
}

// FormatSummary renders pass and fail counts followed by the diagnostic of every failure,
// in submission order.
func FormatSummary(summary *types.SuiteSummary) string {
	rule := strings.Repeat("-", ruleWidth)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\nSummary:\n  Passed: %d\n  Failed: %d\n%s\n",
		rule, summary.Passed, summary.Failed, rule)

	if len(summary.Failures) > 0 {
		b.WriteString("\nFailed Test Details:\n")
		for _, f := range summary.Failures {
			fmt.Fprintf(&b, "\n--- %s ---\n%s\n", f.Name, f.Diagnostic)
		}
	}
	return b.String()
}

func statusText(success bool) string {
	if success {
		return "PASS"
	}
	return "FAIL"
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
