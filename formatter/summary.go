package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/gnolang/bowtie/precond"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	titleStyle   = color.New(color.FgCyan, color.Bold)
	okStyle      = color.New(color.FgGreen, color.Bold)
	noStyle      = color.New(color.FgWhite)
)

// Summary renders the human-readable outcome of a report: header, a
// warning for patched answers and the verification results. Colors are
// used only when colored is set.
func Summary(r *precond.Report, colored bool) string {
	var b strings.Builder
	paint := func(c *color.Color, format string, args ...any) {
		if colored {
			b.WriteString(c.Sprintf(format, args...))
			return
		}
		fmt.Fprintf(&b, format, args...)
	}

	paint(titleStyle, "%s %s ⋈ %s", r.Mode, r.First, r.Second)
	paint(noStyle, " (run %s)\n", r.RunID)

	if r.Patched {
		paint(warningStyle, "warning: ")
		paint(noStyle, "%d region(s) left undecided; the answer excludes every refuted region but may be stronger than necessary\n", len(r.Unresolved))
		for _, u := range r.Unresolved {
			paint(noStyle, "  unresolved %s\n", u)
		}
	}

	if r.Checks != nil {
		check := func(name string, ok bool, failure string) {
			paint(noStyle, "%s: ", name)
			if ok {
				paint(okStyle, "ok\n")
				return
			}
			paint(errorStyle, "%s\n", failure)
		}
		check("completeness", r.Checks.Complete, "some states are unclassified")
		check("soundness", r.Checks.Sound, "some states are classified both ways")
		if r.Complete {
			check("equivalence", r.Checks.Equivalent, "answer differs from the learned regions")
		}
	}
	return b.String()
}

// WriteStats writes one "name, value" line per counter.
func WriteStats(w io.Writer, r *precond.Report) error {
	for _, line := range r.Stats.Lines() {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
