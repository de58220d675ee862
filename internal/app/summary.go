package app

import (
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/specialistvlad/shakegrid/internal/harness"
)

// printSummary writes one line per run: its state, name, and either the
// files it produced or the reason it failed.
func printSummary(w io.Writer, outcomes []Outcome) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.Bold.Sprint("Batch summary"))
	for _, o := range outcomes {
		state := harness.Failed
		if o.Report != nil {
			state = o.Report.State
		}

		var badge string
		switch {
		case o.Failed():
			badge = color.Red.Sprintf("✘ %-9s", state)
		case state == harness.Cancelled:
			badge = color.Yellow.Sprintf("■ %-9s", state)
		default:
			badge = color.Green.Sprintf("✔ %-9s", state)
		}
		fmt.Fprintf(w, "  %s %s\n", badge, o.Name)

		if o.Failed() {
			fmt.Fprintf(w, "      %s\n", color.Gray.Sprint(o.Err))
			continue
		}
		for _, f := range o.Report.Files {
			fmt.Fprintf(w, "      %s\n", f)
		}
	}
}
