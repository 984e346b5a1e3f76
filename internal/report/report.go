// Package report writes the human-readable progress of a hook run.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/fulmenhq/affiance/internal/hook"
)

// DefaultWidth is the column at which status labels end.
const DefaultWidth = 79

// Reporter prints one line per hook with the description padded by dots so
// that labels line up regardless of wide characters.
type Reporter struct {
	w     io.Writer
	width int
}

// New returns a reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w, width: DefaultWidth}
}

// WithWidth returns a copy aligned to width columns.
func (r *Reporter) WithWidth(width int) *Reporter {
	cp := *r
	cp.width = width
	return &cp
}

func (r *Reporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.w, format, args...)
}

// StartRun announces the hook type being run.
func (r *Reporter) StartRun(hookScript string) {
	r.printf("Running %s hooks\n", hookScript)
}

// Label is the text shown for a status.
func Label(s hook.Status) string {
	switch s {
	case hook.StatusPass:
		return "OK"
	case hook.StatusWarn:
		return "WARNING"
	case hook.StatusFail:
		return "FAILED"
	}
	return strings.ToUpper(string(s))
}

// line pads description with dots up to the label. A description that does
// not fit is truncated.
func (r *Reporter) line(description, name, label string) string {
	suffix := fmt.Sprintf("[%s] %s", name, label)
	room := r.width - runewidth.StringWidth(suffix) - 1
	if room < 1 {
		return description + " " + suffix
	}
	if runewidth.StringWidth(description) > room {
		description = runewidth.Truncate(description, room, "…")
	}
	dots := room - runewidth.StringWidth(description)
	return description + strings.Repeat(".", dots) + " " + suffix
}

// HookResult prints a hook's status and, unless it passed quietly, its
// output.
func (r *Reporter) HookResult(h *hook.Hook, o hook.Outcome) {
	if h.Quiet() && o.Status == hook.StatusPass {
		return
	}
	r.printf("%s\n", r.line(h.Description(), h.Name(), Label(o.Status)))
	if out := strings.TrimRight(o.Output, "\n"); out != "" {
		r.printf("%s\n", out)
	}
}

// HookSkipped prints a hook that was skipped on request.
func (r *Reporter) HookSkipped(h *hook.Hook) {
	r.printf("%s\n", r.line(h.Description(), h.Name(), "SKIPPED"))
}

// RequiredNotSkipped warns that a skip was ignored.
func (r *Reporter) RequiredNotSkipped(h *hook.Hook) {
	r.printf("Cannot skip %s since it is required\n", h.Name())
}

// Interrupted reports that the run stopped early.
func (r *Reporter) Interrupted() {
	r.printf("Interrupted; no further hooks will run\n")
}

// Finish prints the overall verdict.
func (r *Reporter) Finish(hookScript string, failed, warned, interrupted bool) {
	switch {
	case interrupted:
		r.printf("%s hooks were interrupted\n", hookScript)
	case failed:
		r.printf("%s hooks failed\n", hookScript)
	case warned:
		r.printf("%s hooks passed with warnings\n", hookScript)
	default:
		r.printf("%s hooks passed\n", hookScript)
	}
}
