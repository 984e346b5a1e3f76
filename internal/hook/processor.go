package hook

import (
	"slices"
	"strings"

	"github.com/fulmenhq/affiance/internal/hookctx"
	"github.com/fulmenhq/affiance/pkg/logger"
)

// Settings for problemOnUnmodifiedLine.
const (
	UnmodifiedReport = "report"
	UnmodifiedWarn   = "warn"
	UnmodifiedIgnore = "ignore"
)

const (
	headerErrors             = "Errors:"
	headerWarnings           = "Warnings:"
	headerErrorsModified     = "Errors on modified lines:"
	headerWarningsModified   = "Warnings on modified lines:"
	headerErrorsUnmodified   = "Errors on lines you didn't modify:"
	headerWarningsUnmodified = "Warnings on lines you didn't modify:"
)

// MessageProcessor turns messages into an outcome, taking into account
// whether each problem sits on a line the current change touched.
type MessageProcessor struct {
	// Lines is nil for contexts without line information.
	Lines   hookctx.LineDiffer
	Setting string
}

// Process classifies msgs. Identical messages (same type, file, line and
// content) are reported once.
func (p *MessageProcessor) Process(msgs []Message) (Outcome, error) {
	msgs = dedupe(msgs)
	base := Outcome{Status: baselineStatus(msgs), Output: joinMessages(msgs)}
	if base.Status == StatusPass || p == nil || p.Lines == nil {
		return base, nil
	}

	setting := p.Setting
	if setting == "" {
		setting = UnmodifiedReport
	}

	var generic, modified, unmodified []Message
	for _, m := range msgs {
		// without both a file and a line there is no change to compare against
		if m.Line == 0 || m.File == "" {
			generic = append(generic, m)
			continue
		}
		on, err := p.onModifiedLine(m)
		if err != nil {
			return Outcome{}, err
		}
		switch {
		case on:
			modified = append(modified, m)
		case setting != UnmodifiedIgnore:
			unmodified = append(unmodified, m)
		}
	}

	var b strings.Builder
	writeSection(&b, generic, headerErrors, headerWarnings)
	writeSection(&b, modified, headerErrorsModified, headerWarningsModified)
	writeSection(&b, unmodified, headerErrorsUnmodified, headerWarningsUnmodified)

	touched := append(append([]Message(nil), generic...), modified...)
	return Outcome{Status: finalStatus(base.Status, touched, setting), Output: b.String()}, nil
}

func (p *MessageProcessor) onModifiedLine(m Message) (bool, error) {
	lines, err := p.Lines.ModifiedLinesInFile(m.File)
	if err != nil {
		return false, err
	}
	return slices.Contains(lines, m.Line), nil
}

// finalStatus recomputes the status from the messages on touched lines:
// report keeps the baseline, otherwise a failure with no touched errors is a
// warning, and under ignore a warning with no touched warnings passes.
func finalStatus(base Status, touched []Message, setting string) Status {
	if setting == UnmodifiedReport {
		return base
	}
	errs, warns := countTypes(touched)
	status := base
	if status == StatusFail && errs == 0 {
		status = StatusWarn
	}
	if status == StatusWarn && setting == UnmodifiedIgnore && warns == 0 {
		status = StatusPass
	}
	if status != base {
		logger.Debug("hook: status relaxed for problems on unmodified lines", logger.String("from", string(base)), logger.String("to", string(status)))
	}
	return status
}

func baselineStatus(msgs []Message) Status {
	errs, warns := countTypes(msgs)
	switch {
	case errs > 0:
		return StatusFail
	case warns > 0:
		return StatusWarn
	}
	return StatusPass
}

func countTypes(msgs []Message) (errs, warns int) {
	for _, m := range msgs {
		if m.Type == MessageError {
			errs++
		} else {
			warns++
		}
	}
	return errs, warns
}

func joinMessages(msgs []Message) string {
	if len(msgs) == 0 {
		return ""
	}
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n") + "\n"
}

func writeSection(b *strings.Builder, msgs []Message, errHeader, warnHeader string) {
	var errs, warns []Message
	for _, m := range msgs {
		if m.Type == MessageError {
			errs = append(errs, m)
		} else {
			warns = append(warns, m)
		}
	}
	if len(errs) > 0 {
		b.WriteString(errHeader + "\n" + joinMessages(errs))
	}
	if len(warns) > 0 {
		b.WriteString(warnHeader + "\n" + joinMessages(warns))
	}
}

func dedupe(msgs []Message) []Message {
	seen := make(map[Message]struct{}, len(msgs))
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
