package hook

import (
	"fmt"
	"strings"
)

// Status is the outcome of one hook.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// ParseStatus accepts the three status tokens.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPass, StatusWarn, StatusFail:
		return st, nil
	}
	return "", fmt.Errorf("unknown hook status %q", s)
}

// Result is what a check returns: a bare Status, a StatusOutput, or Messages.
type Result interface {
	isResult()
}

func (Status) isResult() {}

// StatusOutput is a status with the text to show for it.
type StatusOutput struct {
	Status Status `json:"status"`
	Output string `json:"output"`
}

func (StatusOutput) isResult() {}

// Messages is a list of problems for the message processor to classify.
type Messages []Message

func (Messages) isResult() {}

// Pass, Warn and Fail build a StatusOutput with formatted output.
func Pass() Result { return StatusPass }

func Warn(format string, args ...any) Result {
	return StatusOutput{Status: StatusWarn, Output: fmt.Sprintf(format, args...)}
}

func Fail(format string, args ...any) Result {
	return StatusOutput{Status: StatusFail, Output: fmt.Sprintf(format, args...)}
}

// Outcome is a normalized result.
type Outcome struct {
	Status Status
	Output string
}

// normalize turns any Result into an Outcome; messages go through the
// processor.
func normalize(r Result, p *MessageProcessor) (Outcome, error) {
	switch v := r.(type) {
	case nil:
		return Outcome{}, fmt.Errorf("hook returned no result")
	case Status:
		return Outcome{Status: v}, nil
	case StatusOutput:
		return Outcome{Status: v.Status, Output: v.Output}, nil
	case *StatusOutput:
		return Outcome{Status: v.Status, Output: v.Output}, nil
	case Messages:
		return p.Process(v)
	}
	return Outcome{}, fmt.Errorf("unsupported hook result %T", r)
}

// transformStatus applies onFail/onWarn.
func transformStatus(s Status, onFail, onWarn string) Status {
	switch s {
	case StatusFail:
		if st, err := ParseStatus(onFail); err == nil {
			return st
		}
	case StatusWarn:
		if st, err := ParseStatus(onWarn); err == nil {
			return st
		}
	}
	return s
}
