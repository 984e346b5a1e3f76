package builtin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/fulmenhq/affiance/internal/hook"
	"github.com/fulmenhq/affiance/internal/hookctx"
)

var errNotCommitMsg = errors.New("hook requires a commit-msg context")

func commitMessage(h *hook.Hook) (commitMessageContext, error) {
	c, ok := hookctx.As[commitMessageContext](h.Context())
	if !ok {
		return nil, errNotCommitMsg
	}
	return c, nil
}

// messageLines returns the cleaned message lines without line endings.
func messageLines(h *hook.Hook) ([]string, error) {
	c, err := commitMessage(h)
	if err != nil {
		return nil, err
	}
	lines, err := c.CommitMessageLines()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.TrimRight(l, "\r\n")
	}
	return out, nil
}

// EmptyMessage fails a commit whose message is blank.
type EmptyMessage struct{}

func (EmptyMessage) Run(_ context.Context, h *hook.Hook) (hook.Result, error) {
	c, err := commitMessage(h)
	if err != nil {
		return nil, err
	}
	empty, err := c.EmptyMessage()
	if err != nil {
		return nil, err
	}
	if empty {
		return hook.Fail("Commit message should not be empty"), nil
	}
	return hook.StatusPass, nil
}

// SingleLineSubject warns when the subject is not followed by a blank line.
type SingleLineSubject struct{}

func (SingleLineSubject) Run(_ context.Context, h *hook.Hook) (hook.Result, error) {
	lines, err := messageLines(h)
	if err != nil {
		return nil, err
	}
	if len(lines) > 1 && strings.TrimSpace(lines[1]) != "" {
		return hook.Warn("Subject should be one line and followed by a blank line"), nil
	}
	return hook.StatusPass, nil
}

var specialPrefix = regexp.MustCompile(`^(fixup|squash)! `)

// TextWidth checks subject and body widths in display columns.
type TextWidth struct{}

func (TextWidth) Run(_ context.Context, h *hook.Hook) (hook.Result, error) {
	lines, err := messageLines(h)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return hook.StatusPass, nil
	}
	opts := h.Options()
	var problems []string

	subject := lines[0]
	maxSubject := opts.Int("maxSubjectWidth", 60) + len(specialPrefix.FindString(subject))
	minSubject := opts.Int("minSubjectWidth", 0)
	switch width := runewidth.StringWidth(subject); {
	case width > maxSubject:
		problems = append(problems, fmt.Sprintf("Commit message subject must be <= %d characters", maxSubject))
	case width < minSubject:
		problems = append(problems, fmt.Sprintf("Commit message subject must be >= %d characters", minSubject))
	}

	maxBody := opts.Int("maxBodyWidth", 72)
	for i := 2; i < len(lines); i++ {
		if runewidth.StringWidth(lines[i]) > maxBody {
			problems = append(problems, fmt.Sprintf("Line %d of commit message has > %d characters", i+1, maxBody))
		}
	}

	if len(problems) > 0 {
		return hook.Warn("%s", strings.Join(problems, "\n")), nil
	}
	return hook.StatusPass, nil
}

// TrailingPeriod warns about a subject ending in a period.
type TrailingPeriod struct{}

func (TrailingPeriod) Run(_ context.Context, h *hook.Hook) (hook.Result, error) {
	lines, err := messageLines(h)
	if err != nil {
		return nil, err
	}
	if len(lines) > 0 && strings.HasSuffix(strings.TrimSpace(lines[0]), ".") {
		return hook.Warn("Please omit the trailing period from commit message subject"), nil
	}
	return hook.StatusPass, nil
}
