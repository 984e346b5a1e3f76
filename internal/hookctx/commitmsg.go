package hookctx

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// scissors marks the start of the verbose diff in `git commit -v`; git
// drops it and everything after it.
const scissors = "------------------------ >8 ------------------------"

// CommitMsg is the commit-msg context. The first argument is the file git
// wrote the message to.
type CommitMsg struct {
	*stagedChanges

	msgOnce  sync.Once
	msgLines []string
	msgErr   error
}

func newCommitMsg(b *base) *CommitMsg {
	return &CommitMsg{stagedChanges: newStagedChanges(b)}
}

// CommitMessageFile returns the path of the message file.
func (c *CommitMsg) CommitMessageFile() string { return c.repo.Abs(c.arg(0)) }

// CommitMessageLines returns the message lines, each with its newline,
// without comments or the verbose diff.
func (c *CommitMsg) CommitMessageLines() ([]string, error) {
	c.msgOnce.Do(func() {
		var raw []byte
		raw, c.msgErr = os.ReadFile(c.CommitMessageFile())
		if c.msgErr != nil {
			c.msgErr = fmt.Errorf("read commit message: %w", c.msgErr)
			return
		}
		c.msgLines = cleanMessage(string(raw), c.repo.CommentChar())
	})
	return c.msgLines, c.msgErr
}

// CommitMessage returns the cleaned message text.
func (c *CommitMsg) CommitMessage() (string, error) {
	lines, err := c.CommitMessageLines()
	return strings.Join(lines, ""), err
}

// EmptyMessage reports a message that is blank once cleaned.
func (c *CommitMsg) EmptyMessage() (bool, error) {
	msg, err := c.CommitMessage()
	return strings.TrimSpace(msg) == "", err
}

func cleanMessage(raw, commentChar string) []string {
	var out []string
	for _, line := range strings.SplitAfter(raw, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "diff --git") {
			break
		}
		if strings.HasPrefix(line, commentChar) {
			if strings.Contains(line, scissors) {
				break
			}
			continue
		}
		out = append(out, line)
	}
	return out
}

// PrepareCommitMsg is the prepare-commit-msg context: message file, message
// source and, for amends, the commit sha.
type PrepareCommitMsg struct {
	*stagedChanges
}

func newPrepareCommitMsg(b *base) *PrepareCommitMsg {
	return &PrepareCommitMsg{stagedChanges: newStagedChanges(b)}
}

func (c *PrepareCommitMsg) CommitMessageFile() string   { return c.repo.Abs(c.arg(0)) }
func (c *PrepareCommitMsg) CommitMessageSource() string { return c.arg(1) }
func (c *PrepareCommitMsg) CommitSHA() string           { return c.arg(2) }
