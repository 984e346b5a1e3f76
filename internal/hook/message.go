package hook

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fulmenhq/affiance/internal/hookerr"
)

// MessageType classifies a message.
type MessageType string

const (
	MessageError   MessageType = "error"
	MessageWarning MessageType = "warning"
)

// Message is one problem reported by a hook. Line is 0 when the problem
// applies to the whole file.
type Message struct {
	Type    MessageType `json:"type"`
	File    string      `json:"file,omitempty"`
	Line    int         `json:"line,omitempty"`
	Content string      `json:"content"`
}

func (m Message) String() string { return m.Content }

// TypeCategorizer maps the text captured by a "type" group to a MessageType.
type TypeCategorizer func(captured string) MessageType

// CategorizeBy returns a categorizer that reports an error when the captured
// text contains any of the error markers (case-insensitive), a warning
// otherwise.
func CategorizeBy(errorMarkers ...string) TypeCategorizer {
	return func(captured string) MessageType {
		lower := strings.ToLower(captured)
		for _, m := range errorMarkers {
			if strings.Contains(lower, strings.ToLower(m)) {
				return MessageError
			}
		}
		return MessageWarning
	}
}

// ExtractMessages parses tool output lines with a pattern that has a "file"
// group and optional "line" and "type" groups. Relative files are resolved
// against root. Without a categorizer every message is an error.
//
// A line the pattern does not match fails with ErrMessageProcessing carrying
// the unparsed remainder.
func ExtractMessages(lines []string, pattern *regexp.Regexp, root string, categorize TypeCategorizer) ([]Message, error) {
	fileIdx := pattern.SubexpIndex("file")
	lineIdx := pattern.SubexpIndex("line")
	typeIdx := pattern.SubexpIndex("type")

	msgs := make([]Message, 0, len(lines))
	for i, text := range lines {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			return nil, fmt.Errorf("%w: unable to determine line number or type of error/warning for output:\n%s",
				hookerr.ErrMessageProcessing, strings.Join(lines[i:], "\n"))
		}
		if fileIdx < 0 || m[fileIdx] == "" {
			return nil, fmt.Errorf("%w: no file found in output:\n%s", hookerr.ErrMessageProcessing, text)
		}
		msg := Message{Type: MessageError, File: m[fileIdx], Content: text}
		if !filepath.IsAbs(msg.File) && root != "" {
			msg.File = filepath.Join(root, msg.File)
		}
		if lineIdx >= 0 && m[lineIdx] != "" {
			n, err := strconv.Atoi(m[lineIdx])
			if err != nil {
				return nil, fmt.Errorf("%w: invalid line number %q in output:\n%s", hookerr.ErrMessageProcessing, m[lineIdx], text)
			}
			msg.Line = n
		}
		if categorize != nil {
			captured := ""
			if typeIdx >= 0 {
				captured = m[typeIdx]
			}
			msg.Type = categorize(captured)
			if msg.Type != MessageError && msg.Type != MessageWarning {
				return nil, fmt.Errorf("%w: unknown message type %q for output:\n%s", hookerr.ErrMessageProcessing, msg.Type, text)
			}
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// OutputLines splits tool output into non-blank lines.
func OutputLines(out string) []string {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimRight(l, "\r"); strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
