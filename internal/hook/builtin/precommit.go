package builtin

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/affiance/internal/hook"
)

// scanLines calls fn for each line of every applicable text file.
func scanLines(h *hook.Hook, fn func(file string, n int, line string) *hook.Message) (hook.Messages, error) {
	files, err := h.ApplicableFiles()
	if err != nil {
		return nil, err
	}
	var msgs hook.Messages
	for _, f := range files {
		data, err := os.ReadFile(f) // #nosec G304 -- file comes from the repository's change set
		if err != nil {
			return nil, err
		}
		if bytes.IndexByte(data, 0) >= 0 {
			continue
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), len(data)+1)
		for n := 1; sc.Scan(); n++ {
			if m := fn(f, n, sc.Text()); m != nil {
				msgs = append(msgs, *m)
			}
		}
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
	}
	return msgs, nil
}

// TrailingWhitespace flags lines ending in spaces or tabs.
type TrailingWhitespace struct{}

func (TrailingWhitespace) Run(_ context.Context, h *hook.Hook) (hook.Result, error) {
	return scanLines(h, func(file string, n int, line string) *hook.Message {
		line = strings.TrimSuffix(line, "\r")
		if line == strings.TrimRight(line, " \t") {
			return nil
		}
		return &hook.Message{Type: hook.MessageError, File: file, Line: n,
			Content: fmt.Sprintf("%s:%d:%s", relPath(h, file), n, line)}
	})
}

var conflictMarker = regexp.MustCompile(`^<<<<<<<[ \t]`)

// MergeConflicts flags leftover conflict markers.
type MergeConflicts struct{}

func (MergeConflicts) Run(_ context.Context, h *hook.Hook) (hook.Result, error) {
	msgs, err := scanLines(h, func(file string, n int, line string) *hook.Message {
		if !conflictMarker.MatchString(line) {
			return nil
		}
		return &hook.Message{Type: hook.MessageError, File: file, Line: n,
			Content: fmt.Sprintf("%s:%d:%s", relPath(h, file), n, line)}
	})
	if err != nil || len(msgs) == 0 {
		return hook.StatusPass, err
	}
	return hook.Fail("Merge conflict markers detected:\n%s", strings.TrimRight(joinContent(msgs), "\n")), nil
}

func joinContent(msgs hook.Messages) string {
	var b strings.Builder
	for _, m := range msgs {
		b.WriteString(m.Content + "\n")
	}
	return b.String()
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

// YamlSyntax parses every applicable file as a YAML stream.
type YamlSyntax struct{}

func (YamlSyntax) Run(_ context.Context, h *hook.Hook) (hook.Result, error) {
	files, err := h.ApplicableFiles()
	if err != nil {
		return nil, err
	}
	var msgs hook.Messages
	for _, f := range files {
		data, err := os.ReadFile(f) // #nosec G304 -- file comes from the repository's change set
		if err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		for {
			var doc yaml.Node
			err := dec.Decode(&doc)
			if errors.Is(err, io.EOF) || (err == nil && doc.Kind == 0) {
				break
			}
			if err != nil {
				m := hook.Message{Type: hook.MessageError, File: f,
					Content: fmt.Sprintf("%s: %v", relPath(h, f), err)}
				if sub := yamlLine.FindStringSubmatch(err.Error()); sub != nil {
					m.Line, _ = strconv.Atoi(sub[1])
				}
				msgs = append(msgs, m)
				break
			}
		}
	}
	return msgs, nil
}

// JsonSyntax parses every applicable file as JSON.
type JsonSyntax struct{}

func (JsonSyntax) Run(_ context.Context, h *hook.Hook) (hook.Result, error) {
	files, err := h.ApplicableFiles()
	if err != nil {
		return nil, err
	}
	var msgs hook.Messages
	for _, f := range files {
		data, err := os.ReadFile(f) // #nosec G304 -- file comes from the repository's change set
		if err != nil {
			return nil, err
		}
		var v any
		err = json.Unmarshal(data, &v)
		if err == nil {
			continue
		}
		m := hook.Message{Type: hook.MessageError, File: f, Content: fmt.Sprintf("%s: %v", relPath(h, f), err)}
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			m.Line = 1 + bytes.Count(data[:min(int(syn.Offset), len(data))], []byte{'\n'})
			m.Content = fmt.Sprintf("%s:%d: %v", relPath(h, f), m.Line, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// eslintLine matches the compact formatter:
//
//	path/to/file.js: line 1, col 0, Error - message (rule)
var eslintLine = regexp.MustCompile(`^(?P<file>[^\s](?:\w:)?[^:]+):[^\d]+(?P<line>\d+).*?(?P<type>Error|Warning)`)

// EsLint runs eslint with the compact formatter and turns its report into
// messages.
type EsLint struct{}

func (EsLint) Run(ctx context.Context, h *hook.Hook) (hook.Result, error) {
	argv, err := h.Command()
	if err != nil {
		return nil, err
	}
	files, err := h.ApplicableFiles()
	if err != nil {
		return nil, err
	}
	res, err := h.Execute(ctx, argv, files)
	if err != nil {
		return nil, err
	}

	output := strings.TrimRight(res.Stdout, "\n")
	var lines []string
	for _, l := range hook.OutputLines(output) {
		if eslintLine.MatchString(l) {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 && !res.Success() {
		return hook.Fail("%s", strings.TrimRight(res.Stderr, "\n")), nil
	}
	if res.Success() && output == "" {
		return hook.StatusPass, nil
	}
	msgs, err := hook.ExtractMessages(lines, eslintLine, h.Context().Repo().Root(), hook.CategorizeBy("error"))
	if err != nil {
		return nil, err
	}
	return hook.Messages(msgs), nil
}
