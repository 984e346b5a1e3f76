package hook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/internal/proc"
)

// PluginCheck runs an executable from the plugin directory.
//
// The plugin receives the applicable files as arguments when the hook
// requires files, the original arguments otherwise, and always the original
// stdin. Its stdout may be a JSON object {"status", "output"}, a JSON array
// of messages, or plain text; plain text passes on a zero exit and fails
// otherwise.
type PluginCheck struct {
	Path string
}

func (p PluginCheck) Run(ctx context.Context, h *Hook) (Result, error) {
	flags, err := h.Flags()
	if err != nil {
		return nil, err
	}
	argv := append([]string{p.Path}, flags...)

	var res *proc.Result
	if h.Options().Bool("requiresFiles") {
		files, ferr := h.ApplicableFiles()
		if ferr != nil {
			return nil, ferr
		}
		res, err = h.Execute(ctx, argv, files)
	} else {
		res, err = h.ExecuteHook(ctx, argv)
	}
	if err != nil {
		return nil, err
	}
	return DecodePluginOutput(res)
}

// DecodePluginOutput interprets a plugin's output.
func DecodePluginOutput(res *proc.Result) (Result, error) {
	out := bytes.TrimSpace([]byte(res.Stdout))
	switch {
	case bytes.HasPrefix(out, []byte("{")):
		var so struct {
			Status string `json:"status"`
			Output string `json:"output"`
		}
		if err := json.Unmarshal(out, &so); err != nil {
			return nil, fmt.Errorf("%w: invalid plugin result: %v\n%s", hookerr.ErrMessageProcessing, err, out)
		}
		st, err := ParseStatus(so.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", hookerr.ErrMessageProcessing, err)
		}
		return StatusOutput{Status: st, Output: so.Output}, nil

	case bytes.HasPrefix(out, []byte("[")):
		var raw []json.RawMessage
		if err := json.Unmarshal(out, &raw); err != nil {
			return nil, fmt.Errorf("%w: invalid plugin messages: %v\n%s", hookerr.ErrMessageProcessing, err, out)
		}
		msgs := make(Messages, 0, len(raw))
		for i, item := range raw {
			var m Message
			if err := json.Unmarshal(item, &m); err != nil || (m.Type != MessageError && m.Type != MessageWarning) {
				return nil, fmt.Errorf("%w: element %d is not a message:\n%s", hookerr.ErrMessageProcessing, i, item)
			}
			msgs = append(msgs, m)
		}
		return msgs, nil
	}

	text := strings.TrimRight(res.Combined(), "\n")
	if res.Success() {
		return StatusOutput{Status: StatusPass, Output: text}, nil
	}
	return StatusOutput{Status: StatusFail, Output: text}, nil
}
