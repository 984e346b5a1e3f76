package builtin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fulmenhq/affiance/internal/hook"
	"github.com/fulmenhq/affiance/internal/hookctx"
)

// ProtectedBranches blocks pushes to configured branches; with
// destructiveOnly (the default) only deletions and force pushes are blocked.
type ProtectedBranches struct{}

func (ProtectedBranches) Run(_ context.Context, h *hook.Hook) (hook.Result, error) {
	pc, ok := hookctx.As[pushContext](h.Context())
	if !ok {
		return nil, errors.New("hook requires a pre-push context")
	}
	opts := h.Options()
	patterns := opts.StringList("branches")
	destructiveOnly := opts.BoolOr("destructiveOnly", true)

	var problems []string
	for _, ref := range pc.PushedRefs() {
		branch := strings.TrimPrefix(ref.RemoteRef, "refs/heads/")
		if !matchesBranch(branch, patterns) {
			continue
		}
		if destructiveOnly && !ref.Destructive() {
			continue
		}
		if destructiveOnly {
			problems = append(problems, fmt.Sprintf("Deleting or force-pushing to %s is not allowed.", branch))
		} else {
			problems = append(problems, fmt.Sprintf("Pushing to %s is not allowed.", branch))
		}
	}
	if len(problems) > 0 {
		return hook.Fail("%s", strings.Join(problems, "\n")), nil
	}
	return hook.StatusPass, nil
}

func matchesBranch(branch string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, branch); err == nil && ok {
			return true
		}
	}
	return false
}
