// Package builtin holds the hooks shipped with affiance. Each registers
// itself with the hook registry at init.
package builtin

import (
	"github.com/fulmenhq/affiance/internal/hook"
	"github.com/fulmenhq/affiance/internal/hookctx"
	"github.com/fulmenhq/affiance/pkg/config"
)

func init() {
	register("PreCommit", "TrailingWhitespace", TrailingWhitespace{})
	register("PreCommit", "MergeConflicts", MergeConflicts{})
	register("PreCommit", "YamlSyntax", YamlSyntax{})
	register("PreCommit", "JsonSyntax", JsonSyntax{})
	register("PreCommit", "EsLint", EsLint{})

	register("CommitMsg", "EmptyMessage", EmptyMessage{})
	register("CommitMsg", "SingleLineSubject", SingleLineSubject{})
	register("CommitMsg", "TextWidth", TextWidth{})
	register("CommitMsg", "TrailingPeriod", TrailingPeriod{})

	register("PrePush", "ProtectedBranches", ProtectedBranches{})

	for _, hookType := range []string{"PostCheckout", "PostMerge", "PostRewrite"} {
		register(hookType, "SubmoduleStatus", SubmoduleStatus{})
	}
}

func register(hookType, name string, check hook.Check) {
	hook.Register(hookType, name, func(config.Options) (hook.Check, error) { return check, nil })
}

// commitMessageContext is implemented by the commit-msg context.
type commitMessageContext interface {
	CommitMessageLines() ([]string, error)
	EmptyMessage() (bool, error)
}

// pushContext is implemented by the pre-push context.
type pushContext interface {
	PushedRefs() []*hookctx.PushedRef
}

func relPath(h *hook.Hook, path string) string {
	return h.Context().Repo().Rel(path)
}
