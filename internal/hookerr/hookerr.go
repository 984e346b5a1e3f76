// Package hookerr defines the fatal error kinds raised by the hook engine.
//
// Every kind is a sentinel so callers can classify with errors.Is; the typed
// errors carry the detail needed for user-facing messages and unwrap to their
// sentinel.
package hookerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrConfiguration                 = errors.New("invalid configuration")
	ErrConfigurationSignatureChanged = errors.New("configuration signature changed")
	ErrInvalidHookSignature          = errors.New("hook signature changed")
	ErrInvalidHookDefinition         = errors.New("invalid hook definition")
	ErrHookLoad                      = errors.New("unable to load hook")
	ErrHookSetup                     = errors.New("hook environment setup failed")
	ErrHookCleanup                   = errors.New("hook environment cleanup failed")
	ErrMessageProcessing             = errors.New("unable to process hook messages")
	ErrInvalidGitRepo                = errors.New("not a git repository")
)

// ConfigurationError lists every offending entry found by a validation pass.
type ConfigurationError struct {
	Summary  string
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if len(e.Problems) == 0 {
		return e.Summary
	}
	return fmt.Sprintf("%s:\n  %s", e.Summary, strings.Join(e.Problems, "\n  "))
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// Configuration builds a ConfigurationError with sorted problems so messages
// are stable regardless of map iteration order.
func Configuration(summary string, problems []string) *ConfigurationError {
	sorted := append([]string(nil), problems...)
	sort.Strings(sorted)
	return &ConfigurationError{Summary: summary, Problems: sorted}
}

// SignatureError reports plugin or ad-hoc hooks whose fingerprint no longer
// matches the one recorded in the repository's local git config.
type SignatureError struct {
	HookType    string
	Hooks       []string
	Remediation string
}

func (e *SignatureError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "the following %s hooks have changed since they were last signed:\n", e.HookType)
	for _, h := range e.Hooks {
		fmt.Fprintf(&b, "  - %s\n", h)
	}
	if e.Remediation != "" {
		b.WriteString(e.Remediation)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *SignatureError) Unwrap() error { return ErrInvalidHookSignature }

// HookError ties a kind to the hook that produced it.
type HookError struct {
	Kind error
	Hook string
	Err  error
}

func (e *HookError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Hook)
	}
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Hook, e.Err)
}

// Unwrap exposes both the kind and the cause.
func (e *HookError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StepError wraps a failed setup/cleanup step (stash, reset, pop).
type StepError struct {
	Kind   error
	Step   string
	Output string
	Err    error
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s: unable to %s", e.Kind, e.Step)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ":\n" + out
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
