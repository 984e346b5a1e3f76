package cmd

import (
	"errors"

	"github.com/fulmenhq/affiance/internal/hookerr"
	"github.com/fulmenhq/affiance/pkg/exitcode"
)

var (
	errHooksFailed = errors.New("one or more hooks failed")
	errInterrupted = errors.New("hook run interrupted")
)

// exitCodes is checked in order; the more specific kinds come first because
// store failures during signing also wrap ErrConfiguration.
var exitCodes = []struct {
	kind error
	code int
}{
	{errHooksFailed, exitcode.HookFailed},
	{errInterrupted, exitcode.Interrupted},
	{hookerr.ErrConfigurationSignatureChanged, exitcode.ConfigurationSignatureChanged},
	{hookerr.ErrInvalidHookSignature, exitcode.HookSignatureChanged},
	{hookerr.ErrInvalidHookDefinition, exitcode.InvalidHookDefinition},
	{hookerr.ErrHookLoad, exitcode.HookLoadError},
	{hookerr.ErrHookSetup, exitcode.HookSetupFailed},
	{hookerr.ErrHookCleanup, exitcode.HookCleanupFailed},
	{hookerr.ErrMessageProcessing, exitcode.MessageProcessingError},
	{hookerr.ErrInvalidGitRepo, exitcode.InvalidGitRepo},
	{hookerr.ErrConfiguration, exitcode.ConfigError},
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return exitcode.Success
	}
	for _, e := range exitCodes {
		if errors.Is(err, e.kind) {
			return e.code
		}
	}
	return exitcode.GeneralError
}
