// Package exitcode provides standardized exit codes for affiance
package exitcode

// Exit codes for the affiance CLI. Each fatal error kind of the hook engine
// maps to its own code so hook scripts can tell them apart.
const (
	Success                       = 0
	HookFailed                    = 1
	ConfigError                   = 2
	ConfigurationSignatureChanged = 3
	HookSignatureChanged          = 4
	InvalidHookDefinition         = 5
	HookLoadError                 = 6
	HookSetupFailed               = 7
	HookCleanupFailed             = 8
	MessageProcessingError        = 9
	InvalidGitRepo                = 10
	Interrupted                   = 130
	GeneralError                  = 64
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case HookFailed:
		return "Hook failed"
	case ConfigError:
		return "Configuration error"
	case ConfigurationSignatureChanged:
		return "Configuration signature changed"
	case HookSignatureChanged:
		return "Hook signature changed"
	case InvalidHookDefinition:
		return "Invalid hook definition"
	case HookLoadError:
		return "Hook load error"
	case HookSetupFailed:
		return "Hook environment setup failed"
	case HookCleanupFailed:
		return "Hook environment cleanup failed"
	case MessageProcessingError:
		return "Message processing error"
	case InvalidGitRepo:
		return "Invalid git repository"
	case Interrupted:
		return "Interrupted"
	case GeneralError:
		return "General error"
	default:
		return "Unknown error"
	}
}
