package config

import "strings"

// HookType names one git hook in its three spellings: the script git invokes,
// the configuration section, and the plugin subdirectory.
type HookType struct {
	Script    string
	Config    string
	PluginDir string
}

// HookTypes lists every supported git hook.
var HookTypes = []HookType{
	{Script: "commit-msg", Config: "CommitMsg", PluginDir: "commit_msg"},
	{Script: "post-checkout", Config: "PostCheckout", PluginDir: "post_checkout"},
	{Script: "post-commit", Config: "PostCommit", PluginDir: "post_commit"},
	{Script: "post-merge", Config: "PostMerge", PluginDir: "post_merge"},
	{Script: "post-rewrite", Config: "PostRewrite", PluginDir: "post_rewrite"},
	{Script: "pre-commit", Config: "PreCommit", PluginDir: "pre_commit"},
	{Script: "pre-push", Config: "PrePush", PluginDir: "pre_push"},
	{Script: "pre-rebase", Config: "PreRebase", PluginDir: "pre_rebase"},
	{Script: "prepare-commit-msg", Config: "PrepareCommitMsg", PluginDir: "prepare_commit_msg"},
}

// LookupHookType accepts any of the three spellings.
func LookupHookType(name string) (HookType, bool) {
	for _, ht := range HookTypes {
		if strings.EqualFold(name, ht.Script) || name == ht.Config || name == ht.PluginDir {
			return ht, true
		}
	}
	return HookType{}, false
}

func isHookTypeSection(key string) bool {
	for _, ht := range HookTypes {
		if ht.Config == key {
			return true
		}
	}
	return false
}

// Scope is the view of a hook context that configuration queries need.
type Scope interface {
	HookScriptName() string
	HookConfigName() string
}

func pluginDirFor(scope Scope) string {
	if ht, ok := LookupHookType(scope.HookConfigName()); ok {
		return ht.PluginDir
	}
	return snakeCase(scope.HookConfigName())
}
