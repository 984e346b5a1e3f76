package builtin

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/affiance/internal/git"
	"github.com/fulmenhq/affiance/internal/gittest"
	"github.com/fulmenhq/affiance/internal/hook"
	"github.com/fulmenhq/affiance/internal/hookctx"
	"github.com/fulmenhq/affiance/pkg/config"
)

func openRepo(t *testing.T, dir string) *git.Repo {
	t.Helper()
	repo, err := git.Open(dir)
	require.NoError(t, err)
	return repo
}

// allFilesContext commits the given files and returns a context covering
// every tracked file.
func allFilesContext(t *testing.T, files map[string]string) (hookctx.Context, string) {
	t.Helper()
	dir := gittest.NewRepoWithCommit(t)
	for rel, content := range files {
		gittest.WriteFile(t, dir, rel, content)
		gittest.Git(t, dir, "add", rel)
	}
	gittest.Git(t, dir, "commit", "-q", "--allow-empty", "-m", "Add fixtures")
	inner, err := hookctx.New("pre-commit", openRepo(t, dir), nil, "")
	require.NoError(t, err)
	return hookctx.NewRunAll(inner), dir
}

func runCheck(t *testing.T, name string, check hook.Check, opts config.Options, hc hookctx.Context) hook.Outcome {
	t.Helper()
	merged := config.Options{"enabled": true, "requiresFiles": true, "problemOnUnmodifiedLine": "report"}
	for k, v := range opts {
		merged[k] = v
	}
	out, err := hook.New(name, hook.KindBuiltIn, merged, hc, check).WrapRun(context.Background())
	require.NoError(t, err)
	return out
}

func TestBuiltInsAreRegistered(t *testing.T) {
	reg := hook.DefaultRegistry()
	assert.Equal(t, []string{"EsLint", "JsonSyntax", "MergeConflicts", "TrailingWhitespace", "YamlSyntax"}, reg.Names("PreCommit"))
	assert.Equal(t, []string{"EmptyMessage", "SingleLineSubject", "TextWidth", "TrailingPeriod"}, reg.Names("CommitMsg"))
	assert.Equal(t, []string{"ProtectedBranches"}, reg.Names("PrePush"))
	for _, ht := range []string{"PostCheckout", "PostMerge", "PostRewrite"} {
		assert.True(t, reg.Has(ht, "SubmoduleStatus"), ht)
	}

	factory, ok := reg.Lookup("PreCommit", "EsLint")
	require.True(t, ok)
	check, err := factory(config.Options{})
	require.NoError(t, err)
	assert.IsType(t, EsLint{}, check)
}

func TestTrailingWhitespace(t *testing.T) {
	hc, _ := allFilesContext(t, map[string]string{
		"clean.go": "package x\n",
		"dirty.go": "package x \n\nfunc A() {}\t\n",
		"bin.dat":  "a \x00 b \n",
	})

	out := runCheck(t, "TrailingWhitespace", TrailingWhitespace{}, nil, hc)
	assert.Equal(t, hook.StatusFail, out.Status)
	assert.Contains(t, out.Output, "dirty.go:1:package x \n")
	assert.Contains(t, out.Output, "dirty.go:3:func A() {}\t\n")
	assert.NotContains(t, out.Output, "clean.go")
	assert.NotContains(t, out.Output, "bin.dat")

	out = runCheck(t, "TrailingWhitespace", TrailingWhitespace{}, config.Options{"exclude": "dirty.go"}, hc)
	assert.Equal(t, hook.StatusPass, out.Status)
}

func TestMergeConflicts(t *testing.T) {
	hc, _ := allFilesContext(t, map[string]string{
		"a.txt": "ok\n<<<<<<< HEAD\nmine\n=======\ntheirs\n>>>>>>> branch\n",
		"b.txt": "<<<<<<<not a marker\n",
	})

	out := runCheck(t, "MergeConflicts", MergeConflicts{}, nil, hc)
	assert.Equal(t, hook.StatusFail, out.Status)
	assert.Equal(t, "Merge conflict markers detected:\na.txt:2:<<<<<<< HEAD", out.Output)
}

func TestYamlSyntax(t *testing.T) {
	hc, _ := allFilesContext(t, map[string]string{
		"good.yml":  "a: 1\n---\nb: [1, 2]\n",
		"empty.yml": "",
		"bad.yaml":  "a: 1\nb: [1, 2\n",
		"notes.txt": "a: [\n",
	})

	out := runCheck(t, "YamlSyntax", YamlSyntax{}, config.Options{"include": []any{"**/*.yml", "**/*.yaml"}}, hc)
	assert.Equal(t, hook.StatusFail, out.Status)
	assert.Contains(t, out.Output, "bad.yaml")
	assert.NotContains(t, out.Output, "good.yml")
	assert.NotContains(t, out.Output, "notes.txt")
}

func TestJsonSyntax(t *testing.T) {
	hc, dir := allFilesContext(t, map[string]string{
		"good.json": `{"a": [1, 2]}`,
		"bad.json":  "{\n  \"a\": 1,\n  \"b\": }\n",
	})

	h := hook.New("JsonSyntax", hook.KindBuiltIn, config.Options{"enabled": true, "include": "**/*.json"}, hc, JsonSyntax{})
	res, err := JsonSyntax{}.Run(context.Background(), h)
	require.NoError(t, err)
	msgs, ok := res.(hook.Messages)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, filepath.Join(dir, "bad.json"), msgs[0].File)
	assert.Equal(t, 3, msgs[0].Line)
	assert.True(t, strings.HasPrefix(msgs[0].Content, "bad.json:3: "))
}

func TestEsLint(t *testing.T) {
	hc, dir := allFilesContext(t, map[string]string{
		"src/a.js": "var a = 1\nvar b = 2\nvar c = 3\nvar d = 4\nvar e = 5\n",
	})
	eslint := gittest.WriteFile(t, dir, "tools/eslint", `#!/bin/sh
cat <<'OUT'
src/a.js: line 3, col 1, Error - Unexpected var (no-var)
src/a.js: line 5, col 2, Warning - Missing semicolon (semi)

2 problems
OUT
exit 1
`)
	require.NoError(t, os.Chmod(eslint, 0o755))

	out := runCheck(t, "EsLint", EsLint{}, config.Options{"requiredExecutable": eslint, "flags": []any{"--format=compact"}, "include": "**/*.js"}, hc)
	assert.Equal(t, hook.StatusFail, out.Status)
	assert.Equal(t, "Errors on modified lines:\n"+
		"src/a.js: line 3, col 1, Error - Unexpected var (no-var)\n"+
		"Warnings on modified lines:\n"+
		"src/a.js: line 5, col 2, Warning - Missing semicolon (semi)\n", out.Output)
}

func TestEsLintCrash(t *testing.T) {
	hc, dir := allFilesContext(t, map[string]string{"a.js": "x\n"})
	eslint := gittest.WriteFile(t, dir, "tools/eslint", "#!/bin/sh\necho 'Oops! Something went wrong' >&2\nexit 2\n")
	require.NoError(t, os.Chmod(eslint, 0o755))

	out := runCheck(t, "EsLint", EsLint{}, config.Options{"requiredExecutable": eslint, "include": "**/*.js"}, hc)
	assert.Equal(t, hook.StatusFail, out.Status)
	assert.Equal(t, "Oops! Something went wrong", out.Output)
}

func commitMsgContext(t *testing.T, message string) hookctx.Context {
	t.Helper()
	dir := gittest.NewRepoWithCommit(t)
	gittest.WriteFile(t, dir, ".git/COMMIT_EDITMSG", message)
	hc, err := hookctx.New("commit-msg", openRepo(t, dir), []string{".git/COMMIT_EDITMSG"}, "")
	require.NoError(t, err)
	return hc
}

func TestCommitMessageHooks(t *testing.T) {
	long := strings.Repeat("x", 61)
	wide := strings.Repeat("界", 31)
	tests := []struct {
		name    string
		check   hook.Check
		opts    config.Options
		message string
		status  hook.Status
		output  string
	}{
		{"empty message", EmptyMessage{}, nil, "# only a comment\n\n", hook.StatusFail, "Commit message should not be empty"},
		{"non-empty message", EmptyMessage{}, nil, "Subject\n", hook.StatusPass, ""},
		{"single line subject", SingleLineSubject{}, nil, "Subject\n\nBody\n", hook.StatusPass, ""},
		{"subject runs on", SingleLineSubject{}, nil, "Subject\nmore subject\n", hook.StatusWarn, "Subject should be one line and followed by a blank line"},
		{"trailing period", TrailingPeriod{}, nil, "Fix the thing.\n", hook.StatusWarn, "Please omit the trailing period from commit message subject"},
		{"no trailing period", TrailingPeriod{}, nil, "Fix the thing\n", hook.StatusPass, ""},
		{"subject too long", TextWidth{}, nil, long + "\n", hook.StatusWarn, "Commit message subject must be <= 60 characters"},
		{"fixup prefix allowed", TextWidth{}, nil, "fixup! " + strings.Repeat("x", 60) + "\n", hook.StatusPass, ""},
		{"wide characters count double", TextWidth{}, nil, wide + "\n", hook.StatusWarn, "Commit message subject must be <= 60 characters"},
		{"subject too short", TextWidth{}, config.Options{"minSubjectWidth": 10}, "Fix\n", hook.StatusWarn, "Commit message subject must be >= 10 characters"},
		{
			"body too wide",
			TextWidth{},
			config.Options{"maxBodyWidth": 10},
			"Subject\n\nshort\n" + strings.Repeat("y", 11) + "\n",
			hook.StatusWarn,
			"Line 4 of commit message has > 10 characters",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := commitMsgContext(t, tt.message)
			opts := config.Options{"maxSubjectWidth": 60, "maxBodyWidth": 72, "requiresFiles": false}
			for k, v := range tt.opts {
				opts[k] = v
			}
			out := runCheck(t, "CommitMsgCheck", tt.check, opts, hc)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.output, out.Output)
		})
	}
}

func TestCommitMessageHookOutsideCommitMsg(t *testing.T) {
	hc, _ := allFilesContext(t, nil)
	out := runCheck(t, "TextWidth", TextWidth{}, config.Options{"requiresFiles": false}, hc)
	assert.Equal(t, hook.StatusFail, out.Status)
	assert.Contains(t, out.Output, "commit-msg context")
}

func TestProtectedBranches(t *testing.T) {
	dir := gittest.NewRepoWithCommit(t)
	base := gittest.Git(t, dir, "rev-parse", "HEAD")
	gittest.WriteFile(t, dir, "a.txt", "a\n")
	gittest.Git(t, dir, "add", "a.txt")
	gittest.Git(t, dir, "commit", "-q", "-m", "Add a")
	tip := gittest.Git(t, dir, "rev-parse", "HEAD")
	null := strings.Repeat("0", 40)

	tests := []struct {
		name   string
		input  string
		opts   config.Options
		status hook.Status
		output string
	}{
		{"fast-forward allowed", "refs/heads/main " + tip + " refs/heads/main " + base, nil, hook.StatusPass, ""},
		{"delete blocked", "(delete) " + null + " refs/heads/main " + base, nil, hook.StatusFail, "Deleting or force-pushing to main is not allowed."},
		{"force blocked", "refs/heads/main " + base + " refs/heads/main " + tip, nil, hook.StatusFail, "Deleting or force-pushing to main is not allowed."},
		{"other branch", "(delete) " + null + " refs/heads/topic " + base, nil, hook.StatusPass, ""},
		{"glob pattern", "(delete) " + null + " refs/heads/release/1.0 " + base, config.Options{"branches": []any{"release/*"}}, hook.StatusFail, "Deleting or force-pushing to release/1.0 is not allowed."},
		{"any push blocked", "refs/heads/main " + tip + " refs/heads/main " + base, config.Options{"destructiveOnly": false}, hook.StatusFail, "Pushing to main is not allowed."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc, err := hookctx.New("pre-push", openRepo(t, dir), []string{"origin", "url"}, tt.input+"\n")
			require.NoError(t, err)
			opts := config.Options{"branches": []any{"main", "master"}, "requiresFiles": false}
			for k, v := range tt.opts {
				opts[k] = v
			}
			out := runCheck(t, "ProtectedBranches", ProtectedBranches{}, opts, hc)
			assert.Equal(t, tt.status, out.Status)
			assert.Equal(t, tt.output, out.Output)
		})
	}
}

func TestSubmoduleStatus(t *testing.T) {
	sub := gittest.NewRepoWithCommit(t)
	dir := gittest.NewRepoWithCommit(t)
	hc, err := hookctx.New("post-merge", openRepo(t, dir), []string{"0"}, "")
	require.NoError(t, err)

	out := runCheck(t, "SubmoduleStatus", SubmoduleStatus{}, config.Options{"requiresFiles": false}, hc)
	assert.Equal(t, hook.StatusPass, out.Status)

	gittest.Git(t, dir, "-c", "protocol.file.allow=always", "submodule", "add", "-q", sub, "vendor/sub")
	gittest.Git(t, dir, "commit", "-q", "-m", "Add submodule")
	gittest.Git(t, dir, "submodule", "deinit", "-q", "-f", "vendor/sub")

	out = runCheck(t, "SubmoduleStatus", SubmoduleStatus{}, config.Options{"requiresFiles": false}, hc)
	assert.Equal(t, hook.StatusWarn, out.Status)
	assert.Equal(t, "Submodule vendor/sub is uninitialized.", out.Output)
}
