package rlm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/cli/cmd/recall/cli/index"
	"github.com/recallhq/cli/cmd/recall/cli/memory"
	"github.com/recallhq/cli/cmd/recall/cli/trailers"
)

func testEnv(t *testing.T) Env {
	t.Helper()

	ix := index.New("head123")
	for _, c := range []*trailers.StructuredCommit{
		{Hash: "aaa", Date: "2026-03-03T10:00:00Z", Type: "fix", Subject: "tighten login flow",
			Intent: "fix-defect", Scope: []string{"auth/login"}},
		{Hash: "bbb", Date: "2026-03-02T10:00:00Z", Type: "fix", Subject: "evict stale cache entries",
			Intent: "fix-defect", Scope: []string{"cache"}, DecidedAgainst: []string{"Redis sentinel"}},
		{Hash: "ccc", Date: "2026-03-01T10:00:00Z", Type: "feat", Subject: "add auth tokens",
			Intent: "enable-capability", Scope: []string{"auth"}},
	} {
		ix.Add(c)
	}
	return Env{Index: ix, ScopeKeys: ix.ScopeKeys()}
}

func newTestSandbox(t *testing.T, env Env, llm LlmEffect, git GitEffect) *Sandbox {
	t.Helper()
	sb, err := NewSandbox(env, llm, git)
	require.NoError(t, err)
	t.Cleanup(sb.Terminate)
	return sb
}

func TestSandboxDone(t *testing.T) {
	sb := newTestSandbox(t, testEnv(t), nil, nil)

	out, err := sb.Execute(context.Background(), "done('The answer is 42')")
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Equal(t, "The answer is 42", out.DoneAnswer)
	assert.Empty(t, out.Error)
}

func TestSandboxSyntaxError(t *testing.T) {
	sb := newTestSandbox(t, testEnv(t), nil, nil)

	out, err := sb.Execute(context.Background(), "const x = {;")
	require.NoError(t, err)
	assert.NotEmpty(t, out.Error)
	assert.False(t, out.Done)
}

func TestSandboxRuntimeError(t *testing.T) {
	sb := newTestSandbox(t, testEnv(t), nil, nil)

	out, err := sb.Execute(context.Background(), "throw new Error('boom')")
	require.NoError(t, err)
	assert.Contains(t, out.Error, "boom")
	assert.False(t, out.Done)
}

func TestSandboxConsoleLog(t *testing.T) {
	sb := newTestSandbox(t, testEnv(t), nil, nil)

	out, err := sb.Execute(context.Background(), "console.log('hello', 42)")
	require.NoError(t, err)
	assert.Equal(t, "hello 42\n", out.Stdout)
}

func TestSandboxQuery(t *testing.T) {
	sb := newTestSandbox(t, testEnv(t), nil, nil)

	out, err := sb.Execute(context.Background(),
		"const commits = query({scope: 'auth'}); console.log(commits.length, commits[0].hash)")
	require.NoError(t, err)
	assert.Equal(t, "2 aaa\n", out.Stdout)
	assert.Empty(t, out.Error)
}

func TestSandboxEnvBindings(t *testing.T) {
	env := testEnv(t)
	env.WorkingMemory = &memory.WorkingMemory{
		Version:   memory.Version,
		SessionID: "2026-03-01/auth-work",
		Entries:   []memory.Entry{{Tag: "finding", Text: "x"}},
	}
	sb := newTestSandbox(t, env, nil, nil)

	out, err := sb.Execute(context.Background(),
		"console.log(index.commitCount, scopeKeys.length, workingMemory.sessionId)")
	require.NoError(t, err)
	assert.Equal(t, "3 3 2026-03-01/auth-work\n", out.Stdout)
}

func TestSandboxGlobalsPersist(t *testing.T) {
	sb := newTestSandbox(t, testEnv(t), nil, nil)

	_, err := sb.Execute(context.Background(), "globalThis.counter = 41")
	require.NoError(t, err)

	out, err := sb.Execute(context.Background(), "globalThis.counter++; console.log(globalThis.counter)")
	require.NoError(t, err)
	assert.Equal(t, "42\n", out.Stdout)
}

func TestSandboxCallLlmAwaitable(t *testing.T) {
	var gotMessages []Message
	llm := func(_ context.Context, messages []Message) (string, error) {
		gotMessages = messages
		return "summarized", nil
	}
	sb := newTestSandbox(t, testEnv(t), llm, nil)

	out, err := sb.Execute(context.Background(),
		"const r = await callLlm([{role: 'user', content: 'summarize'}]); done(r)")
	require.NoError(t, err)
	assert.Equal(t, "summarized", out.DoneAnswer)
	assert.Equal(t, 1, out.SubCalls)
	require.Len(t, gotMessages, 1)
	assert.Equal(t, "summarize", gotMessages[0].Content)
}

func TestSandboxGitLogSanitized(t *testing.T) {
	var gotArgs []string
	git := func(_ context.Context, args []string) (string, error) {
		gotArgs = args
		return "log output", nil
	}
	sb := newTestSandbox(t, testEnv(t), nil, git)

	out, err := sb.Execute(context.Background(),
		"const r = await gitLog(['--grep=auth', '-n', '100']); console.log(r)")
	require.NoError(t, err)
	assert.Equal(t, "log output\n", out.Stdout)
	assert.Equal(t, []string{"--grep=auth", "-n", "50"}, gotArgs)
}

func TestSandboxGitLogRejectionSurfacesAsError(t *testing.T) {
	git := func(_ context.Context, _ []string) (string, error) {
		t.Fatal("git effect must not run for rejected args")
		return "", nil
	}
	sb := newTestSandbox(t, testEnv(t), nil, git)

	out, err := sb.Execute(context.Background(), "await gitLog(['--output=/tmp/x'])")
	require.NoError(t, err)
	assert.Contains(t, out.Error, "disallowed-flag")
}

func TestSandboxExecuteTimeout(t *testing.T) {
	sb := newTestSandbox(t, testEnv(t), nil, nil)

	_, err := sb.Execute(context.Background(), "while (true) {}")
	require.ErrorIs(t, err, ErrExecutionTimedOut)

	// The sandbox and its globals survive a timeout.
	out, err := sb.Execute(context.Background(), "done('still alive')")
	require.NoError(t, err)
	assert.Equal(t, "still alive", out.DoneAnswer)
}

func TestSandboxTimeoutKeepsConsumedWork(t *testing.T) {
	llm := func(_ context.Context, _ []Message) (string, error) { return "ok", nil }
	sb := newTestSandbox(t, testEnv(t), llm, nil)

	out, err := sb.Execute(context.Background(),
		"console.log('before'); await callLlm([{role: 'user', content: 'x'}]); while (true) {}")
	require.ErrorIs(t, err, ErrExecutionTimedOut)

	// Work consumed before the interrupt stays visible to the caller.
	assert.Equal(t, "before\n", out.Stdout)
	assert.Equal(t, 1, out.SubCalls)
}

func TestSandboxDoneEmptyAnswer(t *testing.T) {
	sb := newTestSandbox(t, testEnv(t), nil, nil)

	out, err := sb.Execute(context.Background(), "done('')")
	require.NoError(t, err)
	assert.True(t, out.Done)
	assert.Empty(t, out.DoneAnswer)
}

func TestSandboxTerminateIdempotent(t *testing.T) {
	sb, err := NewSandbox(testEnv(t), nil, nil)
	require.NoError(t, err)

	sb.Terminate()
	sb.Terminate()
	assert.True(t, sb.Terminated())

	_, err = sb.Execute(context.Background(), "done('x')")
	assert.ErrorIs(t, err, ErrSandboxTerminated)
}
