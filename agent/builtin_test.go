package agent

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/stingbot/exec"
	"github.com/zero-day-ai/stingbot/guardrail"
	"github.com/zero-day-ai/stingbot/llm"
	"github.com/zero-day-ai/stingbot/state"
)

type fakeExecutor struct {
	commands []string
	result   *exec.Result
	err      error
}

func (f *fakeExecutor) Execute(_ context.Context, command string) (*exec.Result, error) {
	f.commands = append(f.commands, command)
	return f.result, f.err
}

func TestExtractCommand(t *testing.T) {
	tests := []struct {
		reply string
		want  string
	}{
		{"CMD: nmap -sV 10.0.0.5", "nmap -sV 10.0.0.5"},
		{"I will scan first.\ncmd:   nmap -p- 10.0.0.5  \n", "nmap -p- 10.0.0.5"},
		{"```\nnikto -h http://target\n```", "nikto -h http://target"},
		{"`whoami`", "whoami"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractCommand(tt.reply), "reply %q", tt.reply)
	}
}

func TestCommandAgent_Success(t *testing.T) {
	q := llm.NewScripted("CMD: nmap -sV 10.0.0.5", "Ports 22 and 80 are open.")
	ex := &fakeExecutor{result: &exec.Result{Stdout: []byte("22/tcp open ssh\n80/tcp open http\n")}}

	a := NewNetAgent(q, ex)
	res, err := a.Execute(context.Background(), "Scan 10.0.0.5")
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, res.Status)
	assert.Equal(t, "Ports 22 and 80 are open.", res.Summary)
	assert.Equal(t, []string{"nmap -sV 10.0.0.5"}, ex.commands)
	assert.Equal(t, "nmap -sV 10.0.0.5", res.Fields["command"])

	calls := q.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "You are the STINGBOT NET Agent.", calls[0].SystemPrompt)
	assert.Contains(t, calls[0].Prompt, "Network Task: Scan 10.0.0.5")
	assert.Contains(t, calls[0].Prompt, "nmap")
	assert.Equal(t, summarizerPrompt, calls[1].SystemPrompt)
	assert.Contains(t, calls[1].Prompt, "Command: nmap -sV 10.0.0.5")
}

func TestCommandAgent_TruncatesOutputForSummary(t *testing.T) {
	q := llm.NewScripted("CMD: cat big.log", "summary")
	ex := &fakeExecutor{result: &exec.Result{Stdout: []byte(strings.Repeat("x", 5000))}}

	_, err := NewWebAgent(q, ex).Execute(context.Background(), "read log")
	require.NoError(t, err)

	prompt := q.Calls()[1].Prompt
	assert.Equal(t, maxSummarizeOutput, strings.Count(prompt, "x"))
}

func TestCommandAgent_NonZeroExitIsPartial(t *testing.T) {
	q := llm.NewScripted("CMD: curl http://target", "Connection refused.")
	ex := &fakeExecutor{result: &exec.Result{ExitCode: 7}}

	res, err := NewWebAgent(q, ex).Execute(context.Background(), "probe")
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, 7, res.Fields["exit_code"])
}

func TestCommandAgent_BlockedCommand(t *testing.T) {
	q := llm.NewScripted("CMD: rm -rf /")
	g := exec.NewGuarded(guardrail.Default())

	res, err := NewRevAgent(q, g).Execute(context.Background(), "clean up")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.True(t, strings.HasPrefix(res.Summary, "Blocked: Command contains blacklisted pattern"))
	assert.Equal(t, true, res.Fields["blocked"])
	assert.Equal(t, 0, q.Remaining())
}

func TestCommandAgent_Errors(t *testing.T) {
	_, err := NewNetAgent(llm.NewScripted(), &fakeExecutor{}).Execute(context.Background(), "scan")
	var re *ResultError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeLLMFailed, re.Code)
	assert.ErrorIs(t, err, llm.ErrScriptExhausted)

	boom := errors.New("exec format error")
	_, err = NewNetAgent(llm.NewScripted("CMD: nmap x"), &fakeExecutor{err: boom}).Execute(context.Background(), "scan")
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeExecutionFailed, re.Code)
	assert.ErrorIs(t, err, boom)
}

func TestCommandAgent_SummaryFallback(t *testing.T) {
	q := llm.NewScripted("CMD: echo hi")
	ex := &fakeExecutor{result: &exec.Result{Stdout: []byte("hi\n")}}

	res, err := NewWebAgent(q, ex).Execute(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, "echo hi exited 0: hi", res.Summary)
}

func TestCriticAgent(t *testing.T) {
	analysis := strings.Repeat("A", 150)
	q := llm.NewScripted(analysis)

	res, err := NewCriticAgent(q).Execute(context.Background(), "sqlmap got 403 responses")
	require.NoError(t, err)
	assert.Equal(t, "Critic Analysis: "+strings.Repeat("A", 100)+"...", res.Summary)
	assert.Equal(t, analysis, res.Fields["analysis"])
	assert.Contains(t, q.Calls()[0].Prompt, "Failed Attempt/Error: sqlmap got 403 responses")
	assert.Equal(t, "You are the STINGBOT CRITIC Agent.", q.Calls()[0].SystemPrompt)
}

func TestReporterAgent(t *testing.T) {
	ctx := context.Background()
	workspace := t.TempDir()

	st, err := state.NewManager(workspace)
	require.NoError(t, err)
	_, err = st.AddNode(ctx, "10.0.0.5", state.NodeAsset, nil)
	require.NoError(t, err)

	q := llm.NewScripted("# Mission Report\n\n## Executive Summary\n...")
	a := NewReporterAgent(workspace, q, st)

	res, err := a.Execute(ctx, "Summarize the engagement")
	require.NoError(t, err)

	assert.Equal(t, "Report generated at "+a.ReportPath(), res.Summary)
	data, err := os.ReadFile(a.ReportPath())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Mission Report"))

	call := q.Calls()[0]
	assert.Equal(t, "You are a STINGBOT SENIOR PENETRATION TESTER.", call.SystemPrompt)
	assert.Contains(t, call.Prompt, "10.0.0.5 (asset)")
}
