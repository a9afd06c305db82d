package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/zero-day-ai/stingbot/exec"
	"github.com/zero-day-ai/stingbot/llm"
	"github.com/zero-day-ai/stingbot/state"
)

// Output beyond this many characters is cut before summarization.
const maxSummarizeOutput = 1200

const summarizerPrompt = "You are a STINGBOT Result Summarizer."

// Executor runs one shell command. *exec.Guarded satisfies it.
type Executor interface {
	Execute(ctx context.Context, command string) (*exec.Result, error)
}

func systemPromptFor(name string) string {
	return fmt.Sprintf("You are the STINGBOT %s Agent.", strings.ToUpper(name))
}

// CommandAgent turns a task into one shell command, runs it and summarizes
// the output.
type CommandAgent struct {
	name        string
	description string
	domain      string
	tools       []string
	llm         llm.Querier
	exec        Executor
	logger      *slog.Logger
}

// NewCommandAgent creates a command agent. domain labels the task in the
// prompt ("Web", "Network", "Binary"); tools are offered to the LLM.
func NewCommandAgent(name, description, domain string, tools []string, q llm.Querier, ex Executor) *CommandAgent {
	return &CommandAgent{
		name:        name,
		description: description,
		domain:      domain,
		tools:       tools,
		llm:         q,
		exec:        ex,
		logger:      slog.Default().With("agent", name),
	}
}

// NewWebAgent creates the "web" agent.
func NewWebAgent(q llm.Querier, ex Executor) *CommandAgent {
	return NewCommandAgent("web", "Web application testing: crawling, directory discovery, injection probes.",
		"Web", []string{"curl", "nikto", "gobuster", "sqlmap", "whatweb"}, q, ex)
}

// NewNetAgent creates the "net" agent.
func NewNetAgent(q llm.Querier, ex Executor) *CommandAgent {
	return NewCommandAgent("net", "Network reconnaissance: host discovery, port and service scanning.",
		"Network", []string{"nmap", "ping", "dig", "whois", "nc"}, q, ex)
}

// NewRevAgent creates the "rev" agent.
func NewRevAgent(q llm.Querier, ex Executor) *CommandAgent {
	return NewCommandAgent("rev", "Binary analysis and reverse engineering.",
		"Binary", []string{"r2", "strings", "objdump", "gdb", "file"}, q, ex)
}

// WithLogger sets the logger.
func (a *CommandAgent) WithLogger(logger *slog.Logger) *CommandAgent {
	if logger != nil {
		a.logger = logger.With("agent", a.name)
	}
	return a
}

func (a *CommandAgent) Name() string        { return a.name }
func (a *CommandAgent) Description() string { return a.description }

// Execute asks for a command, runs it and summarizes the result. A command
// rejected by the executor's policy yields a failed Result, not an error.
func (a *CommandAgent) Execute(ctx context.Context, task string) (Result, error) {
	prompt := fmt.Sprintf("%s Task: %s\n\nAvailable Tools: %s.\nDetermine the best command. Reply with a single line of the form:\nCMD: <command>",
		a.domain, task, strings.Join(a.tools, ", "))

	decision, err := a.llm.Query(ctx, prompt, systemPromptFor(a.name))
	if err != nil {
		return Result{}, Wrap(err, ErrCodeLLMFailed, "failed to choose a command").WithComponent(a.name)
	}

	command := ExtractCommand(decision)
	if command == "" {
		return Failed("No command proposed"), nil
	}

	res, err := a.exec.Execute(ctx, command)
	if err != nil {
		var blocked *exec.BlockedError
		if errors.As(err, &blocked) {
			a.logger.Warn("command blocked", "command", command, "reason", blocked.Reason)
			return Result{
				Status:  StatusFailed,
				Summary: fmt.Sprintf("Blocked: %s", blocked.Reason),
				Fields:  map[string]any{"command": command, "blocked": true},
			}, nil
		}
		return Result{}, Wrap(err, ErrCodeExecutionFailed, "command failed").
			WithComponent(a.name).
			WithDetails(map[string]any{"command": command})
	}

	output := res.Output()
	fields := map[string]any{
		"command":   command,
		"exit_code": res.ExitCode,
		"output":    output,
	}
	status := StatusSuccess
	if res.ExitCode != 0 {
		status = StatusPartial
	}

	summaryPrompt := fmt.Sprintf("Command: %s\nOutput: %s\nTask: Technical summary.", command, truncate(output, maxSummarizeOutput))
	summary, err := a.llm.Query(ctx, summaryPrompt, summarizerPrompt)
	if err != nil {
		a.logger.Warn("summary failed, using raw output", "error", err)
		summary = fmt.Sprintf("%s exited %d: %s", command, res.ExitCode, truncate(output, 200))
	}

	return Result{Status: status, Summary: strings.TrimSpace(summary), Fields: fields}, nil
}

// ExtractCommand pulls the command out of an LLM reply: the value of a
// "CMD:" line when present, otherwise the first non-empty line outside a
// code fence marker.
func ExtractCommand(reply string) string {
	var fallback string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 4 && strings.EqualFold(line[:4], "CMD:") {
			return strings.TrimSpace(line[4:])
		}
		if fallback == "" && line != "" && !strings.HasPrefix(line, "```") {
			fallback = line
		}
	}
	return strings.Trim(fallback, "`")
}

// ReasoningAgent answers with analysis only; it runs nothing.
type ReasoningAgent struct {
	name        string
	description string
	template    string
	label       string
	llm         llm.Querier
}

// NewCriticAgent creates the "critic" agent, which analyzes failed attempts.
func NewCriticAgent(q llm.Querier) *ReasoningAgent {
	return &ReasoningAgent{
		name:        "critic",
		description: "Analyzes error logs and failed attempts and suggests new strategies.",
		template: "Failed Attempt/Error: %s\n\n" +
			"Task: Analyze why it failed (e.g., WAF, closed port, patched vulnerability).\n" +
			"Suggest a new approach or a different obfuscation technique.",
		label: "Critic Analysis",
		llm:   q,
	}
}

func (a *ReasoningAgent) Name() string        { return a.name }
func (a *ReasoningAgent) Description() string { return a.description }

// Execute returns the analysis; the summary keeps its first 100 characters.
func (a *ReasoningAgent) Execute(ctx context.Context, task string) (Result, error) {
	analysis, err := a.llm.Query(ctx, fmt.Sprintf(a.template, task), systemPromptFor(a.name))
	if err != nil {
		return Result{}, Wrap(err, ErrCodeLLMFailed, "analysis failed").WithComponent(a.name)
	}
	return Success(
		fmt.Sprintf("%s: %s...", a.label, truncate(analysis, 100)),
		map[string]any{"analysis": analysis},
	), nil
}

// Summarizer provides the current mission state. *state.Manager satisfies it.
type Summarizer interface {
	ExportSummary() state.Summary
}

// ReporterAgent writes the Markdown mission report.
type ReporterAgent struct {
	workspace string
	llm       llm.Querier
	state     Summarizer
}

// ReportFile is the report name inside <workspace>/logs.
const ReportFile = "mission_report.md"

// NewReporterAgent creates the "reporter" agent. When st is non-nil the
// attack graph summary is appended to the mission data.
func NewReporterAgent(workspace string, q llm.Querier, st Summarizer) *ReporterAgent {
	return &ReporterAgent{workspace: workspace, llm: q, state: st}
}

func (a *ReporterAgent) Name() string { return "reporter" }
func (a *ReporterAgent) Description() string {
	return "Compiles the mission trace into a Markdown security report."
}

// ReportPath returns where the report is written.
func (a *ReporterAgent) ReportPath() string {
	return filepath.Join(a.workspace, "logs", ReportFile)
}

// Execute generates and writes the report.
func (a *ReporterAgent) Execute(ctx context.Context, task string) (Result, error) {
	data := task
	if a.state != nil {
		data = fmt.Sprintf("%s\n\nAttack Graph:\n%s", task, a.state.ExportSummary())
	}
	prompt := fmt.Sprintf("Mission Data: %s\n\n"+
		"Task: Create a professional Markdown security report.\n"+
		"Include Executive Summary, Findings, and Recommendations.", data)

	report, err := a.llm.Query(ctx, prompt, "You are a STINGBOT SENIOR PENETRATION TESTER.")
	if err != nil {
		return Result{}, Wrap(err, ErrCodeLLMFailed, "report generation failed").WithComponent(a.Name())
	}

	path := a.ReportPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{}, Wrap(err, ErrCodeExecutionFailed, "failed to create log directory").WithComponent(a.Name())
	}
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return Result{}, Wrap(err, ErrCodeExecutionFailed, "failed to write report").WithComponent(a.Name())
	}

	return Success(fmt.Sprintf("Report generated at %s", path), map[string]any{"report_path": path}), nil
}
