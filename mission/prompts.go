package mission

import (
	"fmt"
	"strings"
)

// SupervisorSystemPrompt establishes the supervisor role for decisions.
const SupervisorSystemPrompt = "You are the STINGBOT MISSION SUPERVISOR."

func decomposePrompt(goal string) string {
	return fmt.Sprintf("Goal: %s\nDecompose this into a list of technical stages (Recon, Vulnerability Discovery, etc.).", goal)
}

func decisionPrompt(goal, state string, agents []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Mission Goal: %s\n", goal)
	fmt.Fprintf(&b, "Current State: %s\n", state)
	fmt.Fprintf(&b, "Available Agents: [%s]\n\n", strings.Join(agents, ", "))
	b.WriteString("Task: What is the next step? Choose an agent and a task for it.\n")
	b.WriteString("Alternatively, if the goal is met, output " + CompletionMarker + ".\n\n")
	b.WriteString("Output format:\n")
	b.WriteString("AGENT: <agent_name>\n")
	b.WriteString("TASK: <specific instructions>\n")
	return b.String()
}
