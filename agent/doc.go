// Package agent defines the contract between the mission supervisor and the
// specialist agents it delegates to, plus the built-in agents.
//
// An Agent receives a free-text task and returns a Result whose Summary is
// recorded in the attack graph. Agents are held in a Registry, populated
// before a mission and frozen while it runs.
//
// # Built-in Agents
//
//   - CommandAgent ("web", "net", "rev"): asks the LLM for one shell
//     command, runs it through a guarded executor and summarizes the output.
//   - ReasoningAgent ("critic"): a single LLM analysis of a failed attempt.
//   - ReporterAgent ("reporter"): writes logs/mission_report.md.
//
// # Error Handling
//
// Failures that belong to the task rather than the agent (a blocked command,
// a non-zero exit) are reported through Result.Status. Errors returned from
// Execute are agent faults; use ResultError to give them a stable code:
//
//	return agent.Result{}, agent.Wrap(err, agent.ErrCodeExecutionFailed, "nmap failed").
//		WithComponent("net")
package agent
