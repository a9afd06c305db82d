// Package llm is the language-model collaborator used by the mission
// supervisor and the built-in agents.
//
// Callers depend on the Querier contract, a single prompt plus an optional
// system prompt in, text out:
//
//	reply, err := q.Query(ctx, prompt, "You are the STINGBOT MISSION SUPERVISOR.")
//
// A ChatQuerier adapts any Completer (a chat-completion backend) to Querier
// and records token usage in a TokenTracker. NewProvider builds a Completer
// backed by langchaingo for Ollama or OpenAI-compatible endpoints. Retrying
// wraps a Querier with exponential backoff, and Scripted replays canned
// replies for tests and offline runs.
//
// # Token Tracking
//
// Usage is attributed to a purpose such as "supervisor" or "net":
//
//	tracker := llm.NewTokenTracker()
//	q := llm.NewQuerier(provider, llm.WithTracker(tracker, "supervisor"))
//	...
//	fmt.Printf("Total tokens used: %d\n", tracker.Total().TotalTokens)
package llm
