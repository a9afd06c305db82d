package mission

import (
	"regexp"
	"strings"
)

// UnknownAgent is the agent name of a decision without an AGENT: line.
const UnknownAgent = "unknown"

// CompletionMarker ends a mission when it appears anywhere in a decision,
// in any letter case.
const CompletionMarker = "[COMPLETE]"

var completionRe = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(CompletionMarker))

// Decision is a parsed delegation.
type Decision struct {
	Agent string
	Task  string
}

// ParseDecision extracts the AGENT: and TASK: lines of a reply. The agent
// name is trimmed and lower-cased, the task is trimmed. Other lines are
// ignored; when a label repeats, the last one wins. A missing agent yields
// UnknownAgent and a missing task yields "".
func ParseDecision(text string) Decision {
	d := Decision{Agent: UnknownAgent}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimLeft(line, " \t")
		switch {
		case strings.HasPrefix(line, "AGENT:"):
			d.Agent = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "AGENT:")))
		case strings.HasPrefix(line, "TASK:"):
			d.Task = strings.TrimSpace(strings.TrimPrefix(line, "TASK:"))
		}
	}
	return d
}

// CompletionMessage reports whether text contains the completion marker and
// returns the text with every marker removed and surrounding space trimmed.
func CompletionMessage(text string) (string, bool) {
	if !completionRe.MatchString(text) {
		return "", false
	}
	return strings.TrimSpace(completionRe.ReplaceAllString(text, "")), true
}
