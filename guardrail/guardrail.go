package guardrail

import (
	"fmt"
	"net/netip"
	"regexp"
	"strings"
)

// ActionType names the kind of action being filtered.
type ActionType string

const (
	// ActionTerminal is a shell command; the payload is the command line.
	ActionTerminal ActionType = "terminal"

	// ActionScan is a scan against a target; the payload is the target.
	ActionScan ActionType = "scan"

	// ActionExploit is an exploitation attempt; the payload is the target.
	ActionExploit ActionType = "exploit"

	// ActionTarget is any other action aimed at a target.
	ActionTarget ActionType = "target"
)

// String returns the string representation of the action type.
func (a ActionType) String() string {
	return string(a)
}

// IsTargeted reports whether the payload of this action type is a target.
func (a ActionType) IsTargeted() bool {
	switch a {
	case ActionScan, ActionExploit, ActionTarget:
		return true
	default:
		return false
	}
}

// DefaultCommandPatterns are the destructive command idioms rejected by default.
// Order matters only for which pattern is reported on a match.
var DefaultCommandPatterns = []string{
	`rm\s+-rf\s+/`,                     // recursive delete of root
	`mkfs`,                             // filesystem format
	`dd\s+if=.*of=/dev/sd`,             // overwrite a block device
	`:\(\)\{\s+:\|\:&\s+\}\s*;`,        // fork bomb
	`chattr\s+-i`,                      // drop immutability
	`mv\s+/.* /dev/null`,               // move a tree into the void
	`chmod\s+-R\s+777\s+/`,             // recursive world-writable root
	`\|\s*bash`,                        // remote download piped into a shell
	`\|\s*sh`,
}

// DefaultProhibitedRanges are the networks a target may never fall into.
var DefaultProhibitedRanges = []string{
	"127.0.0.0/8",
	"169.254.0.0/16",
}

// DefaultBlockedHosts are host names rejected when the target is not an IP literal.
var DefaultBlockedHosts = []string{
	"localhost",
	"127.0.0.1",
}

// Verdict is the outcome of a guardrail check.
type Verdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"reason"`
}

// Allow returns a safe verdict.
func Allow() Verdict {
	return Verdict{Safe: true, Reason: "Safe"}
}

// Deny returns an unsafe verdict with the given reason.
func Deny(reason string) Verdict {
	return Verdict{Safe: false, Reason: reason}
}

// Config configures a Guardrails instance. Empty lists fall back to the defaults.
type Config struct {
	// CommandPatterns are regular expressions matched case-insensitively
	// against shell commands.
	CommandPatterns []string `yaml:"command_patterns,omitempty"`

	// ProhibitedRanges are CIDR ranges that IP targets may not fall into.
	ProhibitedRanges []string `yaml:"prohibited_ranges,omitempty"`

	// BlockedHosts are host names rejected for non-IP targets.
	BlockedHosts []string `yaml:"blocked_hosts,omitempty"`

	// Rules are operator policy rules evaluated by FilterAction.
	Rules []Rule `yaml:"rules,omitempty"`
}

type commandPattern struct {
	source string
	re     *regexp.Regexp
}

// Guardrails evaluates commands and targets against a fixed policy.
// It holds no mutable state and is safe for concurrent use.
type Guardrails struct {
	patterns []commandPattern
	ranges   []netip.Prefix
	hosts    map[string]struct{}
	rules    []*compiledRule
}

// New compiles the policy described by cfg.
func New(cfg Config) (*Guardrails, error) {
	patterns := cfg.CommandPatterns
	if len(patterns) == 0 {
		patterns = DefaultCommandPatterns
	}
	ranges := cfg.ProhibitedRanges
	if len(ranges) == 0 {
		ranges = DefaultProhibitedRanges
	}
	hosts := cfg.BlockedHosts
	if len(hosts) == 0 {
		hosts = DefaultBlockedHosts
	}

	g := &Guardrails{
		patterns: make([]commandPattern, 0, len(patterns)),
		ranges:   make([]netip.Prefix, 0, len(ranges)),
		hosts:    make(map[string]struct{}, len(hosts)),
	}

	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid command pattern %q: %w", p, err)
		}
		g.patterns = append(g.patterns, commandPattern{source: p, re: re})
	}

	for _, r := range ranges {
		prefix, err := netip.ParsePrefix(r)
		if err != nil {
			return nil, fmt.Errorf("invalid prohibited range %q: %w", r, err)
		}
		g.ranges = append(g.ranges, prefix.Masked())
	}

	for _, h := range hosts {
		g.hosts[strings.ToLower(h)] = struct{}{}
	}

	rules, err := compileRules(cfg.Rules)
	if err != nil {
		return nil, err
	}
	g.rules = rules

	return g, nil
}

// Default returns guardrails with the built-in policy.
func Default() *Guardrails {
	g, err := New(Config{})
	if err != nil {
		// The defaults are constants; failing to compile them is a programming error.
		panic(err)
	}
	return g
}

// IsCommandSafe rejects a command matching any destructive pattern.
// The first matching pattern is reported in the reason.
func (g *Guardrails) IsCommandSafe(command string) Verdict {
	for _, p := range g.patterns {
		if p.re.MatchString(command) {
			return Deny(fmt.Sprintf("Command contains blacklisted pattern: %s", p.source))
		}
	}
	return Allow()
}

// IsTargetSafe rejects IP literals inside a prohibited range and blocked host names.
// Host names are not resolved.
func (g *Guardrails) IsTargetSafe(target string) Verdict {
	if addr, err := netip.ParseAddr(target); err == nil {
		addr = addr.Unmap()
		for _, prefix := range g.ranges {
			if prefix.Contains(addr) {
				return Deny(fmt.Sprintf("Target %s is in prohibited range %s", target, prefix))
			}
		}
		return Allow()
	}

	if _, blocked := g.hosts[strings.ToLower(target)]; blocked {
		if strings.EqualFold(target, "localhost") {
			return Deny("Target is localhost.")
		}
		return Deny(fmt.Sprintf("Target %s is a blocked host.", target))
	}

	return Allow()
}

// FilterAction dispatches to the command or target check by action type.
//
// Unrecognized action types pass as safe unless an operator rule denies them.
func (g *Guardrails) FilterAction(action ActionType, payload string) Verdict {
	var verdict Verdict
	switch {
	case action == ActionTerminal:
		verdict = g.IsCommandSafe(payload)
	case action.IsTargeted():
		verdict = g.IsTargetSafe(payload)
	default:
		verdict = Allow()
	}
	if !verdict.Safe {
		return verdict
	}
	return g.evalRules(action, payload)
}

// Patterns returns the configured command patterns in evaluation order.
func (g *Guardrails) Patterns() []string {
	out := make([]string, len(g.patterns))
	for i, p := range g.patterns {
		out[i] = p.source
	}
	return out
}
