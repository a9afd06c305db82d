package mission

import (
	"strings"
	"unicode"
)

type alias struct {
	canonical string
	synonyms  []string
}

// agentAliases maps canonical short names to names an LLM tends to use
// instead. Order decides precedence.
var agentAliases = []alias{
	{"net", []string{"network", "networking", "nmap", "tcp", "udp", "port", "ports", "scanner", "recon"}},
	{"web", []string{"webapp", "website", "http", "https", "nikto", "sqlmap", "gobuster", "pentester"}},
	{"rev", []string{"reverse", "reversing", "binary", "radare", "r2", "ghidra", "disassembler"}},
	{"critic", []string{"critique", "review", "reviewer", "analysis", "analyst"}},
	{"reporter", []string{"report", "reporting", "writer", "documentation"}},
}

// MatchAgent resolves a requested agent name against the registered names.
//
// Rules apply in order and the first hit wins:
//  1. case-insensitive equality;
//  2. the alias table: the requested name (or one of its words) is a
//     canonical name or a synonym, and a registered name contains that
//     canonical name;
//  3. substring containment in either direction.
func MatchAgent(requested string, registered []string) (string, bool) {
	req := strings.ToLower(strings.TrimSpace(requested))
	if req == "" {
		return "", false
	}

	for _, name := range registered {
		if strings.ToLower(name) == req {
			return name, true
		}
	}

	words := splitWords(req)
	for _, a := range agentAliases {
		if !aliasMatches(a, req, words) {
			continue
		}
		for _, name := range registered {
			if strings.Contains(strings.ToLower(name), a.canonical) {
				return name, true
			}
		}
	}

	for _, name := range registered {
		lower := strings.ToLower(name)
		if lower == "" {
			continue
		}
		if strings.Contains(req, lower) || strings.Contains(lower, req) {
			return name, true
		}
	}

	return "", false
}

func aliasMatches(a alias, req string, words []string) bool {
	candidates := append([]string{req}, words...)
	for _, c := range candidates {
		if c == a.canonical {
			return true
		}
		for _, syn := range a.synonyms {
			if c == syn {
				return true
			}
		}
	}
	return false
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
