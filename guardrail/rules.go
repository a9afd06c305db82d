package guardrail

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Rule is an operator policy rule written in CEL.
//
// The expression sees two string variables, action and payload, and must
// evaluate to a bool. A true result denies the action:
//
//	rules:
//	  - name: no-exploits-against-prod
//	    expr: action == "exploit" && payload.endsWith(".prod.example.com")
type Rule struct {
	Name string `yaml:"name"`
	Expr string `yaml:"expr"`
}

type compiledRule struct {
	name string
	prg  cel.Program
}

func newRuleEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("action", cel.StringType),
		cel.Variable("payload", cel.StringType),
	)
}

func compileRules(rules []Rule) ([]*compiledRule, error) {
	if len(rules) == 0 {
		return nil, nil
	}

	env, err := newRuleEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create rule environment: %w", err)
	}

	compiled := make([]*compiledRule, 0, len(rules))
	for i, r := range rules {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i)
		}

		ast, iss := env.Compile(r.Expr)
		if iss != nil && iss.Err() != nil {
			return nil, fmt.Errorf("invalid rule %q: %w", name, iss.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return nil, fmt.Errorf("invalid rule %q: expression must evaluate to bool, got %s", name, ast.OutputType())
		}

		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("invalid rule %q: %w", name, err)
		}
		compiled = append(compiled, &compiledRule{name: name, prg: prg})
	}

	return compiled, nil
}

// evalRules runs operator rules in order. A rule that fails to evaluate denies
// the action so a broken rule never silently widens the policy.
func (g *Guardrails) evalRules(action ActionType, payload string) Verdict {
	vars := map[string]any{
		"action":  string(action),
		"payload": payload,
	}

	for _, r := range g.rules {
		out, _, err := r.prg.Eval(vars)
		if err != nil {
			return Deny(fmt.Sprintf("Policy rule %s failed to evaluate: %v", r.name, err))
		}
		if deny, ok := out.Value().(bool); ok && deny {
			return Deny(fmt.Sprintf("Action blocked by policy rule: %s", r.name))
		}
	}

	return Allow()
}
