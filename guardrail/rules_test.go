package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_DenyMatchingAction(t *testing.T) {
	g, err := New(Config{
		Rules: []Rule{
			{Name: "no-prod-exploits", Expr: `action == "exploit" && payload.endsWith(".prod.example.com")`},
			{Name: "no-uploads", Expr: `action == "upload"`},
		},
	})
	require.NoError(t, err)

	v := g.FilterAction(ActionExploit, "db.prod.example.com")
	assert.False(t, v.Safe)
	assert.Equal(t, "Action blocked by policy rule: no-prod-exploits", v.Reason)

	assert.True(t, g.FilterAction(ActionScan, "db.prod.example.com").Safe)
	assert.False(t, g.FilterAction(ActionType("upload"), "payload.bin").Safe)
	assert.True(t, g.FilterAction(ActionType("download"), "payload.bin").Safe)
}

func TestRules_BuiltinCheckRunsFirst(t *testing.T) {
	g, err := New(Config{
		Rules: []Rule{{Name: "never", Expr: `false`}},
	})
	require.NoError(t, err)

	v := g.FilterAction(ActionTerminal, "mkfs /dev/sda")
	assert.False(t, v.Safe)
	assert.Contains(t, v.Reason, "blacklisted pattern")
}

func TestRules_Invalid(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		want string
	}{
		{"syntax error", Rule{Name: "bad", Expr: `action ==`}, `invalid rule "bad"`},
		{"non-bool", Rule{Name: "str", Expr: `payload`}, "must evaluate to bool"},
		{"unknown variable", Rule{Expr: `target == "x"`}, `invalid rule "rule-0"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Config{Rules: []Rule{tt.rule}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
