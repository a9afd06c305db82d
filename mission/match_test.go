package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchAgent(t *testing.T) {
	registered := []string{"web", "net", "rev", "critic", "reporter"}

	tests := []struct {
		requested string
		want      string
		wantOK    bool
	}{
		{"web", "web", true},
		{"WEB", "web", true},
		{"network", "net", true},
		{"webapp", "web", true},
		{"nmap", "net", true},
		{"tcp", "net", true},
		{"network_scanner", "net", true},
		{"reverse engineer", "rev", true},
		{"report", "reporter", true},
		{"critique", "critic", true},
		{"net_pentester", "net", true},
		{"unknown_agent", "", false},
		{"unknown", "", false},
		{"", "", false},
		{"   ", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.requested, func(t *testing.T) {
			got, ok := MatchAgent(tt.requested, registered)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchAgent_AliasNeedsRegisteredCanonical(t *testing.T) {
	// nmap aliases to net, but nothing registered contains "net".
	_, ok := MatchAgent("nmap", []string{"web"})
	assert.False(t, ok)
}

func TestMatchAgent_AliasCrossChecksContainment(t *testing.T) {
	got, ok := MatchAgent("network", []string{"web", "net_pentester"})
	assert.True(t, ok)
	assert.Equal(t, "net_pentester", got)
}

func TestMatchAgent_Substring(t *testing.T) {
	got, ok := MatchAgent("osint", []string{"web", "osint_collector"})
	assert.True(t, ok)
	assert.Equal(t, "osint_collector", got)

	got, ok = MatchAgent("cloud_audit_agent", []string{"web", "cloud"})
	assert.True(t, ok)
	assert.Equal(t, "cloud", got)
}

func TestMatchAgent_RegistrationOrderBreaksTies(t *testing.T) {
	got, ok := MatchAgent("network", []string{"net2", "net1"})
	assert.True(t, ok)
	assert.Equal(t, "net2", got)
}
