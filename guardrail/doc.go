// Package guardrail provides the deterministic safety policy consulted before
// any side-effecting action of a mission.
//
// Guardrails are stateless: every check is computed fresh from the configured
// command patterns, prohibited network ranges, blocked host names, and optional
// operator rules. A check never raises; it returns a Verdict and leaves the
// decision to block execution with the caller.
//
// The policy is checkable, not an interceptor. The command executor in the
// exec package consults it for every shell command it runs; other callers opt
// in explicitly:
//
//	g := guardrail.Default()
//	if v := g.FilterAction(guardrail.ActionScan, "10.0.0.5"); !v.Safe {
//		return fmt.Errorf("refusing scan: %s", v.Reason)
//	}
//
// Host names are not resolved. A name that points at a loopback or link-local
// address passes IsTargetSafe unless it is listed in the blocked hosts.
package guardrail
