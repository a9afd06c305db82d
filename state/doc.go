// Package state holds the attack graph and scratch memory of one mission.
//
// A Manager owns a Graph of discovered nodes and the actions taken between
// them, plus a flat key-value scratch memory. Every mutation is written
// through to the configured sinks before the call returns, so a caller that
// observes a successful mutation may assume it is durable.
//
// The file sink replaces attack_graph.json atomically; Redis and etcd sinks
// mirror the same JSON snapshot for remote observers.
//
//	m, err := state.NewManager(workspace)
//	if err != nil {
//		return err
//	}
//	if _, err := m.AddNode(ctx, "10.0.0.5", state.NodeAsset, nil); err != nil {
//		return err
//	}
//	summary := m.ExportSummary()
package state
