// Package mission drives a security-testing mission from a natural-language
// goal to completion.
//
// A Supervisor decomposes the goal once, then repeats a bounded number of
// turns. Each turn renders the attack graph summary, asks the LLM for the
// next step, and either finishes (the reply contains [COMPLETE]) or
// delegates a task to a registered agent and records the delegation as an
// edge from "supervisor" to the agent.
//
// Turn outcomes never abort a mission: an unknown agent name, an agent
// error or an agent panic is recorded in the attack graph and the loop
// moves on. Only context cancellation and persistence failures end a
// mission early with an error.
//
//	sup, err := mission.NewSupervisor(querier, manager, registry,
//		mission.WithMaxTurns(15),
//		mission.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	outcome, err := sup.RunMission(ctx, "Assess 10.0.0.5 for exposed services")
package mission
