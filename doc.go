// Package stingbot runs autonomous security-testing missions.
//
// A mission starts from a plain-language goal. A supervisor asks a language
// model which specialist agent should act next, dispatches the task, and
// records every step in an attack-state graph that is persisted after each
// change. The loop ends when the model declares the mission complete or the
// turn budget runs out.
//
// # Core Concepts
//
//   - Guardrails: a fixed safety policy over shell commands and network
//     targets, extensible with CEL rules (package guardrail)
//   - Attack graph: nodes, edges and scratch memory for one mission
//     (package state)
//   - Agents: named specialists the supervisor delegates to (package agent)
//   - Supervisor: the bounded decision loop (package mission)
//
// # Getting Started
//
//	cfg, err := config.Load("stingbot.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fw, err := stingbot.New(cfg, stingbot.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer fw.Close()
//
//	outcome, err := fw.RunMission(ctx, "Assess 10.0.0.5 for exposed web services")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(outcome.Message)
//
// The outcome message always starts with "[MISSION COMPLETE]"; use
// outcome.Status to tell a completed mission from an exhausted one.
//
// # Errors
//
// Framework operations return *Error values carrying the operation and an
// error kind. Sentinels such as ErrPersistence and ErrCommandBlocked work
// with errors.Is. Agent failures never surface as errors: they are recorded
// in the attack graph and the mission continues.
package stingbot
