package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/stingbot"
	"github.com/zero-day-ai/stingbot/llm"
	"github.com/zero-day-ai/stingbot/telemetry"
)

// replySeparator splits replies in a --script file.
const replySeparator = "\n---\n"

// offlineScript is a canned conversation for trying the CLI without a model.
var offlineScript = []string{
	"1. Review the goal and scope\n2. Produce the report",
	"AGENT: critic\nTASK: Review the stated goal for scope and safety concerns",
	"The goal is well scoped. No live actions are required for this dry run.",
	"AGENT: reporter\nTASK: Summarize the dry run",
	"# Dry Run Report\n\nNo targets were contacted.",
	"[COMPLETE] Dry run finished.",
}

func newRunCmd(a *app) *cobra.Command {
	var (
		maxTurns int
		offline  bool
		script   string
	)

	cmd := &cobra.Command{
		Use:   "run <goal...>",
		Short: "Run a mission in the foreground",
		Long: `Run a mission against the configured model and print its outcome.

With --offline, a canned conversation replaces the model so the loop,
guardrails and state files can be inspected without any backend. --script
replays replies from a file, separated by lines containing only "---".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxTurns > 0 {
				a.cfg.Mission.MaxTurns = maxTurns
			}

			opts := []stingbot.Option{stingbot.WithLogger(a.logger)}
			switch {
			case script != "":
				replies, err := loadScript(script)
				if err != nil {
					return err
				}
				opts = append(opts, stingbot.WithQuerier(llm.NewScripted(replies...)))
			case offline:
				opts = append(opts, stingbot.WithQuerier(llm.NewScripted(offlineScript...)))
			}

			tp := telemetry.NewProvider(telemetry.Config{
				Enabled:     a.cfg.Telemetry.Enabled,
				ServiceName: a.cfg.Telemetry.ServiceName,
				Logger:      a.logger,
			})
			defer tp.Shutdown(cmd.Context())
			opts = append(opts, stingbot.WithTracer(tp.Tracer()))

			fw, err := stingbot.New(a.cfg, opts...)
			if err != nil {
				return err
			}
			defer fw.Close()

			outcome, err := fw.RunMission(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			if a.jsonOutput() {
				return printJSON(cmd.OutOrStdout(), outcome)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, outcome.Message)
			fmt.Fprintf(out, "Mission %s: %s after %d turn(s)\n", outcome.MissionID, outcome.Status, outcome.Turns)
			for _, e := range outcome.Errors {
				fmt.Fprintf(out, "  ! %s\n", e)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxTurns, "max-turns", 0, "Override mission.max_turns")
	cmd.Flags().BoolVar(&offline, "offline", false, "Use a canned conversation instead of a model")
	cmd.Flags().StringVar(&script, "script", "", "Replay model replies from a file")
	cmd.MarkFlagsMutuallyExclusive("offline", "script")
	return cmd
}

func loadScript(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	var replies []string
	for _, part := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), replySeparator) {
		if part = strings.TrimSpace(part); part != "" {
			replies = append(replies, part)
		}
	}
	if len(replies) == 0 {
		return nil, fmt.Errorf("script %s contains no replies", path)
	}
	return replies, nil
}
