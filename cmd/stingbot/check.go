package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/stingbot/guardrail"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Ask the guardrails about a command or target",
	}

	verdict := func(action guardrail.ActionType) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			g, err := guardrail.New(a.cfg.Guardrails)
			if err != nil {
				return err
			}
			payload := strings.Join(args, " ")
			v := g.FilterAction(action, payload)

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				return printJSON(out, map[string]any{
					"action":  action,
					"payload": payload,
					"safe":    v.Safe,
					"reason":  v.Reason,
				})
			}
			if v.Safe {
				fmt.Fprintln(out, "SAFE")
			} else {
				fmt.Fprintf(out, "BLOCKED: %s\n", v.Reason)
			}
			return nil
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "command <cmd...>",
			Short: "Check a shell command",
			Args:  cobra.MinimumNArgs(1),
			RunE:  verdict(guardrail.ActionTerminal),
		},
		&cobra.Command{
			Use:   "target <ip-or-host>",
			Short: "Check a scan target",
			Args:  cobra.ExactArgs(1),
			RunE:  verdict(guardrail.ActionScan),
		},
	)
	return cmd
}
