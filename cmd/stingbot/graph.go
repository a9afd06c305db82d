package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/stingbot"
	"github.com/zero-day-ai/stingbot/state"
)

func newGraphCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect persisted attack graphs",
	}
	cmd.AddCommand(newGraphShowCmd(a))
	return cmd
}

func newGraphShowCmd(a *app) *cobra.Command {
	var missionID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the attack graph of a workspace or a mirrored mission",
		Long: `Print the attack graph saved in <workspace>/logs/attack_graph.json.
With --mission, the snapshot is read from the Redis state mirror instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				snap *state.Snapshot
				err  error
			)
			if missionID != "" {
				opts, perr := redis.ParseURL(a.cfg.StateRedisURL())
				if perr != nil {
					return fmt.Errorf("invalid state redis url: %w", perr)
				}
				client := redis.NewClient(opts)
				defer stingbot.CloseWithLog(client, a.logger, "redis client")
				snap, err = state.LoadRedis(cmd.Context(), client, state.RedisKey(missionID))
			} else {
				snap, err = state.Load(state.GraphPath(a.cfg.Workspace))
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				return printJSON(out, snap)
			}

			g := snap.Graph
			fmt.Fprintf(out, "Status:  %s (started %s)\n", g.Metadata.Status, g.Metadata.StartTime.Format("2006-01-02 15:04:05"))
			if goal, ok := snap.Memory[state.KeyMissionGoal].(string); ok {
				fmt.Fprintf(out, "Goal:    %s\n", goal)
			}
			fmt.Fprintf(out, "Nodes:   %d\n", len(g.Nodes))
			for _, n := range g.Nodes {
				fmt.Fprintf(out, "  [%s] %s\n", n.Type, n.ID)
			}
			fmt.Fprintf(out, "Edges:   %d\n", len(g.Edges))
			for _, e := range g.Edges {
				fmt.Fprintf(out, "  %s\n", e)
			}
			if errs, ok := snap.Memory[state.KeyErrors].([]any); ok && len(errs) > 0 {
				fmt.Fprintf(out, "Errors:  %d\n", len(errs))
				for _, e := range errs {
					fmt.Fprintf(out, "  %v\n", e)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&missionID, "mission", "m", "", "Read the snapshot of this mission from Redis")
	return cmd
}
