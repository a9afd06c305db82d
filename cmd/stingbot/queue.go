package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/stingbot"
	"github.com/zero-day-ai/stingbot/mission"
	"github.com/zero-day-ai/stingbot/queue"
	"github.com/zero-day-ai/stingbot/serve"
	"github.com/zero-day-ai/stingbot/telemetry"
)

func (a *app) queueClient() (*queue.RedisClient, error) {
	return queue.NewRedisClient(queue.RedisOptions{
		URL:     a.cfg.Queue.URL,
		Queue:   a.cfg.Queue.Name,
		Channel: a.cfg.Queue.Channel,
		Logger:  a.logger,
	})
}

func (a *app) journal(client *queue.RedisClient) *queue.Journal {
	return queue.NewJournal(client.Redis(), a.cfg.Queue.History, a.cfg.Queue.HistoryLimit)
}

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run missions from the Redis queue",
		Long: `Start a mission worker. Jobs submitted with "stingbot submit" are claimed
one at a time and run in <workspace>/missions/<job-id>. Progress events are
published to Redis and finished missions are added to the history journal.
The gRPC health service reports the worker under "` + serve.ServiceName + `".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("port") {
				a.cfg.Serve.Port = port
			}

			client, err := a.queueClient()
			if err != nil {
				return err
			}
			defer stingbot.CloseWithLog(client, a.logger, "redis queue")

			tp := telemetry.NewProvider(telemetry.Config{
				Enabled:     a.cfg.Telemetry.Enabled,
				ServiceName: a.cfg.Telemetry.ServiceName,
				Logger:      a.logger,
			})
			defer tp.Shutdown(ctx)

			fw, err := stingbot.New(a.cfg,
				stingbot.WithLogger(a.logger),
				stingbot.WithTracer(tp.Tracer()),
				stingbot.WithEvents(client),
				stingbot.WithDebriefer(a.journal(client)),
			)
			if err != nil {
				return err
			}
			defer fw.Close()

			srvOpts := []serve.Option{
				serve.WithPort(a.cfg.Serve.Port),
				serve.WithGracefulShutdown(a.cfg.GracefulTimeout()),
				serve.WithServerLogger(a.logger),
			}
			if a.cfg.Serve.TLSCertFile != "" {
				srvOpts = append(srvOpts, serve.WithTLS(a.cfg.Serve.TLSCertFile, a.cfg.Serve.TLSKeyFile))
			}
			srv, err := serve.NewServer(srvOpts...)
			if err != nil {
				return err
			}

			worker := serve.NewWorker(client, fw.Runner, a.cfg.Workspace,
				serve.WithHealth(srv.HealthServer()),
				serve.WithPollTimeout(a.cfg.PollTimeout()),
				serve.WithLogger(a.logger),
			)

			workerDone := make(chan error, 1)
			go func() {
				workerDone <- worker.Run(ctx)
			}()

			if err := srv.Serve(ctx); err != nil {
				return err
			}
			return <-workerDone
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Override serve.port for the health service")
	return cmd
}

func newSubmitCmd(a *app) *cobra.Command {
	var (
		follow  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "submit <goal...>",
		Short: "Queue a mission for a worker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			client, err := a.queueClient()
			if err != nil {
				return err
			}
			defer stingbot.CloseWithLog(client, a.logger, "redis queue")

			var events <-chan mission.Event
			if follow {
				if timeout > 0 {
					var cancel context.CancelFunc
					ctx, cancel = context.WithTimeout(ctx, timeout)
					defer cancel()
				}
				// Subscribe first so no event is missed between submit and follow.
				if events, err = client.Subscribe(ctx); err != nil {
					return err
				}
			}

			job, err := client.Submit(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput() && !follow {
				return printJSON(out, job)
			}
			fmt.Fprintf(out, "Submitted mission %s\n", job.ID)
			if !follow {
				return nil
			}

			for ev := range events {
				if ev.MissionID != job.ID {
					continue
				}
				if a.jsonOutput() {
					if err := printJSON(out, ev); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(out, formatEvent(ev))
				}
				if ev.Type == mission.EventFinished {
					return nil
				}
			}
			return ctx.Err()
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream mission events until it finishes")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop following after this long")
	return cmd
}

func formatEvent(ev mission.Event) string {
	switch ev.Type {
	case mission.EventStarted:
		return fmt.Sprintf("started: %s", ev.Message)
	case mission.EventTurn:
		return fmt.Sprintf("turn %d", ev.Turn)
	case mission.EventDispatched:
		return fmt.Sprintf("turn %d: %s <- %s", ev.Turn, ev.Agent, ev.Task)
	case mission.EventUnknownAgent:
		return fmt.Sprintf("turn %d: unknown agent %q", ev.Turn, ev.Agent)
	case mission.EventFinished:
		return ev.Message
	}
	return ev.Type
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently finished queued missions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.queueClient()
			if err != nil {
				return err
			}
			defer stingbot.CloseWithLog(client, a.logger, "redis queue")

			records, err := a.journal(client).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				return printJSON(out, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No missions recorded.")
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(out, "%s  %-9s  %2d turn(s)  %s  %s\n",
					r.EndedAt.Format(time.RFC3339), r.Outcome, r.Turns, r.MissionID, r.Goal)
			}
			return nil
		},
	}

	cmd.Flags().Int64VarP(&limit, "limit", "n", 20, "Number of missions to show")
	return cmd
}
