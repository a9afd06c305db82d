package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/stingbot"
	"github.com/zero-day-ai/stingbot/health"
	"github.com/zero-day-ai/stingbot/llm"
)

// agentTools are the binaries the built-in agents are prompted to use.
var agentTools = []string{"nmap", "nikto", "curl", "gobuster", "sqlmap", "strings", "objdump"}

func newDoctorCmd(a *app) *cobra.Command {
	var withQueue bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that this host can run missions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()

			checks := []health.Check{
				health.Named("workspace", health.WritableDirCheck(a.cfg.Workspace)),
				health.Named("tools", health.ToolsCheck(agentTools...)),
				{Name: "llm", Run: func(ctx context.Context) health.Status {
					return health.TCPCheck(ctx, llmAddress(a.cfg.LLM.ProviderConfig))
				}},
			}
			if withQueue {
				checks = append(checks, health.Check{Name: "queue", Run: func(ctx context.Context) health.Status {
					opts, err := redis.ParseURL(a.cfg.Queue.URL)
					if err != nil {
						return health.Unhealthy("invalid queue url", map[string]any{"error": err.Error()})
					}
					client := redis.NewClient(opts)
					defer stingbot.CloseWithLog(client, a.logger, "redis client")
					return health.RedisCheck(ctx, client)
				}})
			}

			report := health.Run(ctx, checks...)

			out := cmd.OutOrStdout()
			if a.jsonOutput() {
				if err := printJSON(out, report); err != nil {
					return err
				}
				return unhealthyErr(report)
			}
			for _, r := range report.Checks {
				fmt.Fprintf(out, "%-10s %-9s %s\n", r.Name, r.Status.Status, r.Status.Message)
				if missing, ok := r.Status.Details["missing"].([]string); ok {
					fmt.Fprintf(out, "%-10s %-9s missing: %s\n", "", "", strings.Join(missing, ", "))
				}
			}
			fmt.Fprintf(out, "\nOverall: %s (%s)\n", report.Overall.Status, report.Overall.Message)
			return unhealthyErr(report)
		},
	}

	cmd.Flags().BoolVar(&withQueue, "queue", false, "Also check the Redis mission queue")
	return cmd
}

func unhealthyErr(report health.Report) error {
	if report.Overall.IsUnhealthy() {
		return fmt.Errorf("host is not ready: %s", report.Overall.Message)
	}
	return nil
}

// llmAddress returns host:port of the model endpoint.
func llmAddress(cfg llm.ProviderConfig) string {
	base := cfg.BaseURL
	if base == "" {
		switch strings.ToLower(cfg.Provider) {
		case llm.ProviderOpenAI:
			base = "https://api.openai.com"
		default:
			base = "http://localhost:11434"
		}
	}

	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	if u.Port() != "" {
		return u.Host
	}
	port := "80"
	if u.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(u.Hostname(), port)
}
