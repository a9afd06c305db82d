package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/stingbot/config"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile string
	workspace  string
	output     string
	verbose    bool
}

// app carries state resolved in PersistentPreRunE.
type app struct {
	flags  globalFlags
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "stingbot",
		Short: "STINGBOT - autonomous penetration testing supervisor",
		Long: `STINGBOT drives a team of specialist agents through a security-testing
mission. A supervisor model picks the next agent on every turn, guardrails
veto destructive commands and off-limits targets, and the attack graph is
saved to <workspace>/logs/attack_graph.json after every step.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", "", "Path to stingbot.yaml (default: built-in settings)")
	pf.StringVarP(&a.flags.workspace, "workspace", "w", "", "Mission workspace directory (overrides config)")
	pf.StringVarP(&a.flags.output, "output", "o", formatText, "Output format (text|json)")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newRunCmd(a),
		newServeCmd(a),
		newSubmitCmd(a),
		newHistoryCmd(a),
		newDoctorCmd(a),
		newGraphCmd(a),
		newCheckCmd(a),
	)
	return root
}

// Execute runs the CLI until it finishes or a termination signal arrives.
func Execute(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) load(cmd *cobra.Command, _ []string) error {
	if a.flags.output != formatText && a.flags.output != formatJSON {
		return fmt.Errorf("invalid --output %q: must be text or json", a.flags.output)
	}

	cfg, err := config.LoadOrDefault(a.flags.configFile)
	if err != nil {
		return err
	}
	if a.flags.workspace != "" {
		cfg.Workspace = a.flags.workspace
	}
	if a.flags.verbose {
		cfg.Logging.Level = "debug"
	}

	a.cfg = cfg
	a.logger = cfg.Logging.NewLogger(cmd.ErrOrStderr())
	return nil
}

func (a *app) jsonOutput() bool {
	return a.flags.output == formatJSON
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
