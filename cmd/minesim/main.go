package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command and its subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	root := createRootCommand(globalFlags)

	root.AddCommand(
		createServeCommand(globalFlags),
		createRunCommand(globalFlags),
		createStartCommand(),
		createStopCommand(),
		createStatusCommand(),
		createLogsCommand(),
		createDifficultyCommand(),
		createMCPCommand(globalFlags),
		createAlgorithmsCommand(),
	)
	return root
}

func newCommand(cmd *cobra.Command) *command {
	return &command{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "minesim",
		Short: "Hashing workload simulator with live progress reports",
		Long: `Minesim runs a throttled hashing loop and reports its throughput as
"[HH:MM:SS] ALIVE | Time: <elapsed>s | Hashes: <count>" lines, either in the
foreground or behind an HTTP control API with a live dashboard.

Examples:
  minesim run --duration=5s                 # Mine in the terminal for 5 seconds
  minesim serve --config=minesim.toml       # Start daemon with dashboard
  minesim start --api-url=http://host:8080/api
  minesim logs`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func addAPIFlags(cmd *cobra.Command, f *APIFlags) {
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "", "daemon API URL (default http://localhost:8080/api)")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 10*time.Second, "request timeout")
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the minesim daemon",
		Long: `Start the daemon exposing the control API, the dashboard and /metrics.

Examples:
  minesim serve                     # Defaults plus MINESIM_* environment
  minesim serve minesim.toml        # Start with specific config file
  minesim serve --listen=:9000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			if len(args) > 0 {
				serveFlags.ConfigPath = args[0]
			}
			return newCommand(cmd).Serve(*serveFlags)
		},
	}
	cmd.Flags().StringVar(&serveFlags.Listen, "listen", "", "override [server].listen")
	cmd.Flags().BoolVar(&serveFlags.NonBlocking, "non-blocking", false, "return right after startup (testing)")
	_ = cmd.Flags().MarkHidden("non-blocking")
	return cmd
}

func createRunCommand(globalFlags *GlobalFlags) *cobra.Command {
	runFlags := &RunFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Mine in the foreground and print progress lines",
		Long: `Run the hashing loop in the foreground. Progress lines go to stdout,
structured logs to stderr. Stop with Ctrl-C or --duration.

Examples:
  minesim run
  minesim run --duration=10s --batch-size=20000 --algorithm=blake3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runFlags.ConfigPath = globalFlags.ConfigPath
			return newCommand(cmd).Run(cmd.Context(), *runFlags)
		},
	}
	cmd.Flags().StringVar(&runFlags.Algorithm, "algorithm", "", "hash algorithm (see 'minesim algorithms')")
	cmd.Flags().IntVar(&runFlags.BatchSize, "batch-size", 0, "hashes per batch")
	cmd.Flags().DurationVar(&runFlags.ReportInterval, "interval", 0, "minimum time between progress reports")
	cmd.Flags().DurationVar(&runFlags.YieldDuration, "yield", 0, "pause after each report")
	cmd.Flags().IntVar(&runFlags.Difficulty, "difficulty", 0, "difficulty setting 1-5 (display only)")
	cmd.Flags().DurationVar(&runFlags.Duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}

func createStartCommand() *cobra.Command {
	f := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start mining on the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd).Start(cmd.Context(), *f)
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createStopCommand() *cobra.Command {
	f := &StopFlags{}
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop mining on the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd).Stop(cmd.Context(), *f)
		},
	}
	addAPIFlags(cmd, &f.APIFlags)
	cmd.Flags().DurationVar(&f.Wait, "wait", 0, "max time to wait for the loop to exit")
	return cmd
}

func createStatusCommand() *cobra.Command {
	f := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show miner status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd).Status(cmd.Context(), *f)
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createLogsCommand() *cobra.Command {
	f := &APIFlags{}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the most recent log lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd).Logs(cmd.Context(), *f)
		},
	}
	addAPIFlags(cmd, f)
	return cmd
}

func createDifficultyCommand() *cobra.Command {
	f := &DifficultyFlags{}
	cmd := &cobra.Command{
		Use:   "difficulty",
		Short: "Show or set the difficulty setting",
		Long: `Show the difficulty setting, or set it with --set. The value is
stored and displayed only; it does not change the work performed.

Examples:
  minesim difficulty
  minesim difficulty --set=4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd).Difficulty(cmd.Context(), *f)
		},
	}
	addAPIFlags(cmd, &f.APIFlags)
	cmd.Flags().IntVar(&f.Value, "set", 0, "new difficulty 1-5")
	return cmd
}

func createMCPCommand(globalFlags *GlobalFlags) *cobra.Command {
	f := &MCPFlags{}
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve miner tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			f.ConfigPath = globalFlags.ConfigPath
			ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return newCommand(cmd).MCP(ctx, *f, version)
		},
	}
	cmd.Flags().BoolVar(&f.AutoStart, "auto-start", false, "start mining as soon as the server is up")
	return cmd
}

func createAlgorithmsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List available hash algorithms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newCommand(cmd).Algorithms()
		},
	}
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
