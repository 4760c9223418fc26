package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/joeycumines/go-hostbridge/config"
	"github.com/spf13/cobra"
)

// version is set at build time, via -ldflags "-X main.version=...".
var version = `dev`

type runFlags struct {
	configPath  string
	eval        string
	logLevel    string
	logFormat   string
	metricsAddr string
	delay       time.Duration
	stepDelay   time.Duration
	workers     int
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hostbridge",
		Short:         "Run JavaScript against native bridge operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [script.js]",
		Short: "Run a script, then wait for its pending operations",
		Example: "  hostbridge run main.js\n" +
			"  hostbridge run --eval 'console.log(hostbridge.hello())'",
		Args: func(cmd *cobra.Command, args []string) error {
			if flags.eval != `` {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, &flags)
			if err != nil {
				return err
			}
			name, src := `eval.js`, flags.eval
			if src == `` {
				name = args[0]
				if src, err = readScript(name); err != nil {
					return err
				}
			}
			return run(cmd.Context(), cmd.ErrOrStderr(), cfg, name, src)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.configPath, "config", "c", "", "Config file (.yaml, .yml, .toml, .json)")
	f.StringVarP(&flags.eval, "eval", "e", "", "Evaluate the given source, instead of a script file")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level: trace|debug|info|warn|error|off")
	f.StringVar(&flags.logFormat, "log-format", "", "Log format: console|json")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	f.DurationVar(&flags.delay, "delay", 0, "Delay between cross-thread callback iterations")
	f.DurationVar(&flags.stepDelay, "step-delay", 0, "Duration of each step of task work")
	f.IntVar(&flags.workers, "workers", 0, "Worker pool size (0 = GOMAXPROCS)")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hostbridge %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

// resolveConfig loads the config file, if any, then applies flags that were
// explicitly set.
func resolveConfig(cmd *cobra.Command, flags *runFlags) (config.Config, error) {
	cfg := config.Default()
	if flags.configPath != `` {
		var err error
		if cfg, err = config.Load(flags.configPath); err != nil {
			return cfg, err
		}
	}

	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = flags.logFormat
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = flags.metricsAddr
	}
	if changed("delay") {
		cfg.Invoker.Delay = config.Duration(flags.delay)
	}
	if changed("step-delay") {
		cfg.Tasks.StepDelay = config.Duration(flags.stepDelay)
	}
	if changed("workers") {
		cfg.Pool.Workers = flags.workers
	}

	return cfg, cfg.Validate()
}
