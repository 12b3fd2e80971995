package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/metasnap/internal/pipeline"
	"github.com/ajitpratap0/metasnap/pkg/config"
	"github.com/ajitpratap0/metasnap/pkg/logger"
	"github.com/ajitpratap0/metasnap/pkg/observability"
)

var version = "0.1.0"

// runFlags holds the overrides accepted by run and the root command
type runFlags struct {
	configFile string
	url        string
	tableID    int
	output     string
	timeout    time.Duration
	format     string
	logLevel   string
}

// exitError carries a non-zero exit status without printing anything more;
// the pipeline has already logged the failure.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitError
		if stderrors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	flags := &runFlags{}

	root := &cobra.Command{
		Use:   "metasnap",
		Short: "Snapshot a JSON metadata document into a columnar file",
		Long: `metasnap fetches one JSON metadata document over HTTP, flattens its
top-level members into key/value rows and writes them to a Parquet (or Arrow)
file, optionally uploading the result to S3 or GCS.

Running metasnap without a subcommand is the same as "metasnap run".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd, flags)
		},
	}
	addRunFlags(root, flags)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch the document and write the snapshot file",
		Example: `  metasnap run
  metasnap run --table 1737 --output ipca.parquet
  metasnap run --config metasnap.yaml --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd, flags)
		},
	}
	addRunFlags(runCmd, flags)

	root.AddCommand(runCmd, newInspectCmd(stdout), newConfigCmd(stdout), newVersionCmd(stdout))
	return root
}

func addRunFlags(cmd *cobra.Command, flags *runFlags) {
	cmd.Flags().StringVarP(&flags.configFile, "config", "c", "", "Path to a YAML configuration file (optional)")
	cmd.Flags().StringVar(&flags.url, "url", "", "Fetch this URL instead of the configured template")
	cmd.Flags().IntVar(&flags.tableID, "table", config.DefaultTableID, "Table ID substituted into the URL template")
	cmd.Flags().StringVarP(&flags.output, "output", "o", config.DefaultOutputPath, "Snapshot file path (the default name takes the format's extension)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", config.DefaultTimeout, "Fetch timeout")
	cmd.Flags().StringVar(&flags.format, "format", "parquet", "Output format (parquet, arrow)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// loadConfig reads the config file and environment, then applies only the
// flags that were set explicitly. Validation runs once, after the flags.
func loadConfig(cmd *cobra.Command, flags *runFlags) (*config.Config, error) {
	set := cmd.Flags().Changed
	return config.Load(flags.configFile, func(cfg *config.Config) {
		if set("url") {
			cfg.Source.URL = flags.url
		}
		if set("table") {
			cfg.Source.TableID = flags.tableID
		}
		if set("output") {
			cfg.Output.Path = flags.output
		}
		if set("timeout") {
			cfg.Source.Timeout = flags.timeout
		}
		if set("format") {
			cfg.Output.Format = flags.format
		}
		if set("log-level") {
			cfg.Observability.LogLevel = flags.logLevel
		}
	})
}

func runSnapshot(cmd *cobra.Command, flags *runFlags) error {
	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:    cfg.Observability.LogLevel,
		Encoding: cfg.Observability.LogEncoding,
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	log := logger.With(zap.String("component", "metasnap-cli"))
	ctx := cmd.Context()

	tracingConfig := observability.DefaultTracingConfig()
	tracingConfig.ServiceVersion = version
	tracingConfig.Enabled = cfg.Observability.EnableTracing
	tracingConfig.Output = cmd.ErrOrStderr()
	shutdownTracing, err := observability.InitTracing(ctx, tracingConfig)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("failed to flush traces", zap.Error(err))
		}
	}()

	p, err := pipeline.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build pipeline", logger.ErrorFields(err)...)
		return &exitError{code: 1}
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.Warn("failed to release pipeline resources", zap.Error(err))
		}
	}()

	result := p.Run(ctx)

	if cfg.Observability.MetricsFile != "" {
		if err := p.Metrics().WriteTextfile(cfg.Observability.MetricsFile); err != nil {
			log.Warn("failed to write metrics file", logger.ErrorFields(err)...)
		}
	}

	if code := result.ExitCode(); code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func newConfigCmd(stdout io.Writer) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "metasnap.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
			}
			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Wrote default configuration to %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")

	configCmd.AddCommand(initCmd)
	return configCmd
}

func newVersionCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "metasnap v%s\n", version)
			fmt.Fprintf(stdout, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
