package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/unfoldcro/unfold-core/internal/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "unfold-core",
	Short:   "UnfoldCRO dashboard API and background worker",
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := config.LoadDotEnv(); err != nil {
			log.Printf("Error loading .env file, skipping: %v", err)
		}
	},
	// Without a subcommand, RUN_MODE picks the mode
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := os.Getenv("RUN_MODE")
		if mode == "" {
			mode = "all"
		}
		return run(mode)
	},
	SilenceUsage: true,
}

func modeCommand(mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   mode,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(mode)
		},
	}
}

func init() {
	rootCmd.AddCommand(
		modeCommand("api", "Serve the HTTP API only"),
		modeCommand("worker", "Run the job worker and scheduler only"),
		modeCommand("all", "Run the HTTP API and the worker in one process"),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalln(err.Error())
	}
}

// run builds the application and blocks until SIGINT or SIGTERM
func run(mode string) error {
	switch mode {
	case "api", "worker", "all":
	default:
		return fmt.Errorf("unknown mode %q (use: api, worker, or all)", mode)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := cfg.NewLogger(os.Stderr)

	log.Printf("unfold-core %s starting in %s mode", version, mode)
	if cfg.UsingDevSecret() {
		log.Println("Warning: JWT_SECRET is not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	switch mode {
	case "api":
		return a.runAPI(ctx)
	case "worker":
		return a.runWorker(ctx)
	default:
		if err := a.startWorker(ctx); err != nil {
			return err
		}
		defer a.stopWorker()
		return a.runAPI(ctx)
	}
}
