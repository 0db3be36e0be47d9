package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tlgayhan/pedi-mvp/config"
	"github.com/tlgayhan/pedi-mvp/data"
	"github.com/tlgayhan/pedi-mvp/handlers"
	"github.com/tlgayhan/pedi-mvp/health"
	"github.com/tlgayhan/pedi-mvp/logging"
	"github.com/tlgayhan/pedi-mvp/reference"
	"github.com/tlgayhan/pedi-mvp/scheduler"
	"github.com/tlgayhan/pedi-mvp/server"
	"github.com/tlgayhan/pedi-mvp/validation"
)

// Graceful shutdown budget
const shutdownTimeout = 30 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pedi-mvp",
		Short:        "Pediatric clinical calculators API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadDotEnv()
		},
	}

	root.AddCommand(serveCmd())
	root.AddCommand(selfTestCmd())
	root.AddCommand(checkDataCmd())

	return root
}

// loadDotEnv reads .env from the working directory, then from the
// executable's directory. A missing file is not an error.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	ex, err := os.Executable()
	if err != nil {
		return nil
	}
	if err := godotenv.Load(filepath.Join(filepath.Dir(ex), ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Load the reference data and start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	loggingService := logging.InitLogger(cfg)
	defer loggingService.Close()

	logging.Info("Starting pedi-mvp",
		"version", cfg.Version,
		"git_sha", cfg.GitSHA,
		"env", cfg.Env.String(),
		"data_dir", cfg.DataDir,
		"reload_interval", cfg.ReloadInterval.String(),
		"watch_data", cfg.WatchData)

	store := data.NewDataContainer()
	store.SetServerStartTime(time.Now())
	validator := validation.NewDataValidator()

	opts := scheduler.Options{ReloadInterval: cfg.ReloadInterval}
	if cfg.WatchData {
		opts.WatchDir = cfg.DataDir
	}
	sched := scheduler.NewScheduler(store, reference.NewLoader(cfg.DataDir), validator, opts)
	if err := sched.Start(); err != nil {
		logging.Error("Failed to load reference data", "error", err)
		return err
	}
	defer sched.Stop()

	healthChecker := health.NewHealthChecker(store, sched, cfg.ReloadInterval, health.BuildInfo{
		Version: cfg.Version,
		GitSHA:  cfg.GitSHA,
		BuiltAt: cfg.BuiltAt,
	})
	srv := server.NewServer(cfg, handlers.NewHTTPHandler(store, validator, healthChecker))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	for {
		select {
		case err := <-errCh:
			if err != nil {
				logging.Error("Server failed", "error", err)
			}
			return err

		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				logging.Info("SIGHUP received, reloading reference data")
				if err := sched.Reload(); err != nil {
					logging.Error("Reload failed, keeping previous snapshot", "error", err)
				}
				continue
			}

			logging.Info("Signal received", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			err := srv.Shutdown(ctx)
			cancel()
			return err
		}
	}
}

func selfTestCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the built-in calculator scenarios and exit non-zero on failure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfTest(cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")

	return cmd
}

func checkDataCmd() *cobra.Command {
	var dir string
	var strict bool

	cmd := &cobra.Command{
		Use:   "check-data",
		Short: "Validate the reference datasets without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env is loaded after flag defaults are set
			if !cmd.Flags().Changed("dir") {
				dir = os.Getenv("DATA_DIR")
			}
			return runCheckData(cmd.Context(), cmd.OutOrStdout(), dir, strict)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "dataset directory (default $DATA_DIR, empty: embedded datasets)")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on data quality issues too")

	return cmd
}
