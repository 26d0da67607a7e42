package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/s0up4200/monitorrent-go/internal/config"
	"github.com/s0up4200/monitorrent-go/internal/engine"
	"github.com/s0up4200/monitorrent-go/pkg/version"
)

func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := opts.cfgFile
			if configPath == "" {
				dir, err := config.Dir()
				if err != nil {
					return err
				}
				configPath = filepath.Join(dir, "config.yaml")
			}

			if err := config.Write(configPath, config.Default()); err != nil {
				log.Error().Err(err).Str("path", configPath).Msg("failed to create config file")
				return err
			}

			log.Info().Str("path", configPath).Msg("created new config file")
			log.Info().Msg("configure your clients and tracker credentials with the clients and trackers commands")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information and check for updates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return version.CheckForUpdates(cmd.Context(), "s0up4200", "monitorrent-go")
		},
	}
}

func newExecuteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "execute",
		Short: "Check all watched topics once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.Execute(cmd.Context())
			if err != nil {
				return err
			}
			return printYAML(cmd.OutOrStdout(), res)
		},
	}
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	var interval int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor service continuously",
		Example: `  # Run the service with the configured interval
  monitorrent run

  # Run with custom interval (in minutes)
  monitorrent run --interval 30`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			lock := flock.New(a.cfg.Database + ".lock")
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("failed to lock database: %w", err)
			}
			if !locked {
				return fmt.Errorf("another monitorrent service is using %s", a.cfg.Database)
			}
			defer lock.Unlock()

			every := a.cfg.IntervalDuration()
			if cmd.Flags().Changed("interval") {
				if interval <= 0 {
					return fmt.Errorf("interval must be positive, got %d", interval)
				}
				every = time.Duration(interval) * time.Minute
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().
				Str("schedule", fmt.Sprintf("every %s", every)).
				Msg("starting monitor service")

			scheduler := engine.NewScheduler(a.engine, every)

			if err := scheduler.Start(ctx); err != nil {
				return err
			}

			// initial check
			scheduler.RunNow()

			<-ctx.Done()
			scheduler.Stop()
			log.Info().Msg("shutting down")
			return nil
		},
	}

	cmd.Flags().IntVar(&interval, "interval", 0, "check interval in minutes (defaults to the config value)")
	return cmd
}
