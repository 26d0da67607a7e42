package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	cfgFile string
	debug   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "monitorrent",
		Short: "monitorrent watches tracker topics and feeds new torrents to your clients",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if opts.debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	setupGroup := &cobra.Group{
		ID:    "setup",
		Title: "Configuration Commands:",
	}
	operationGroup := &cobra.Group{
		ID:    "operation",
		Title: "Monitoring Commands:",
	}
	rootCmd.AddGroup(setupGroup, operationGroup)

	initCmd := newInitCmd(opts)
	initCmd.GroupID = setupGroup.ID
	clientsCmd := newClientsCmd(opts)
	clientsCmd.GroupID = setupGroup.ID
	trackersCmd := newTrackersCmd(opts)
	trackersCmd.GroupID = setupGroup.ID

	topicsCmd := newTopicsCmd(opts)
	topicsCmd.GroupID = operationGroup.ID
	executeCmd := newExecuteCmd(opts)
	executeCmd.GroupID = operationGroup.ID
	runCmd := newRunCmd(opts)
	runCmd.GroupID = operationGroup.ID

	rootCmd.AddCommand(initCmd, clientsCmd, trackersCmd, topicsCmd, executeCmd, runCmd, newVersionCmd())
	return rootCmd
}
