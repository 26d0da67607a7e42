package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
)

// settingsManager is what the clients and trackers commands dispatch to.
type settingsManager interface {
	GetSettings(ctx context.Context, name string) (plugin.Settings, error)
	SetSettings(ctx context.Context, name string, settings plugin.Settings) (bool, error)
	CheckConnection(ctx context.Context, name string) (bool, error)
}

func newClientsCmd(opts *rootOptions) *cobra.Command {
	return newSettingsCmd(opts, "clients", "client",
		func(a *app) settingsManager { return a.clients },
		func(a *app) any { return a.clients.Clients() },
	)
}

func newTrackersCmd(opts *rootOptions) *cobra.Command {
	return newSettingsCmd(opts, "trackers", "tracker",
		func(a *app) settingsManager { return a.trackers },
		func(a *app) any { return a.trackers.Trackers() },
	)
}

func newSettingsCmd(opts *rootOptions, use, noun string, pick func(*app) settingsManager, list func(*app) any) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("Manage %s settings", noun),
	}

	var set map[string]string
	setCmd := &cobra.Command{
		Use:   "set <name>",
		Short: fmt.Sprintf("Change the settings of a %s", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ok, err := pick(a).SetSettings(cmd.Context(), args[0], toSettings(set))
			if err != nil {
				return notFound(err)
			}
			if !ok {
				return fmt.Errorf("could not update %s settings: %s", noun, args[0])
			}
			return nil
		},
	}
	setCmd.Flags().StringToStringVar(&set, "set", nil, "setting as key=value")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: fmt.Sprintf("List %s", use),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(opts)
				if err != nil {
					return err
				}
				defer a.Close()
				return printYAML(cmd.OutOrStdout(), list(a))
			},
		},
		&cobra.Command{
			Use:   "get <name>",
			Short: fmt.Sprintf("Show the settings of a %s", noun),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(opts)
				if err != nil {
					return err
				}
				defer a.Close()

				settings, err := pick(a).GetSettings(cmd.Context(), args[0])
				if err != nil {
					return notFound(err)
				}
				return printYAML(cmd.OutOrStdout(), settings)
			},
		},
		setCmd,
		&cobra.Command{
			Use:   "check <name>",
			Short: fmt.Sprintf("Check the connection of a %s", noun),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(opts)
				if err != nil {
					return err
				}
				defer a.Close()

				ok, err := pick(a).CheckConnection(cmd.Context(), args[0])
				if err != nil {
					return notFound(err)
				}
				return printYAML(cmd.OutOrStdout(), map[string]bool{"status": ok})
			},
		},
	)
	return cmd
}
