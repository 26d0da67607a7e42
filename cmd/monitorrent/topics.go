package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/monitorrent-go/internal/topic"
)

// topicView is the listing view of a topic.
type topicView struct {
	ID          uint       `yaml:"id"`
	DisplayName string     `yaml:"display_name"`
	URL         string     `yaml:"url"`
	Tracker     string     `yaml:"tracker"`
	Hash        string     `yaml:"hash,omitempty"`
	LastUpdate  *time.Time `yaml:"last_update,omitempty"`
}

func viewTopics(topics []topic.Topic) []topicView {
	out := make([]topicView, 0, len(topics))
	for _, t := range topics {
		out = append(out, topicView{
			ID:          t.ID,
			DisplayName: t.DisplayName,
			URL:         t.URL,
			Tracker:     t.Type,
			Hash:        t.Hash,
			LastUpdate:  t.LastUpdate,
		})
	}
	return out
}

func newTopicsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage watched topics",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List watched topics",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(opts)
				if err != nil {
					return err
				}
				defer a.Close()

				topics, err := a.trackers.WatchingTopics(cmd.Context())
				if err != nil {
					return err
				}
				return printYAML(cmd.OutOrStdout(), viewTopics(topics))
			},
		},
		&cobra.Command{
			Use:   "parse <url>",
			Short: "Show the settings a new topic for url would get",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := newApp(opts)
				if err != nil {
					return err
				}
				defer a.Close()

				settings, err := a.trackers.PrepareAddTopic(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if settings == nil {
					return fmt.Errorf("can't parse url: '%s'", args[0])
				}
				return printYAML(cmd.OutOrStdout(), settings)
			},
		},
		newTopicsAddCmd(opts),
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show the settings of a topic",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}

				a, err := newApp(opts)
				if err != nil {
					return err
				}
				defer a.Close()

				settings, err := a.trackers.GetTopic(cmd.Context(), id)
				if err != nil {
					return notFound(err)
				}
				return printYAML(cmd.OutOrStdout(), settings)
			},
		},
		newTopicsUpdateCmd(opts),
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Stop watching a topic",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}

				a, err := newApp(opts)
				if err != nil {
					return err
				}
				defer a.Close()

				removed, err := a.trackers.RemoveTopic(cmd.Context(), id)
				if err != nil {
					return notFound(err)
				}
				if !removed {
					return errors.New("could not remove topic")
				}
				return nil
			},
		},
	)
	return cmd
}

func newTopicsAddCmd(opts *rootOptions) *cobra.Command {
	var set map[string]string

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Start watching a topic",
		Example: `  # Watch a group, suggested settings come from "topics parse"
  monitorrent topics add 'https://passthepopcorn.me/torrents.php?id=42' --set display_name='Movie (2020)' --set quality=1080p`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			added, err := a.trackers.AddTopic(cmd.Context(), args[0], toSettings(set))
			if err != nil {
				return err
			}
			if !added {
				return fmt.Errorf("could not add topic: '%s'", args[0])
			}
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&set, "set", nil, "topic setting as key=value")
	return cmd
}

func newTopicsUpdateCmd(opts *rootOptions) *cobra.Command {
	var set map[string]string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the settings of a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			updated, err := a.trackers.UpdateTopic(cmd.Context(), id, toSettings(set))
			if err != nil {
				return notFound(err)
			}
			if !updated {
				return fmt.Errorf("could not update topic %d", id)
			}
			return nil
		},
	}

	cmd.Flags().StringToStringVar(&set, "set", nil, "topic setting as key=value")
	return cmd
}
