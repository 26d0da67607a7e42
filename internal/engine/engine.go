// Package engine checks watched topics for new torrents and hands them to
// the download clients.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/s0up4200/monitorrent-go/internal/manager"
	"github.com/s0up4200/monitorrent-go/internal/plugin"
	"github.com/s0up4200/monitorrent-go/internal/topic"
	"github.com/s0up4200/monitorrent-go/internal/torrent"
)

// ErrNotAccepted is returned when no client took a new torrent.
var ErrNotAccepted = errors.New("no client accepted the torrent")

// Result summarizes one run over all topics.
type Result struct {
	Checked int `json:"checked" yaml:"checked"`
	Updated int `json:"updated" yaml:"updated"`
	Skipped int `json:"skipped" yaml:"skipped"`
	Failed  int `json:"failed" yaml:"failed"`
}

type Engine struct {
	trackers *manager.TrackersManager
	clients  *manager.ClientsManager
	store    *topic.Store
	sleep    time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// New creates an engine. sleep is the pause between two topics.
func New(trackers *manager.TrackersManager, clients *manager.ClientsManager, store *topic.Store, sleep time.Duration) *Engine {
	return &Engine{
		trackers: trackers,
		clients:  clients,
		store:    store,
		sleep:    sleep,
		now:      time.Now,
		log:      log.With().Str("component", "engine").Logger(),
	}
}

// Execute checks every watched topic once. Failures of single topics are
// logged and counted, they never abort the run.
func (e *Engine) Execute(ctx context.Context) (*Result, error) {
	topics, err := e.trackers.WatchingTopics(ctx)
	if err != nil {
		return nil, err
	}

	e.log.Debug().Int("topicCount", len(topics)).Msg("starting check for all topics")

	res := &Result{}
	var errs []error
	for i, t := range topics {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		e.log.Debug().
			Uint("id", t.ID).
			Str("topic", t.DisplayName).
			Int("index", i+1).
			Int("total", len(topics)).
			Msg("processing topic")

		updated, err := e.executeTopic(ctx, t)
		switch {
		case errors.Is(err, errSkipped):
			res.Skipped++
		case err != nil:
			res.Failed++
			errs = append(errs, fmt.Errorf("%s: %w", t.DisplayName, err))
		default:
			res.Checked++
			if updated {
				res.Updated++
			}
		}

		// only sleep if this isn't the last topic
		if e.sleep > 0 && i < len(topics)-1 {
			select {
			case <-ctx.Done():
				return res, ctx.Err()
			case <-time.After(e.sleep):
			}
		}
	}

	if len(errs) > 0 {
		e.log.Error().
			Int("failedCount", len(errs)).
			Errs("errors", errs).
			Msg("failed to check some topics")
		return res, nil
	}

	e.log.Info().
		Int("checked", res.Checked).
		Int("updated", res.Updated).
		Msg("successfully completed check for all topics")
	return res, nil
}

var errSkipped = errors.New("skipped")

// executeTopic downloads the current torrent of t and reports whether the
// clients got a new one.
func (e *Engine) executeTopic(ctx context.Context, t topic.Topic) (bool, error) {
	tracker, ok := e.trackers.Registry().Lookup(t.Type)
	if !ok {
		e.log.Warn().Uint("id", t.ID).Str("type", t.Type).Msg("skipping topic without registered tracker")
		return false, errSkipped
	}
	fetcher, ok := tracker.(plugin.TorrentFetcher)
	if !ok {
		e.log.Debug().Uint("id", t.ID).Str("type", t.Type).Msg("tracker cannot download torrents")
		return false, errSkipped
	}

	data, err := fetcher.FetchTorrent(ctx, t.ID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch torrent: %w", err)
	}
	if data == nil {
		return false, nil
	}

	meta, err := torrent.Parse(data)
	if err != nil {
		return false, err
	}

	if meta.InfoHash == t.Hash {
		found, err := e.clients.FindTorrent(ctx, t.Hash)
		if err != nil {
			return false, err
		}
		if found != nil {
			e.log.Debug().Uint("id", t.ID).Str("hash", t.Hash).Msg("topic is up to date")
			return false, nil
		}
		e.log.Info().Uint("id", t.ID).Str("hash", t.Hash).Msg("torrent missing from clients, adding again")
	}

	added, err := e.clients.AddTorrent(ctx, data)
	if err != nil {
		return false, fmt.Errorf("failed to add torrent: %w", err)
	}
	if !added {
		return false, ErrNotAccepted
	}

	if t.Hash != "" && t.Hash != meta.InfoHash {
		removed, err := e.clients.RemoveTorrent(ctx, t.Hash)
		if err != nil {
			e.log.Warn().Err(err).Str("hash", t.Hash).Msg("failed to remove previous torrent")
		} else {
			e.log.Debug().Str("hash", t.Hash).Bool("removed", removed).Msg("removed previous torrent")
		}
	}

	if err := e.store.SetHash(ctx, t.ID, meta.InfoHash, e.now().UTC()); err != nil {
		return false, err
	}

	e.log.Info().
		Uint("id", t.ID).
		Str("topic", t.DisplayName).
		Str("torrent", meta.Name).
		Str("size", units.HumanSize(float64(meta.Size))).
		Msg("successfully added torrent")
	return true, nil
}
