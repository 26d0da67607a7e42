// Package plugins assembles the built-in client and tracker plugins.
package plugins

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/s0up4200/monitorrent-go/internal/client"
	"github.com/s0up4200/monitorrent-go/internal/config"
	"github.com/s0up4200/monitorrent-go/internal/plugin"
	"github.com/s0up4200/monitorrent-go/internal/topic"
	"github.com/s0up4200/monitorrent-go/internal/tracker"
)

// Builtin implements plugin.Discoverer over the plugins shipped with the
// application.
type Builtin struct {
	db       *gorm.DB
	store    *topic.Store
	clients  []plugin.Entry[plugin.Client]
	trackers []plugin.Entry[plugin.Tracker]
}

// New builds every plugin against db and store.
func New(db *gorm.DB, store *topic.Store, cfg *config.Config) *Builtin {
	httpClient := tracker.NewHTTPClient(cfg.HTTPTimeoutDuration())

	return &Builtin{
		db:    db,
		store: store,
		clients: []plugin.Entry[plugin.Client]{
			{Name: client.QBittorrentName, Plugin: client.NewQBitClient(db)},
			{Name: client.RTorrentName, Plugin: client.NewRTorrentClient(db)},
			{Name: client.DelugeName, Plugin: client.NewDelugeClient(db)},
			{Name: client.WatchDirName, Plugin: client.NewWatchDirClient(db)},
		},
		trackers: []plugin.Entry[plugin.Tracker]{
			{Name: tracker.PTPName, Plugin: tracker.NewPTPTracker(store, cfg.Trackers.PTP.BaseURL, httpClient)},
			{Name: tracker.FileName, Plugin: tracker.NewFileTracker(store, httpClient)},
		},
	}
}

// Migrate creates the topic tables and the tables of every plugin.
func (b *Builtin) Migrate() error {
	models := append(client.Models(), tracker.Models()...)
	if err := b.db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate plugin tables: %w", err)
	}
	return b.store.Migrate(tracker.Extensions()...)
}

func (b *Builtin) Clients() []plugin.Entry[plugin.Client] {
	return b.clients
}

func (b *Builtin) Trackers() []plugin.Entry[plugin.Tracker] {
	return b.trackers
}
