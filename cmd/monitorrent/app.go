package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/s0up4200/monitorrent-go/internal/config"
	"github.com/s0up4200/monitorrent-go/internal/database"
	"github.com/s0up4200/monitorrent-go/internal/engine"
	"github.com/s0up4200/monitorrent-go/internal/manager"
	"github.com/s0up4200/monitorrent-go/internal/plugin"
	"github.com/s0up4200/monitorrent-go/internal/plugins"
	"github.com/s0up4200/monitorrent-go/internal/topic"
)

// app holds everything a command needs.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	store    *topic.Store
	clients  *manager.ClientsManager
	trackers *manager.TrackersManager
	engine   *engine.Engine
}

// loadConfig uses the defaults when no config file exists.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	path, err := config.Find(opts.cfgFile)
	if errors.Is(err, config.ErrNoConfig) {
		log.Debug().Msg("no config file found, using defaults")
		dir, derr := config.Dir()
		if derr != nil {
			return nil, derr
		}
		if derr := os.MkdirAll(dir, 0755); derr != nil {
			return nil, fmt.Errorf("could not create config directory: %w", derr)
		}
		cfg, err := config.Load("")
		if err != nil {
			return nil, err
		}
		if !filepath.IsAbs(cfg.Database) {
			cfg.Database = filepath.Join(dir, cfg.Database)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}

func newApp(opts *rootOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	store := topic.NewStore(db)
	builtin := plugins.New(db, store, cfg)
	if err := builtin.Migrate(); err != nil {
		database.Close(db)
		return nil, err
	}

	clients, err := manager.DiscoverClientsManager(builtin)
	if err != nil {
		database.Close(db)
		return nil, err
	}
	trackers, err := manager.DiscoverTrackersManager(store, builtin)
	if err != nil {
		database.Close(db)
		return nil, err
	}

	return &app{
		cfg:      cfg,
		db:       db,
		store:    store,
		clients:  clients,
		trackers: trackers,
		engine:   engine.New(trackers, clients, store, cfg.FetchSleepDuration()),
	}, nil
}

func (a *app) Close() error {
	return database.Close(a.db)
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}

// notFound turns unknown plugin names and missing topics into a plain not
// found error.
func notFound(err error) error {
	if errors.Is(err, manager.ErrNotFound) || errors.Is(err, manager.ErrUnknownPlugin) {
		return fmt.Errorf("not found: %w", err)
	}
	return err
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return 0, fmt.Errorf("invalid topic id %q", s)
	}
	return uint(id), nil
}

func toSettings(values map[string]string) plugin.Settings {
	s := plugin.Settings{}
	for k, v := range values {
		s[k] = v
	}
	return s
}
