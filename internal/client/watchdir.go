package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
	"github.com/s0up4200/monitorrent-go/internal/torrent"
)

const WatchDirName = "watchdir"

type watchDirSettings struct {
	ID   uint   `gorm:"primaryKey"`
	Path string `mapstructure:"path"`
}

func (watchDirSettings) TableName() string {
	return "watchdir_settings"
}

// WatchDirClient implements plugin.Client for clients that pick up .torrent
// files from a directory
type WatchDirClient struct {
	settings settingsTable[watchDirSettings]
	log      zerolog.Logger
}

// NewWatchDirClient creates a new watch directory client
func NewWatchDirClient(db *gorm.DB) *WatchDirClient {
	return &WatchDirClient{
		settings: settingsTable[watchDirSettings]{db: db},
		log:      log.With().Str("client", WatchDirName).Logger(),
	}
}

func (c *WatchDirClient) Form() plugin.Form {
	return plugin.Form{{
		Type: "row",
		Content: []plugin.FormField{
			{Type: "text", Model: "path", Label: "Watch directory", Flex: 100},
		},
	}}
}

func (c *WatchDirClient) GetSettings(ctx context.Context) (plugin.Settings, error) {
	s, err := c.settings.load(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	return plugin.Settings{"path": s.Path}, nil
}

func (c *WatchDirClient) SetSettings(ctx context.Context, settings plugin.Settings) (bool, error) {
	var s watchDirSettings
	if err := plugin.DecodeSettings(settings, &s); err != nil {
		return false, err
	}
	if s.Path == "" {
		return false, nil
	}
	s.ID = 1
	if err := c.settings.save(ctx, &s); err != nil {
		return false, err
	}
	return true, nil
}

// dir returns the configured directory if it exists.
func (c *WatchDirClient) dir(ctx context.Context) (string, error) {
	s, err := c.settings.load(ctx)
	if err != nil || s == nil {
		return "", err
	}

	info, err := os.Stat(s.Path)
	if err != nil || !info.IsDir() {
		c.log.Warn().Err(err).Str("path", s.Path).Msg("watch directory is not available")
		return "", nil
	}
	return s.Path, nil
}

func (c *WatchDirClient) CheckConnection(ctx context.Context) (bool, error) {
	dir, err := c.dir(ctx)
	if err != nil {
		return false, err
	}
	return dir != "", nil
}

// find scans the directory for a .torrent file with the given info hash.
func (c *WatchDirClient) find(dir, hash string) (string, *torrent.Meta, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.torrent"))
	if err != nil {
		return "", nil, fmt.Errorf("failed to list watch directory: %w", err)
	}

	hash = torrent.NormalizeHash(hash)
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read torrent file: %w", err)
		}
		meta, err := torrent.Parse(data)
		if err != nil {
			c.log.Debug().Err(err).Str("path", path).Msg("skipping unreadable torrent file")
			continue
		}
		if meta.InfoHash == hash {
			return path, meta, nil
		}
	}
	return "", nil, nil
}

func (c *WatchDirClient) FindTorrent(ctx context.Context, hash string) (*plugin.Torrent, error) {
	dir, err := c.dir(ctx)
	if err != nil || dir == "" {
		return nil, err
	}

	path, meta, err := c.find(dir, hash)
	if err != nil || meta == nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat torrent file: %w", err)
	}
	return &plugin.Torrent{Name: meta.Name, DateAdded: info.ModTime().UTC()}, nil
}

// AddTorrent saves the torrent file to the watch directory
func (c *WatchDirClient) AddTorrent(ctx context.Context, data []byte) (bool, error) {
	dir, err := c.dir(ctx)
	if err != nil || dir == "" {
		return false, err
	}

	meta, err := torrent.Parse(data)
	if err != nil {
		return false, err
	}

	name := strings.ReplaceAll(filepath.Base(meta.Name), string(os.PathSeparator), "_")
	torrentPath := filepath.Join(dir, fmt.Sprintf("%s.torrent", name))

	if err := os.WriteFile(torrentPath, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write torrent file: %w", err)
	}

	c.log.Info().
		Str("path", torrentPath).
		Str("size", units.HumanSize(float64(meta.Size))).
		Msg("saved torrent file to watch directory")

	return true, nil
}

func (c *WatchDirClient) RemoveTorrent(ctx context.Context, hash string) (bool, error) {
	dir, err := c.dir(ctx)
	if err != nil || dir == "" {
		return false, err
	}

	path, _, err := c.find(dir, hash)
	if err != nil || path == "" {
		return false, err
	}

	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("failed to remove torrent file: %w", err)
	}
	return true, nil
}
