package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	qbittorrent "github.com/autobrr/go-qbittorrent"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
)

const QBittorrentName = "qbittorrent"

type qbittorrentSettings struct {
	ID        uint   `gorm:"primaryKey"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	BasicUser string `mapstructure:"basic_user"`
	BasicPass string `mapstructure:"basic_pass"`
}

func (qbittorrentSettings) TableName() string {
	return "qbittorrent_credentials"
}

// QBitClient implements plugin.Client for qBittorrent
type QBitClient struct {
	settings settingsTable[qbittorrentSettings]
	log      zerolog.Logger
}

// NewQBitClient creates a new qBittorrent client
func NewQBitClient(db *gorm.DB) *QBitClient {
	return &QBitClient{
		settings: settingsTable[qbittorrentSettings]{db: db},
		log:      log.With().Str("client", QBittorrentName).Logger(),
	}
}

func (c *QBitClient) Form() plugin.Form {
	return hostForm(
		plugin.FormField{Type: "text", Model: "username", Label: "Username", Flex: 50},
		plugin.FormField{Type: "password", Model: "password", Label: "Password", Flex: 50},
	)
}

func (c *QBitClient) GetSettings(ctx context.Context) (plugin.Settings, error) {
	s, err := c.settings.load(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	return plugin.Settings{"host": s.Host, "port": s.Port, "username": s.Username}, nil
}

func (c *QBitClient) SetSettings(ctx context.Context, settings plugin.Settings) (bool, error) {
	var s qbittorrentSettings
	if err := plugin.DecodeSettings(settings, &s); err != nil {
		return false, err
	}
	s.ID = 1
	if err := c.settings.save(ctx, &s); err != nil {
		return false, err
	}
	return true, nil
}

// connect logs in with the stored settings. It returns nil when the client is
// not configured or login failed.
func (c *QBitClient) connect(ctx context.Context) (*qbittorrent.Client, error) {
	s, err := c.settings.load(ctx)
	if err != nil || s == nil {
		return nil, err
	}

	host, err := hostURL(s.Host, s.Port)
	if err != nil {
		c.log.Warn().Err(err).Msg("invalid qbittorrent host")
		return nil, nil
	}

	qb := qbittorrent.NewClient(qbittorrent.Config{
		Host:      host,
		Username:  s.Username,
		Password:  s.Password,
		BasicUser: s.BasicUser,
		BasicPass: s.BasicPass,
	})
	if err := qb.Login(); err != nil {
		c.log.Error().Err(err).Str("url", host).Msg("failed to login to qbittorrent")
		return nil, nil
	}

	c.log.Debug().Str("url", host).Msg("connected to qbittorrent")
	return qb, nil
}

func (c *QBitClient) CheckConnection(ctx context.Context) (bool, error) {
	qb, err := c.connect(ctx)
	if err != nil {
		return false, err
	}
	return qb != nil, nil
}

func (c *QBitClient) find(qb *qbittorrent.Client, hash string) (*qbittorrent.Torrent, error) {
	torrents, err := qb.GetTorrents(qbittorrent.TorrentFilterOptions{
		Hashes: []string{strings.ToLower(hash)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get torrents: %w", err)
	}
	if len(torrents) == 0 {
		return nil, nil
	}
	return &torrents[0], nil
}

func (c *QBitClient) FindTorrent(ctx context.Context, hash string) (*plugin.Torrent, error) {
	qb, err := c.connect(ctx)
	if err != nil || qb == nil {
		return nil, err
	}

	t, err := c.find(qb, hash)
	if err != nil || t == nil {
		return nil, err
	}
	return &plugin.Torrent{Name: t.Name, DateAdded: time.Unix(t.AddedOn, 0).UTC()}, nil
}

// AddTorrent adds a torrent to qBittorrent
func (c *QBitClient) AddTorrent(ctx context.Context, torrent []byte) (bool, error) {
	qb, err := c.connect(ctx)
	if err != nil || qb == nil {
		return false, err
	}

	c.log.Debug().Int("bytes", len(torrent)).Msg("adding torrent to qbittorrent")
	if err := qb.AddTorrentFromMemory(torrent, map[string]string{}); err != nil {
		return false, fmt.Errorf("failed to add torrent: %w", err)
	}
	return true, nil
}

func (c *QBitClient) RemoveTorrent(ctx context.Context, hash string) (bool, error) {
	qb, err := c.connect(ctx)
	if err != nil || qb == nil {
		return false, err
	}

	t, err := c.find(qb, hash)
	if err != nil || t == nil {
		return false, err
	}

	if err := qb.DeleteTorrents([]string{t.Hash}, false); err != nil {
		return false, fmt.Errorf("failed to delete torrent: %w", err)
	}
	return true, nil
}
