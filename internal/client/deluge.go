package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/autobrr/go-deluge"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
	"github.com/s0up4200/monitorrent-go/internal/torrent"
)

const DelugeName = "deluge"

const defaultDelugePort = 58846

type delugeSettings struct {
	ID       uint   `gorm:"primaryKey"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

func (delugeSettings) TableName() string {
	return "deluge_credentials"
}

type delugeConn interface {
	Connect(context.Context) error
	Close() error
	AddTorrentFile(ctx context.Context, filename, contents string, options *deluge.Options) (string, error)
	TorrentStatus(ctx context.Context, id string) (*deluge.TorrentStatus, error)
	RemoveTorrent(ctx context.Context, id string, rmFiles bool) (bool, error)
}

// DelugeClient implements plugin.Client for the Deluge daemon
type DelugeClient struct {
	settings settingsTable[delugeSettings]
	log      zerolog.Logger
}

// NewDelugeClient creates a new Deluge client
func NewDelugeClient(db *gorm.DB) *DelugeClient {
	return &DelugeClient{
		settings: settingsTable[delugeSettings]{db: db},
		log:      log.With().Str("client", DelugeName).Logger(),
	}
}

func (c *DelugeClient) Form() plugin.Form {
	return hostForm(
		plugin.FormField{Type: "text", Model: "username", Label: "Username", Flex: 50},
		plugin.FormField{Type: "password", Model: "password", Label: "Password", Flex: 50},
	)
}

func (c *DelugeClient) GetSettings(ctx context.Context) (plugin.Settings, error) {
	s, err := c.settings.load(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	return plugin.Settings{"host": s.Host, "port": s.Port, "username": s.Username}, nil
}

func (c *DelugeClient) SetSettings(ctx context.Context, settings plugin.Settings) (bool, error) {
	var s delugeSettings
	if err := plugin.DecodeSettings(settings, &s); err != nil {
		return false, err
	}
	if s.Port == 0 {
		s.Port = defaultDelugePort
	}
	s.ID = 1
	if err := c.settings.save(ctx, &s); err != nil {
		return false, err
	}
	return true, nil
}

// connect tries the v2 protocol first and falls back to v1.
func (c *DelugeClient) connect(ctx context.Context) (delugeConn, error) {
	s, err := c.settings.load(ctx)
	if err != nil || s == nil {
		return nil, err
	}

	settings := deluge.Settings{
		Hostname: s.Host,
		Port:     uint(s.Port),
		Login:    s.Username,
		Password: s.Password,
	}

	v2client := deluge.NewV2(settings)
	if err := v2client.Connect(ctx); err == nil {
		return v2client, nil
	}

	v1client := deluge.NewV1(settings)
	if err := v1client.Connect(ctx); err != nil {
		c.log.Error().Err(err).Str("host", s.Host).Msg("failed to connect to deluge")
		return nil, nil
	}
	return v1client, nil
}

func (c *DelugeClient) CheckConnection(ctx context.Context) (bool, error) {
	conn, err := c.connect(ctx)
	if err != nil || conn == nil {
		return false, err
	}
	defer conn.Close()
	return true, nil
}

func (c *DelugeClient) FindTorrent(ctx context.Context, hash string) (*plugin.Torrent, error) {
	conn, err := c.connect(ctx)
	if err != nil || conn == nil {
		return nil, err
	}
	defer conn.Close()

	status, err := conn.TorrentStatus(ctx, strings.ToLower(hash))
	if err != nil {
		return nil, fmt.Errorf("failed to get torrent status: %w", err)
	}
	if status == nil || status.Name == "" {
		return nil, nil
	}
	return &plugin.Torrent{Name: status.Name}, nil
}

// AddTorrent uploads the torrent file to the daemon
func (c *DelugeClient) AddTorrent(ctx context.Context, data []byte) (bool, error) {
	conn, err := c.connect(ctx)
	if err != nil || conn == nil {
		return false, err
	}
	defer conn.Close()

	name := "monitorrent.torrent"
	if meta, err := torrent.Parse(data); err == nil {
		name = meta.Name + ".torrent"
	}

	addPaused := false
	hash, err := conn.AddTorrentFile(ctx, name, base64.StdEncoding.EncodeToString(data), &deluge.Options{
		AddPaused: &addPaused,
	})
	if err != nil {
		return false, fmt.Errorf("failed to add torrent: %w", err)
	}

	c.log.Debug().Str("hash", hash).Str("name", name).Msg("added torrent to deluge")
	return true, nil
}

func (c *DelugeClient) RemoveTorrent(ctx context.Context, hash string) (bool, error) {
	conn, err := c.connect(ctx)
	if err != nil || conn == nil {
		return false, err
	}
	defer conn.Close()

	removed, err := conn.RemoveTorrent(ctx, strings.ToLower(hash), false)
	if err != nil {
		return false, fmt.Errorf("failed to remove torrent: %w", err)
	}
	return removed, nil
}
