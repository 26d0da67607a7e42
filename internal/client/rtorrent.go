package client

import (
	"context"
	"fmt"
	"strings"

	rtorrent "github.com/autobrr/go-rtorrent"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
)

const RTorrentName = "rtorrent"

type rtorrentSettings struct {
	ID        uint   `gorm:"primaryKey"`
	URL       string `mapstructure:"url"`
	BasicUser string `mapstructure:"basic_user"`
	BasicPass string `mapstructure:"basic_pass"`
}

func (rtorrentSettings) TableName() string {
	return "rtorrent_credentials"
}

// RTorrentClient implements plugin.Client for rTorrent
type RTorrentClient struct {
	settings settingsTable[rtorrentSettings]
	log      zerolog.Logger
}

// NewRTorrentClient creates a new rTorrent client
func NewRTorrentClient(db *gorm.DB) *RTorrentClient {
	return &RTorrentClient{
		settings: settingsTable[rtorrentSettings]{db: db},
		log:      log.With().Str("client", RTorrentName).Logger(),
	}
}

func (c *RTorrentClient) Form() plugin.Form {
	return plugin.Form{
		{
			Type: "row",
			Content: []plugin.FormField{
				{Type: "text", Model: "url", Label: "XMLRPC URL", Flex: 100},
			},
		},
		{
			Type: "row",
			Content: []plugin.FormField{
				{Type: "text", Model: "basic_user", Label: "Basic auth user", Flex: 50},
				{Type: "password", Model: "basic_pass", Label: "Basic auth password", Flex: 50},
			},
		},
	}
}

func (c *RTorrentClient) GetSettings(ctx context.Context) (plugin.Settings, error) {
	s, err := c.settings.load(ctx)
	if err != nil || s == nil {
		return nil, err
	}
	return plugin.Settings{"url": s.URL, "basic_user": s.BasicUser}, nil
}

func (c *RTorrentClient) SetSettings(ctx context.Context, settings plugin.Settings) (bool, error) {
	var s rtorrentSettings
	if err := plugin.DecodeSettings(settings, &s); err != nil {
		return false, err
	}
	s.ID = 1
	if err := c.settings.save(ctx, &s); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RTorrentClient) connect(ctx context.Context) (*rtorrent.Client, error) {
	s, err := c.settings.load(ctx)
	if err != nil || s == nil {
		return nil, err
	}

	rt := rtorrent.NewClient(rtorrent.Config{
		Addr:      s.URL,
		BasicUser: s.BasicUser,
		BasicPass: s.BasicPass,
	})

	// Test connection
	if _, err := rt.Name(ctx); err != nil {
		c.log.Error().Err(err).Str("url", s.URL).Msg("failed to connect to rtorrent")
		return nil, nil
	}

	c.log.Debug().Str("url", s.URL).Msg("connected to rtorrent")
	return rt, nil
}

func (c *RTorrentClient) CheckConnection(ctx context.Context) (bool, error) {
	rt, err := c.connect(ctx)
	if err != nil {
		return false, err
	}
	return rt != nil, nil
}

func (c *RTorrentClient) find(ctx context.Context, rt *rtorrent.Client, hash string) (*rtorrent.Torrent, error) {
	torrents, err := rt.GetTorrents(ctx, rtorrent.ViewMain)
	if err != nil {
		return nil, fmt.Errorf("failed to get torrents: %w", err)
	}
	for i := range torrents {
		if strings.EqualFold(torrents[i].Hash, hash) {
			return &torrents[i], nil
		}
	}
	return nil, nil
}

func (c *RTorrentClient) FindTorrent(ctx context.Context, hash string) (*plugin.Torrent, error) {
	rt, err := c.connect(ctx)
	if err != nil || rt == nil {
		return nil, err
	}

	t, err := c.find(ctx, rt, hash)
	if err != nil || t == nil {
		return nil, err
	}
	return &plugin.Torrent{Name: t.Name}, nil
}

// AddTorrent adds a torrent to rTorrent and starts it
func (c *RTorrentClient) AddTorrent(ctx context.Context, torrent []byte) (bool, error) {
	rt, err := c.connect(ctx)
	if err != nil || rt == nil {
		return false, err
	}

	c.log.Debug().Int("bytes", len(torrent)).Msg("adding torrent to rtorrent")
	if err := rt.AddTorrent(ctx, torrent); err != nil {
		return false, fmt.Errorf("failed to add torrent: %w", err)
	}
	return true, nil
}

func (c *RTorrentClient) RemoveTorrent(ctx context.Context, hash string) (bool, error) {
	rt, err := c.connect(ctx)
	if err != nil || rt == nil {
		return false, err
	}

	t, err := c.find(ctx, rt, hash)
	if err != nil || t == nil {
		return false, err
	}

	if err := rt.Delete(ctx, *t); err != nil {
		return false, fmt.Errorf("failed to delete torrent: %w", err)
	}
	return true, nil
}
