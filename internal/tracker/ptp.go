package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
	"github.com/s0up4200/monitorrent-go/internal/topic"
)

const PTPName = "passthepopcorn.me"

const DefaultPTPBaseURL = "https://passthepopcorn.me"

type ptpCredentials struct {
	ID      uint   `gorm:"primaryKey"`
	ApiUser string `mapstructure:"api_user"`
	ApiKey  string `mapstructure:"api_key"`
}

func (ptpCredentials) TableName() string {
	return "ptp_credentials"
}

type ptpTopic struct {
	ID        uint   `gorm:"primaryKey;autoIncrement:false"`
	GroupID   string `gorm:"not null"`
	TorrentID string
	Quality   string
}

func (ptpTopic) TableName() string {
	return "ptp_topics"
}

func (t *ptpTopic) SetTopicID(id uint) {
	t.ID = id
}

type ptpParams struct {
	DisplayName string `mapstructure:"display_name"`
	Quality     string `mapstructure:"quality"`
}

type ptpGroup struct {
	Name     string `json:"Name"`
	Year     any    `json:"Year"`
	Torrents []struct {
		ID         json.Number `json:"Id"`
		Quality    string      `json:"Quality"`
		Resolution string      `json:"Resolution"`
	} `json:"Torrents"`
}

// PTPTracker watches torrent groups on PassThePopcorn through its JSON API.
type PTPTracker struct {
	baseURL string
	http    *http.Client
	store   *topic.Store
	log     zerolog.Logger
}

// NewPTPTracker creates a new PassThePopcorn tracker
func NewPTPTracker(store *topic.Store, baseURL string, client *http.Client) *PTPTracker {
	if baseURL == "" {
		baseURL = DefaultPTPBaseURL
	}
	return &PTPTracker{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    client,
		store:   store,
		log:     log.With().Str("tracker", PTPName).Logger(),
	}
}

func (p *PTPTracker) TopicForm() plugin.Form {
	return plugin.Form{
		displayNameRow(),
		{
			Type: "row",
			Content: []plugin.FormField{
				{Type: "text", Model: "quality", Label: "Quality or resolution", Flex: 100},
			},
		},
	}
}

// parse extracts the group and optional torrent id from a torrents.php url.
func (p *PTPTracker) parse(raw string) (groupID, torrentID string, ok bool) {
	u, ok := isHTTP(raw)
	if !ok {
		return "", "", false
	}
	base, err := url.Parse(p.baseURL)
	if err != nil {
		return "", "", false
	}
	if strings.TrimPrefix(u.Host, "www.") != strings.TrimPrefix(base.Host, "www.") {
		return "", "", false
	}
	if u.Path != "/torrents.php" {
		return "", "", false
	}

	q := u.Query()
	groupID = q.Get("id")
	if _, err := strconv.ParseUint(groupID, 10, 64); err != nil {
		return "", "", false
	}
	return groupID, q.Get("torrentid"), true
}

func (p *PTPTracker) CanParseURL(url string) bool {
	_, _, ok := p.parse(url)
	return ok
}

func (p *PTPTracker) credentials(ctx context.Context) (*ptpCredentials, error) {
	var c ptpCredentials
	if err := p.store.DB(ctx).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load ptp credentials: %w", err)
	}
	return &c, nil
}

func (p *PTPTracker) header(c *ptpCredentials) http.Header {
	h := http.Header{}
	h.Set("ApiUser", c.ApiUser)
	h.Set("ApiKey", c.ApiKey)
	return h
}

func (p *PTPTracker) group(ctx context.Context, c *ptpCredentials, groupID string) (*ptpGroup, error) {
	q := url.Values{}
	q.Set("id", groupID)
	q.Set("json", "noredirect")

	data, err := fetch(ctx, p.http, p.baseURL+"/torrents.php?"+q.Encode(), p.header(c))
	if err != nil {
		return nil, err
	}

	var g ptpGroup
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to decode group %s: %w", groupID, err)
	}
	return &g, nil
}

func (g *ptpGroup) title() string {
	if g.Year == nil || fmt.Sprint(g.Year) == "" {
		return g.Name
	}
	return fmt.Sprintf("%s (%v)", g.Name, g.Year)
}

// pick returns the newest torrent id matching quality, or the newest overall
// when quality is empty.
func (g *ptpGroup) pick(quality string) string {
	var best string
	var bestID int64 = -1
	for _, t := range g.Torrents {
		if quality != "" && !strings.EqualFold(t.Quality, quality) && !strings.EqualFold(t.Resolution, quality) {
			continue
		}
		id, err := t.ID.Int64()
		if err != nil {
			continue
		}
		if id > bestID {
			best, bestID = t.ID.String(), id
		}
	}
	return best
}

// PrepareAddTopic looks the group up to suggest a display name. Without
// credentials the name is derived from the url alone.
func (p *PTPTracker) PrepareAddTopic(ctx context.Context, url string) (plugin.Settings, error) {
	groupID, _, ok := p.parse(url)
	if !ok {
		return nil, nil
	}

	c, err := p.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		p.log.Warn().Msg("no credentials configured, cannot look up group")
		return plugin.Settings{"display_name": "PTP " + groupID, "quality": ""}, nil
	}

	g, err := p.group(ctx, c, groupID)
	if err != nil {
		return nil, err
	}
	return plugin.Settings{"display_name": g.title(), "quality": ""}, nil
}

func (p *PTPTracker) AddTopic(ctx context.Context, url string, params plugin.Settings) (bool, error) {
	groupID, torrentID, ok := p.parse(url)
	if !ok {
		return false, nil
	}

	var s ptpParams
	if err := plugin.DecodeSettings(params, &s); err != nil {
		return false, err
	}
	if s.DisplayName == "" {
		s.DisplayName = "PTP " + groupID
	}

	added, err := addTopic(ctx, p.store,
		&topic.Topic{DisplayName: s.DisplayName, URL: url, Type: PTPName},
		&ptpTopic{GroupID: groupID, TorrentID: torrentID, Quality: s.Quality},
	)
	if err != nil {
		return false, err
	}
	if !added {
		p.log.Info().Str("url", url).Msg("topic already watched")
	}
	return added, nil
}

func (p *PTPTracker) load(ctx context.Context, id uint) (*topic.Topic, *ptpTopic, error) {
	t, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	var ext ptpTopic
	if err := p.store.LoadExtension(ctx, id, &ext); err != nil {
		return nil, nil, err
	}
	return t, &ext, nil
}

func (p *PTPTracker) GetTopic(ctx context.Context, id uint) (plugin.Settings, error) {
	t, ext, err := p.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return plugin.Settings{"display_name": t.DisplayName, "quality": ext.Quality}, nil
}

func (p *PTPTracker) UpdateTopic(ctx context.Context, id uint, params plugin.Settings) (bool, error) {
	t, ext, err := p.load(ctx, id)
	if err != nil {
		return false, err
	}

	s := ptpParams{DisplayName: t.DisplayName, Quality: ext.Quality}
	if err := plugin.DecodeSettings(params, &s); err != nil {
		return false, err
	}
	if s.DisplayName == "" {
		return false, nil
	}

	t.DisplayName = s.DisplayName
	ext.Quality = s.Quality
	if err := p.store.Update(ctx, t, ext); err != nil {
		return false, err
	}
	return true, nil
}

// GetCredentials returns the api user. The key is never handed out.
func (p *PTPTracker) GetCredentials(ctx context.Context) (plugin.Settings, error) {
	c, err := p.credentials(ctx)
	if err != nil || c == nil {
		return nil, err
	}
	return plugin.Settings{"api_user": c.ApiUser}, nil
}

func (p *PTPTracker) UpdateCredentials(ctx context.Context, credentials plugin.Settings) error {
	var c ptpCredentials
	if err := plugin.DecodeSettings(credentials, &c); err != nil {
		return err
	}
	c.ID = 1
	if err := p.store.DB(ctx).Save(&c).Error; err != nil {
		return fmt.Errorf("failed to save ptp credentials: %w", err)
	}
	return nil
}

// check calls an authenticated endpoint with the stored credentials.
func (p *PTPTracker) check(ctx context.Context) (bool, error) {
	c, err := p.credentials(ctx)
	if err != nil || c == nil {
		return false, err
	}

	_, err = fetch(ctx, p.http, p.baseURL+"/index.php?json=noredirect", p.header(c))
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			p.log.Debug().Int("status", se.Code).Msg("credentials rejected")
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p *PTPTracker) Verify(ctx context.Context) (bool, error) {
	return p.check(ctx)
}

// Login checks the api credentials. The API is stateless so there is no
// session to keep.
func (p *PTPTracker) Login(ctx context.Context) (bool, error) {
	ok, err := p.check(ctx)
	if err != nil {
		return false, err
	}
	if ok {
		p.log.Info().Msg("logged in")
	} else {
		p.log.Warn().Msg("login failed")
	}
	return ok, nil
}

// FetchTorrent downloads the torrent pinned by the topic url, or the newest
// one of the group matching the topic quality.
func (p *PTPTracker) FetchTorrent(ctx context.Context, id uint) ([]byte, error) {
	_, ext, err := p.load(ctx, id)
	if err != nil {
		return nil, err
	}

	c, err := p.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("no credentials configured for %s", PTPName)
	}

	torrentID := ext.TorrentID
	if torrentID == "" {
		g, err := p.group(ctx, c, ext.GroupID)
		if err != nil {
			return nil, err
		}
		torrentID = g.pick(ext.Quality)
		if torrentID == "" {
			p.log.Debug().Str("group", ext.GroupID).Str("quality", ext.Quality).Msg("no matching torrent in group")
			return nil, nil
		}
	}

	q := url.Values{}
	q.Set("action", "download")
	q.Set("id", torrentID)

	data, err := fetch(ctx, p.http, p.baseURL+"/torrents.php?"+q.Encode(), p.header(c))
	if err != nil {
		return nil, fmt.Errorf("failed to download torrent: %w", err)
	}

	p.log.Debug().Str("group", ext.GroupID).Str("torrentID", torrentID).Msg("downloaded torrent")
	return data, nil
}
