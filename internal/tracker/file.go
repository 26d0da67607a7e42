package tracker

import (
	"context"
	"net/http"
	"path"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
	"github.com/s0up4200/monitorrent-go/internal/topic"
	"github.com/s0up4200/monitorrent-go/internal/torrent"
)

const FileName = "torrent-file"

type fileTopic struct {
	ID          uint `gorm:"primaryKey;autoIncrement:false"`
	TorrentName string
}

func (fileTopic) TableName() string {
	return "file_topics"
}

func (t *fileTopic) SetTopicID(id uint) {
	t.ID = id
}

// FileTracker watches direct links to .torrent files.
type FileTracker struct {
	http  *http.Client
	store *topic.Store
	log   zerolog.Logger
}

// NewFileTracker creates a new direct link tracker
func NewFileTracker(store *topic.Store, client *http.Client) *FileTracker {
	return &FileTracker{
		http:  client,
		store: store,
		log:   log.With().Str("tracker", FileName).Logger(),
	}
}

func (f *FileTracker) TopicForm() plugin.Form {
	return plugin.Form{displayNameRow()}
}

func (f *FileTracker) CanParseURL(url string) bool {
	u, ok := isHTTP(url)
	return ok && path.Ext(u.Path) == ".torrent"
}

// download fetches and parses the torrent behind url.
func (f *FileTracker) download(ctx context.Context, url string) ([]byte, *torrent.Meta, error) {
	data, err := fetch(ctx, f.http, url, nil)
	if err != nil {
		return nil, nil, err
	}
	meta, err := torrent.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	return data, meta, nil
}

// PrepareAddTopic downloads the file and suggests its torrent name. A link
// that does not serve a torrent is not understood.
func (f *FileTracker) PrepareAddTopic(ctx context.Context, url string) (plugin.Settings, error) {
	if !f.CanParseURL(url) {
		return nil, nil
	}

	_, meta, err := f.download(ctx, url)
	if err != nil {
		f.log.Debug().Err(err).Str("url", url).Msg("url does not serve a torrent")
		return nil, nil
	}
	return plugin.Settings{"display_name": meta.Name}, nil
}

func (f *FileTracker) AddTopic(ctx context.Context, url string, params plugin.Settings) (bool, error) {
	if !f.CanParseURL(url) {
		return false, nil
	}

	var s topicParams
	if err := plugin.DecodeSettings(params, &s); err != nil {
		return false, err
	}

	_, meta, err := f.download(ctx, url)
	if err != nil {
		f.log.Warn().Err(err).Str("url", url).Msg("failed to download torrent")
		return false, nil
	}
	if s.DisplayName == "" {
		s.DisplayName = meta.Name
	}

	added, err := addTopic(ctx, f.store,
		&topic.Topic{DisplayName: s.DisplayName, URL: url, Type: FileName},
		&fileTopic{TorrentName: meta.Name},
	)
	if err != nil {
		return false, err
	}
	if !added {
		f.log.Info().Str("url", url).Msg("topic already watched")
	}
	return added, nil
}

func (f *FileTracker) GetTopic(ctx context.Context, id uint) (plugin.Settings, error) {
	t, err := f.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var ext fileTopic
	if err := f.store.LoadExtension(ctx, id, &ext); err != nil {
		return nil, err
	}
	return plugin.Settings{"display_name": t.DisplayName, "torrent_name": ext.TorrentName}, nil
}

func (f *FileTracker) UpdateTopic(ctx context.Context, id uint, params plugin.Settings) (bool, error) {
	t, err := f.store.Get(ctx, id)
	if err != nil {
		return false, err
	}

	s := topicParams{DisplayName: t.DisplayName}
	if err := plugin.DecodeSettings(params, &s); err != nil {
		return false, err
	}
	if s.DisplayName == "" {
		return false, nil
	}

	t.DisplayName = s.DisplayName
	if err := f.store.Update(ctx, t, nil); err != nil {
		return false, err
	}
	return true, nil
}

// FetchTorrent downloads the file again and records the torrent name it
// currently serves.
func (f *FileTracker) FetchTorrent(ctx context.Context, id uint) ([]byte, error) {
	t, err := f.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	data, meta, err := f.download(ctx, t.URL)
	if err != nil {
		return nil, err
	}

	ext := &fileTopic{TorrentName: meta.Name}
	ext.SetTopicID(id)
	if err := f.store.DB(ctx).Save(ext).Error; err != nil {
		f.log.Warn().Err(err).Uint("id", id).Msg("failed to record torrent name")
	}
	return data, nil
}
