package manager

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/s0up4200/monitorrent-go/internal/plugin"
	"github.com/s0up4200/monitorrent-go/internal/topic"
)

// TrackersManager dispatches to tracker plugins and owns the topic
// lifecycle. Topic rows are only read or changed through the plugin named by
// their type, except for removal which needs the id alone.
type TrackersManager struct {
	trackers *plugin.Registry[plugin.Tracker]
	store    *topic.Store
	log      zerolog.Logger
}

// TopicSettings pairs plugin settings with the form used to render them.
type TopicSettings struct {
	Form     plugin.Form     `json:"form" yaml:"form"`
	Settings plugin.Settings `json:"settings" yaml:"settings"`
}

// TrackerInfo is the listing view of a registered tracker.
type TrackerInfo struct {
	Name        string      `json:"name" yaml:"name"`
	Form        plugin.Form `json:"form" yaml:"form"`
	Credentials bool        `json:"credentials" yaml:"credentials"`
}

// NewTrackersManager builds a manager over the given trackers.
func NewTrackersManager(store *topic.Store, entries ...plugin.Entry[plugin.Tracker]) (*TrackersManager, error) {
	registry, err := plugin.NewRegistry(entries...)
	if err != nil {
		return nil, err
	}

	return &TrackersManager{
		trackers: registry,
		store:    store,
		log:      log.With().Str("component", "trackers").Logger(),
	}, nil
}

// DiscoverTrackersManager builds a manager over the trackers supplied by d.
func DiscoverTrackersManager(store *topic.Store, d plugin.Discoverer) (*TrackersManager, error) {
	return NewTrackersManager(store, d.Trackers()...)
}

func (m *TrackersManager) Registry() *plugin.Registry[plugin.Tracker] {
	return m.trackers
}

// Trackers lists the registered trackers.
func (m *TrackersManager) Trackers() []TrackerInfo {
	entries := m.trackers.Entries()
	out := make([]TrackerInfo, 0, len(entries))
	for _, e := range entries {
		_, creds := e.Plugin.(plugin.CredentialsTracker)
		out = append(out, TrackerInfo{Name: e.Name, Form: e.Plugin.TopicForm(), Credentials: creds})
	}
	return out
}

func (m *TrackersManager) lookup(name string) (plugin.Tracker, error) {
	t, ok := m.trackers.Lookup(name)
	if !ok {
		return nil, &UnknownPluginError{Name: name}
	}
	return t, nil
}

// GetSettings returns the tracker credentials. Trackers without credentials
// yield nil.
func (m *TrackersManager) GetSettings(ctx context.Context, name string) (plugin.Settings, error) {
	t, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	ct, ok := t.(plugin.CredentialsTracker)
	if !ok {
		return nil, nil
	}
	return ct.GetCredentials(ctx)
}

// SetSettings updates the tracker credentials. It returns false for trackers
// without credentials.
func (m *TrackersManager) SetSettings(ctx context.Context, name string, settings plugin.Settings) (bool, error) {
	t, err := m.lookup(name)
	if err != nil {
		return false, err
	}
	ct, ok := t.(plugin.CredentialsTracker)
	if !ok {
		return false, nil
	}
	if err := ct.UpdateCredentials(ctx, settings); err != nil {
		return false, err
	}
	return true, nil
}

// CheckConnection verifies the tracker credentials. It returns false for
// trackers without credentials.
func (m *TrackersManager) CheckConnection(ctx context.Context, name string) (bool, error) {
	t, err := m.lookup(name)
	if err != nil {
		return false, err
	}
	ct, ok := t.(plugin.CredentialsTracker)
	if !ok {
		return false, nil
	}
	return ct.Verify(ctx)
}

// PrepareAddTopic asks every tracker in order to parse url and returns the
// first result with the form of the tracker that produced it. It returns nil
// when no tracker understood the url.
func (m *TrackersManager) PrepareAddTopic(ctx context.Context, url string) (*TopicSettings, error) {
	for _, e := range m.trackers.Entries() {
		settings, err := e.Plugin.PrepareAddTopic(ctx, url)
		if err != nil {
			return nil, err
		}
		if settings != nil {
			m.log.Debug().Str("tracker", e.Name).Str("url", url).Msg("url parsed")
			return &TopicSettings{Form: e.Plugin.TopicForm(), Settings: settings}, nil
		}
	}
	return nil, nil
}

// AddTopic gives url to the first tracker that claims it. Trackers after the
// claiming one are not consulted, whatever the outcome of the add.
func (m *TrackersManager) AddTopic(ctx context.Context, url string, params plugin.Settings) (bool, error) {
	for _, e := range m.trackers.Entries() {
		if !e.Plugin.CanParseURL(url) {
			continue
		}

		added, err := e.Plugin.AddTopic(ctx, url, params)
		if err != nil {
			return false, err
		}

		m.log.Info().Str("tracker", e.Name).Str("url", url).Bool("added", added).Msg("add topic")
		return added, nil
	}

	m.log.Debug().Str("url", url).Msg("no tracker claims url")
	return false, nil
}

// owner loads topic id and resolves the tracker named by its type. Both a
// missing row and a row of an unregistered type are reported as not found.
func (m *TrackersManager) owner(ctx context.Context, id uint) (plugin.Tracker, error) {
	row, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, topic.ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, err
	}

	t, ok := m.trackers.Lookup(row.Type)
	if !ok {
		m.log.Warn().Uint("id", id).Str("type", row.Type).Msg("topic type has no registered tracker")
		return nil, &NotFoundError{ID: id, Reason: "unknown tracker " + row.Type}
	}
	return t, nil
}

// GetTopic returns the settings of topic id as its tracker reports them.
func (m *TrackersManager) GetTopic(ctx context.Context, id uint) (*TopicSettings, error) {
	var result *TopicSettings
	err := m.store.Transaction(ctx, func(ctx context.Context) error {
		t, err := m.owner(ctx, id)
		if err != nil {
			return err
		}

		settings, err := t.GetTopic(ctx, id)
		if err != nil {
			return err
		}

		result = &TopicSettings{Form: t.TopicForm(), Settings: settings}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateTopic changes topic id through its tracker. Trackers that do not
// support updates yield false. A false result rolls the unit of work back.
func (m *TrackersManager) UpdateTopic(ctx context.Context, id uint, params plugin.Settings) (bool, error) {
	var updated bool
	err := m.store.Transaction(ctx, func(ctx context.Context) error {
		t, err := m.owner(ctx, id)
		if err != nil {
			return err
		}

		u, ok := t.(plugin.TopicUpdater)
		if !ok {
			return errDeclined
		}

		updated, err = u.UpdateTopic(ctx, id, params)
		if err != nil {
			return err
		}
		if !updated {
			return errDeclined
		}
		return nil
	})
	if errors.Is(err, errDeclined) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return updated, nil
}

// errDeclined aborts a unit of work when a plugin returned false.
var errDeclined = errors.New("declined")

// RemoveTopic deletes topic id without consulting any tracker.
func (m *TrackersManager) RemoveTopic(ctx context.Context, id uint) (bool, error) {
	if err := m.store.Delete(ctx, id); err != nil {
		if errors.Is(err, topic.ErrNotFound) {
			return false, &NotFoundError{ID: id}
		}
		return false, err
	}

	m.log.Info().Uint("id", id).Msg("topic removed")
	return true, nil
}

// WatchingTopics lists every stored topic, including the ones whose tracker
// is no longer registered.
func (m *TrackersManager) WatchingTopics(ctx context.Context) ([]topic.Topic, error) {
	return m.store.List(ctx)
}
