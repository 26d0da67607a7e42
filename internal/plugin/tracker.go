package plugin

import "context"

// Tracker is the base capability of every tracker plugin.
type Tracker interface {
	// TopicForm describes the topic settings presented when adding or
	// editing a topic.
	TopicForm() Form

	// CanParseURL reports whether the plugin claims ownership of url.
	CanParseURL(url string) bool

	// PrepareAddTopic parses url into the initial topic settings. A nil
	// result means the url is not understood by this plugin.
	PrepareAddTopic(ctx context.Context, url string) (Settings, error)

	// AddTopic persists a new topic for url.
	AddTopic(ctx context.Context, url string, params Settings) (bool, error)

	// GetTopic returns the settings of an existing topic.
	GetTopic(ctx context.Context, id uint) (Settings, error)
}

// TopicUpdater is implemented by trackers whose topics can be edited.
type TopicUpdater interface {
	UpdateTopic(ctx context.Context, id uint, params Settings) (bool, error)
}

// CredentialsTracker is a tracker that needs an account on the remote site.
type CredentialsTracker interface {
	Tracker

	GetCredentials(ctx context.Context) (Settings, error)
	UpdateCredentials(ctx context.Context, credentials Settings) error
	Verify(ctx context.Context) (bool, error)
	Login(ctx context.Context) (bool, error)
}

// TorrentFetcher is implemented by trackers able to download the current
// .torrent file of a topic. A nil result with a nil error means there is
// nothing to download yet.
type TorrentFetcher interface {
	FetchTorrent(ctx context.Context, id uint) ([]byte, error)
}
