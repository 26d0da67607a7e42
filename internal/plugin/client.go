package plugin

import "context"

// Client is implemented by every download-client plugin.
type Client interface {
	// Form describes the shape of the client settings.
	Form() Form

	// GetSettings returns the stored settings, or nil when the client was
	// never configured.
	GetSettings(ctx context.Context) (Settings, error)

	// SetSettings persists new settings.
	SetSettings(ctx context.Context, settings Settings) (bool, error)

	// CheckConnection reports whether the backend is reachable with the
	// stored settings.
	CheckConnection(ctx context.Context) (bool, error)

	// FindTorrent returns the torrent with the given info hash, or nil.
	FindTorrent(ctx context.Context, hash string) (*Torrent, error)

	// AddTorrent hands raw .torrent content to the backend.
	AddTorrent(ctx context.Context, torrent []byte) (bool, error)

	// RemoveTorrent drops the torrent with the given info hash.
	RemoveTorrent(ctx context.Context, hash string) (bool, error)
}
