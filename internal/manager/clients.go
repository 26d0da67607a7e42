// Package manager routes operations to tracker and download-client plugins
// and manages the lifecycle of watched topics.
package manager

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/s0up4200/monitorrent-go/internal/plugin"
)

// ClientsManager dispatches to download-client plugins, either by name or by
// fanning out to all of them in registration order.
type ClientsManager struct {
	clients *plugin.Registry[plugin.Client]
	log     zerolog.Logger
}

// ClientInfo is the listing view of a registered client.
type ClientInfo struct {
	Name string      `json:"name" yaml:"name"`
	Form plugin.Form `json:"form" yaml:"form"`
}

// NewClientsManager builds a manager over the given clients.
func NewClientsManager(entries ...plugin.Entry[plugin.Client]) (*ClientsManager, error) {
	registry, err := plugin.NewRegistry(entries...)
	if err != nil {
		return nil, err
	}

	return &ClientsManager{
		clients: registry,
		log:     log.With().Str("component", "clients").Logger(),
	}, nil
}

// DiscoverClientsManager builds a manager over the clients supplied by d.
func DiscoverClientsManager(d plugin.Discoverer) (*ClientsManager, error) {
	return NewClientsManager(d.Clients()...)
}

func (m *ClientsManager) Registry() *plugin.Registry[plugin.Client] {
	return m.clients
}

// Clients lists the registered clients with their settings form.
func (m *ClientsManager) Clients() []ClientInfo {
	entries := m.clients.Entries()
	out := make([]ClientInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, ClientInfo{Name: e.Name, Form: e.Plugin.Form()})
	}
	return out
}

func (m *ClientsManager) lookup(name string) (plugin.Client, error) {
	c, ok := m.clients.Lookup(name)
	if !ok {
		return nil, &UnknownPluginError{Name: name}
	}
	return c, nil
}

func (m *ClientsManager) GetSettings(ctx context.Context, name string) (plugin.Settings, error) {
	c, err := m.lookup(name)
	if err != nil {
		return nil, err
	}
	return c.GetSettings(ctx)
}

func (m *ClientsManager) SetSettings(ctx context.Context, name string, settings plugin.Settings) (bool, error) {
	c, err := m.lookup(name)
	if err != nil {
		return false, err
	}
	return c.SetSettings(ctx, settings)
}

func (m *ClientsManager) CheckConnection(ctx context.Context, name string) (bool, error) {
	c, err := m.lookup(name)
	if err != nil {
		return false, err
	}
	return c.CheckConnection(ctx)
}

// FindTorrent asks every client in order and returns the first match, or nil
// when no client knows the hash.
func (m *ClientsManager) FindTorrent(ctx context.Context, hash string) (*plugin.Torrent, error) {
	for _, e := range m.clients.Entries() {
		t, err := e.Plugin.FindTorrent(ctx, hash)
		if err != nil {
			return nil, err
		}
		if t != nil {
			m.log.Debug().Str("client", e.Name).Str("hash", hash).Msg("torrent found")
			return t, nil
		}
	}
	return nil, nil
}

// AddTorrent hands the torrent to every client and reports whether at least
// one of them accepted it.
func (m *ClientsManager) AddTorrent(ctx context.Context, torrent []byte) (bool, error) {
	added := false
	for _, e := range m.clients.Entries() {
		ok, err := e.Plugin.AddTorrent(ctx, torrent)
		if err != nil {
			return added, err
		}
		m.log.Debug().Str("client", e.Name).Bool("added", ok).Msg("add torrent")
		added = added || ok
	}
	return added, nil
}

// RemoveTorrent removes the torrent from every client and reports whether at
// least one of them had it.
func (m *ClientsManager) RemoveTorrent(ctx context.Context, hash string) (bool, error) {
	removed := false
	for _, e := range m.clients.Entries() {
		ok, err := e.Plugin.RemoveTorrent(ctx, hash)
		if err != nil {
			return removed, err
		}
		m.log.Debug().Str("client", e.Name).Str("hash", hash).Bool("removed", ok).Msg("remove torrent")
		removed = removed || ok
	}
	return removed, nil
}
