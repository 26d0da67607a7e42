package manager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
)

const (
	client1Name = "client1"
	client2Name = "client2"
)

func setupClientsManager(t *testing.T) (*ClientsManager, *mockClient, *mockClient) {
	client1 := &mockClient{}
	client2 := &mockClient{}

	m, err := NewClientsManager(
		plugin.Entry[plugin.Client]{Name: client1Name, Plugin: client1},
		plugin.Entry[plugin.Client]{Name: client2Name, Plugin: client2},
	)
	require.NoError(t, err)

	return m, client1, client2
}

func TestClientsManager_GetSettings(t *testing.T) {
	m, client1, client2 := setupClientsManager(t)

	settings1 := plugin.Settings{"login": "login1", "password": "password1"}
	client1.On("GetSettings").Return(settings1, nil)

	settings, err := m.GetSettings(context.Background(), client1Name)
	require.NoError(t, err)
	assert.Equal(t, settings1, settings)

	client1.AssertNumberOfCalls(t, "GetSettings", 1)
	client2.AssertNotCalled(t, "GetSettings")
}

func TestClientsManager_GetSettings_Unknown(t *testing.T) {
	m, client1, client2 := setupClientsManager(t)

	_, err := m.GetSettings(context.Background(), "client3")
	assert.ErrorIs(t, err, ErrUnknownPlugin)

	var unknown *UnknownPluginError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "client3", unknown.Name)

	client1.AssertNotCalled(t, "GetSettings")
	client2.AssertNotCalled(t, "GetSettings")
}

func TestClientsManager_SetSettings(t *testing.T) {
	m, client1, client2 := setupClientsManager(t)

	settings := plugin.Settings{"login": "login2", "password": "password2"}
	client1.On("SetSettings", settings).Return(true, nil)

	ok, err := m.SetSettings(context.Background(), client1Name, settings)
	require.NoError(t, err)
	assert.True(t, ok)

	client1.AssertCalled(t, "SetSettings", settings)
	client2.AssertNotCalled(t, "SetSettings", settings)

	_, err = m.SetSettings(context.Background(), "client3", settings)
	assert.ErrorIs(t, err, ErrUnknownPlugin)
}

func TestClientsManager_CheckConnection(t *testing.T) {
	for _, value := range []bool{true, false} {
		m, client1, client2 := setupClientsManager(t)
		client1.On("CheckConnection").Return(value, nil)
		client2.On("CheckConnection").Return(value, nil)

		ok, err := m.CheckConnection(context.Background(), client1Name)
		require.NoError(t, err)
		assert.Equal(t, value, ok)

		ok, err = m.CheckConnection(context.Background(), client2Name)
		require.NoError(t, err)
		assert.Equal(t, value, ok)

		client1.AssertNumberOfCalls(t, "CheckConnection", 1)
		client2.AssertNumberOfCalls(t, "CheckConnection", 1)
	}
}

func TestClientsManager_CheckConnection_Unknown(t *testing.T) {
	m, _, _ := setupClientsManager(t)

	_, err := m.CheckConnection(context.Background(), "tracker.org")
	assert.ErrorIs(t, err, ErrUnknownPlugin)
}

func TestClientsManager_FindTorrent_Found(t *testing.T) {
	m, client1, client2 := setupClientsManager(t)

	result := &plugin.Torrent{Name: "movie.torrent"}
	client1.On("FindTorrent", "hash").Return(nil, nil)
	client2.On("FindTorrent", "hash").Return(result, nil)

	found, err := m.FindTorrent(context.Background(), "hash")
	require.NoError(t, err)
	assert.Equal(t, result, found)

	client1.AssertNumberOfCalls(t, "FindTorrent", 1)
	client2.AssertNumberOfCalls(t, "FindTorrent", 1)
}

func TestClientsManager_FindTorrent_FirstWins(t *testing.T) {
	m, client1, client2 := setupClientsManager(t)

	client1.On("FindTorrent", "hash").Return(&plugin.Torrent{Name: "first"}, nil)

	found, err := m.FindTorrent(context.Background(), "hash")
	require.NoError(t, err)
	assert.Equal(t, "first", found.Name)

	client2.AssertNotCalled(t, "FindTorrent", "hash")
}

func TestClientsManager_FindTorrent_NotFound(t *testing.T) {
	m, client1, client2 := setupClientsManager(t)

	client1.On("FindTorrent", "hash").Return(nil, nil)
	client2.On("FindTorrent", "hash").Return(nil, nil)

	found, err := m.FindTorrent(context.Background(), "hash")
	require.NoError(t, err)
	assert.Nil(t, found)

	client1.AssertNumberOfCalls(t, "FindTorrent", 1)
	client2.AssertNumberOfCalls(t, "FindTorrent", 1)
}

func TestClientsManager_AddTorrent(t *testing.T) {
	tests := []struct {
		name     string
		client1  bool
		client2  bool
		expected bool
	}{
		{name: "second accepts", client1: false, client2: true, expected: true},
		{name: "first accepts", client1: true, client2: false, expected: true},
		{name: "none accepts", client1: false, client2: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, client1, client2 := setupClientsManager(t)

			torrent := []byte("!torrent_file")
			client1.On("AddTorrent", torrent).Return(tt.client1, nil)
			client2.On("AddTorrent", torrent).Return(tt.client2, nil)

			ok, err := m.AddTorrent(context.Background(), torrent)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)

			client1.AssertNumberOfCalls(t, "AddTorrent", 1)
			client2.AssertNumberOfCalls(t, "AddTorrent", 1)
		})
	}
}

func TestClientsManager_RemoveTorrent(t *testing.T) {
	tests := []struct {
		name     string
		client1  bool
		client2  bool
		expected bool
	}{
		{name: "second removes", client1: false, client2: true, expected: true},
		{name: "both remove", client1: true, client2: true, expected: true},
		{name: "none removes", client1: false, client2: false, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, client1, client2 := setupClientsManager(t)

			client1.On("RemoveTorrent", "hash").Return(tt.client1, nil)
			client2.On("RemoveTorrent", "hash").Return(tt.client2, nil)

			ok, err := m.RemoveTorrent(context.Background(), "hash")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)

			client1.AssertNumberOfCalls(t, "RemoveTorrent", 1)
			client2.AssertNumberOfCalls(t, "RemoveTorrent", 1)
		})
	}
}

func TestClientsManager_PluginErrorPropagates(t *testing.T) {
	m, client1, client2 := setupClientsManager(t)

	client1.On("AddTorrent", []byte("t")).Return(false, assert.AnError)

	_, err := m.AddTorrent(context.Background(), []byte("t"))
	assert.ErrorIs(t, err, assert.AnError)
	client2.AssertNotCalled(t, "AddTorrent", []byte("t"))
}

func TestClientsManager_Discover(t *testing.T) {
	client := &mockClient{}
	d := fakeDiscoverer{clients: []plugin.Entry[plugin.Client]{{Name: "test", Plugin: client}}}

	m, err := DiscoverClientsManager(d)
	require.NoError(t, err)

	clients := m.Clients()
	require.Len(t, clients, 1)
	assert.Equal(t, "test", clients[0].Name)
	assert.Equal(t, client.Form(), clients[0].Form)
}

func TestNewClientsManager_Duplicate(t *testing.T) {
	_, err := NewClientsManager(
		plugin.Entry[plugin.Client]{Name: client1Name, Plugin: &mockClient{}},
		plugin.Entry[plugin.Client]{Name: client1Name, Plugin: &mockClient{}},
	)
	assert.ErrorIs(t, err, plugin.ErrDuplicatePlugin)
}
