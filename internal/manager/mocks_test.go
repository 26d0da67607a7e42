package manager

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Form() plugin.Form {
	return plugin.Form{{Type: "row", Content: []plugin.FormField{{Type: "text", Model: "host", Label: "Host"}}}}
}

func (m *mockClient) GetSettings(ctx context.Context) (plugin.Settings, error) {
	args := m.Called()
	s, _ := args.Get(0).(plugin.Settings)
	return s, args.Error(1)
}

func (m *mockClient) SetSettings(ctx context.Context, settings plugin.Settings) (bool, error) {
	args := m.Called(settings)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) CheckConnection(ctx context.Context) (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) FindTorrent(ctx context.Context, hash string) (*plugin.Torrent, error) {
	args := m.Called(hash)
	t, _ := args.Get(0).(*plugin.Torrent)
	return t, args.Error(1)
}

func (m *mockClient) AddTorrent(ctx context.Context, torrent []byte) (bool, error) {
	args := m.Called(torrent)
	return args.Bool(0), args.Error(1)
}

func (m *mockClient) RemoveTorrent(ctx context.Context, hash string) (bool, error) {
	args := m.Called(hash)
	return args.Bool(0), args.Error(1)
}

var testTopicForm = plugin.Form{{
	Type: "row",
	Content: []plugin.FormField{
		{Type: "text", Model: "display_name", Label: "Name", Flex: 100},
	},
}}

// mockTracker implements only the base tracker capability.
type mockTracker struct {
	mock.Mock
}

func (m *mockTracker) TopicForm() plugin.Form {
	return testTopicForm
}

func (m *mockTracker) CanParseURL(url string) bool {
	return m.Called(url).Bool(0)
}

func (m *mockTracker) PrepareAddTopic(ctx context.Context, url string) (plugin.Settings, error) {
	args := m.Called(url)
	s, _ := args.Get(0).(plugin.Settings)
	return s, args.Error(1)
}

func (m *mockTracker) AddTopic(ctx context.Context, url string, params plugin.Settings) (bool, error) {
	args := m.Called(url, params)
	return args.Bool(0), args.Error(1)
}

func (m *mockTracker) GetTopic(ctx context.Context, id uint) (plugin.Settings, error) {
	args := m.Called(id)
	s, _ := args.Get(0).(plugin.Settings)
	return s, args.Error(1)
}

// mockUpdatableTracker adds topic updates.
type mockUpdatableTracker struct {
	mockTracker
	lastCtx context.Context
}

func (m *mockUpdatableTracker) UpdateTopic(ctx context.Context, id uint, params plugin.Settings) (bool, error) {
	m.lastCtx = ctx
	args := m.Called(id, params)
	return args.Bool(0), args.Error(1)
}

// mockCredentialsTracker adds the credentials capability.
type mockCredentialsTracker struct {
	mockTracker
}

func (m *mockCredentialsTracker) GetCredentials(ctx context.Context) (plugin.Settings, error) {
	args := m.Called()
	s, _ := args.Get(0).(plugin.Settings)
	return s, args.Error(1)
}

func (m *mockCredentialsTracker) UpdateCredentials(ctx context.Context, credentials plugin.Settings) error {
	return m.Called(credentials).Error(0)
}

func (m *mockCredentialsTracker) Verify(ctx context.Context) (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

func (m *mockCredentialsTracker) Login(ctx context.Context) (bool, error) {
	args := m.Called()
	return args.Bool(0), args.Error(1)
}

type fakeDiscoverer struct {
	clients  []plugin.Entry[plugin.Client]
	trackers []plugin.Entry[plugin.Tracker]
}

func (d fakeDiscoverer) Clients() []plugin.Entry[plugin.Client]   { return d.clients }
func (d fakeDiscoverer) Trackers() []plugin.Entry[plugin.Tracker] { return d.trackers }
