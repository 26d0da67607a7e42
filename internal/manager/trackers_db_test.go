package manager

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/s0up4200/monitorrent-go/internal/plugin"
	"github.com/s0up4200/monitorrent-go/internal/topic"
)

const displayName1 = "Some Name / Translated Name"

type tracker1Topic struct {
	ID                uint `gorm:"primaryKey;autoIncrement:false"`
	SomeAdditionField int
}

func (tracker1Topic) TableName() string { return "tracker1_topics" }

func (t *tracker1Topic) SetTopicID(id uint) { t.ID = id }

type dbFixture struct {
	store    *topic.Store
	manager  *TrackersManager
	tracker1 *mockUpdatableTracker
	tracker2 *mockCredentialsTracker
	id1      uint
}

func setupTrackersDB(t *testing.T) *dbFixture {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "trackers.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	store := topic.NewStore(db)
	require.NoError(t, store.Migrate(&tracker1Topic{}))

	row := &topic.Topic{DisplayName: displayName1, URL: topicURL, Type: tracker1Name}
	require.NoError(t, store.Create(context.Background(), row, &tracker1Topic{SomeAdditionField: 1}))

	tracker1 := &mockUpdatableTracker{}
	tracker2 := &mockCredentialsTracker{}
	m, err := NewTrackersManager(store,
		plugin.Entry[plugin.Tracker]{Name: tracker1Name, Plugin: tracker1},
		plugin.Entry[plugin.Tracker]{Name: tracker2Name, Plugin: tracker2},
	)
	require.NoError(t, err)

	return &dbFixture{store: store, manager: m, tracker1: tracker1, tracker2: tracker2, id1: row.ID}
}

func TestTrackersManager_RemoveTopic(t *testing.T) {
	f := setupTrackersDB(t)
	ctx := context.Background()

	ok, err := f.manager.RemoveTopic(ctx, f.id1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.store.Get(ctx, f.id1)
	assert.ErrorIs(t, err, topic.ErrNotFound)
}

func TestTrackersManager_RemoveTopic_NotFound(t *testing.T) {
	f := setupTrackersDB(t)
	ctx := context.Background()

	_, err := f.manager.RemoveTopic(ctx, f.id1+1)
	assert.ErrorIs(t, err, ErrNotFound)

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, f.id1+1, notFound.ID)

	_, err = f.store.Get(ctx, f.id1)
	assert.NoError(t, err)
}

func TestTrackersManager_RemoveTopic_Twice(t *testing.T) {
	f := setupTrackersDB(t)
	ctx := context.Background()

	ok, err := f.manager.RemoveTopic(ctx, f.id1)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.manager.RemoveTopic(ctx, f.id1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrackersManager_GetTopic(t *testing.T) {
	f := setupTrackersDB(t)

	topicSettings := plugin.Settings{"display_name": displayName1}
	f.tracker1.On("GetTopic", f.id1).Return(topicSettings, nil)

	result, err := f.manager.GetTopic(context.Background(), f.id1)
	require.NoError(t, err)
	assert.Equal(t, &TopicSettings{Form: testTopicForm, Settings: topicSettings}, result)

	f.tracker1.AssertCalled(t, "GetTopic", f.id1)
	f.tracker2.AssertNotCalled(t, "GetTopic", f.id1)
}

func TestTrackersManager_GetTopic_NotFound(t *testing.T) {
	f := setupTrackersDB(t)

	_, err := f.manager.GetTopic(context.Background(), f.id1+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrackersManager_GetTopic_UnregisteredType(t *testing.T) {
	f := setupTrackersDB(t)
	ctx := context.Background()

	orphan := &topic.Topic{DisplayName: displayName1 + " / Test", URL: "http://tracker.com/2/", Type: tracker1Name + ".uk"}
	require.NoError(t, f.store.Create(ctx, orphan, nil))

	_, err := f.manager.GetTopic(ctx, orphan.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	f.tracker1.AssertNotCalled(t, "GetTopic", orphan.ID)

	// still listed and still removable
	topics, err := f.manager.WatchingTopics(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 2)

	ok, err := f.manager.RemoveTopic(ctx, orphan.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTrackersManager_GetTopic_PluginError(t *testing.T) {
	f := setupTrackersDB(t)

	f.tracker1.On("GetTopic", f.id1).Return(nil, assert.AnError)

	_, err := f.manager.GetTopic(context.Background(), f.id1)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestTrackersManager_UpdateTopic(t *testing.T) {
	f := setupTrackersDB(t)

	params := plugin.Settings{"display_name": "New Name"}
	f.tracker1.On("UpdateTopic", f.id1, params).Return(true, nil)

	ok, err := f.manager.UpdateTopic(context.Background(), f.id1, params)
	require.NoError(t, err)
	assert.True(t, ok)
	f.tracker1.AssertNumberOfCalls(t, "UpdateTopic", 1)
}

func TestTrackersManager_UpdateTopic_DeclinedRollsBack(t *testing.T) {
	f := setupTrackersDB(t)
	ctx := context.Background()

	params := plugin.Settings{"display_name": "New Name"}
	f.tracker1.On("UpdateTopic", f.id1, params).Run(func(args mock.Arguments) {
		txCtx := f.tracker1.lastCtx
		row, err := f.store.Get(txCtx, f.id1)
		require.NoError(t, err)
		row.DisplayName = "partial"
		require.NoError(t, f.store.Update(txCtx, row, nil))
	}).Return(false, nil)

	ok, err := f.manager.UpdateTopic(ctx, f.id1, params)
	require.NoError(t, err)
	assert.False(t, ok)

	row, err := f.store.Get(ctx, f.id1)
	require.NoError(t, err)
	assert.Equal(t, displayName1, row.DisplayName)
}

func TestTrackersManager_UpdateTopic_NotFound(t *testing.T) {
	f := setupTrackersDB(t)
	ctx := context.Background()

	_, err := f.manager.UpdateTopic(ctx, f.id1+1, plugin.Settings{})
	assert.ErrorIs(t, err, ErrNotFound)

	orphan := &topic.Topic{DisplayName: "orphan", URL: "http://tracker.com/3/", Type: "gone.com"}
	require.NoError(t, f.store.Create(ctx, orphan, nil))

	_, err = f.manager.UpdateTopic(ctx, orphan.ID, plugin.Settings{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTrackersManager_UpdateTopic_NotSupported(t *testing.T) {
	f := setupTrackersDB(t)
	ctx := context.Background()

	row := &topic.Topic{DisplayName: "t2", URL: "http://tracker2.com/1/", Type: tracker2Name}
	require.NoError(t, f.store.Create(ctx, row, nil))

	ok, err := f.manager.UpdateTopic(ctx, row.ID, plugin.Settings{"display_name": "x"})
	require.NoError(t, err)
	assert.False(t, ok)
}
