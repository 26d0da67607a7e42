package topic

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sampleTopic struct {
	ID    uint `gorm:"primaryKey;autoIncrement:false"`
	Extra int
}

func (sampleTopic) TableName() string { return "sample_topics" }

func (t *sampleTopic) SetTopicID(id uint) { t.ID = id }

func setupTestStore(t *testing.T) (*Store, *gorm.DB) {
	dbPath := filepath.Join(t.TempDir(), "topics.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	store := NewStore(db)
	require.NoError(t, store.Migrate(&sampleTopic{}))

	return store, db
}

func TestStore_CreateAndGet(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	topic := &Topic{DisplayName: "Some Name", URL: "http://tracker.com/1/", Type: "tracker.com"}
	require.NoError(t, store.Create(ctx, topic, &sampleTopic{Extra: 7}))
	require.NotZero(t, topic.ID)

	got, err := store.Get(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "Some Name", got.DisplayName)
	assert.Equal(t, "tracker.com", got.Type)

	var ext sampleTopic
	require.NoError(t, store.LoadExtension(ctx, topic.ID, &ext))
	assert.Equal(t, 7, ext.Extra)
}

func TestStore_Get_NotFound(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_FindByURL(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &Topic{DisplayName: "a", URL: "http://a/", Type: "x"}, nil))

	got, err := store.FindByURL(ctx, "http://a/")
	require.NoError(t, err)
	assert.Equal(t, "a", got.DisplayName)

	_, err = store.FindByURL(ctx, "http://b/")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Update(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	topic := &Topic{DisplayName: "old", URL: "http://a/", Type: "x"}
	require.NoError(t, store.Create(ctx, topic, &sampleTopic{Extra: 1}))

	topic.DisplayName = "new"
	require.NoError(t, store.Update(ctx, topic, &sampleTopic{Extra: 2}))

	got, err := store.Get(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.DisplayName)

	var ext sampleTopic
	require.NoError(t, store.LoadExtension(ctx, topic.ID, &ext))
	assert.Equal(t, 2, ext.Extra)
}

func TestStore_SetHash(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	topic := &Topic{DisplayName: "a", URL: "http://a/", Type: "x"}
	require.NoError(t, store.Create(ctx, topic, nil))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.SetHash(ctx, topic.ID, "ABCDEF", now))

	got, err := store.Get(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "ABCDEF", got.Hash)
	require.NotNil(t, got.LastUpdate)
	assert.True(t, now.Equal(*got.LastUpdate))

	assert.ErrorIs(t, store.SetHash(ctx, topic.ID+1, "X", now), ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	store, db := setupTestStore(t)
	ctx := context.Background()

	topic := &Topic{DisplayName: "a", URL: "http://a/", Type: "x"}
	require.NoError(t, store.Create(ctx, topic, &sampleTopic{Extra: 1}))

	require.NoError(t, store.Delete(ctx, topic.ID))

	_, err := store.Get(ctx, topic.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var count int64
	require.NoError(t, db.Model(&sampleTopic{}).Where("id = ?", topic.ID).Count(&count).Error)
	assert.Zero(t, count)

	// second delete observes the row is gone
	assert.ErrorIs(t, store.Delete(ctx, topic.ID), ErrNotFound)
}

func TestStore_Delete_NonExistentLeavesOthers(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	topic := &Topic{DisplayName: "a", URL: "http://a/", Type: "x"}
	require.NoError(t, store.Create(ctx, topic, nil))

	assert.ErrorIs(t, store.Delete(ctx, topic.ID+1), ErrNotFound)

	topics, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, topics, 1)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	topic := &Topic{DisplayName: "a", URL: "http://a/", Type: "x"}
	require.NoError(t, store.Create(ctx, topic, nil))

	err := store.Transaction(ctx, func(ctx context.Context) error {
		topic.DisplayName = "changed"
		require.NoError(t, store.Update(ctx, topic, nil))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	got, err := store.Get(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.DisplayName)
}
