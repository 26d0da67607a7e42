package topic

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"gorm.io/gorm"
)

type txKey struct{}

// Store handles all topic database operations.
type Store struct {
	db         *gorm.DB
	extensions []Extension
}

// NewStore creates a new topic store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates the topics table and the given side tables. The side tables
// are remembered so Delete can clean them up.
func (s *Store) Migrate(extensions ...Extension) error {
	models := []any{&Topic{}}
	for _, ext := range extensions {
		models = append(models, ext)
	}

	if err := s.db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate topics: %w", err)
	}

	s.extensions = append(s.extensions, extensions...)
	return nil
}

// Transaction runs fn in a single unit of work. The transaction is carried in
// the context handed to fn, so every store call made with that context,
// including the ones made by plugins, joins it. It commits when fn returns
// nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.DB(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// DB returns the handle to use for ctx: the running transaction if there is
// one, the root connection otherwise.
func (s *Store) DB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

// Get loads the base row of a topic.
func (s *Store) Get(ctx context.Context, id uint) (*Topic, error) {
	var t Topic
	if err := s.DB(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get topic %d: %w", id, err)
	}
	return &t, nil
}

// List returns every base row ordered by id, whatever its type.
func (s *Store) List(ctx context.Context) ([]Topic, error) {
	var topics []Topic
	if err := s.DB(ctx).Order("id").Find(&topics).Error; err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	return topics, nil
}

// FindByURL returns the topic watching url, or ErrNotFound.
func (s *Store) FindByURL(ctx context.Context, url string) (*Topic, error) {
	var t Topic
	if err := s.DB(ctx).Where("url = ?", url).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find topic by url: %w", err)
	}
	return &t, nil
}

// Create inserts t and, when ext is not nil, its side table row.
func (s *Store) Create(ctx context.Context, t *Topic, ext Extension) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		tx := s.DB(ctx)
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("failed to create topic: %w", err)
		}
		if ext == nil {
			return nil
		}
		ext.SetTopicID(t.ID)
		if err := tx.Create(ext).Error; err != nil {
			return fmt.Errorf("failed to create %s topic: %w", t.Type, err)
		}
		return nil
	})
}

// LoadExtension fills ext with the side table row of topic id.
func (s *Store) LoadExtension(ctx context.Context, id uint, ext Extension) error {
	if err := s.DB(ctx).First(ext, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to load topic %d: %w", id, err)
	}
	return nil
}

// Update saves the base row and, when ext is not nil, its side table row.
func (s *Store) Update(ctx context.Context, t *Topic, ext Extension) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		tx := s.DB(ctx)
		if err := tx.Save(t).Error; err != nil {
			return fmt.Errorf("failed to update topic %d: %w", t.ID, err)
		}
		if ext == nil {
			return nil
		}
		ext.SetTopicID(t.ID)
		if err := tx.Save(ext).Error; err != nil {
			return fmt.Errorf("failed to update %s topic %d: %w", t.Type, t.ID, err)
		}
		return nil
	})
}

// SetHash records the info hash of the torrent last handed to the clients.
func (s *Store) SetHash(ctx context.Context, id uint, hash string, at time.Time) error {
	res := s.DB(ctx).Model(&Topic{}).Where("id = ?", id).Updates(map[string]any{
		"hash":        hash,
		"last_update": at,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to set hash of topic %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the base row of topic id together with its side table rows.
// It does not look at the topic type. ErrNotFound is returned when there was
// no base row, in which case nothing is changed.
func (s *Store) Delete(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		tx := s.DB(ctx)

		res := tx.Delete(&Topic{}, id)
		if res.Error != nil {
			return fmt.Errorf("failed to delete topic %d: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		for _, ext := range s.extensions {
			model := reflect.New(reflect.TypeOf(ext).Elem()).Interface()
			if err := tx.Where("id = ?", id).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to delete side row of topic %d: %w", id, err)
			}
		}
		return nil
	})
}
