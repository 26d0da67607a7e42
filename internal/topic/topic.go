// Package topic persists watched topics.
//
// Every topic has a row in the topics table whose Type column names the
// tracker plugin that created it. Plugin specific attributes live in side
// tables keyed by the topic id (see Extension).
//
// # Usage
//
//	store := topic.NewStore(db)
//	err := store.Migrate(&ptpTopic{})
//	t, err := store.Get(ctx, 1)
package topic

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("topic not found")

// Topic is the base row shared by all trackers.
type Topic struct {
	ID          uint   `gorm:"primaryKey"`
	DisplayName string `gorm:"not null"`
	URL         string `gorm:"not null;index"`
	Type        string `gorm:"not null;index"`
	Hash        string
	LastUpdate  *time.Time
	CreatedAt   time.Time
}

func (Topic) TableName() string {
	return "topics"
}

// Extension is a plugin side table row. Its primary key is the id of the
// topic it extends.
type Extension interface {
	SetTopicID(id uint)
}
