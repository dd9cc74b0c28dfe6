package domain

import "time"

// FeedSourceID is the primary key of the single feed source record.
const FeedSourceID = "default"

// FeedSource holds the operator-editable feed settings.
type FeedSource struct {
	ID         string     `gorm:"type:text;primaryKey" json:"-"`
	URL        string     `gorm:"type:text" json:"feed_url"`
	BatchSize  int        `gorm:"default:50" json:"batch_size"`
	AutoImport bool       `gorm:"default:false" json:"auto_import"`
	LastSyncAt *time.Time `json:"last_sync_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name for FeedSource.
func (FeedSource) TableName() string {
	return "feed_sources"
}

// Configured reports whether a run can be started from this source.
func (s *FeedSource) Configured() bool {
	return s != nil && s.URL != ""
}
