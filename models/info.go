package models

import "time"

type InfoStatus string

const (
	InfoStatusDraft     InfoStatus = "draft"
	InfoStatusScheduled InfoStatus = "scheduled"
	InfoStatusPublished InfoStatus = "published"
)

// Info is an announcement / news post shown on the public site.
type Info struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Title       string     `json:"title" gorm:"not null"`
	Slug        string     `json:"slug" gorm:"uniqueIndex;not null"`
	Category    string     `json:"category" gorm:"index"`
	Body        string     `json:"body" gorm:"type:text"`      // markdown source
	BodyHTML    string     `json:"body_html" gorm:"type:text"` // sanitized render of Body
	ImageURL    string     `json:"image_url"`
	Status      InfoStatus `json:"status" gorm:"type:varchar(16);index;not null"`
	PublishAt   *time.Time `json:"publish_at,omitempty"` // only used if scheduled
	PublishedAt *time.Time `json:"published_at,omitempty" gorm:"index"`

	Timestamps
}
