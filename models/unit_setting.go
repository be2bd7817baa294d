package models

import "time"

// UnitSetting is the admin-configured capacity for one (unit, category) pair.
// A pair without a row is unlimited.
type UnitSetting struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UnitKey      string     `json:"unit" gorm:"uniqueIndex:idx_unit_category;not null"`
	CategoryName string     `json:"category" gorm:"uniqueIndex:idx_unit_category;not null"`
	Limit        int        `json:"limit" gorm:"column:capacity_limit;not null"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	EventDate    *time.Time `json:"event_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsOpen reports whether registration is accepted at t according to the
// optional start/end window.
func (s UnitSetting) IsOpen(t time.Time) bool {
	if s.StartDate != nil && t.Before(*s.StartDate) {
		return false
	}
	if s.EndDate != nil && t.After(*s.EndDate) {
		return false
	}
	return true
}
