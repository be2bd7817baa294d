// models/unit.go
package models

import (
	"strings"

	"gorm.io/datatypes"
)

// Unit is a competition container (e.g. "fg" for photography, "tesas" for theatre).
// Key is the lower-cased identifier used by registrations and capacity settings.
type Unit struct {
	ID            string            `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Key           string            `json:"key" gorm:"column:unit_key;uniqueIndex;not null"`
	Name          string            `json:"name" gorm:"not null"`
	Description   string            `json:"description" gorm:"type:text"`
	DisplayConfig datatypes.JSONMap `json:"display_config,omitempty"` // colours, form fields, poster URL...
	IsActive      bool              `json:"is_active"`
	SortOrder     int               `json:"sort_order" gorm:"column:sort_order;default:0"`

	SubEvents []SubEvent `json:"sub_events,omitempty" gorm:"foreignKey:UnitID"`

	Timestamps
}

// SubEvent is a named competition track or pricing tier inside a unit.
type SubEvent struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UnitID    string `json:"unit_id" gorm:"index;not null"`
	Name      string `json:"name" gorm:"not null"`
	Price     int64  `json:"price"` // rupiah
	SortOrder int    `json:"sort_order" gorm:"column:sort_order;default:0"`
}

// NormalizeUnitKey lower-cases and trims a unit key so every lookup agrees on it.
func NormalizeUnitKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
