package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket is an admit-one credential minted when its registration is verified.
type Ticket struct {
	ID             string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	RegistrationID string     `json:"registration_id" gorm:"index;not null"`
	Code           string     `json:"code" gorm:"uniqueIndex;size:20;not null"`
	IsUsed         bool       `json:"is_used" gorm:"not null"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	CreatedAt      time.Time  `json:"issued_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	Registration *Registration `json:"registration,omitempty" gorm:"foreignKey:RegistrationID"`
}

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
