// models/registration.go
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RegistrationStatus is the admin review state of a registration line item.
type RegistrationStatus string

const (
	StatusPending  RegistrationStatus = "PENDING"
	StatusVerified RegistrationStatus = "VERIFIED"
	StatusRejected RegistrationStatus = "REJECTED"
)

// CountedStatuses are the statuses that occupy capacity.
var CountedStatuses = []string{string(StatusPending), string(StatusVerified)}

// ParseRegistrationStatus accepts any letter case and reports whether the value is known.
func ParseRegistrationStatus(raw string) (RegistrationStatus, bool) {
	s := RegistrationStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusVerified, StatusRejected:
		return s, true
	}
	return "", false
}

// Registration is one line item of a checkout. Every item created in the same
// checkout shares RegistrationCode.
type Registration struct {
	ID           string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UnitKey      string `json:"unit" gorm:"index;not null"`
	SubEventName string `json:"sub_event_name"`
	// CategoryLabel and Quantity are fixed when the row is created; capacity
	// counting sums Quantity grouped by CategoryLabel.
	CategoryLabel    string             `json:"category" gorm:"index"`
	Quantity         int                `json:"quantity" gorm:"not null"`
	FullName         string             `json:"full_name" gorm:"not null"`
	Phone            string             `json:"phone"`
	Email            string             `json:"email" gorm:"index"`
	DetailedData     datatypes.JSONMap  `json:"detailed_data"`
	TotalPrice       int64              `json:"total_price"`
	PaymentProof     string             `json:"payment_proof"`
	RegistrationCode string             `json:"registration_code" gorm:"index;not null"`
	Status           RegistrationStatus `json:"status" gorm:"type:varchar(16);index;not null"`
	CreatedAt        time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time          `json:"updated_at" gorm:"autoUpdateTime"`

	Tickets []Ticket `json:"tickets,omitempty" gorm:"foreignKey:RegistrationID"`
}

// BeforeCreate fills the derived columns so rows written by any path are
// counted the same way by the capacity check.
func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.UnitKey = NormalizeUnitKey(r.UnitKey)
	if r.CategoryLabel == "" {
		r.CategoryLabel = EffectiveCategoryLabel(r.DetailedData, r.SubEventName)
	}
	if r.Quantity < 1 {
		r.Quantity = ParseQuantity(r.DetailedData)
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return nil
}
