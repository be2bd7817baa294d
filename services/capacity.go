// services/capacity.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"festival-ticketing/logger"
	"festival-ticketing/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// UnlimitedLimit marks a category without a UnitSetting row.
	UnlimitedLimit = -1
	// UnlimitedRemaining and DegradedRemaining are reported instead of a real count.
	UnlimitedRemaining = 9999
	DegradedRemaining  = 9999
)

// CapacityResult answers "is there room left in this category".
type CapacityResult struct {
	Unit      string `json:"unit"`
	Category  string `json:"category"`
	Available bool   `json:"available"`
	Sold      int    `json:"sold"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Unlimited bool   `json:"unlimited"`
	Closed    bool   `json:"closed,omitempty"`
	// Degraded is set when the store could not be read and the check failed open.
	Degraded bool `json:"degraded,omitempty"`
}

type ReservationStatus string

const (
	Reserved         ReservationStatus = "reserved"
	CapacityExceeded ReservationStatus = "capacity_exceeded"
	ReservationError ReservationStatus = "error"
)

// ReservationResult is returned by Reserve.
type ReservationResult struct {
	Status   ReservationStatus
	Capacity CapacityResult
	Err      error
}

type CapacityService struct {
	DB  *gorm.DB
	Now func() time.Time
	log *slog.Logger
}

func NewCapacityService(db *gorm.DB) *CapacityService {
	return &CapacityService{DB: db, Now: time.Now, log: logger.WithComponent("capacity")}
}

// CheckCapacity never fails: a store error yields an available, degraded result.
func (s *CapacityService) CheckCapacity(ctx context.Context, unitKey, category string) CapacityResult {
	unitKey = models.NormalizeUnitKey(unitKey)
	res, err := s.check(s.DB.WithContext(ctx), unitKey, category, false)
	if err != nil {
		s.log.Warn("capacity check failed open", "unit", unitKey, "category", category, "error", err)
		return degradedResult(unitKey, category)
	}
	return res
}

// ListAvailability reports capacity for every configured category of a unit.
func (s *CapacityService) ListAvailability(ctx context.Context, unitKey string) ([]CapacityResult, error) {
	unitKey = models.NormalizeUnitKey(unitKey)
	db := s.DB.WithContext(ctx)

	var settings []models.UnitSetting
	if err := db.Where("unit_key = ?", unitKey).Order("category_name").Find(&settings).Error; err != nil {
		return nil, fmt.Errorf("load unit settings: %w", err)
	}

	sold, err := soldByCategory(db, unitKey)
	if err != nil {
		return nil, err
	}

	out := make([]CapacityResult, 0, len(settings))
	for _, st := range settings {
		out = append(out, s.evaluate(unitKey, st.CategoryName, &st, sold[st.CategoryName]))
	}
	return out, nil
}

// Reserve re-checks capacity for qty seats inside tx while holding a row lock
// on the category's UnitSetting, so concurrent reservations are serialized.
// The caller must create the registration rows in the same tx.
func (s *CapacityService) Reserve(tx *gorm.DB, unitKey, category string, qty int) ReservationResult {
	unitKey = models.NormalizeUnitKey(unitKey)
	res, err := s.check(tx, unitKey, category, true)
	if err != nil {
		return ReservationResult{Status: ReservationError, Capacity: res, Err: err}
	}
	if !res.Available || (!res.Unlimited && qty > res.Remaining) {
		return ReservationResult{Status: CapacityExceeded, Capacity: res}
	}
	return ReservationResult{Status: Reserved, Capacity: res}
}

func (s *CapacityService) check(db *gorm.DB, unitKey, category string, lock bool) (CapacityResult, error) {
	q := db.Where("unit_key = ? AND category_name = ?", unitKey, category)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var setting models.UnitSetting
	err := q.First(&setting).Error
	found := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return CapacityResult{}, fmt.Errorf("load unit setting: %w", err)
	}

	// Sold is reported for unlimited categories too.
	sold, err := soldCount(db, unitKey, category)
	if err != nil {
		return CapacityResult{}, err
	}
	if !found {
		return s.evaluate(unitKey, category, nil, sold), nil
	}
	return s.evaluate(unitKey, category, &setting, sold), nil
}

func (s *CapacityService) evaluate(unitKey, category string, setting *models.UnitSetting, sold int) CapacityResult {
	res := CapacityResult{Unit: unitKey, Category: category, Sold: sold}
	if setting == nil {
		res.Available = true
		res.Limit = UnlimitedLimit
		res.Remaining = UnlimitedRemaining
		res.Unlimited = true
		return res
	}

	res.Limit = setting.Limit
	res.Remaining = max(0, setting.Limit-sold)
	res.Available = sold < setting.Limit
	if !setting.IsOpen(s.Now()) {
		res.Available = false
		res.Closed = true
	}
	return res
}

func degradedResult(unitKey, category string) CapacityResult {
	return CapacityResult{
		Unit:      unitKey,
		Category:  category,
		Available: true,
		Limit:     UnlimitedLimit,
		Remaining: DegradedRemaining,
		Degraded:  true,
	}
}

func soldCount(db *gorm.DB, unitKey, category string) (int, error) {
	var sold int64
	err := db.Model(&models.Registration{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("unit_key = ? AND category_label = ? AND status IN ?", unitKey, category, models.CountedStatuses).
		Scan(&sold).Error
	if err != nil {
		return 0, fmt.Errorf("count sold seats: %w", err)
	}
	return int(sold), nil
}

func soldByCategory(db *gorm.DB, unitKey string) (map[string]int, error) {
	var rows []struct {
		CategoryLabel string
		Sold          int64
	}
	err := db.Model(&models.Registration{}).
		Select("category_label, COALESCE(SUM(quantity), 0) AS sold").
		Where("unit_key = ? AND status IN ?", unitKey, models.CountedStatuses).
		Group("category_label").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count sold seats: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.CategoryLabel] = int(r.Sold)
	}
	return out, nil
}
