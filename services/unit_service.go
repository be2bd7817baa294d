package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"festival-ticketing/logger"
	"festival-ticketing/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SubEventInput struct {
	Name  string `json:"name" validate:"required"`
	Price int64  `json:"price" validate:"gte=0"`
}

type UnitInput struct {
	Key           string                 `json:"key" validate:"required,max=32"`
	Name          string                 `json:"name" validate:"required"`
	Description   string                 `json:"description"`
	DisplayConfig map[string]interface{} `json:"display_config"`
	IsActive      *bool                  `json:"is_active"`
	SortOrder     int                    `json:"sort_order"`
	SubEvents     []SubEventInput        `json:"sub_events" validate:"dive"`
}

type UnitSettingInput struct {
	UnitKey      string     `json:"unit" validate:"required"`
	CategoryName string     `json:"category" validate:"required"`
	Limit        int        `json:"limit" validate:"gte=0"`
	StartDate    *time.Time `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	EventDate    *time.Time `json:"event_date"`
}

type UnitService struct {
	DB  *gorm.DB
	log *slog.Logger
}

func NewUnitService(db *gorm.DB) *UnitService {
	return &UnitService{DB: db, log: logger.WithComponent("unit")}
}

func (s *UnitService) ListUnits(ctx context.Context, activeOnly bool) ([]models.Unit, error) {
	q := s.DB.WithContext(ctx).Preload("SubEvents", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order, name")
	})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var units []models.Unit
	err := q.Order("sort_order, name").Find(&units).Error
	return units, err
}

func (s *UnitService) GetUnit(ctx context.Context, key string) (*models.Unit, error) {
	var unit models.Unit
	err := s.DB.WithContext(ctx).
		Preload("SubEvents", func(db *gorm.DB) *gorm.DB { return db.Order("sort_order, name") }).
		First(&unit, "unit_key = ?", models.NormalizeUnitKey(key)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (s *UnitService) CreateUnit(ctx context.Context, in UnitInput) (*models.Unit, error) {
	unit := &models.Unit{
		ID:            uuid.NewString(),
		Key:           models.NormalizeUnitKey(in.Key),
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		DisplayConfig: in.DisplayConfig,
		IsActive:      in.IsActive == nil || *in.IsActive,
		SortOrder:     in.SortOrder,
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(unit).Error; err != nil {
			return err
		}
		unit.SubEvents = buildSubEvents(unit.ID, in.SubEvents)
		if len(unit.SubEvents) > 0 {
			return tx.Create(&unit.SubEvents).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create unit %s: %w", unit.Key, err)
	}
	s.log.Info("unit created", "unit", unit.Key)
	return unit, nil
}

// UpdateUnit overwrites the unit's fields and replaces its sub-events.
func (s *UnitService) UpdateUnit(ctx context.Context, key string, in UnitInput) (*models.Unit, error) {
	unit, err := s.GetUnit(ctx, key)
	if err != nil {
		return nil, err
	}

	unit.Name = strings.TrimSpace(in.Name)
	unit.Description = in.Description
	unit.DisplayConfig = in.DisplayConfig
	unit.SortOrder = in.SortOrder
	if in.IsActive != nil {
		unit.IsActive = *in.IsActive
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("SubEvents").Save(unit).Error; err != nil {
			return err
		}
		if err := tx.Where("unit_id = ?", unit.ID).Delete(&models.SubEvent{}).Error; err != nil {
			return err
		}
		unit.SubEvents = buildSubEvents(unit.ID, in.SubEvents)
		if len(unit.SubEvents) > 0 {
			return tx.Create(&unit.SubEvents).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update unit %s: %w", unit.Key, err)
	}
	return unit, nil
}

func buildSubEvents(unitID string, in []SubEventInput) []models.SubEvent {
	out := make([]models.SubEvent, 0, len(in))
	for i, se := range in {
		out = append(out, models.SubEvent{
			ID:        uuid.NewString(),
			UnitID:    unitID,
			Name:      strings.TrimSpace(se.Name),
			Price:     se.Price,
			SortOrder: i,
		})
	}
	return out
}

// UpsertUnitSetting creates or replaces the capacity of one (unit, category).
func (s *UnitService) UpsertUnitSetting(ctx context.Context, in UnitSettingInput) (*models.UnitSetting, error) {
	if in.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative")
	}
	unitKey := models.NormalizeUnitKey(in.UnitKey)
	db := s.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&models.Unit{}).Where("unit_key = ?", unitKey).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrUnitNotFound
	}

	setting := &models.UnitSetting{
		ID:           uuid.NewString(),
		UnitKey:      unitKey,
		CategoryName: strings.TrimSpace(in.CategoryName),
		Limit:        in.Limit,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		EventDate:    in.EventDate,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "unit_key"}, {Name: "category_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"capacity_limit", "start_date", "end_date", "event_date", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return nil, fmt.Errorf("upsert unit setting: %w", err)
	}

	// The insert may have turned into an update; read back the stored row.
	var stored models.UnitSetting
	if err := db.First(&stored, "unit_key = ? AND category_name = ?", setting.UnitKey, setting.CategoryName).Error; err != nil {
		return nil, err
	}
	s.log.Info("unit setting saved", "unit", stored.UnitKey, "category", stored.CategoryName, "limit", stored.Limit)
	return &stored, nil
}

func (s *UnitService) ListUnitSettings(ctx context.Context, unitKey string) ([]models.UnitSetting, error) {
	q := s.DB.WithContext(ctx).Order("unit_key, category_name")
	if unitKey != "" {
		q = q.Where("unit_key = ?", models.NormalizeUnitKey(unitKey))
	}
	var settings []models.UnitSetting
	err := q.Find(&settings).Error
	return settings, err
}

func (s *UnitService) DeleteUnitSetting(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.UnitSetting{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSettingNotFound
	}
	return nil
}
