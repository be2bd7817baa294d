package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"festival-ticketing/logger"
	"festival-ticketing/models"
	"festival-ticketing/utils"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type InfoInput struct {
	Title     string     `json:"title" validate:"required,max=200"`
	Category  string     `json:"category"`
	Body      string     `json:"body"`
	ImageURL  string     `json:"image_url"`
	Status    string     `json:"status" validate:"omitempty,oneof=draft scheduled published"`
	PublishAt *time.Time `json:"publish_at"`
}

// InfoImage is an optional image uploaded alongside an announcement.
type InfoImage struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type InfoService struct {
	DB       *gorm.DB
	Markdown *utils.MarkdownRenderer
	Uploader utils.Uploader
	Now      func() time.Time
	log      *slog.Logger
}

func NewInfoService(db *gorm.DB, uploader utils.Uploader) *InfoService {
	return &InfoService{
		DB:       db,
		Markdown: utils.NewMarkdownRenderer(),
		Uploader: uploader,
		Now:      time.Now,
		log:      logger.WithComponent("info"),
	}
}

var ErrPublishAtRequired = errors.New("publish_at required for scheduled status")

// applyStatus sets status, PublishAt and PublishedAt the same way for create and update.
func (s *InfoService) applyStatus(info *models.Info, status string, publishAt *time.Time) error {
	switch models.InfoStatus(status) {
	case "":
		if info.Status == "" {
			info.Status = models.InfoStatusDraft
		}
	case models.InfoStatusDraft:
		info.Status = models.InfoStatusDraft
		info.PublishAt = nil
	case models.InfoStatusPublished:
		if info.Status != models.InfoStatusPublished {
			now := s.Now()
			info.PublishedAt = &now
		}
		info.Status = models.InfoStatusPublished
		info.PublishAt = nil
	case models.InfoStatusScheduled:
		if publishAt == nil {
			return ErrPublishAtRequired
		}
		info.Status = models.InfoStatusScheduled
		info.PublishAt = publishAt
	default:
		return fmt.Errorf("invalid status %q (use: draft, scheduled, published)", status)
	}
	return nil
}

func (s *InfoService) uploadImage(ctx context.Context, img *InfoImage) (string, error) {
	if img == nil {
		return "", nil
	}
	if s.Uploader == nil {
		return "", errors.New("no uploader configured")
	}
	return s.Uploader.Upload(ctx, utils.ObjectKey("infos", img.Filename, ".jpg"), img.ContentType, img.Body)
}

// uniqueSlug appends -2, -3... until the slug is unused by another info.
func (s *InfoService) uniqueSlug(db *gorm.DB, title, excludeID string) (string, error) {
	base := slug.Make(title)
	if base == "" {
		base = "info"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		q := db.Model(&models.Info{}).Unscoped().Where("slug = ?", candidate)
		if excludeID != "" {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *InfoService) CreateInfo(ctx context.Context, in InfoInput, img *InfoImage) (*models.Info, error) {
	db := s.DB.WithContext(ctx)

	html, err := s.Markdown.Render(in.Body)
	if err != nil {
		return nil, err
	}
	info := &models.Info{
		ID:       uuid.NewString(),
		Title:    strings.TrimSpace(in.Title),
		Category: strings.TrimSpace(in.Category),
		Body:     in.Body,
		BodyHTML: html,
		ImageURL: in.ImageURL,
	}
	if err := s.applyStatus(info, in.Status, in.PublishAt); err != nil {
		return nil, err
	}
	if info.Slug, err = s.uniqueSlug(db, info.Title, ""); err != nil {
		return nil, err
	}
	if url, err := s.uploadImage(ctx, img); err != nil {
		return nil, fmt.Errorf("upload info image: %w", err)
	} else if url != "" {
		info.ImageURL = url
	}

	if err := db.Create(info).Error; err != nil {
		return nil, fmt.Errorf("create info: %w", err)
	}
	s.log.Info("info created", "slug", info.Slug, "status", info.Status)
	return info, nil
}

func (s *InfoService) UpdateInfo(ctx context.Context, id string, in InfoInput, img *InfoImage) (*models.Info, error) {
	db := s.DB.WithContext(ctx)

	var info models.Info
	if err := db.First(&info, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInfoNotFound
		}
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	if title != info.Title {
		newSlug, err := s.uniqueSlug(db, title, info.ID)
		if err != nil {
			return nil, err
		}
		info.Slug = newSlug
	}
	html, err := s.Markdown.Render(in.Body)
	if err != nil {
		return nil, err
	}
	info.Title = title
	info.Category = strings.TrimSpace(in.Category)
	info.Body = in.Body
	info.BodyHTML = html
	if in.ImageURL != "" {
		info.ImageURL = in.ImageURL
	}
	if err := s.applyStatus(&info, in.Status, in.PublishAt); err != nil {
		return nil, err
	}
	if url, err := s.uploadImage(ctx, img); err != nil {
		return nil, fmt.Errorf("upload info image: %w", err)
	} else if url != "" {
		info.ImageURL = url
	}

	if err := db.Save(&info).Error; err != nil {
		return nil, fmt.Errorf("update info: %w", err)
	}
	return &info, nil
}

func (s *InfoService) DeleteInfo(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Info{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInfoNotFound
	}
	return nil
}

// ListPublished returns published infos, newest first, optionally by category.
func (s *InfoService) ListPublished(ctx context.Context, category string) ([]models.Info, error) {
	q := s.DB.WithContext(ctx).Where("status = ?", models.InfoStatusPublished)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var infos []models.Info
	err := q.Order("published_at DESC").Find(&infos).Error
	return infos, err
}

func (s *InfoService) ListAll(ctx context.Context) ([]models.Info, error) {
	var infos []models.Info
	err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&infos).Error
	return infos, err
}

// GetBySlug only returns published infos.
func (s *InfoService) GetBySlug(ctx context.Context, slugValue string) (*models.Info, error) {
	var info models.Info
	err := s.DB.WithContext(ctx).
		Where("slug = ? AND status = ?", slugValue, models.InfoStatusPublished).
		First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInfoNotFound
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// PublishDue promotes scheduled infos whose PublishAt has passed.
func (s *InfoService) PublishDue(ctx context.Context) (int, error) {
	var infos []models.Info
	now := s.Now()
	err := s.DB.WithContext(ctx).
		Where("status = ? AND publish_at <= ?", models.InfoStatusScheduled, now).
		Find(&infos).Error
	if err != nil {
		return 0, err
	}

	published := 0
	for _, info := range infos {
		publishedAt := now
		if info.PublishAt != nil {
			publishedAt = *info.PublishAt
		}
		err := s.DB.WithContext(ctx).Model(&info).Updates(map[string]interface{}{
			"status":       models.InfoStatusPublished,
			"publish_at":   nil,
			"published_at": publishedAt,
		}).Error
		if err != nil {
			s.log.Error("failed to publish info", "info_id", info.ID, "error", err)
			continue
		}
		published++
		s.log.Info("auto-published info", "slug", info.Slug)
	}
	return published, nil
}
