package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"festival-ticketing/logger"
	"festival-ticketing/models"
	"festival-ticketing/utils"

	"gorm.io/gorm"
)

// TicketLinks builds the URLs printed on a ticket.
type TicketLinks struct {
	BaseURL   string // public site root
	QRBaseURL string // QR image endpoint, e.g. https://api.qrserver.com/v1/create-qr-code/
}

// CheckInURL is the page gate staff open after scanning the QR code.
func (l TicketLinks) CheckInURL(code string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/check-in/" + url.PathEscape(code)
}

func (l TicketLinks) QRImageURL(code string) string {
	return l.QRBaseURL + "?size=250x250&data=" + url.QueryEscape(l.CheckInURL(code))
}

type TicketResult struct {
	Success bool           `json:"success"`
	Ticket  *models.Ticket `json:"ticket,omitempty"`
	// WasUsed is the flag before this call; check-in does not reject repeats.
	WasUsed bool        `json:"was_used"`
	Error   string      `json:"error,omitempty"`
	Kind    FailureKind `json:"-"`
}

// TicketView is what the check-in page shows for a scanned code.
type TicketView struct {
	Ticket     models.Ticket `json:"ticket"`
	CheckInURL string        `json:"check_in_url"`
	QRImageURL string        `json:"qr_image_url"`
}

type Stats struct {
	Registrations map[string]int64 `json:"registrations"`
	TicketsIssued int64            `json:"tickets_issued"`
	TicketsUsed   int64            `json:"tickets_used"`
}

type TicketService struct {
	DB    *gorm.DB
	Links TicketLinks
	Now   func() time.Time
	log   *slog.Logger
}

func NewTicketService(db *gorm.DB, links TicketLinks) *TicketService {
	return &TicketService{DB: db, Links: links, Now: time.Now, log: logger.WithComponent("ticket")}
}

// CheckIn marks a ticket used.
func (s *TicketService) CheckIn(ctx context.Context, code string) TicketResult {
	return s.setUsed(ctx, code, true)
}

// RevertCheckIn clears the used flag, e.g. after a mistaken scan.
func (s *TicketService) RevertCheckIn(ctx context.Context, code string) TicketResult {
	return s.setUsed(ctx, code, false)
}

func (s *TicketService) setUsed(ctx context.Context, code string, used bool) TicketResult {
	code = utils.NormalizeCode(code)
	log := s.log.With("ticket_code", code, "used", used)

	var ticket models.Ticket
	var wasUsed bool
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ticket, "code = ?", code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return err
		}
		wasUsed = ticket.IsUsed

		// A repeated check-in keeps the first admission time.
		var usedAt *time.Time
		switch {
		case used && wasUsed && ticket.UsedAt != nil:
			usedAt = ticket.UsedAt
		case used:
			now := s.Now()
			usedAt = &now
		}
		if err := tx.Model(&ticket).Updates(map[string]interface{}{
			"is_used": used,
			"used_at": usedAt,
		}).Error; err != nil {
			return err
		}
		ticket.IsUsed = used
		ticket.UsedAt = usedAt
		return nil
	})

	if errors.Is(err, ErrTicketNotFound) {
		return TicketResult{Error: MsgTicketNotFound, Kind: FailureNotFound}
	}
	if err != nil {
		log.Error("failed to update ticket", "error", err)
		return TicketResult{Error: MsgCheckInFailed, Kind: FailureInternal}
	}

	if used && wasUsed {
		log.Warn("ticket checked in again")
	} else {
		log.Info("ticket updated")
	}
	return TicketResult{Success: true, Ticket: &ticket, WasUsed: wasUsed}
}

// GetTicket loads a ticket and its registration for the check-in page.
func (s *TicketService) GetTicket(ctx context.Context, code string) (*TicketView, error) {
	code = utils.NormalizeCode(code)
	var ticket models.Ticket
	err := s.DB.WithContext(ctx).Preload("Registration").First(&ticket, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return &TicketView{
		Ticket:     ticket,
		CheckInURL: s.Links.CheckInURL(ticket.Code),
		QRImageURL: s.Links.QRImageURL(ticket.Code),
	}, nil
}

func (s *TicketService) ListTickets(ctx context.Context, registrationID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.DB.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("code").
		Find(&tickets).Error
	return tickets, err
}

func (s *TicketService) Stats(ctx context.Context) (*Stats, error) {
	db := s.DB.WithContext(ctx)
	out := &Stats{Registrations: map[string]int64{
		string(models.StatusPending):  0,
		string(models.StatusVerified): 0,
		string(models.StatusRejected): 0,
	}}

	var rows []struct {
		Status string
		Total  int64
	}
	if err := db.Model(&models.Registration{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out.Registrations[r.Status] = r.Total
	}

	if err := db.Model(&models.Ticket{}).Count(&out.TicketsIssued).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Ticket{}).Where("is_used = ?", true).Count(&out.TicketsUsed).Error; err != nil {
		return nil, err
	}
	return out, nil
}
