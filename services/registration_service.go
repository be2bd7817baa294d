// services/registration_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"festival-ticketing/logger"
	"festival-ticketing/models"
	"festival-ticketing/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FailureKind tells the HTTP layer how to report an unsuccessful result.
type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureCapacity   FailureKind = "capacity"
	FailureNotFound   FailureKind = "not_found"
	FailureInternal   FailureKind = "internal"
)

type ItemStatus string

const (
	ItemCreated            ItemStatus = "created"
	ItemSkippedUnknownUnit ItemStatus = "skipped_unknown_unit"
)

// CheckoutItem is one line of a checkout as sent by the registration form.
type CheckoutItem struct {
	UnitKey      string                 `json:"unit" validate:"required"`
	SubEventName string                 `json:"sub_event_name"`
	Price        int64                  `json:"price" validate:"gte=0"`
	DetailedData map[string]interface{} `json:"detailed_data"`
}

type SubmitInput struct {
	Items         []CheckoutItem `json:"items" validate:"required,min=1,max=50,dive"`
	PaymentProof  string         `json:"payment_proof"`
	OverrideEmail string         `json:"email" validate:"omitempty,email"`
}

// ItemResult reports what happened to one checkout item, in input order.
type ItemResult struct {
	Status   ItemStatus `json:"status"`
	ID       string     `json:"id,omitempty"`
	Code     string     `json:"code,omitempty"`
	Unit     string     `json:"unit"`
	Category string     `json:"category"`
}

type SubmitResult struct {
	Success          bool         `json:"success"`
	RegistrationCode string       `json:"registration_code,omitempty"`
	Items            []ItemResult `json:"items,omitempty"`
	Error            string       `json:"error,omitempty"`
	Kind             FailureKind  `json:"-"`
}

type StatusResult struct {
	Success      bool                 `json:"success"`
	Registration *models.Registration `json:"registration,omitempty"`
	Tickets      []models.Ticket      `json:"tickets,omitempty"`
	// TicketsIssued is the number of tickets minted by this call.
	TicketsIssued int         `json:"tickets_issued"`
	Error         string      `json:"error,omitempty"`
	Kind          FailureKind `json:"-"`
}

type RegistrationFilter struct {
	UnitKey string
	Status  string
	Code    string
	Search  string
	Page    int
	Size    int
}

type RegistrationService struct {
	DB       *gorm.DB
	Capacity *CapacityService
	Notifier *Notifier
	Uploader utils.Uploader
	// Strict re-checks capacity under a row lock in the same transaction as
	// the inserts instead of relying on the pre-flight check alone.
	Strict bool
	log    *slog.Logger
}

func NewRegistrationService(db *gorm.DB, capacity *CapacityService, notifier *Notifier, uploader utils.Uploader) *RegistrationService {
	return &RegistrationService{
		DB:       db,
		Capacity: capacity,
		Notifier: notifier,
		Uploader: uploader,
		log:      logger.WithComponent("registration"),
	}
}

// preparedItem carries the values derived once per checkout item.
type preparedItem struct {
	item     CheckoutItem
	unitKey  string
	category string
	quantity int
}

type capacityKey struct {
	unit     string
	category string
}

func failure(kind FailureKind, msg string) SubmitResult {
	return SubmitResult{Success: false, Error: msg, Kind: kind}
}

// SubmitRegistration validates capacity for every item, stores one PENDING
// registration per resolvable item under a single registration code and
// queues the confirmation emails.
func (s *RegistrationService) SubmitRegistration(ctx context.Context, in SubmitInput) SubmitResult {
	prepared, res, ok := prepareItems(in)
	if !ok {
		return res
	}
	if res, ok := s.preflight(ctx, prepared); !ok {
		return res
	}

	code := utils.GenerateRegistrationCode()
	log := s.log.With("registration_code", code)

	units, err := s.knownUnits(ctx, prepared)
	if err != nil {
		log.Error("failed to resolve units", "error", err)
		return failure(FailureInternal, MsgSubmitFailed)
	}

	results := make([]ItemResult, len(prepared))
	var regs []*models.Registration
	var regIndex []int
	for i, p := range prepared {
		results[i] = ItemResult{Unit: p.unitKey, Category: p.category}
		if !units[p.unitKey] {
			results[i].Status = ItemSkippedUnknownUnit
			log.Warn("skipping item for unknown unit", "unit", p.unitKey, "category", p.category)
			continue
		}
		regs = append(regs, s.buildRegistration(p, code, in))
		regIndex = append(regIndex, i)
	}

	if len(regs) == 0 {
		res := failure(FailureValidation, MsgUnknownUnits)
		res.Items = results
		return res
	}

	if s.Strict {
		if res, ok := s.persistStrict(ctx, code, prepared, regIndex, regs); !ok {
			return res
		}
	} else if err := s.persistParallel(ctx, regs); err != nil {
		log.Error("failed to persist registrations", "error", err)
		if cerr := s.DB.WithContext(context.WithoutCancel(ctx)).
			Where("registration_code = ?", code).
			Delete(&models.Registration{}).Error; cerr != nil {
			log.Error("failed to clean up partial checkout", "error", cerr)
		}
		return failure(FailureInternal, MsgSubmitFailed)
	}

	created := make([]models.Registration, 0, len(regs))
	for n, reg := range regs {
		i := regIndex[n]
		results[i].Status = ItemCreated
		results[i].ID = reg.ID
		results[i].Code = reg.RegistrationCode
		created = append(created, *reg)
	}
	log.Info("registration submitted", "items", len(created), "skipped", len(prepared)-len(created))

	if s.Notifier != nil {
		s.Notifier.RegistrationSubmitted(code, created)
	}

	return SubmitResult{Success: true, RegistrationCode: code, Items: results}
}

func prepareItems(in SubmitInput) ([]preparedItem, SubmitResult, bool) {
	if len(in.Items) == 0 {
		return nil, failure(FailureValidation, MsgNoItems), false
	}
	prepared := make([]preparedItem, 0, len(in.Items))
	for _, it := range in.Items {
		unitKey := models.NormalizeUnitKey(it.UnitKey)
		if unitKey == "" {
			return nil, failure(FailureValidation, MsgUnknownUnits), false
		}
		category := models.EffectiveCategoryLabel(it.DetailedData, it.SubEventName)
		qty, ok := models.RequestedQuantity(it.DetailedData)
		if !ok {
			return nil, failure(FailureValidation, fmt.Sprintf(MsgQuantityTooLarge, category, models.MaxQuantity)), false
		}
		prepared = append(prepared, preparedItem{
			item:     it,
			unitKey:  unitKey,
			category: category,
			quantity: qty,
		})
	}
	return prepared, SubmitResult{}, true
}

// CheckSubmission runs the checks SubmitRegistration makes before writing
// anything: item validity, capacity and at least one known unit. Callers
// use it to avoid side effects such as uploads for a checkout that would
// be rejected.
func (s *RegistrationService) CheckSubmission(ctx context.Context, in SubmitInput) SubmitResult {
	prepared, res, ok := prepareItems(in)
	if !ok {
		return res
	}
	if res, ok := s.preflight(ctx, prepared); !ok {
		return res
	}
	units, err := s.knownUnits(ctx, prepared)
	if err != nil {
		s.log.Error("failed to resolve units", "error", err)
		return failure(FailureInternal, MsgSubmitFailed)
	}
	if len(units) == 0 {
		return failure(FailureValidation, MsgUnknownUnits)
	}
	return SubmitResult{Success: true}
}

// preflight checks every item against the Capacity Oracle. Quantities for the
// same (unit, category) within one checkout are added up before comparing.
func (s *RegistrationService) preflight(ctx context.Context, items []preparedItem) (SubmitResult, bool) {
	requested := map[capacityKey]int{}
	checked := map[capacityKey]CapacityResult{}

	for _, p := range items {
		key := capacityKey{p.unitKey, p.category}

		capRes, ok := checked[key]
		if !ok {
			capRes = s.Capacity.CheckCapacity(ctx, p.unitKey, p.category)
			checked[key] = capRes
		}
		// Each item is at most MaxQuantity, so the running sum cannot overflow.
		requested[key] += p.quantity
		if res, ok := capacityFailure(capRes, p.category, requested[key]); !ok {
			s.log.Info("checkout rejected by capacity check",
				"unit", p.unitKey, "category", p.category,
				"requested", requested[key], "remaining", capRes.Remaining)
			return res, false
		}
	}
	return SubmitResult{}, true
}

func capacityFailure(c CapacityResult, category string, requested int) (SubmitResult, bool) {
	switch {
	case c.Closed:
		return failure(FailureCapacity, fmt.Sprintf(MsgCapacityClosed, category)), false
	case c.Unlimited || c.Degraded:
		return SubmitResult{}, true
	case !c.Available || c.Remaining <= 0:
		return failure(FailureCapacity, fmt.Sprintf(MsgCapacityFull, category)), false
	case requested > c.Remaining:
		return failure(FailureCapacity, fmt.Sprintf(MsgCapacityPartial, category, c.Remaining)), false
	}
	return SubmitResult{}, true
}

func (s *RegistrationService) knownUnits(ctx context.Context, items []preparedItem) (map[string]bool, error) {
	keys := make([]string, 0, len(items))
	for _, p := range items {
		keys = append(keys, p.unitKey)
	}
	var found []string
	if err := s.DB.WithContext(ctx).Model(&models.Unit{}).
		Where("unit_key IN ?", keys).
		Pluck("unit_key", &found).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(found))
	for _, k := range found {
		out[k] = true
	}
	return out, nil
}

func (s *RegistrationService) buildRegistration(p preparedItem, code string, in SubmitInput) *models.Registration {
	data := p.item.DetailedData
	email := strings.TrimSpace(in.OverrideEmail)
	if email == "" {
		email = models.DetailString(data, models.FieldEmail)
	}
	return &models.Registration{
		UnitKey:          p.unitKey,
		SubEventName:     strings.TrimSpace(p.item.SubEventName),
		CategoryLabel:    p.category,
		Quantity:         p.quantity,
		FullName:         models.ApplicantName(data),
		Phone:            models.ApplicantPhone(data),
		Email:            email,
		DetailedData:     datatypes.JSONMap(data),
		TotalPrice:       p.item.Price,
		PaymentProof:     strings.TrimSpace(in.PaymentProof),
		RegistrationCode: code,
		Status:           models.StatusPending,
	}
}

// persistParallel writes the rows concurrently; each insert is independent.
func (s *RegistrationService) persistParallel(ctx context.Context, regs []*models.Registration) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, reg := range regs {
		g.Go(func() error {
			if err := s.DB.WithContext(gctx).Create(reg).Error; err != nil {
				return fmt.Errorf("create registration for unit %s: %w", reg.UnitKey, err)
			}
			return nil
		})
	}
	return g.Wait()
}

var (
	errCapacityExceeded = errors.New("capacity exceeded")
	errQuantityTooLarge = errors.New("quantity above maximum")
)

// persistStrict reserves capacity for each (unit, category) and inserts the
// rows in one transaction.
func (s *RegistrationService) persistStrict(ctx context.Context, code string, items []preparedItem, regIndex []int, regs []*models.Registration) (SubmitResult, bool) {
	requested := map[capacityKey]int{}
	var order []capacityKey
	for _, i := range regIndex {
		key := capacityKey{items[i].unitKey, items[i].category}
		if _, seen := requested[key]; !seen {
			order = append(order, key)
		}
		requested[key] += items[i].quantity
	}

	var rejected SubmitResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range order {
			r := s.Capacity.Reserve(tx, key.unit, key.category, requested[key])
			switch r.Status {
			case ReservationError:
				return r.Err
			case CapacityExceeded:
				rejected, _ = capacityFailure(r.Capacity, key.category, requested[key])
				if rejected.Error == "" {
					rejected = failure(FailureCapacity, fmt.Sprintf(MsgCapacityFull, key.category))
				}
				return errCapacityExceeded
			}
		}
		return tx.Create(regs).Error
	})

	switch {
	case errors.Is(err, errCapacityExceeded):
		s.log.Info("checkout rejected by reservation", "registration_code", code, "error", rejected.Error)
		return rejected, false
	case err != nil:
		s.log.Error("failed to persist registrations", "registration_code", code, "error", err)
		return failure(FailureInternal, MsgSubmitFailed), false
	}
	return SubmitResult{}, true
}

// UploadPaymentProof stores a payment proof and returns its public URL.
func (s *RegistrationService) UploadPaymentProof(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if s.Uploader == nil {
		return "", errors.New("no uploader configured")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	url, err := s.Uploader.Upload(ctx, utils.ObjectKey("payment-proofs", filename, ".jpg"), contentType, body)
	if err != nil {
		s.log.Error("payment proof upload failed", "filename", filename, "error", err)
		return "", err
	}
	return url, nil
}

func (s *RegistrationService) ListRegistrations(ctx context.Context, f RegistrationFilter) ([]models.Registration, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Size < 1 || f.Size > 200 {
		f.Size = 50
	}

	q := s.DB.WithContext(ctx).Model(&models.Registration{})
	if f.UnitKey != "" {
		q = q.Where("unit_key = ?", models.NormalizeUnitKey(f.UnitKey))
	}
	if f.Status != "" {
		status, ok := models.ParseRegistrationStatus(f.Status)
		if !ok {
			return nil, 0, ErrInvalidStatus
		}
		q = q.Where("status = ?", status)
	}
	if f.Code != "" {
		q = q.Where("registration_code = ?", utils.NormalizeCode(f.Code))
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(f.Search)) + "%"
		q = q.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var regs []models.Registration
	err := q.Order("created_at DESC").
		Offset((f.Page - 1) * f.Size).
		Limit(f.Size).
		Find(&regs).Error
	return regs, total, err
}

func (s *RegistrationService) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	err := s.DB.WithContext(ctx).Preload("Tickets").First(&reg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// GetRegistrationsByCode returns every item of one checkout with its tickets.
func (s *RegistrationService) GetRegistrationsByCode(ctx context.Context, code string) ([]models.Registration, error) {
	var regs []models.Registration
	err := s.DB.WithContext(ctx).
		Preload("Tickets").
		Where("registration_code = ?", utils.NormalizeCode(code)).
		Order("created_at").
		Find(&regs).Error
	if err != nil {
		return nil, err
	}
	if len(regs) == 0 {
		return nil, ErrRegistrationNotFound
	}
	return regs, nil
}

// SetRegistrationStatus moves a registration to status. Entering VERIFIED
// mints one ticket per unit of quantity unless tickets already exist; the
// tickets and the status change commit together.
func (s *RegistrationService) SetRegistrationStatus(ctx context.Context, id, rawStatus string) StatusResult {
	status, ok := models.ParseRegistrationStatus(rawStatus)
	if !ok {
		return StatusResult{Error: MsgInvalidStatus, Kind: FailureValidation}
	}
	log := s.log.With("registration_id", id, "status", status)

	var reg models.Registration
	var tickets []models.Ticket
	issued := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&reg, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegistrationNotFound
			}
			return err
		}

		if status == models.StatusVerified {
			var existing int64
			if err := tx.Model(&models.Ticket{}).Where("registration_id = ?", reg.ID).Count(&existing).Error; err != nil {
				return err
			}
			if existing == 0 {
				n, err := issueTickets(tx, &reg)
				if err != nil {
					return err
				}
				issued = n
			}
		}

		if err := tx.Model(&reg).Update("status", status).Error; err != nil {
			return err
		}
		return tx.Where("registration_id = ?", reg.ID).Order("code").Find(&tickets).Error
	})

	if errors.Is(err, ErrRegistrationNotFound) {
		return StatusResult{Error: MsgRegistrationNotFound, Kind: FailureNotFound}
	}
	if errors.Is(err, errQuantityTooLarge) {
		log.Warn("refusing to issue tickets", "quantity", reg.Quantity)
		return StatusResult{Error: fmt.Sprintf(MsgTicketQuantityTooLarge, models.MaxQuantity), Kind: FailureValidation}
	}
	if err != nil {
		log.Error("failed to update registration status", "error", err)
		return StatusResult{Error: MsgStatusUpdateFailed, Kind: FailureInternal}
	}

	reg.Status = status
	log.Info("registration status updated", "registration_code", reg.RegistrationCode, "tickets_issued", issued)

	if status == models.StatusVerified && len(tickets) > 0 && s.Notifier != nil {
		s.Notifier.TicketsIssued(reg, tickets)
	}

	return StatusResult{Success: true, Registration: &reg, Tickets: tickets, TicketsIssued: issued}
}

// issueTickets inserts reg.Quantity tickets with fresh codes. Codes that
// happen to exist already are regenerated.
func issueTickets(tx *gorm.DB, reg *models.Registration) (int, error) {
	qty := reg.Quantity
	if qty < 1 {
		qty = models.ParseQuantity(reg.DetailedData)
	}
	if qty > models.MaxQuantity {
		return 0, errQuantityTooLarge
	}

	codes := utils.GenerateTicketCodes(qty)
	for attempt := 0; ; attempt++ {
		var taken []string
		if err := tx.Model(&models.Ticket{}).Where("code IN ?", codes).Pluck("code", &taken).Error; err != nil {
			return 0, err
		}
		if len(taken) == 0 {
			break
		}
		if attempt == 3 {
			return 0, fmt.Errorf("could not generate unique ticket codes for registration %s", reg.ID)
		}
		codes = replaceTaken(codes, taken)
	}

	tickets := make([]models.Ticket, 0, qty)
	for _, code := range codes {
		tickets = append(tickets, models.Ticket{RegistrationID: reg.ID, Code: code})
	}
	if err := tx.Create(&tickets).Error; err != nil {
		return 0, err
	}
	return len(tickets), nil
}

func replaceTaken(codes, taken []string) []string {
	bad := make(map[string]bool, len(taken))
	for _, c := range taken {
		bad[c] = true
	}
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if !bad[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	for len(out) < len(codes) {
		c := utils.GenerateTicketCode()
		if !seen[c] && !bad[c] {
			out = append(out, c)
			seen[c] = true
		}
	}
	return out
}

// ResendTickets queues the ticket email again for a verified registration.
func (s *RegistrationService) ResendTickets(ctx context.Context, id string) StatusResult {
	reg, err := s.GetRegistration(ctx, id)
	if errors.Is(err, ErrRegistrationNotFound) {
		return StatusResult{Error: MsgRegistrationNotFound, Kind: FailureNotFound}
	}
	if err != nil {
		s.log.Error("failed to load registration for resend", "registration_id", id, "error", err)
		return StatusResult{Error: MsgStatusUpdateFailed, Kind: FailureInternal}
	}
	if reg.Status != models.StatusVerified || len(reg.Tickets) == 0 {
		return StatusResult{Error: MsgResendNotVerified, Kind: FailureValidation}
	}
	if s.Notifier != nil {
		s.Notifier.TicketsIssued(*reg, reg.Tickets)
	}
	return StatusResult{Success: true, Registration: reg, Tickets: reg.Tickets}
}

// DeleteRegistration removes a registration together with its tickets.
func (s *RegistrationService) DeleteRegistration(ctx context.Context, id string) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("registration_id = ?", id).Delete(&models.Ticket{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Registration{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRegistrationNotFound
		}
		s.log.Info("registration deleted", "registration_id", id)
		return nil
	})
}
