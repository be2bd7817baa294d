// handlers/public_routes.go
package handlers

import (
	"encoding/json"
	"errors"
	"strings"

	"festival-ticketing/logger"
	"festival-ticketing/models"
	"festival-ticketing/services"

	"github.com/gofiber/fiber/v2"
)

// registrationStatusView is what a submitter sees when looking up a checkout code.
type registrationStatusView struct {
	ID          string                    `json:"id"`
	Unit        string                    `json:"unit"`
	Category    string                    `json:"category"`
	Quantity    int                       `json:"quantity"`
	Status      models.RegistrationStatus `json:"status"`
	TotalPrice  int64                     `json:"total_price"`
	TicketCodes []string                  `json:"ticket_codes"`
}

func SetupPublicRoutes(
	app *fiber.App,
	unitService *services.UnitService,
	capacityService *services.CapacityService,
	registrationService *services.RegistrationService,
	ticketService *services.TicketService,
	infoService *services.InfoService,
) {
	log := logger.WithComponent("http")

	// 🔓 Units & capacity
	app.Get("/units", func(c *fiber.Ctx) error {
		units, err := unitService.ListUnits(c.UserContext(), true)
		if err != nil {
			log.Error("failed to list units", "error", err)
			return serverError(c, "Gagal memuat unit")
		}
		return c.JSON(fiber.Map{"success": true, "units": units})
	})

	app.Get("/units/:key", func(c *fiber.Ctx) error {
		unit, err := unitService.GetUnit(c.UserContext(), c.Params("key"))
		if errors.Is(err, services.ErrUnitNotFound) || (err == nil && !unit.IsActive) {
			return notFound(c, "Unit tidak ditemukan")
		}
		if err != nil {
			log.Error("failed to load unit", "unit", c.Params("key"), "error", err)
			return serverError(c, "Gagal memuat unit")
		}
		return c.JSON(fiber.Map{"success": true, "unit": unit})
	})

	app.Get("/units/:key/availability", func(c *fiber.Ctx) error {
		results, err := capacityService.ListAvailability(c.UserContext(), c.Params("key"))
		if err != nil {
			log.Error("failed to list availability", "unit", c.Params("key"), "error", err)
			return serverError(c, "Gagal memuat kuota")
		}
		return c.JSON(fiber.Map{"success": true, "availability": results})
	})

	app.Get("/capacity", func(c *fiber.Ctx) error {
		unit := strings.TrimSpace(c.Query("unit"))
		category := strings.TrimSpace(c.Query("category"))
		if unit == "" || category == "" {
			return badRequest(c, "unit dan category wajib diisi")
		}
		return c.JSON(capacityService.CheckCapacity(c.UserContext(), unit, category))
	})

	// 📝 Registration
	app.Post("/registrations", func(c *fiber.Ctx) error {
		var in services.SubmitInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "Format data tidak valid")
		}
		return submit(c, registrationService, in)
	})

	// Multipart variant: "payload" holds the JSON checkout, "payment_proof" the file.
	app.Post("/registrations/upload", func(c *fiber.Ctx) error {
		var in services.SubmitInput
		if err := json.Unmarshal([]byte(c.FormValue("payload")), &in); err != nil {
			return badRequest(c, "Format data tidak valid")
		}
		if msg := validateStruct(in); msg != "" {
			return badRequest(c, msg)
		}
		// Nothing is uploaded for a checkout that would be rejected.
		if res := registrationService.CheckSubmission(c.UserContext(), in); !res.Success {
			return c.Status(statusFor(res.Kind)).JSON(res)
		}

		proof, err := c.FormFile("payment_proof")
		if err != nil {
			return badRequest(c, "Bukti pembayaran wajib diunggah")
		}
		if proof.Size > maxProofSize {
			return badRequest(c, "Ukuran bukti pembayaran maksimal 10MB")
		}
		file, err := proof.Open()
		if err != nil {
			return badRequest(c, "Bukti pembayaran tidak dapat dibaca")
		}
		defer file.Close()

		url, err := registrationService.UploadPaymentProof(c.UserContext(), proof.Filename, proof.Header.Get("Content-Type"), file)
		if err != nil {
			return serverError(c, "Gagal mengunggah bukti pembayaran")
		}
		in.PaymentProof = url
		return submit(c, registrationService, in)
	})

	app.Get("/registrations/code/:code", func(c *fiber.Ctx) error {
		regs, err := registrationService.GetRegistrationsByCode(c.UserContext(), c.Params("code"))
		if errors.Is(err, services.ErrRegistrationNotFound) {
			return notFound(c, services.MsgRegistrationNotFound)
		}
		if err != nil {
			log.Error("failed to look up registration code", "registration_code", c.Params("code"), "error", err)
			return serverError(c, "Gagal memuat pendaftaran")
		}

		views := make([]registrationStatusView, 0, len(regs))
		for _, r := range regs {
			v := registrationStatusView{
				ID:          r.ID,
				Unit:        r.UnitKey,
				Category:    r.CategoryLabel,
				Quantity:    r.Quantity,
				Status:      r.Status,
				TotalPrice:  r.TotalPrice,
				TicketCodes: []string{},
			}
			for _, t := range r.Tickets {
				v.TicketCodes = append(v.TicketCodes, t.Code)
			}
			views = append(views, v)
		}
		return c.JSON(fiber.Map{
			"success":           true,
			"registration_code": regs[0].RegistrationCode,
			"items":             views,
		})
	})

	// 🎟️ Check-in page data
	app.Get("/tickets/:code", func(c *fiber.Ctx) error {
		view, err := ticketService.GetTicket(c.UserContext(), c.Params("code"))
		if errors.Is(err, services.ErrTicketNotFound) {
			return notFound(c, services.MsgTicketNotFound)
		}
		if err != nil {
			log.Error("failed to load ticket", "ticket_code", c.Params("code"), "error", err)
			return serverError(c, "Gagal memuat tiket")
		}
		return c.JSON(fiber.Map{"success": true, "ticket": view})
	})

	// 📰 Announcements
	app.Get("/infos", func(c *fiber.Ctx) error {
		infos, err := infoService.ListPublished(c.UserContext(), c.Query("category"))
		if err != nil {
			log.Error("failed to list infos", "error", err)
			return serverError(c, "Gagal memuat info")
		}
		return c.JSON(fiber.Map{"success": true, "infos": infos})
	})

	app.Get("/infos/:slug", func(c *fiber.Ctx) error {
		info, err := infoService.GetBySlug(c.UserContext(), c.Params("slug"))
		if errors.Is(err, services.ErrInfoNotFound) {
			return notFound(c, "Info tidak ditemukan")
		}
		if err != nil {
			log.Error("failed to load info", "slug", c.Params("slug"), "error", err)
			return serverError(c, "Gagal memuat info")
		}
		return c.JSON(fiber.Map{"success": true, "info": info})
	})
}

const maxProofSize = 10 * 1024 * 1024

func submit(c *fiber.Ctx, registrationService *services.RegistrationService, in services.SubmitInput) error {
	if msg := validateStruct(in); msg != "" {
		return badRequest(c, msg)
	}
	res := registrationService.SubmitRegistration(c.UserContext(), in)
	if !res.Success {
		return c.Status(statusFor(res.Kind)).JSON(res)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}
