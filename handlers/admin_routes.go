// handlers/admin_routes.go
package handlers

import (
	"errors"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"festival-ticketing/logger"
	"festival-ticketing/middleware"
	"festival-ticketing/models"
	"festival-ticketing/services"

	"github.com/gofiber/fiber/v2"
)

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func SetupAdminRoutes(
	app *fiber.App,
	auth []fiber.Handler,
	unitService *services.UnitService,
	registrationService *services.RegistrationService,
	ticketService *services.TicketService,
	infoService *services.InfoService,
	userService *services.UserService,
) {
	log := logger.WithComponent("http")

	admin := app.Group("/admin", auth...)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleScanner)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// 🎟️ Check-in (gate staff and admins)
	admin.Post("/tickets/:code/check-in", staff, func(c *fiber.Ctx) error {
		return ticketResponse(c, ticketService.CheckIn(c.UserContext(), c.Params("code")))
	})
	admin.Post("/tickets/:code/revert", staff, func(c *fiber.Ctx) error {
		return ticketResponse(c, ticketService.RevertCheckIn(c.UserContext(), c.Params("code")))
	})

	// 📋 Registrations
	admin.Get("/registrations", adminOnly, func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "50"))
		regs, total, err := registrationService.ListRegistrations(c.UserContext(), services.RegistrationFilter{
			UnitKey: c.Query("unit"),
			Status:  c.Query("status"),
			Code:    c.Query("code"),
			Search:  c.Query("q"),
			Page:    page,
			Size:    size,
		})
		if errors.Is(err, services.ErrInvalidStatus) {
			return badRequest(c, services.MsgInvalidStatus)
		}
		if err != nil {
			log.Error("failed to list registrations", "error", err)
			return serverError(c, "Gagal memuat pendaftaran")
		}
		return c.JSON(fiber.Map{"success": true, "registrations": regs, "total": total, "page": page})
	})

	admin.Get("/registrations/:id", adminOnly, func(c *fiber.Ctx) error {
		reg, err := registrationService.GetRegistration(c.UserContext(), c.Params("id"))
		if errors.Is(err, services.ErrRegistrationNotFound) {
			return notFound(c, services.MsgRegistrationNotFound)
		}
		if err != nil {
			log.Error("failed to load registration", "registration_id", c.Params("id"), "error", err)
			return serverError(c, "Gagal memuat pendaftaran")
		}
		return c.JSON(fiber.Map{"success": true, "registration": reg})
	})

	admin.Get("/registrations/:id/tickets", adminOnly, func(c *fiber.Ctx) error {
		tickets, err := ticketService.ListTickets(c.UserContext(), c.Params("id"))
		if err != nil {
			log.Error("failed to list tickets", "registration_id", c.Params("id"), "error", err)
			return serverError(c, "Gagal memuat tiket")
		}
		return c.JSON(fiber.Map{"success": true, "tickets": tickets})
	})

	admin.Patch("/registrations/:id/status", adminOnly, func(c *fiber.Ctx) error {
		var req statusRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Format data tidak valid")
		}
		if msg := validateStruct(req); msg != "" {
			return badRequest(c, msg)
		}
		res := registrationService.SetRegistrationStatus(c.UserContext(), c.Params("id"), req.Status)
		if !res.Success {
			return c.Status(statusFor(res.Kind)).JSON(res)
		}
		return c.JSON(res)
	})

	admin.Post("/registrations/:id/resend", adminOnly, func(c *fiber.Ctx) error {
		res := registrationService.ResendTickets(c.UserContext(), c.Params("id"))
		if !res.Success {
			return c.Status(statusFor(res.Kind)).JSON(res)
		}
		return c.JSON(res)
	})

	admin.Delete("/registrations/:id", adminOnly, func(c *fiber.Ctx) error {
		err := registrationService.DeleteRegistration(c.UserContext(), c.Params("id"))
		if errors.Is(err, services.ErrRegistrationNotFound) {
			return notFound(c, services.MsgRegistrationNotFound)
		}
		if err != nil {
			log.Error("failed to delete registration", "registration_id", c.Params("id"), "error", err)
			return serverError(c, "Gagal menghapus pendaftaran")
		}
		return c.JSON(fiber.Map{"success": true})
	})

	admin.Get("/stats", adminOnly, func(c *fiber.Ctx) error {
		stats, err := ticketService.Stats(c.UserContext())
		if err != nil {
			log.Error("failed to compute stats", "error", err)
			return serverError(c, "Gagal memuat statistik")
		}
		return c.JSON(fiber.Map{"success": true, "stats": stats})
	})

	// ⚙️ Units & capacity settings
	admin.Get("/units", adminOnly, func(c *fiber.Ctx) error {
		units, err := unitService.ListUnits(c.UserContext(), false)
		if err != nil {
			log.Error("failed to list units", "error", err)
			return serverError(c, "Gagal memuat unit")
		}
		return c.JSON(fiber.Map{"success": true, "units": units})
	})

	admin.Post("/units", adminOnly, func(c *fiber.Ctx) error {
		var in services.UnitInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "Format data tidak valid")
		}
		if msg := validateStruct(in); msg != "" {
			return badRequest(c, msg)
		}
		unit, err := unitService.CreateUnit(c.UserContext(), in)
		if err != nil {
			log.Error("failed to create unit", "unit", in.Key, "error", err)
			return serverError(c, "Gagal membuat unit")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "unit": unit})
	})

	admin.Put("/units/:key", adminOnly, func(c *fiber.Ctx) error {
		var in services.UnitInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "Format data tidak valid")
		}
		in.Key = c.Params("key")
		if msg := validateStruct(in); msg != "" {
			return badRequest(c, msg)
		}
		unit, err := unitService.UpdateUnit(c.UserContext(), c.Params("key"), in)
		if errors.Is(err, services.ErrUnitNotFound) {
			return notFound(c, "Unit tidak ditemukan")
		}
		if err != nil {
			log.Error("failed to update unit", "unit", c.Params("key"), "error", err)
			return serverError(c, "Gagal memperbarui unit")
		}
		return c.JSON(fiber.Map{"success": true, "unit": unit})
	})

	admin.Get("/unit-settings", adminOnly, func(c *fiber.Ctx) error {
		settings, err := unitService.ListUnitSettings(c.UserContext(), c.Query("unit"))
		if err != nil {
			log.Error("failed to list unit settings", "error", err)
			return serverError(c, "Gagal memuat pengaturan kuota")
		}
		return c.JSON(fiber.Map{"success": true, "settings": settings})
	})

	admin.Put("/unit-settings", adminOnly, func(c *fiber.Ctx) error {
		var in services.UnitSettingInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "Format data tidak valid")
		}
		if msg := validateStruct(in); msg != "" {
			return badRequest(c, msg)
		}
		setting, err := unitService.UpsertUnitSetting(c.UserContext(), in)
		if errors.Is(err, services.ErrUnitNotFound) {
			return notFound(c, "Unit tidak ditemukan")
		}
		if err != nil {
			log.Error("failed to save unit setting", "unit", in.UnitKey, "category", in.CategoryName, "error", err)
			return serverError(c, "Gagal menyimpan pengaturan kuota")
		}
		return c.JSON(fiber.Map{"success": true, "setting": setting})
	})

	admin.Delete("/unit-settings/:id", adminOnly, func(c *fiber.Ctx) error {
		err := unitService.DeleteUnitSetting(c.UserContext(), c.Params("id"))
		if errors.Is(err, services.ErrSettingNotFound) {
			return notFound(c, "Pengaturan kuota tidak ditemukan")
		}
		if err != nil {
			log.Error("failed to delete unit setting", "setting_id", c.Params("id"), "error", err)
			return serverError(c, "Gagal menghapus pengaturan kuota")
		}
		return c.JSON(fiber.Map{"success": true})
	})

	// 👤 Admin and scanner accounts
	admin.Get("/users", adminOnly, func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		users, err := userService.SearchUsers(c.UserContext(), c.Query("q"), limit)
		if err != nil {
			log.Error("failed to search users", "error", err)
			return serverError(c, "Gagal memuat pengguna")
		}
		return c.JSON(fiber.Map{"success": true, "users": users})
	})

	admin.Post("/users", adminOnly, func(c *fiber.Ctx) error {
		var in services.UserInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "Format data tidak valid")
		}
		if msg := validateStruct(in); msg != "" {
			return badRequest(c, msg)
		}
		user, err := userService.CreateUser(c.UserContext(), in)
		if errors.Is(err, services.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "error": "Email sudah terdaftar"})
		}
		if err != nil {
			log.Error("failed to create user", "email", in.Email, "error", err)
			return serverError(c, "Gagal membuat pengguna")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "user": user})
	})

	// 📰 Announcements
	admin.Get("/infos", adminOnly, func(c *fiber.Ctx) error {
		infos, err := infoService.ListAll(c.UserContext())
		if err != nil {
			log.Error("failed to list infos", "error", err)
			return serverError(c, "Gagal memuat info")
		}
		return c.JSON(fiber.Map{"success": true, "infos": infos})
	})

	admin.Post("/infos", adminOnly, func(c *fiber.Ctx) error {
		in, img, closeImg, msg := parseInfoRequest(c)
		if msg != "" {
			return badRequest(c, msg)
		}
		defer closeImg()
		info, err := infoService.CreateInfo(c.UserContext(), in, img)
		if err != nil {
			return infoError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "info": info})
	})

	admin.Put("/infos/:id", adminOnly, func(c *fiber.Ctx) error {
		in, img, closeImg, msg := parseInfoRequest(c)
		if msg != "" {
			return badRequest(c, msg)
		}
		defer closeImg()
		info, err := infoService.UpdateInfo(c.UserContext(), c.Params("id"), in, img)
		if err != nil {
			return infoError(c, err)
		}
		return c.JSON(fiber.Map{"success": true, "info": info})
	})

	admin.Delete("/infos/:id", adminOnly, func(c *fiber.Ctx) error {
		if err := infoService.DeleteInfo(c.UserContext(), c.Params("id")); err != nil {
			return infoError(c, err)
		}
		return c.JSON(fiber.Map{"success": true})
	})
}

func ticketResponse(c *fiber.Ctx, res services.TicketResult) error {
	if !res.Success {
		return c.Status(statusFor(res.Kind)).JSON(res)
	}
	return c.JSON(res)
}

func infoError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInfoNotFound):
		return notFound(c, "Info tidak ditemukan")
	case errors.Is(err, services.ErrPublishAtRequired):
		return badRequest(c, "publish_at wajib diisi untuk status scheduled")
	default:
		logger.WithComponent("http").Error("info request failed", "path", c.Path(), "error", err)
		return serverError(c, "Gagal menyimpan info")
	}
}

// parseInfoRequest accepts JSON or a multipart form with an optional "image"
// file. A non-empty message means the request is invalid.
func parseInfoRequest(c *fiber.Ctx) (services.InfoInput, *services.InfoImage, func(), string) {
	var in services.InfoInput
	noop := func() {}

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		if err := c.BodyParser(&in); err != nil {
			return in, nil, noop, "Format data tidak valid"
		}
		if msg := validateStruct(in); msg != "" {
			return in, nil, noop, msg
		}
		return in, nil, noop, ""
	}

	in.Title = c.FormValue("title")
	in.Category = c.FormValue("category")
	in.Body = c.FormValue("body")
	in.Status = c.FormValue("status")
	if ts := c.FormValue("publish_at"); ts != "" {
		publishAt, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return in, nil, noop, "publish_at tidak valid, gunakan RFC3339 (contoh 2026-12-31T23:00:00+07:00)"
		}
		in.PublishAt = &publishAt
	}
	if msg := validateStruct(in); msg != "" {
		return in, nil, noop, msg
	}

	fh, err := c.FormFile("image")
	if err != nil || fh.Size == 0 {
		return in, nil, noop, ""
	}
	return openInfoImage(in, fh)
}

func openInfoImage(in services.InfoInput, fh *multipart.FileHeader) (services.InfoInput, *services.InfoImage, func(), string) {
	f, err := fh.Open()
	if err != nil {
		return in, nil, func() {}, "Gambar tidak dapat dibaca"
	}
	img := &services.InfoImage{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}
	return in, img, func() { f.Close() }, ""
}
