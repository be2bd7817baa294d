// middleware/admin_auth.go
package middleware

import (
	"errors"
	"slices"
	"strings"

	"festival-ticketing/logger"
	"festival-ticketing/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"gorm.io/gorm"
)

const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

// AdminAuth checks HTTP basic credentials against the users table and
// stores the caller's id and role in c.Locals. Mount both handlers in order:
//
//	app.Group("/admin", middleware.AdminAuth(db)...)
func AdminAuth(db *gorm.DB) []fiber.Handler {
	log := logger.WithComponent("admin_auth")

	check := basicauth.New(basicauth.Config{
		Realm: "Festival Admin",
		Authorizer: func(email, password string) bool {
			user, err := findUser(db, email)
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					log.Error("failed to load admin user", "email", email, "error", err)
				}
				return false
			}
			return user.CheckPassword(password)
		},
		Unauthorized: func(c *fiber.Ctx) error {
			log.Warn("rejected admin request", "path", c.Path(), "ip", c.IP())
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="Festival Admin"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Autentikasi diperlukan",
			})
		},
	})

	attach := func(c *fiber.Ctx) error {
		email, _ := c.Locals("username").(string)
		user, err := findUser(db, email)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Autentikasi diperlukan"})
		}
		c.Locals(LocalUserID, user.ID)
		c.Locals(LocalUserRole, user.Role)
		return c.Next()
	}

	return []fiber.Handler{check, attach}
}

// RequireRole allows the request only when the authenticated user has one of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalUserRole).(string)
		if !slices.Contains(roles, role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   "Akses ditolak",
			})
		}
		return c.Next()
	}
}

func findUser(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}
