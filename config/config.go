package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	MailDriverRelay = "relay"
	MailDriverSMTP  = "smtp"
	MailDriverLog   = "log"
)

type Config struct {
	DatabaseURL    string
	HTTPAddr       string
	AllowedOrigins []string

	BaseURL   string // public site root, used for check-in links
	QRBaseURL string

	AdminNotificationEmail string
	MailDriver             string
	EmailRelayURL          string
	EmailDisplayName       string
	MailQueueSize          int

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	CloudflareAccountID string
	R2AccessKeyID       string
	R2AccessKeySecret   string
	R2BucketName        string
	CDNBaseURL          string
	UploadDir           string

	LogLevel  string
	LogFormat string

	StrictCapacity bool

	BootstrapAdminEmail    string
	BootstrapAdminPassword string

	// Warnings collects values that were ignored in favour of defaults.
	// They are logged once the logger is up.
	Warnings []string
}

// R2Enabled reports whether enough credentials are present to talk to R2.
func (c Config) R2Enabled() bool {
	return c.CloudflareAccountID != "" && c.R2AccessKeyID != "" && c.R2AccessKeySecret != "" && c.R2BucketName != ""
}

func FromEnv() (Config, error) {
	var c Config
	c.DatabaseURL = env("DATABASE_URL", "")
	c.HTTPAddr = env("HTTP_ADDR", ":5200")
	c.AllowedOrigins = splitList(env("ALLOWED_ORIGINS", "http://localhost:3000"))

	c.BaseURL = strings.TrimRight(env("BASE_URL", "http://localhost:3000"), "/")
	c.QRBaseURL = env("QR_BASE_URL", "https://api.qrserver.com/v1/create-qr-code/")

	c.AdminNotificationEmail = env("ADMIN_NOTIFICATION_EMAIL", "")
	c.EmailRelayURL = env("EMAIL_RELAY_URL", "")
	c.EmailDisplayName = env("EMAIL_DISPLAY_NAME", "Festival Seni Pelajar")
	c.MailQueueSize = c.intEnv("MAIL_QUEUE_SIZE", 100)

	c.SMTPHost = env("SMTP_HOST", "")
	c.SMTPPort = c.intEnv("SMTP_PORT", 587)
	c.SMTPUsername = env("SMTP_USERNAME", "")
	c.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	c.SMTPFrom = env("SMTP_FROM", c.SMTPUsername)

	c.MailDriver = strings.ToLower(env("MAIL_DRIVER", ""))
	switch c.MailDriver {
	case MailDriverRelay, MailDriverSMTP, MailDriverLog:
	case "":
		c.MailDriver = defaultMailDriver(c)
	default:
		c.Warnings = append(c.Warnings, fmt.Sprintf("MAIL_DRIVER %q is not supported, using %q", c.MailDriver, MailDriverLog))
		c.MailDriver = MailDriverLog
	}

	c.CloudflareAccountID = env("CLOUDFLARE_ACCOUNT_ID", "")
	c.R2AccessKeyID = env("R2_ACCESS_KEY_ID", "")
	c.R2AccessKeySecret = env("R2_ACCESS_KEY_SECRET", "")
	c.R2BucketName = env("R2_BUCKET_NAME", "")
	c.CDNBaseURL = strings.TrimRight(env("CDN_BASE_URL", ""), "/")
	c.UploadDir = env("UPLOAD_DIR", "uploads")

	c.LogLevel = env("LOG_LEVEL", "info")
	c.LogFormat = env("LOG_FORMAT", "text")

	c.StrictCapacity = c.boolEnv("STRICT_CAPACITY", false)

	c.BootstrapAdminEmail = env("BOOTSTRAP_ADMIN_EMAIL", "")
	c.BootstrapAdminPassword = os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")

	if c.DatabaseURL == "" {
		return c, fmt.Errorf("DATABASE_URL is empty")
	}
	return c, nil
}

func defaultMailDriver(c Config) string {
	switch {
	case c.EmailRelayURL != "":
		return MailDriverRelay
	case c.SMTPHost != "":
		return MailDriverSMTP
	default:
		return MailDriverLog
	}
}

func env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func (c *Config) intEnv(key string, def int) int {
	raw := env(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a valid number, using %d", key, raw, def))
		return def
	}
	return v
}

func (c *Config) boolEnv(key string, def bool) bool {
	raw := env(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		c.Warnings = append(c.Warnings, fmt.Sprintf("%s=%q is not a valid boolean, using %t", key, raw, def))
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
