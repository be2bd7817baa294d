package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"festival-ticketing/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// Every connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&models.Unit{},
		&models.SubEvent{},
		&models.Registration{},
		&models.Ticket{},
		&models.UnitSetting{},
		&models.Info{},
		&models.User{},
	)
	require.NoError(t, err)
	return db
}

var testNow = time.Date(2026, 8, 17, 10, 0, 0, 0, time.UTC)

func createUnit(t *testing.T, db *gorm.DB, key string) models.Unit {
	unit := models.Unit{ID: uuid.NewString(), Key: key, Name: key, IsActive: true}
	require.NoError(t, db.Create(&unit).Error)
	return unit
}

func setLimit(t *testing.T, db *gorm.DB, unitKey, category string, limit int) {
	require.NoError(t, db.Create(&models.UnitSetting{
		ID:           uuid.NewString(),
		UnitKey:      unitKey,
		CategoryName: category,
		Limit:        limit,
	}).Error)
}

func createRegistration(t *testing.T, db *gorm.DB, unitKey string, data map[string]interface{}, subEvent string, status models.RegistrationStatus) models.Registration {
	reg := models.Registration{
		UnitKey:          unitKey,
		SubEventName:     subEvent,
		FullName:         "Peserta",
		Email:            "peserta@example.com",
		DetailedData:     data,
		RegistrationCode: "AAAA-BBBB-CCCC",
		Status:           status,
	}
	require.NoError(t, db.Create(&reg).Error)
	return reg
}

// fakeQueue records emails instead of sending them.
type fakeQueue struct {
	mu     sync.Mutex
	emails []Email
	full   bool
}

func (q *fakeQueue) Enqueue(e Email) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.emails = append(q.emails, e)
	return true
}

func (q *fakeQueue) recipients() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []string
	for _, e := range q.emails {
		out = append(out, e.Recipient)
	}
	return out
}

type fakeUploader struct {
	keys []string
	body []string
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	u.keys = append(u.keys, key)
	u.body = append(u.body, string(b))
	return "https://cdn.example.com/" + key, nil
}

var testLinks = TicketLinks{BaseURL: "https://festival.id", QRBaseURL: "https://api.qrserver.com/v1/create-qr-code/"}

func newTestCapacity(db *gorm.DB) *CapacityService {
	c := NewCapacityService(db)
	c.Now = func() time.Time { return testNow }
	return c
}

func newTestRegistrationService(db *gorm.DB, queue *fakeQueue) *RegistrationService {
	notifier := NewNotifier(queue, "admin@festival.id", "Festival Seni Pelajar", testLinks)
	return NewRegistrationService(db, newTestCapacity(db), notifier, &fakeUploader{})
}
