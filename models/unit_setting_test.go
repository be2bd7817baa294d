package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnitSettingIsOpen(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	assert.True(t, UnitSetting{}.IsOpen(now))
	assert.True(t, UnitSetting{StartDate: &before, EndDate: &after}.IsOpen(now))
	assert.False(t, UnitSetting{StartDate: &after}.IsOpen(now))
	assert.False(t, UnitSetting{EndDate: &before}.IsOpen(now))
}

func TestUserPassword(t *testing.T) {
	u := &User{Email: "admin@festival.id"}
	assert.NoError(t, u.SetPassword("rahasia"))
	assert.True(t, u.CheckPassword("rahasia"))
	assert.False(t, u.CheckPassword("salah"))
}
