package services

import (
	"context"
	"testing"

	"festival-ticketing/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewUserService(db)

	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "Panitia@Festival.id", "rahasia123"))
	require.NoError(t, svc.EnsureBootstrapAdmin(ctx, "lain@festival.id", "rahasia123"))

	var admin models.User
	require.NoError(t, db.First(&admin).Error)
	assert.Equal(t, "panitia@festival.id", admin.Email)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.True(t, admin.CheckPassword("rahasia123"))

	scanner, err := svc.CreateUser(ctx, UserInput{Email: "gate1@festival.id", Password: "pintumasuk", Role: models.RoleScanner})
	require.NoError(t, err)
	assert.Equal(t, models.RoleScanner, scanner.Role)

	_, err = svc.CreateUser(ctx, UserInput{Email: "GATE1@festival.id", Password: "pintumasuk", Role: models.RoleScanner})
	assert.ErrorIs(t, err, ErrEmailTaken)

	found, err := svc.SearchUsers(ctx, "gate", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "gate1@festival.id", found[0].Email)

	all, err := svc.SearchUsers(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
