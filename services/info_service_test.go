package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"festival-ticketing/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestInfoService(db *gorm.DB) (*InfoService, *fakeUploader) {
	up := &fakeUploader{}
	s := NewInfoService(db, up)
	s.Now = func() time.Time { return testNow }
	return s, up
}

func TestCreateInfo(t *testing.T) {
	ctx := context.Background()

	t.Run("renders and sanitizes the body", func(t *testing.T) {
		db := setupTestDB(t)
		svc, _ := newTestInfoService(db)

		info, err := svc.CreateInfo(ctx, InfoInput{
			Title:  "Jadwal Technical Meeting",
			Body:   "**Penting**\n\n<script>alert(1)</script>",
			Status: "published",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "jadwal-technical-meeting", info.Slug)
		assert.Contains(t, info.BodyHTML, "<strong>Penting</strong>")
		assert.NotContains(t, info.BodyHTML, "<script")
		assert.Equal(t, models.InfoStatusPublished, info.Status)
		require.NotNil(t, info.PublishedAt)
		assert.True(t, info.PublishedAt.Equal(testNow))
	})

	t.Run("duplicate titles get numbered slugs", func(t *testing.T) {
		db := setupTestDB(t)
		svc, _ := newTestInfoService(db)

		var slugs []string
		for i := 0; i < 3; i++ {
			info, err := svc.CreateInfo(ctx, InfoInput{Title: "Pengumuman Juara"}, nil)
			require.NoError(t, err)
			slugs = append(slugs, info.Slug)
		}
		assert.Equal(t, []string{"pengumuman-juara", "pengumuman-juara-2", "pengumuman-juara-3"}, slugs)
	})

	t.Run("defaults to draft", func(t *testing.T) {
		db := setupTestDB(t)
		svc, _ := newTestInfoService(db)

		info, err := svc.CreateInfo(ctx, InfoInput{Title: "Draf"}, nil)
		require.NoError(t, err)
		assert.Equal(t, models.InfoStatusDraft, info.Status)
		assert.Nil(t, info.PublishedAt)
	})

	t.Run("scheduled needs publish_at", func(t *testing.T) {
		db := setupTestDB(t)
		svc, _ := newTestInfoService(db)

		_, err := svc.CreateInfo(ctx, InfoInput{Title: "Nanti", Status: "scheduled"}, nil)
		assert.ErrorIs(t, err, ErrPublishAtRequired)
	})

	t.Run("uploads the image", func(t *testing.T) {
		db := setupTestDB(t)
		svc, up := newTestInfoService(db)

		info, err := svc.CreateInfo(ctx, InfoInput{Title: "Poster"}, &InfoImage{
			Filename: "poster.webp", ContentType: "image/webp", Body: strings.NewReader("img"),
		})
		require.NoError(t, err)
		require.Len(t, up.keys, 1)
		assert.True(t, strings.HasPrefix(up.keys[0], "infos/"))
		assert.Equal(t, "https://cdn.example.com/"+up.keys[0], info.ImageURL)
	})
}

func TestUpdateAndDeleteInfo(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newTestInfoService(db)

	info, err := svc.CreateInfo(ctx, InfoInput{Title: "Lama", Body: "a"}, nil)
	require.NoError(t, err)

	updated, err := svc.UpdateInfo(ctx, info.ID, InfoInput{Title: "Baru", Body: "_b_", Status: "published"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "baru", updated.Slug)
	assert.Contains(t, updated.BodyHTML, "<em>b</em>")
	assert.Equal(t, models.InfoStatusPublished, updated.Status)

	_, err = svc.UpdateInfo(ctx, "missing", InfoInput{Title: "x"}, nil)
	assert.ErrorIs(t, err, ErrInfoNotFound)

	require.NoError(t, svc.DeleteInfo(ctx, info.ID))
	assert.ErrorIs(t, svc.DeleteInfo(ctx, info.ID), ErrInfoNotFound)

	// Deleted slugs stay reserved.
	again, err := svc.CreateInfo(ctx, InfoInput{Title: "Baru"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "baru-2", again.Slug)
}

func TestPublishedVisibility(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, _ := newTestInfoService(db)

	due := testNow.Add(-time.Minute)
	later := testNow.Add(time.Hour)
	_, err := svc.CreateInfo(ctx, InfoInput{Title: "Terbit", Category: "lomba", Status: "published"}, nil)
	require.NoError(t, err)
	_, err = svc.CreateInfo(ctx, InfoInput{Title: "Sudah Waktunya", Category: "umum", Status: "scheduled", PublishAt: &due}, nil)
	require.NoError(t, err)
	_, err = svc.CreateInfo(ctx, InfoInput{Title: "Belum Waktunya", Status: "scheduled", PublishAt: &later}, nil)
	require.NoError(t, err)
	_, err = svc.CreateInfo(ctx, InfoInput{Title: "Draf"}, nil)
	require.NoError(t, err)

	_, err = svc.GetBySlug(ctx, "sudah-waktunya")
	assert.ErrorIs(t, err, ErrInfoNotFound)

	n, err := svc.PublishDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	published, err := svc.ListPublished(ctx, "")
	require.NoError(t, err)
	assert.Len(t, published, 2)

	lomba, err := svc.ListPublished(ctx, "lomba")
	require.NoError(t, err)
	require.Len(t, lomba, 1)
	assert.Equal(t, "terbit", lomba[0].Slug)

	info, err := svc.GetBySlug(ctx, "sudah-waktunya")
	require.NoError(t, err)
	require.NotNil(t, info.PublishedAt)
	assert.True(t, info.PublishedAt.Equal(due))
	assert.Nil(t, info.PublishAt)

	_, err = svc.GetBySlug(ctx, "draf")
	assert.ErrorIs(t, err, ErrInfoNotFound)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}
