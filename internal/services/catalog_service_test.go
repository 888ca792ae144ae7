package services

import (
	"context"
	"testing"

	"stillpoint_backend/internal/models"
	"stillpoint_backend/internal/services/dto"
	"stillpoint_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestCatalogCreate_DefaultsCurrencyToAED(t *testing.T) {
	svc := NewCatalogService(newFakeSessionRepo())

	created, err := svc.Create(context.Background(), &dto.CreateSessionRequest{
		Title: "Morning Breath",
		Price: 49,
	})
	require.NoError(t, err)
	assert.Equal(t, "AED", created.Currency)
}

func TestCatalogGetPublished_HidesDraftsAndMedia(t *testing.T) {
	repo := newFakeSessionRepo(
		&models.Session{
			BaseModel: models.BaseModel{ID: "sess-live"},
			Title:     "Deep Rest",
			Published: true,
			Price:     99,
			Currency:  "AED",
			MediaURLs: mediaJSON(t),
		},
		&models.Session{
			BaseModel: models.BaseModel{ID: "sess-draft"},
			Title:     "Unfinished",
			Published: false,
		},
	)
	svc := NewCatalogService(repo)

	got, err := svc.GetPublished(context.Background(), "sess-live")
	require.NoError(t, err)
	assert.Equal(t, "Deep Rest", got.Title)

	_, err = svc.GetPublished(context.Background(), "sess-draft")
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))

	// The admin view still sees the draft and the media map.
	admin, err := svc.GetForAdmin(context.Background(), "sess-draft")
	require.NoError(t, err)
	assert.Equal(t, "Unfinished", admin.Title)

	adminLive, err := svc.GetForAdmin(context.Background(), "sess-live")
	require.NoError(t, err)
	assert.Equal(t, "media/calm-en.mp3", adminLive.MediaURLs["en"])
}

func TestCatalogHierarchy(t *testing.T) {
	parentID := "sess-collection"
	childID := "sess-day-1"
	otherChildID := "sess-day-2"
	repo := newFakeSessionRepo(
		&models.Session{BaseModel: models.BaseModel{ID: parentID}, Title: "Course", Published: true},
		&models.Session{BaseModel: models.BaseModel{ID: childID}, Title: "Day 1", ParentID: &parentID},
		&models.Session{BaseModel: models.BaseModel{ID: otherChildID}, Title: "Day 2", ParentID: &parentID},
	)
	svc := NewCatalogService(repo)

	t.Run("child cannot become a parent's parent", func(t *testing.T) {
		// Nesting under a session that itself has a parent is refused.
		_, err := svc.Create(context.Background(), &dto.CreateSessionRequest{
			Title:    "Nested",
			ParentID: &childID,
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidHierarchy))
	})

	t.Run("session with children cannot get a parent", func(t *testing.T) {
		other := "sess-other-collection"
		require.NoError(t, repo.Create(&models.Session{
			BaseModel: models.BaseModel{ID: other},
			Title:     "Other Course",
		}))

		_, err := svc.Update(context.Background(), parentID, &dto.UpdateSessionRequest{
			ParentID: strptr(other),
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidHierarchy))
	})

	t.Run("self-parenting refused", func(t *testing.T) {
		_, err := svc.Update(context.Background(), childID, &dto.UpdateSessionRequest{
			ParentID: &childID,
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidHierarchy))
	})

	t.Run("missing parent refused", func(t *testing.T) {
		_, err := svc.Create(context.Background(), &dto.CreateSessionRequest{
			Title:    "Orphan",
			ParentID: strptr("00000000-0000-0000-0000-000000000000"),
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidHierarchy))
	})
}

func TestCatalogList_CachesUntilWrite(t *testing.T) {
	repo := newFakeSessionRepo(&models.Session{
		BaseModel: models.BaseModel{ID: "sess-1"},
		Title:     "Deep Rest",
		Published: true,
	})
	svc := NewCatalogService(repo)

	first, err := svc.ListPublished(context.Background(), &dto.SessionListQuery{})
	require.NoError(t, err)
	require.Len(t, first.Sessions, 1)

	// A write that bypasses the service is invisible while the cache holds.
	require.NoError(t, repo.Create(&models.Session{
		BaseModel: models.BaseModel{ID: "sess-2"},
		Title:     "Evening Wind-Down",
		Published: true,
	}))

	cached, err := svc.ListPublished(context.Background(), &dto.SessionListQuery{})
	require.NoError(t, err)
	assert.Len(t, cached.Sessions, 1)

	// Any admin write purges the cache.
	_, err = svc.Create(context.Background(), &dto.CreateSessionRequest{
		Title:     "Body Scan",
		Published: true,
	})
	require.NoError(t, err)

	fresh, err := svc.ListPublished(context.Background(), &dto.SessionListQuery{})
	require.NoError(t, err)
	assert.Len(t, fresh.Sessions, 3)
}

func TestCatalogDelete(t *testing.T) {
	parentID := "sess-collection"
	repo := newFakeSessionRepo(
		&models.Session{BaseModel: models.BaseModel{ID: parentID}, Title: "Course"},
		&models.Session{BaseModel: models.BaseModel{ID: "sess-day-1"}, Title: "Day 1", ParentID: &parentID},
	)
	svc := NewCatalogService(repo)

	require.NoError(t, svc.Delete(context.Background(), parentID))

	// The orphaned child is promoted to a top-level item.
	child, err := repo.FindByID("sess-day-1")
	require.NoError(t, err)
	assert.Nil(t, child.ParentID)

	assert.True(t, apperrors.Is(
		svc.Delete(context.Background(), parentID),
		apperrors.ErrSessionNotFound,
	))
}
