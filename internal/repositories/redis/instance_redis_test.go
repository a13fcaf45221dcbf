package redis

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/biosecurity-service/internal/models"
	"github.com/SAP-F-2025/biosecurity-service/internal/repositories"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) repositories.InstanceRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewInstanceRedis(client, "test")
}

func instanceAt(id string, updated time.Time) *models.AssessmentInstance {
	return &models.AssessmentInstance{
		ID:       id,
		SurveyID: "dairy",
		Answers:  models.Answers{"log": models.TextAnswer("yes")},
		Metadata: models.InstanceMetadata{
			State:     models.StateInProgress,
			CreatedAt: updated,
			UpdatedAt: updated,
		},
	}
}

func TestInstanceRedis_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, "dairy", instanceAt("0106250001", base)))

	got, err := repo.GetByID(ctx, "dairy", "0106250001")
	require.NoError(t, err)
	assert.Equal(t, "dairy", got.SurveyID)
	assert.True(t, got.Answers["log"].Equal(models.TextAnswer("yes")))

	// Replace fully.
	updated := instanceAt("0106250001", base.Add(time.Minute))
	updated.Answers = models.Answers{}
	require.NoError(t, repo.Upsert(ctx, "dairy", updated))
	got, err = repo.GetByID(ctx, "dairy", "0106250001")
	require.NoError(t, err)
	assert.Empty(t, got.Answers)

	_, err = repo.GetByID(ctx, "dairy", "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	_, err = repo.GetByID(ctx, "pig", "0106250001")
	assert.ErrorIs(t, err, repositories.ErrNotFound, "namespaces are isolated")
}

func TestInstanceRedis_LatestAndList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

	_, err := repo.GetLatest(ctx, "dairy")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, repo.Upsert(ctx, "dairy", instanceAt("a", base.Add(2*time.Hour))))
	require.NoError(t, repo.Upsert(ctx, "dairy", instanceAt("b", base)))
	require.NoError(t, repo.Upsert(ctx, "dairy", instanceAt("c", base.Add(time.Hour))))

	latest, err := repo.GetLatest(ctx, "dairy")
	require.NoError(t, err)
	assert.Equal(t, "a", latest.ID)

	all, err := repo.List(ctx, "dairy", repositories.InstanceFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{all[0].ID, all[1].ID, all[2].ID})

	after := base.Add(30 * time.Minute)
	recent, err := repo.List(ctx, "dairy", repositories.InstanceFilters{UpdatedAfter: &after})
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	page, err := repo.List(ctx, "dairy", repositories.InstanceFilters{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0].ID)

	ids, err := repo.ListIDs(ctx, "dairy")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)

	empty, err := repo.List(ctx, "pig", repositories.InstanceFilters{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInstanceRedis_DeleteAndActive(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	now := time.Now().UTC()

	require.NoError(t, repo.Upsert(ctx, "dairy", instanceAt("a", now)))

	_, err := repo.GetActive(ctx, "dairy")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	require.NoError(t, repo.SetActive(ctx, "dairy", "a"))
	active, err := repo.GetActive(ctx, "dairy")
	require.NoError(t, err)
	assert.Equal(t, "a", active)

	require.NoError(t, repo.Delete(ctx, "dairy", "a"))
	assert.ErrorIs(t, repo.Delete(ctx, "dairy", "a"), repositories.ErrNotFound)

	ids, err := repo.ListIDs(ctx, "dairy")
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, repo.ClearActive(ctx, "dairy"))
	_, err = repo.GetActive(ctx, "dairy")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}
