//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/docqa/internal/domain"
	"github.com/campushq/docqa/internal/pagination"
	"github.com/campushq/docqa/internal/testutil"
)

func documentFixture() *domain.Document {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Document{
		ID:         uuid.NewString(),
		Name:       "syllabus.pdf",
		StorageKey: "uploads/syllabus.pdf",
		URL:        "https://files.example.edu/syllabus.pdf",
		Uploader:   "prof.smith",
		Status:     domain.DocumentStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := documentFixture()
	require.NoError(t, repo.Create(ctx, doc))

	retrieved, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, retrieved.ID)
	assert.Equal(t, "syllabus.pdf", retrieved.Name)
	assert.Equal(t, "uploads/syllabus.pdf", retrieved.StorageKey)
	assert.Equal(t, "https://files.example.edu/syllabus.pdf", retrieved.URL)
	assert.Equal(t, "prof.smith", retrieved.Uploader)
	assert.Equal(t, domain.DocumentStatusPending, retrieved.Status)
	assert.Equal(t, 0, retrieved.ChunkCount)
}

func TestDocumentRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	doc := documentFixture()
	require.NoError(t, repo.Create(ctx, doc))

	require.NoError(t, repo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusIndexed, 12))

	retrieved, err := repo.GetByID(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentStatusIndexed, retrieved.Status)
	assert.Equal(t, 12, retrieved.ChunkCount)
	assert.True(t, retrieved.UpdatedAt.After(doc.UpdatedAt) || retrieved.UpdatedAt.Equal(doc.UpdatedAt))

	err = repo.UpdateStatus(ctx, uuid.NewString(), domain.DocumentStatusFailed, 0)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestDocumentRepository_ListIndexed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	indexed := documentFixture()
	require.NoError(t, repo.Create(ctx, indexed))
	require.NoError(t, repo.UpdateStatus(ctx, indexed.ID, domain.DocumentStatusIndexed, 3))

	pending := documentFixture()
	pending.ID = uuid.NewString()
	require.NoError(t, repo.Create(ctx, pending))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyIndexed, err := repo.ListIndexed(ctx)
	require.NoError(t, err)
	require.Len(t, onlyIndexed, 1)
	assert.Equal(t, indexed.ID, onlyIndexed[0].ID)
}

func TestDocumentRepository_ListWithCursor(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewDocumentRepository(pool)

	base := time.Now().UTC().Truncate(time.Microsecond)
	var ids []string
	for i := 0; i < 5; i++ {
		doc := documentFixture()
		doc.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		doc.UpdatedAt = doc.CreatedAt
		require.NoError(t, repo.Create(ctx, doc))
		ids = append(ids, doc.ID)
	}

	// First page, newest first.
	page, err := repo.ListWithCursor(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)
	assert.Equal(t, ids[4], page.Items[0].ID)
	assert.Equal(t, ids[3], page.Items[1].ID)

	cursor, err := pagination.DecodeCursor(page.NextCursor)
	require.NoError(t, err)

	second, err := repo.ListWithCursor(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.True(t, second.HasMore)
	assert.Equal(t, ids[2], second.Items[0].ID)
	assert.Equal(t, ids[1], second.Items[1].ID)

	cursor, err = pagination.DecodeCursor(second.NextCursor)
	require.NoError(t, err)

	last, err := repo.ListWithCursor(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	assert.False(t, last.HasMore)
	assert.Equal(t, ids[0], last.Items[0].ID)
}
