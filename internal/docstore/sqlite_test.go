package docstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "guardian.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestDoc(tenantID string) *Document {
	return &Document{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		FileRef:   "uploads/bylaws.pdf",
		FileName:  "bylaws.pdf",
		Status:    StatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, doc))

	got, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "tenant-a", got.TenantID)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Empty(t, got.ErrorMessage)
	assert.Zero(t, got.ChunkCount)
	assert.Nil(t, got.ProcessedAt)
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkReady(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, doc))
	require.NoError(t, store.MarkReady(ctx, doc.ID, 12))

	got, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, got.Status)
	assert.Equal(t, 12, got.ChunkCount)
	require.NotNil(t, got.ProcessedAt)
}

func TestMarkFailed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, doc))
	require.NoError(t, store.MarkFailed(ctx, doc.ID, "no readable text layer"))

	got, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "no readable text layer", got.ErrorMessage)
	assert.Zero(t, got.ChunkCount)
	require.NotNil(t, got.ProcessedAt)
}

func TestTerminalTransitionHappensOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, doc))
	require.NoError(t, store.MarkReady(ctx, doc.ID, 5))

	// A second transition of either kind must not apply.
	assert.ErrorIs(t, store.MarkFailed(ctx, doc.ID, "late failure"), ErrAlreadyTerminal)
	assert.ErrorIs(t, store.MarkReady(ctx, doc.ID, 99), ErrAlreadyTerminal)

	got, err := store.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, got.Status)
	assert.Equal(t, 5, got.ChunkCount)
}

func TestTransition_UnknownDocument(t *testing.T) {
	store := newTestStore(t)

	err := store.MarkReady(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActiveForTenant(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ActiveForTenant(ctx, "tenant-a")
	assert.ErrorIs(t, err, ErrNoReadyDocument)

	older := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, older))
	require.NoError(t, store.MarkReady(ctx, older.ID, 3))

	time.Sleep(5 * time.Millisecond)

	newer := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, newer))
	require.NoError(t, store.MarkReady(ctx, newer.ID, 7))

	active, err := store.ActiveForTenant(ctx, "tenant-a")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, active.ID, "the most recently ready document is in query scope")
}

func TestActiveForTenant_IgnoresOtherStates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	processing := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, processing))

	failed := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, failed))
	require.NoError(t, store.MarkFailed(ctx, failed.ID, "unreadable"))

	_, err := store.ActiveForTenant(ctx, "tenant-a")
	assert.ErrorIs(t, err, ErrNoReadyDocument)
}

func TestActiveForTenant_TenantScoped(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docA := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, docA))
	require.NoError(t, store.MarkReady(ctx, docA.ID, 2))

	_, err := store.ActiveForTenant(ctx, "tenant-b")
	assert.ErrorIs(t, err, ErrNoReadyDocument)
}

func TestHasProcessing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.HasProcessing(ctx, "tenant-a")
	require.NoError(t, err)
	assert.False(t, ok)

	doc := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, doc))

	ok, err = store.HasProcessing(ctx, "tenant-a")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.MarkFailed(ctx, doc.ID, "x"))

	ok, err = store.HasProcessing(ctx, "tenant-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFailStale(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stale := newTestDoc("tenant-a")
	stale.CreatedAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, store.Create(ctx, stale))

	fresh := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, fresh))

	ids, err := store.FailStale(ctx, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{stale.ID}, ids)

	got, err := store.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)

	got, err = store.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
}

func TestPriorReady(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, first))
	require.NoError(t, store.MarkReady(ctx, first.ID, 4))

	second := newTestDoc("tenant-a")
	require.NoError(t, store.Create(ctx, second))
	require.NoError(t, store.MarkReady(ctx, second.ID, 6))

	other := newTestDoc("tenant-b")
	require.NoError(t, store.Create(ctx, other))
	require.NoError(t, store.MarkReady(ctx, other.ID, 2))

	prior, err := store.PriorReady(ctx, "tenant-a", second.ID)
	require.NoError(t, err)
	require.Len(t, prior, 1)
	assert.Equal(t, first.ID, prior[0].ID)
}
