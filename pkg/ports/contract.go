package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/reel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRecordStoreContract runs a suite of tests to verify that a RecordStore implementation
// adheres to the defined interface contract.
func RunRecordStoreContract(t *testing.T, store RecordStore) {
	ctx := context.Background()
	id := "contract-test-render-" + time.Now().Format("20060102150405")

	newRecord := func(id string) *domain.RenderRecord {
		return &domain.RenderRecord{
			ID:          id,
			Composition: "intro",
			State:       domain.StateRunning,
			Frames:      4,
			StartedAt:   time.Now().UTC().Truncate(time.Second),
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		record := newRecord(id)
		finished := record.StartedAt.Add(time.Second)
		record.State = domain.StateSucceeded
		record.FinishedAt = &finished
		record.Artifact = &domain.Artifact{Location: "out/intro", Frames: 4, Format: "png"}

		err := store.Save(ctx, record)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, domain.StateSucceeded, loaded.State)
		assert.Equal(t, "intro", loaded.Composition)
		require.NotNil(t, loaded.Artifact)
		assert.Equal(t, "out/intro", loaded.Artifact.Location)
		require.NotNil(t, loaded.FinishedAt)
		assert.True(t, finished.Equal(*loaded.FinishedAt))
	})

	t.Run("Save overwrites", func(t *testing.T) {
		record := newRecord(id)
		record.State = domain.StateFailed
		record.Error = "boom"
		require.NoError(t, store.Save(ctx, record))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StateFailed, loaded.State)
		assert.Equal(t, "boom", loaded.Error)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrRenderNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newRecord(id)))

		err := store.Delete(ctx, id)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrRenderNotFound, "Load after Delete should return ErrRenderNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := id + "-1"
		id2 := id + "-2"
		_ = store.Save(ctx, newRecord(id1))
		_ = store.Save(ctx, newRecord(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
