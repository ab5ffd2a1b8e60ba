package milvus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingClient(failures int) (*Client, *int) {
	calls := 0
	c := &Client{}
	c.loader = func(context.Context, string) error {
		calls++
		if calls <= failures {
			return errors.New("collection not ready")
		}
		return nil
	}
	return c, &calls
}

func TestEnsureLoaded_LoadsOncePerCollection(t *testing.T) {
	c, calls := countingClient(0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.ensureLoaded(ctx, "pet_health_rag"))
	}
	assert.Equal(t, 1, *calls)

	require.NoError(t, c.ensureLoaded(ctx, "other"))
	assert.Equal(t, 2, *calls)
}

func TestEnsureLoaded_RetriesAfterFailure(t *testing.T) {
	c, calls := countingClient(1)
	ctx := context.Background()

	require.Error(t, c.ensureLoaded(ctx, "pet_health_rag"))
	require.NoError(t, c.ensureLoaded(ctx, "pet_health_rag"))
	require.NoError(t, c.ensureLoaded(ctx, "pet_health_rag"))
	assert.Equal(t, 2, *calls)
}

func TestEnsureLoaded_ReloadsWhenForgotten(t *testing.T) {
	c, calls := countingClient(0)
	ctx := context.Background()

	require.NoError(t, c.ensureLoaded(ctx, "pet_health_rag"))
	c.loaded.Delete("pet_health_rag")
	require.NoError(t, c.ensureLoaded(ctx, "pet_health_rag"))
	assert.Equal(t, 2, *calls)
}
