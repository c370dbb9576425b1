package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Save(ctx, HandKey("t1"), []byte("state")))

	value, err := m.Load(ctx, "hand:t1")
	require.NoError(t, err)
	assert.Equal(t, []byte("state"), value)

	ok, err := m.Exists(ctx, "hand:t1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, m.Save(ctx, "hand:t1", []byte("updated")))
	value, err = m.Load(ctx, "hand:t1")
	require.NoError(t, err)
	assert.Equal(t, []byte("updated"), value)

	require.NoError(t, m.Delete(ctx, "hand:t1"))
	ok, err = m.Exists(ctx, "hand:t1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is not an error
	require.NoError(t, m.Delete(ctx, "hand:t1"))
}

func TestMemoryListKeys(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Save(ctx, HandKey("a"), []byte("1")))
	require.NoError(t, m.Save(ctx, HandKey("b"), []byte("2")))
	require.NoError(t, m.Save(ctx, "session:a", []byte("3")))

	keys, err := m.ListKeys(ctx, "hand:")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hand:a", "hand:b"}, keys)
}

func TestMemoryLoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Save(ctx, "k", []byte("abc")))

	value, err := m.Load(ctx, "k")
	require.NoError(t, err)
	value[0] = 'z'

	again, err := m.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}
