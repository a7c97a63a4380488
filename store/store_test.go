package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PutGet(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "a", []byte("one")))

	got, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)
}

func TestMemory_GetMissing(t *testing.T) {
	kv := NewMemory()

	_, err := kv.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_PutOverwrites(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "a", []byte("one")))
	require.NoError(t, kv.Put(ctx, "a", []byte("two")))

	got, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func TestMemory_Delete(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	require.NoError(t, kv.Put(ctx, "a", []byte("one")))
	require.NoError(t, kv.Delete(ctx, "a"))

	_, err := kv.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, kv.Delete(ctx, "a"), "deleting a missing key is not an error")
}

func TestMemory_CopiesValues(t *testing.T) {
	kv := NewMemory()
	ctx := context.Background()

	value := []byte("original")
	require.NoError(t, kv.Put(ctx, "a", value))
	value[0] = 'X'

	got, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got, "mutating the input must not affect the stored value")

	got[0] = 'Y'
	again, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again, "mutating a returned value must not affect the stored value")
}
