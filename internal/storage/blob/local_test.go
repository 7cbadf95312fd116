package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ncecere/fedramp_marketplace/internal/config"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := New(context.Background(), config.StorageConfig{
		Backend: "local",
		Local:   config.StorageLocalConfig{Directory: t.TempDir()},
	})
	require.NoError(t, err)
	return store
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	info, err := store.Put(ctx, "catalog/snapshot.json", strings.NewReader(`{"providers":[]}`), PutOptions{ContentType: "application/json"})
	require.NoError(t, err)
	require.Equal(t, int64(16), info.Size)

	reader, got, err := store.Get(ctx, "catalog/snapshot.json")
	require.NoError(t, err)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.Equal(t, `{"providers":[]}`, string(body))
	require.Equal(t, int64(16), got.Size)
	require.Contains(t, got.ContentType, "application/json")
	require.False(t, got.LastModified.IsZero())
}

func TestLocalStoreMissingKey(t *testing.T) {
	store := newTestStore(t)

	_, _, err := store.Get(context.Background(), "catalog/missing.json")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "a.json", strings.NewReader("{}"), PutOptions{})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "a.json"))
	require.NoError(t, store.Delete(ctx, "a.json"))

	_, _, err = store.Get(ctx, "a.json")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStoreKeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := &localStore{root: root}

	target, err := store.pathForKey("../../etc/passwd")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(target, root))

	_, err = store.pathForKey("/")
	require.Error(t, err)
}
