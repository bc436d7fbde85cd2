package storagebuilder

import (
	"context"
	"testing"

	"github.com/lomoval/notecal/internal/blob/local"
	memorystorage "github.com/lomoval/notecal/internal/storage/memory"
	sqlstorage "github.com/lomoval/notecal/internal/storage/sql"
	"github.com/lomoval/notecal/internal/theme"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s, err := New(Config{StorageType: "memory"})
	require.NoError(t, err)
	require.IsType(t, &memorystorage.Storage{}, s)

	s, err = New(Config{StorageType: "sqlite", Database: sqlstorage.Config{Path: ":memory:"}})
	require.NoError(t, err)
	require.IsType(t, &sqlstorage.Storage{}, s)
	require.NoError(t, s.Close(context.Background()))

	_, err = New(Config{StorageType: "cassandra"})
	require.Error(t, err)
}

func TestNewBlobStore(t *testing.T) {
	b, err := NewBlobStore(BlobConfig{Type: "none"})
	require.NoError(t, err)
	require.Nil(t, b)

	b, err = NewBlobStore(BlobConfig{Type: "local", Local: local.Config{Dir: t.TempDir()}})
	require.NoError(t, err)
	require.IsType(t, &local.Store{}, b)

	_, err = NewBlobStore(BlobConfig{Type: "s3"})
	require.Error(t, err)

	_, err = NewBlobStore(BlobConfig{Type: "ftp"})
	require.Error(t, err)
}

func TestNewThemeStore(t *testing.T) {
	s, closeFn, err := NewThemeStore(ThemeConfig{})
	require.NoError(t, err)
	require.IsType(t, &theme.MemoryStore{}, s)
	require.NoError(t, closeFn())

	_, closeFn, err = NewThemeStore(ThemeConfig{Type: "redis", Redis: theme.RedisConfig{URL: "not a url"}})
	require.Error(t, err)
	require.NotNil(t, closeFn)

	_, _, err = NewThemeStore(ThemeConfig{Type: "etcd"})
	require.Error(t, err)
}
