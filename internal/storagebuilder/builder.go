package storagebuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/lomoval/notecal/internal/blob"
	"github.com/lomoval/notecal/internal/blob/local"
	s3blob "github.com/lomoval/notecal/internal/blob/s3"
	"github.com/lomoval/notecal/internal/storage"
	memorystorage "github.com/lomoval/notecal/internal/storage/memory"
	sqlstorage "github.com/lomoval/notecal/internal/storage/sql"
	"github.com/lomoval/notecal/internal/theme"
)

const connectTimeout = 15 * time.Second

type Config struct {
	StorageType string
	Database    sqlstorage.Config
}

// New builds the note storage: "memory", "sql" (driver from Database) or "sqlite".
func New(config Config) (storage.Storage, error) {
	switch config.StorageType {
	case "memory":
		return memorystorage.New(), nil
	case "sql", "sqlite":
		if config.StorageType == "sqlite" {
			config.Database.Driver = sqlstorage.DriverSqlite
		}
		s := sqlstorage.New(config.Database)
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		err := s.Connect(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database %s %d: %w", config.Database.Host, config.Database.Port, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %s", config.StorageType)
	}
}

type BlobConfig struct {
	Type  string
	Local local.Config
	S3    s3blob.Config
}

// NewBlobStore builds the media store: "local", "s3" or "none" (media disabled, nil store).
func NewBlobStore(config BlobConfig) (blob.Store, error) {
	switch config.Type {
	case "", "none":
		return nil, nil
	case "local":
		s, err := local.New(config.Local)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "s3":
		s, err := s3blob.New(config.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown blob storage type %s", config.Type)
	}
}

type ThemeConfig struct {
	Type  string
	Redis theme.RedisConfig
}

// NewThemeStore builds the local theme store: "memory" or "redis".
// The returned close function is never nil.
func NewThemeStore(config ThemeConfig) (theme.LocalStore, func() error, error) {
	noop := func() error { return nil }
	switch config.Type {
	case "", "memory":
		return theme.NewMemoryStore(), noop, nil
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		s, err := theme.NewRedisStore(ctx, config.Redis)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown theme store type %s", config.Type)
	}
}
