package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lomoval/notecal/internal/blob"
	log "github.com/sirupsen/logrus"
)

const metaSuffix = ".json"

type Config struct {
	Dir     string
	BaseURL string
	MaxSize int64
}

// Store keeps blobs as files in one directory, with a metadata file per blob.
// Content is served by the API under BaseURL.
type Store struct {
	dir     string
	baseURL string
	maxSize int64
}

func New(config Config) (*Store, error) {
	if config.Dir == "" {
		return nil, errors.New("blob directory is not set")
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory %s: %w", config.Dir, err)
	}
	return &Store{
		dir:     config.Dir,
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		maxSize: config.MaxSize,
	}, nil
}

func (s *Store) Create(_ context.Context, obj blob.Object, r io.Reader) (string, error) {
	obj.ID = uuid.New().String()
	path := s.path(obj.ID)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create blob file: %w", err)
	}
	size, err := blob.CopyLimited(f, r, s.maxSize, obj.Size)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			log.WithError(rmErr).Warnf("failed to remove partial blob %s", obj.ID)
		}
		return "", err
	}

	obj.Size = size
	meta, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path+metaSuffix, meta, 0o600); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to write blob metadata: %w", err)
	}
	log.WithField("id", obj.ID).WithField("size", size).Debug("blob stored")
	return obj.ID, nil
}

// PreviewURL serves the original content, width is only passed along.
func (s *Store) PreviewURL(ctx context.Context, id string, width int) (string, error) {
	if _, err := s.stat(id); err != nil {
		return "", err
	}
	if width <= 0 {
		width = blob.DefaultPreviewWidth
	}
	return fmt.Sprintf("%s/%s/preview?width=%s", s.baseURL, url.PathEscape(id), strconv.Itoa(width)), nil
}

func (s *Store) ViewURL(_ context.Context, id string) (string, error) {
	if _, err := s.stat(id); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/view", s.baseURL, url.PathEscape(id)), nil
}

func (s *Store) Open(_ context.Context, id string) (io.ReadCloser, blob.Object, error) {
	obj, err := s.stat(id)
	if err != nil {
		return nil, blob.Object{}, err
	}
	f, err := os.Open(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, blob.Object{}, blob.ErrNotFound
		}
		return nil, blob.Object{}, fmt.Errorf("failed to open blob %s: %w", id, err)
	}
	return f, obj, nil
}

func (s *Store) stat(id string) (blob.Object, error) {
	if _, err := uuid.Parse(id); err != nil {
		return blob.Object{}, blob.ErrNotFound
	}
	raw, err := os.ReadFile(s.path(id) + metaSuffix)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return blob.Object{}, blob.ErrNotFound
		}
		return blob.Object{}, fmt.Errorf("failed to read blob metadata %s: %w", id, err)
	}
	obj := blob.Object{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return blob.Object{}, fmt.Errorf("corrupt blob metadata %s: %w", id, err)
	}
	return obj, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id)
}
