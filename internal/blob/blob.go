package blob

import (
	"context"
	"errors"
	"io"
	"strings"
)

// DefaultPreviewWidth is the preview width requested for attachments.
const DefaultPreviewWidth = 600

var (
	ErrNotFound        = errors.New("blob not found")
	ErrTooLarge        = errors.New("blob exceeds size limit")
	ErrUnsupportedType = errors.New("unsupported content type")
	ErrCopying         = errors.New("failed to copy blob")
)

// Object describes a stored blob. Size is -1 when unknown upfront.
type Object struct {
	ID          string `json:"id"`
	OwnerID     string `json:"ownerId"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Store keeps uploaded media and hands out URLs for it.
type Store interface {
	// Create stores r under a new opaque id.
	Create(ctx context.Context, obj Object, r io.Reader) (string, error)
	PreviewURL(ctx context.Context, id string, width int) (string, error)
	ViewURL(ctx context.Context, id string) (string, error)
}

// Opener is implemented by stores that serve content themselves.
type Opener interface {
	Open(ctx context.Context, id string) (io.ReadCloser, Object, error)
}

// MediaKind returns "image" or "video" for matching content types and "" otherwise.
func MediaKind(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return "image"
	case strings.HasPrefix(ct, "video/"):
		return "video"
	default:
		return ""
	}
}
