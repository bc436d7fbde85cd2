package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/lomoval/notecal/internal/blob"
	log "github.com/sirupsen/logrus"
)

const defaultURLExpiry = 15 * time.Minute

type Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	Prefix          string
	// PublicURL serves objects without presigning, e.g. a CDN in front of the bucket.
	PublicURL string
	URLExpiry time.Duration
	MaxSize   int64
}

type Store struct {
	client    *awss3.Client
	presign   *awss3.PresignClient
	bucket    string
	prefix    string
	publicURL string
	expiry    time.Duration
	maxSize   int64
}

func New(config Config) (*Store, error) {
	if config.Bucket == "" || config.Region == "" || config.AccessKeyID == "" || config.SecretAccessKey == "" {
		return nil, errors.New("incomplete s3 config: bucket, region and credentials are required")
	}

	opts := awss3.Options{
		Region:       config.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		UsePathStyle: config.PathStyle,
	}
	if endpoint := strings.TrimSuffix(strings.TrimSpace(config.Endpoint), "/"); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
	}
	client := awss3.New(opts)

	expiry := config.URLExpiry
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}
	return &Store{
		client:    client,
		presign:   awss3.NewPresignClient(client),
		bucket:    config.Bucket,
		prefix:    strings.Trim(config.Prefix, "/"),
		publicURL: strings.TrimSuffix(config.PublicURL, "/"),
		expiry:    expiry,
		maxSize:   config.MaxSize,
	}, nil
}

func (s *Store) Create(ctx context.Context, obj blob.Object, r io.Reader) (string, error) {
	// Body is buffered so the SDK can sign a seekable payload.
	buf := bytes.Buffer{}
	size, err := blob.CopyLimited(&buf, r, s.maxSize, obj.Size)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = s.client.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(id)),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		Metadata: map[string]string{
			"owner": obj.OwnerID,
			"name":  obj.Name,
		},
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	log.WithField("id", id).WithField("size", size).Debug("blob uploaded to s3")
	return id, nil
}

// PreviewURL returns a resizable public URL when PublicURL is set, a presigned one otherwise.
func (s *Store) PreviewURL(ctx context.Context, id string, width int) (string, error) {
	if width <= 0 {
		width = blob.DefaultPreviewWidth
	}
	if s.publicURL != "" {
		return s.public(id) + "?width=" + strconv.Itoa(width), nil
	}
	return s.presigned(ctx, id)
}

func (s *Store) ViewURL(ctx context.Context, id string) (string, error) {
	if s.publicURL != "" {
		return s.public(id), nil
	}
	return s.presigned(ctx, id)
}

func (s *Store) presigned(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", blob.ErrNotFound
	}
	req, err := s.presign.PresignGetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(id)),
	}, awss3.WithPresignExpires(s.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", id, err)
	}
	return req.URL, nil
}

func (s *Store) public(id string) string {
	return s.publicURL + "/" + s.escapedKey(id)
}

func (s *Store) key(id string) string {
	if s.prefix == "" {
		return id
	}
	return s.prefix + "/" + id
}

func (s *Store) escapedKey(id string) string {
	parts := strings.Split(s.key(id), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
