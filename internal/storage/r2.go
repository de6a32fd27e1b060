package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Cache lifetime sent with public objects. Resource files and thumbnails get
// unique keys per upload, so long-lived caching is safe.
const publicCacheControl = "public, max-age=31536000, immutable"

// R2Storage stores objects in a Cloudflare R2 bucket. R2 speaks the S3 API,
// so the AWS SDK is pointed at the account's R2 endpoint.
type R2Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
	logger    *slog.Logger
}

// NewR2Storage builds an S3 client against the account's R2 endpoint.
func NewR2Storage(cfg R2Config, logger *slog.Logger) (*R2Storage, error) {
	if cfg.AccountID == "" || cfg.BucketName == "" {
		return nil, fmt.Errorf("r2 storage: account ID and bucket name are required")
	}

	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg := aws.Config{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return &R2Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.BucketName,
		publicURL: strings.TrimSuffix(cfg.PublicURL, "/"),
		logger:    logger.With(slog.String("storage", ProviderR2)),
	}, nil
}

// Put uploads the object. When Overwrite is off, an existence check runs
// first; R2 has no native conditional put across all plans, so the check is
// best-effort rather than atomic.
func (s *R2Storage) Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error {
	if err := validKey(key); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}

	if !opts.Overwrite {
		exists, err := s.Exists(ctx, key)
		if err != nil {
			return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("existence check: %w", err)}
		}
		if exists {
			return &StorageError{Op: "put", Key: key, Err: ErrKeyExists}
		}
	}

	reader := data
	if opts.MaxSize > 0 {
		reader = io.LimitReader(data, opts.MaxSize+1)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = DetectContentType("", key, nil)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType),
	}
	if opts.Public {
		input.ACL = types.ObjectCannedACLPublicRead
		input.CacheControl = aws.String(publicCacheControl)
	}

	result, err := s.client.PutObject(ctx, input)
	if err != nil {
		// With a size cap in place the truncated body breaks the SDK's
		// content hash, so a failure here usually means the object was
		// over the limit.
		if opts.MaxSize > 0 {
			return &StorageError{Op: "put", Key: key, Err: ErrTooLarge}
		}
		return &StorageError{Op: "put", Key: key, Err: classifyS3Error(err)}
	}

	s.logger.Debug("stored object",
		slog.String("key", key),
		slog.String("etag", aws.ToString(result.ETag)),
		slog.String("content_type", contentType),
	)
	return nil
}

// Get streams the object. The caller must close the returned body.
func (s *R2Storage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := validKey(key); err != nil {
		return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: err}
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, ObjectInfo{}, &StorageError{Op: "get", Key: key, Err: classifyS3Error(err)}
	}

	info := ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(result.ContentLength),
		ContentType:  aws.ToString(result.ContentType),
		LastModified: aws.ToTime(result.LastModified),
		ETag:         aws.ToString(result.ETag),
	}
	return result.Body, info, nil
}

// Delete removes the object. S3 deletes are idempotent, so a missing key is
// not an error.
func (s *R2Storage) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: classifyS3Error(err)}
	}

	s.logger.Debug("deleted object", slog.String("key", key))
	return nil
}

// URL returns a public URL when a custom domain is configured and no expiry
// is requested, otherwise a presigned URL.
func (s *R2Storage) URL(ctx context.Context, key string, expires time.Duration) (string, error) {
	if err := validKey(key); err != nil {
		return "", &StorageError{Op: "url", Key: key, Err: err}
	}

	if s.publicURL != "" && expires == 0 {
		return s.publicURL + "/" + key, nil
	}

	if expires == 0 {
		expires = 15 * time.Minute
	}

	request, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", &StorageError{Op: "url", Key: key, Err: fmt.Errorf("presign: %w", err)}
	}
	return request.URL, nil
}

// Exists issues a HeadObject request.
func (s *R2Storage) Exists(ctx context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, &StorageError{Op: "exists", Key: key, Err: err}
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if errors.Is(classifyS3Error(err), ErrNotFound) {
			return false, nil
		}
		return false, &StorageError{Op: "exists", Key: key, Err: classifyS3Error(err)}
	}
	return true, nil
}

// validKey rejects empty keys and traversal sequences. Keys are generated
// server-side, so anything odd here points at a bug upstream.
func validKey(key string) error {
	if key == "" || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

// classifyS3Error maps SDK errors onto the package sentinels so callers can
// branch without importing AWS types.
func classifyS3Error(err error) error {
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return ErrNotFound
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return ErrNotFound
		case "AccessDenied", "Forbidden":
			return ErrAccessDenied
		}
	}

	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		switch httpErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusForbidden:
			return ErrAccessDenied
		}
	}

	return fmt.Errorf("r2: %w", err)
}
