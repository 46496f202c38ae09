// Package storage stages files in and out of the cloudtile S3 bucket.
// Objects are keyed by suffix-derived prefixes (parquet/blocks.parquet)
// and deduplicated by an md5 checksum stored in object metadata.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"cloudtile/internal/config"
	"cloudtile/internal/fileutil"
	"cloudtile/internal/geofile"
	"cloudtile/internal/services"
)

// metadataChecksumKey names the object metadata entry carrying the local
// file's md5 at upload time.
const metadataChecksumKey = "md5"

// API is the subset of the S3 client the adapter needs. *s3.Client
// satisfies it; tests substitute fakes.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Option configures the adapter.
type Option func(*Storage)

// WithAPI injects a custom S3 API (primarily for tests).
func WithAPI(api API) Option {
	return func(s *Storage) {
		if api != nil {
			s.api = api
		}
	}
}

// UploadResult reports where an upload landed and whether the transfer was
// skipped because the remote object already carries the same content.
type UploadResult struct {
	Key     string
	Skipped bool
}

// Storage adapts the S3 client into the staging operations the dispatcher
// needs.
type Storage struct {
	api     API
	bucket  string
	workDir string
}

// New constructs the staging adapter. Unless an API is injected, the AWS
// SDK's default credential chain is used with the configured region.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Storage, error) {
	store := &Storage{
		bucket:  cfg.Bucket,
		workDir: cfg.WorkDir,
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.api == nil {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		store.api = s3.NewFromConfig(awsCfg)
	}
	return store, nil
}

// Key derives the bucket key for a file name: the suffix-named prefix plus
// the base name. Unrecognized suffixes are rejected before any network
// call.
func Key(name string) (string, error) {
	format, err := geofile.ParseFormat(name)
	if err != nil {
		return "", err
	}
	return format.String() + "/" + filepath.Base(name), nil
}

// Download stages the named object into the working directory and returns
// the local path.
func (s *Storage) Download(ctx context.Context, name string) (string, error) {
	key, err := Key(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.workDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrStaging, "storage", "download", "prepare working directory", err)
	}

	object, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return "", services.Wrap(services.ErrStaging, "storage", "download", fmt.Sprintf("object %s not found in bucket %s", key, s.bucket), err)
		}
		return "", services.Wrap(services.ErrStaging, "storage", "download", key, err)
	}
	defer object.Body.Close()

	localPath := filepath.Join(s.workDir, filepath.Base(name))
	file, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", services.Wrap(services.ErrStaging, "storage", "download", "create local file", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, object.Body); err != nil {
		return "", services.Wrap(services.ErrStaging, "storage", "download", "write "+localPath, err)
	}
	if err := file.Close(); err != nil {
		return "", services.Wrap(services.ErrStaging, "storage", "download", "close "+localPath, err)
	}
	return localPath, nil
}

// Upload stages a local file into the bucket under its derived key. When
// an object with the same key already carries the same content checksum the
// transfer is skipped and reported as already present; differing content is
// overwritten.
func (s *Storage) Upload(ctx context.Context, localPath string) (UploadResult, error) {
	key, err := Key(localPath)
	if err != nil {
		return UploadResult{}, err
	}
	checksum, err := fileutil.MD5Sum(localPath)
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrStaging, "storage", "upload", localPath, err)
	}

	head, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		if head.Metadata[metadataChecksumKey] == checksum {
			return UploadResult{Key: key, Skipped: true}, nil
		}
	case isNotFound(err):
		// No remote object yet; upload proceeds.
	default:
		return UploadResult{}, services.Wrap(services.ErrStaging, "storage", "upload", "check existing object "+key, err)
	}

	file, err := os.Open(localPath)
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrStaging, "storage", "upload", localPath, err)
	}
	defer file.Close()

	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(key),
		Body:     file,
		Metadata: map[string]string{metadataChecksumKey: checksum},
	})
	if err != nil {
		return UploadResult{}, services.Wrap(services.ErrStaging, "storage", "upload", key, err)
	}
	return UploadResult{Key: key}, nil
}

func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	return errors.As(err, &notFound)
}
