package services

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"journal-workflow-api/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// BlobStore holds file content. The workflow keeps only the returned BlobRef.
type BlobStore interface {
	Put(ctx context.Context, data []byte, contentType string) (models.BlobRef, error)
	Get(ctx context.Context, ref models.BlobRef) ([]byte, error)
}

var ErrBlobNotFound = errors.New("blob not found")

const (
	localRefPrefix = "local:"
	s3RefPrefix    = "s3:"
)

// LocalBlobStore writes content-addressed files under a root directory.
// Identical uploads share one file.
type LocalBlobStore struct {
	root string
}

func NewLocalBlobStore(root string) (*LocalBlobStore, error) {
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &LocalBlobStore{root: root}, nil
}

func (s *LocalBlobStore) path(digest string) string {
	return filepath.Join(s.root, digest[:2], digest)
}

func (s *LocalBlobStore) Put(ctx context.Context, data []byte, contentType string) (models.BlobRef, error) {
	sum := blake2b.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	target := s.path(digest)

	if _, err := os.Stat(target); err == nil {
		return models.BlobRef(localRefPrefix + digest), nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store blob: %w", err)
	}
	return models.BlobRef(localRefPrefix + digest), nil
}

func (s *LocalBlobStore) Get(ctx context.Context, ref models.BlobRef) ([]byte, error) {
	digest, ok := strings.CutPrefix(string(ref), localRefPrefix)
	if !ok || len(digest) != blake2b.Size256*2 {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	data, err := os.ReadFile(s.path(digest))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// s3API is the subset of *s3.Client used by S3BlobStore.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3BlobStore keeps manuscript files in an S3 bucket.
type S3BlobStore struct {
	client s3API
	bucket string
	prefix string
}

// NewS3BlobStore loads the default AWS credential chain for region.
func NewS3BlobStore(ctx context.Context, bucket, region, prefix string) (*S3BlobStore, error) {
	if bucket == "" {
		return nil, errors.New("S3_BUCKET environment variable is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newS3BlobStore(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func newS3BlobStore(client s3API, bucket, prefix string) *S3BlobStore {
	if prefix == "" {
		prefix = "manuscripts"
	}
	return &S3BlobStore{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3BlobStore) Put(ctx context.Context, data []byte, contentType string) (models.BlobRef, error) {
	key := s.prefix + "/" + uuid.NewString()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload blob to S3: %w", err)
	}
	return models.BlobRef(s3RefPrefix + key), nil
}

func (s *S3BlobStore) Get(ctx context.Context, ref models.BlobRef) ([]byte, error) {
	key, ok := strings.CutPrefix(string(ref), s3RefPrefix)
	if !ok || key == "" {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
	}
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *s3types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, ref)
		}
		return nil, fmt.Errorf("failed to download blob from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob content: %w", err)
	}
	return data, nil
}
