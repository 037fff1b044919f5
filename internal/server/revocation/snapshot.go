package revocation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ObjectStore is the part of *s3.Client the snapshotter needs.
type ObjectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Settings locates the snapshot object and the S3-compatible endpoint.
type S3Settings struct {
	Bucket       string
	Key          string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// NewS3Client builds an S3 client for s. Static credentials are used when
// given; otherwise the default AWS chain applies. A base endpoint switches to
// path-style addressing for MinIO and similar stores.
func NewS3Client(ctx context.Context, s S3Settings) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(s.Region)}
	if s.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKey, s.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Snapshotter saves and restores a Memory list to a single S3 object so that
// revocations survive a restart of a single-instance deployment.
type Snapshotter struct {
	store  ObjectStore
	bucket string
	key    string
}

func NewSnapshotter(store ObjectStore, bucket, key string) *Snapshotter {
	return &Snapshotter{store: store, bucket: bucket, key: key}
}

type snapshot struct {
	Entries []Entry `json:"entries"`
}

// Save uploads the unexpired entries of m and returns how many were written.
func (s *Snapshotter) Save(ctx context.Context, m *Memory) (int, error) {
	entries := m.Entries()
	body, err := json.Marshal(snapshot{Entries: entries})
	if err != nil {
		return 0, fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return 0, fmt.Errorf("put snapshot: %w", err)
	}
	return len(entries), nil
}

// Load restores entries into m. A missing object is a fresh start, not an
// error. It returns how many entries were read.
func (s *Snapshotter) Load(ctx context.Context, m *Memory) (int, error) {
	out, err := s.store.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return 0, nil
		}
		return 0, fmt.Errorf("get snapshot: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return 0, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}
	m.Restore(snap.Entries)
	return len(snap.Entries), nil
}
