// Package s3 provides an S3-backed mirror for remote store replication.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/papercomputeco/engram/pkg/mirror"
	"github.com/papercomputeco/engram/pkg/storage"
)

const snapshotObject = "engram-snapshot.json"

// Config holds configuration for the S3 mirror.
type Config struct {
	// Bucket is the target bucket name.
	Bucket string

	// Prefix is an optional key prefix inside the bucket.
	Prefix string

	// Region overrides the SDK's resolved region when non-empty.
	Region string
}

// Mirror implements mirror.Mirror against an S3 bucket. Each push replaces
// a single JSON snapshot object; credentials come from the standard AWS
// resolution chain (env, shared config, instance role).
type Mirror struct {
	client *s3.Client
	config Config
}

var _ mirror.Mirror = (*Mirror)(nil)

// NewMirror creates an S3 mirror using the default AWS config chain.
func NewMirror(ctx context.Context, c Config) (*Mirror, error) {
	if c.Bucket == "" {
		return nil, fmt.Errorf("s3 mirror requires a bucket")
	}

	opts := []func(*awsconfig.LoadOptions) error{}
	if c.Region != "" {
		opts = append(opts, awsconfig.WithRegion(c.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	return &Mirror{
		client: s3.NewFromConfig(awsCfg),
		config: c,
	}, nil
}

// Push uploads the snapshot as a single JSON object, replacing the
// previous one.
func (m *Mirror) Push(ctx context.Context, export *storage.Export) error {
	payload, err := json.Marshal(export)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	key := snapshotObject
	if m.config.Prefix != "" {
		key = path.Join(m.config.Prefix, snapshotObject)
	}

	contentType := "application/json"
	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &m.config.Bucket,
		Key:         &key,
		Body:        bytes.NewReader(payload),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("uploading snapshot to s3://%s/%s: %w", m.config.Bucket, key, err)
	}

	return nil
}

// Close is a no-op; the S3 client holds no persistent connections.
func (m *Mirror) Close() error {
	return nil
}
