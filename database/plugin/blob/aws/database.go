// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/blinklabs-io/suidex/database/plugin/blob/internal/objectstore"
	"github.com/blinklabs-io/suidex/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

// s3API is the subset of the S3 client used by the blob store
type s3API interface {
	GetObject(
		context.Context,
		*s3.GetObjectInput,
		...func(*s3.Options),
	) (*s3.GetObjectOutput, error)
	PutObject(
		context.Context,
		*s3.PutObjectInput,
		...func(*s3.Options),
	) (*s3.PutObjectOutput, error)
	DeleteObject(
		context.Context,
		*s3.DeleteObjectInput,
		...func(*s3.Options),
	) (*s3.DeleteObjectOutput, error)
}

// BlobStoreS3 stores data in an AWS S3 bucket, or any S3 compatible service
// given an endpoint. Writes become visible when their transaction commits.
type BlobStoreS3 struct {
	*objectstore.Store

	promRegistry prometheus.Registerer
	metrics      *blobMetrics
	logger       *S3Logger
	client       s3API
	bucket       string
	prefix       string
	region       string
	endpoint     string
	timeout      time.Duration
}

// New creates a new S3-backed blob store and dataDir must be "s3://bucket" or "s3://bucket/prefix"
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreS3, error) {
	bucket, keyPrefix, err := parseS3URL(dataDir)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(
		WithBucket(bucket),
		WithPrefix(keyPrefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

func parseS3URL(dataDir string) (string, string, error) {
	const prefix = "s3://"
	if !strings.HasPrefix(dataDir, prefix) {
		return "", "", errors.New(
			"s3 blob: expected dataDir='s3://<bucket>[/prefix]'",
		)
	}
	path := strings.TrimPrefix(dataDir, prefix)
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		return "", "", errors.New("s3 blob: invalid S3 path (missing bucket)")
	}
	keyPrefix := ""
	if len(parts) > 1 {
		keyPrefix = normalizePrefix(parts[1])
	}
	return parts[0], keyPrefix, nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// NewWithOptions creates a new S3-backed blob store using options.
func NewWithOptions(opts ...BlobStoreS3OptionFunc) (*BlobStoreS3, error) {
	db := &BlobStoreS3{}

	// Apply options
	for _, opt := range opts {
		opt(db)
	}

	// Set defaults (no side effects)
	if db.logger == nil {
		db.logger = NewS3Logger(nil)
	}
	if db.timeout == 0 {
		db.timeout = objectstore.DefaultTimeout
	}
	db.prefix = normalizePrefix(db.prefix)

	// Note: AWS config loading and validation happens in Start()
	return db, nil
}

// Start implements the plugin.Plugin interface.
func (d *BlobStoreS3) Start() error {
	// Validate required fields
	if d.bucket == "" {
		return errors.New("s3 blob: bucket not set")
	}
	if d.client == nil {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return fmt.Errorf("s3 blob: load default AWS config: %w", err)
		}
		// Override region if specified
		if d.region != "" {
			awsCfg.Region = d.region
		}
		endpoint := d.endpoint
		d.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
				// Most S3 compatible services don't do virtual hosting
				o.UsePathStyle = true
			}
		})
	}
	// Configure metrics
	if d.promRegistry != nil && d.metrics == nil {
		d.registerBlobMetrics()
	}
	d.Store = objectstore.New(&s3Bucket{store: d}, d.prefix, d.timeout)
	d.logger.Infof("using s3 bucket %s with prefix %q", d.bucket, d.prefix)
	return nil
}

// Stop implements the plugin.Plugin interface.
func (d *BlobStoreS3) Stop() error {
	// S3 client doesn't need explicit closing
	return nil
}

// Close implements the BlobStore interface.
func (d *BlobStoreS3) Close() error {
	return d.Stop()
}

// NewTransaction returns a transaction that buffers writes until Commit
func (d *BlobStoreS3) NewTransaction(readWrite bool) types.Txn {
	if d.Store == nil {
		return objectstore.NotStartedTxn()
	}
	return d.Store.NewTransaction(readWrite)
}

func (d *BlobStoreS3) Get(txn types.Txn, key []byte) ([]byte, error) {
	if d.Store == nil {
		return nil, objectstore.ErrNotStarted
	}
	return d.Store.Get(txn, key)
}

func (d *BlobStoreS3) Set(txn types.Txn, key, val []byte) error {
	if d.Store == nil {
		return objectstore.ErrNotStarted
	}
	return d.Store.Set(txn, key, val)
}

func (d *BlobStoreS3) Delete(txn types.Txn, key []byte) error {
	if d.Store == nil {
		return objectstore.ErrNotStarted
	}
	return d.Store.Delete(txn, key)
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) &&
		(apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound") {
		return true
	}
	var noSuchKey *s3types.NoSuchKey
	return errors.As(err, &noSuchKey)
}

// s3Bucket is the objectstore.Backend of a BlobStoreS3
type s3Bucket struct {
	store *BlobStoreS3
}

func (b *s3Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	d := b.store
	if d.client == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, types.ErrBlobKeyNotFound
		}
		d.logger.Errorf("s3 get %q failed: %v", key, err)
		return nil, err
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		d.logger.Errorf("s3 read %q failed: %v", key, err)
		return nil, err
	}
	d.observe("get", len(data))
	d.logger.Debugf("s3 get %q ok (%d bytes)", key, len(data))
	return data, nil
}

func (b *s3Bucket) Put(ctx context.Context, key string, value []byte) error {
	d := b.store
	if d.client == nil {
		return types.ErrBlobStoreUnavailable
	}
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(value),
	})
	if err != nil {
		d.logger.Errorf("s3 put %q failed: %v", key, err)
		return err
	}
	d.observe("put", len(value))
	d.logger.Debugf("s3 put %q ok (%d bytes)", key, len(value))
	return nil
}

func (b *s3Bucket) Delete(ctx context.Context, key string) error {
	d := b.store
	if d.client == nil {
		return types.ErrBlobStoreUnavailable
	}
	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isS3NotFound(err) {
		d.logger.Errorf("s3 delete %q failed: %v", key, err)
		return err
	}
	d.observe("delete", 0)
	return nil
}
