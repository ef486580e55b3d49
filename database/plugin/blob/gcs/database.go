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

package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/blinklabs-io/suidex/database/plugin/blob/internal/objectstore"
	"github.com/blinklabs-io/suidex/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/api/option"
)

// BlobStoreGCS stores data in a Google Cloud Storage bucket. Writes become
// visible when their transaction commits.
type BlobStoreGCS struct {
	*objectstore.Store

	promRegistry    prometheus.Registerer
	metrics         *blobMetrics
	logger          *GcsLogger
	client          *storage.Client
	bucket          *storage.BucketHandle
	bucketName      string
	prefix          string
	credentialsFile string
	endpoint        string
	timeout         time.Duration
}

// New creates a new GCS-backed blob store. dataDir must be "gcs://bucket" or
// "gcs://bucket/prefix".
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*BlobStoreGCS, error) {
	const prefix = "gcs://"
	path, ok := strings.CutPrefix(dataDir, prefix)
	bucketName, keyPrefix, _ := strings.Cut(path, "/")
	if !ok || bucketName == "" {
		return nil, errors.New(
			"gcs blob: bucket not set (expected dataDir='gcs://<bucket>[/prefix]')",
		)
	}

	return NewWithOptions(
		WithBucket(bucketName),
		WithPrefix(keyPrefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

// NewWithOptions creates a new GCS-backed blob store using options.
func NewWithOptions(opts ...BlobStoreGCSOptionFunc) (*BlobStoreGCS, error) {
	db := &BlobStoreGCS{}

	// Apply options
	for _, opt := range opts {
		opt(db)
	}

	// Set defaults
	if db.logger == nil {
		db.logger = NewGcsLogger(nil)
	}
	if db.timeout == 0 {
		db.timeout = objectstore.DefaultTimeout
	}
	db.prefix = strings.Trim(db.prefix, "/")
	if db.prefix != "" {
		db.prefix += "/"
	}
	return db, nil
}

// ValidateCredentials checks that a credentials file exists and is readable.
// An empty path means application default credentials.
func ValidateCredentials(credentialsFile string) error {
	if credentialsFile == "" {
		return nil
	}
	f, err := os.Open(credentialsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf(
				"GCS credentials file does not exist: %s",
				credentialsFile,
			)
		}
		return fmt.Errorf("GCS credentials file is not readable: %w", err)
	}
	return f.Close()
}

// Close closes the GCS client.
func (d *BlobStoreGCS) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	d.bucket = nil
	return err
}

// Start implements the plugin.Plugin interface.
func (d *BlobStoreGCS) Start() error {
	// Validate required fields
	if d.bucketName == "" {
		return errors.New("gcs blob: bucket not set")
	}
	if err := ValidateCredentials(d.credentialsFile); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := []option.ClientOption{storage.WithDisabledClientMetrics()}
	if d.credentialsFile != "" {
		clientOpts = append(
			clientOpts,
			option.WithCredentialsFile(d.credentialsFile),
		)
	}
	var client *storage.Client
	var err error
	if d.endpoint != "" {
		// Emulators only speak the JSON API
		clientOpts = append(
			clientOpts,
			option.WithEndpoint(d.endpoint),
			option.WithoutAuthentication(),
		)
		client, err = storage.NewClient(ctx, clientOpts...)
	} else {
		client, err = storage.NewGRPCClient(ctx, clientOpts...)
	}
	if err != nil {
		return fmt.Errorf(
			"gcs blob: failed in creating storage client: %w",
			err,
		)
	}

	d.client = client
	d.bucket = client.Bucket(d.bucketName)
	// Configure metrics
	if d.promRegistry != nil && d.metrics == nil {
		d.registerBlobMetrics()
	}
	d.Store = objectstore.New(&gcsBucket{store: d}, d.prefix, d.timeout)
	d.logger.Infof("using gcs bucket %s with prefix %q", d.bucketName, d.prefix)
	return nil
}

// Stop implements the plugin.Plugin interface.
func (d *BlobStoreGCS) Stop() error {
	return d.Close()
}

// NewTransaction returns a transaction that buffers writes until Commit
func (d *BlobStoreGCS) NewTransaction(readWrite bool) types.Txn {
	if d.Store == nil {
		return objectstore.NotStartedTxn()
	}
	return d.Store.NewTransaction(readWrite)
}

func (d *BlobStoreGCS) Get(txn types.Txn, key []byte) ([]byte, error) {
	if d.Store == nil {
		return nil, objectstore.ErrNotStarted
	}
	return d.Store.Get(txn, key)
}

func (d *BlobStoreGCS) Set(txn types.Txn, key, val []byte) error {
	if d.Store == nil {
		return objectstore.ErrNotStarted
	}
	return d.Store.Set(txn, key, val)
}

func (d *BlobStoreGCS) Delete(txn types.Txn, key []byte) error {
	if d.Store == nil {
		return objectstore.ErrNotStarted
	}
	return d.Store.Delete(txn, key)
}

// gcsBucket is the objectstore.Backend of a BlobStoreGCS
type gcsBucket struct {
	store *BlobStoreGCS
}

func (b *gcsBucket) Get(ctx context.Context, key string) ([]byte, error) {
	d := b.store
	if d.bucket == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	r, err := d.bucket.Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, types.ErrBlobKeyNotFound
		}
		d.logger.Errorf("gcs get %q failed: %v", key, err)
		return nil, err
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		d.logger.Errorf("gcs read %q failed: %v", key, err)
		return nil, err
	}
	d.observe("get", len(data))
	return data, nil
}

func (b *gcsBucket) Put(ctx context.Context, key string, value []byte) error {
	d := b.store
	if d.bucket == nil {
		return types.ErrBlobStoreUnavailable
	}
	w := d.bucket.Object(key).NewWriter(ctx)
	if _, err := w.Write(value); err != nil {
		_ = w.Close()
		d.logger.Errorf("gcs put %q failed: %v", key, err)
		return err
	}
	// The object is only written once the writer is closed
	if err := w.Close(); err != nil {
		d.logger.Errorf("gcs put %q failed: %v", key, err)
		return err
	}
	d.observe("put", len(value))
	return nil
}

func (b *gcsBucket) Delete(ctx context.Context, key string) error {
	d := b.store
	if d.bucket == nil {
		return types.ErrBlobStoreUnavailable
	}
	err := d.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		d.logger.Errorf("gcs delete %q failed: %v", key, err)
		return err
	}
	d.observe("delete", 0)
	return nil
}
