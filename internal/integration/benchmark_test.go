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

package integration_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/suidex/database"
	"github.com/blinklabs-io/suidex/database/plugin"
	"github.com/blinklabs-io/suidex/fetcher"
	"github.com/blinklabs-io/suidex/ingest"
	"github.com/blinklabs-io/suidex/internal/test/testutil"
	"github.com/blinklabs-io/suidex/layout"
	"github.com/blinklabs-io/suidex/liveness"
	"github.com/blinklabs-io/suidex/query"
)

const benchCheckpoints = 50

type testBackend struct {
	name   string
	config func(tb testing.TB) *database.Config
}

// getTestBackends returns the storage backends to benchmark. Cloud backends
// are included when credentials are available.
func getTestBackends(tb testing.TB) []testBackend {
	backends := []testBackend{
		{
			name: "memory",
			config: func(testing.TB) *database.Config {
				return &database.Config{
					BlobPlugin:     "badger",
					MetadataPlugin: "sqlite",
				}
			},
		},
		{
			name: "disk",
			config: func(tb testing.TB) *database.Config {
				return &database.Config{
					BlobPlugin:     "badger",
					MetadataPlugin: "sqlite",
					DataDir:        filepath.Join(tb.TempDir(), "data"),
				}
			},
		},
	}
	// Use a path prefix per benchmark for isolation
	testPrefix := strings.ReplaceAll(tb.Name(), "/", "-")
	if hasGCSCredentials() {
		testBucket := os.Getenv("SUIDEX_TEST_GCS_BUCKET")
		if testBucket == "" {
			testBucket = "suidex-test-bucket"
		}
		backends = append(backends, cloudBackend("gcs", testBucket, testPrefix))
	}
	if hasS3Credentials() {
		testBucket := os.Getenv("SUIDEX_TEST_S3_BUCKET")
		if testBucket == "" {
			testBucket = "suidex-test-bucket"
		}
		backends = append(backends, cloudBackend("s3", testBucket, testPrefix))
	}
	return backends
}

func cloudBackend(pluginName, bucket, prefix string) testBackend {
	return testBackend{
		name: pluginName,
		config: func(tb testing.TB) *database.Config {
			for name, value := range map[string]string{"bucket": bucket, "prefix": prefix} {
				if err := plugin.SetPluginOption(plugin.PluginTypeBlob, pluginName, name, value); err != nil {
					tb.Fatalf("failed to set %s option %s: %v", pluginName, name, err)
				}
			}
			return &database.Config{
				BlobPlugin:     pluginName,
				MetadataPlugin: "sqlite",
			}
		},
	}
}

// buildChain returns a chain with benchCheckpoints checkpoints of mints,
// transfers and burns
func buildChain(tb testing.TB) *testutil.Chain {
	chain := testutil.NewChain(tb)
	for i := 0; chain.LatestSequence() < benchCheckpoints; i++ {
		sender := chain.Accounts[i%len(chain.Accounts)]
		receiver := chain.Accounts[(i+1)%len(chain.Accounts)]
		nft, _ := chain.MintNFT(sender)
		if i%2 == 0 {
			chain.BurnNFT(sender, nft)
		} else {
			coins := chain.GasCoins(sender)
			chain.TransferObject(sender, nft, coins[len(coins)-1], receiver)
		}
	}
	return chain
}

// ingestChain runs a pipeline until every checkpoint of chain is committed
func ingestChain(
	tb testing.TB,
	db *database.Database,
	chain *testutil.Chain,
	resolver *layout.Resolver,
) {
	p := ingest.New(
		db,
		fetcher.New(chain.Source),
		ingest.WithResolver(resolver),
		ingest.WithPollInterval(time.Millisecond),
	)
	ctx, cancel := context.WithCancel(tb.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- p.Run(ctx)
	}()
	err := liveness.WaitUntil(
		ctx,
		time.Millisecond,
		func(context.Context) (bool, error) {
			wm, ok := p.Watermark()
			return ok && wm >= chain.LatestSequence(), nil
		},
	)
	cancel()
	if runErr := <-errCh; runErr != nil {
		tb.Fatalf("pipeline failed: %v", runErr)
	}
	if err != nil {
		tb.Fatalf("ingestion did not finish: %v", err)
	}
}

func openDatabase(tb testing.TB, backend testBackend) *database.Database {
	db, err := database.New(backend.config(tb))
	if err != nil {
		tb.Fatalf("failed to create database with %s backend: %v", backend.name, err)
	}
	return db
}

// BenchmarkIngest benchmarks indexing a chain from genesis
func BenchmarkIngest(b *testing.B) {
	chain := buildChain(b)
	resolver := layout.NewResolver(chain.Source)
	for _, backend := range getTestBackends(b) {
		b.Run(backend.name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				db := openDatabase(b, backend)
				ingestChain(b, db, chain, resolver)
				if err := db.Close(); err != nil {
					b.Fatalf("failed to close database: %v", err)
				}
			}
		})
	}
}

// BenchmarkQueryTransactions benchmarks paging through the transactions of
// one sender
func BenchmarkQueryTransactions(b *testing.B) {
	chain := buildChain(b)
	resolver := layout.NewResolver(chain.Source)
	sender := chain.Accounts[0].String()
	for _, backend := range getTestBackends(b) {
		b.Run(backend.name, func(b *testing.B) {
			db := openDatabase(b, backend)
			defer db.Close()
			ingestChain(b, db, chain, resolver)
			engine := query.New(db, query.WithResolver(resolver))
			limit := 2
			b.ReportAllocs()
			for b.Loop() {
				var cursor *string
				for {
					page, err := engine.QueryTransactions(
						b.Context(),
						query.FromAddress(sender),
						cursor,
						&limit,
						false,
					)
					if err != nil {
						b.Fatalf("query failed: %v", err)
					}
					if !page.HasNextPage {
						break
					}
					cursor = page.NextCursor
				}
			}
		})
	}
}

// BenchmarkGetObject benchmarks reading a gas coin with its parsed content
func BenchmarkGetObject(b *testing.B) {
	chain := buildChain(b)
	resolver := layout.NewResolver(chain.Source)
	coins := chain.GasCoins(chain.Accounts[0])
	for _, backend := range getTestBackends(b) {
		b.Run(backend.name, func(b *testing.B) {
			db := openDatabase(b, backend)
			defer db.Close()
			ingestChain(b, db, chain, resolver)
			engine := query.New(db, query.WithResolver(resolver))
			b.ReportAllocs()
			i := 0
			for b.Loop() {
				id := coins[i%len(coins)]
				i++
				if _, err := engine.GetObject(
					b.Context(),
					id.String(),
					nil,
					query.ObjectOptions{ShowContent: true},
				); err != nil {
					b.Fatalf("get object %s failed: %v", id, err)
				}
			}
			b.ReportMetric(float64(len(coins)), "objects")
		})
	}
}
