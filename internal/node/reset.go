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

package node

import (
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/suidex/database"
	"github.com/blinklabs-io/suidex/internal/config"
)

// Reset removes all indexed checkpoints and the watermark from the
// configured store. Payloads in the blob store are left in place and are
// overwritten by re-ingestion.
func Reset(cfg *config.Config, logger *slog.Logger) error {
	db, err := database.New(&database.Config{
		Logger:         logger,
		BlobPlugin:     cfg.BlobPlugin,
		MetadataPlugin: cfg.MetadataPlugin,
		DataDir:        cfg.DatabasePath,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	watermark, ok, err := db.GetLatestCheckpointSequenceNumber(nil)
	if err != nil {
		return fmt.Errorf("reading watermark: %w", err)
	}
	if err := db.Reset(); err != nil {
		return fmt.Errorf("resetting database: %w", err)
	}
	if ok {
		logger.Info(
			fmt.Sprintf("removed indexed data up to checkpoint %d", watermark),
			"component", "node",
		)
	} else {
		logger.Info("database was already empty", "component", "node")
	}
	return nil
}
