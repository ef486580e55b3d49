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
	"fmt"
	"io"
	"log/slog"
)

// GcsLogger adapts a slog.Logger to printf-style calls. Formatting is skipped for
// disabled levels, since object keys are logged at debug on every request.
type GcsLogger struct {
	logger *slog.Logger
}

func NewGcsLogger(logger *slog.Logger) *GcsLogger {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &GcsLogger{
		logger: logger.With("component", "database", "plugin", "gcs"),
	}
}

func (l *GcsLogger) logf(level slog.Level, msg string, args ...any) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	l.logger.Log(ctx, level, fmt.Sprintf(msg, args...))
}

func (l *GcsLogger) Infof(msg string, args ...any) {
	l.logf(slog.LevelInfo, msg, args...)
}

func (l *GcsLogger) Warningf(msg string, args ...any) {
	l.logf(slog.LevelWarn, msg, args...)
}

func (l *GcsLogger) Debugf(msg string, args ...any) {
	l.logf(slog.LevelDebug, msg, args...)
}

func (l *GcsLogger) Errorf(msg string, args ...any) {
	l.logf(slog.LevelError, msg, args...)
}
