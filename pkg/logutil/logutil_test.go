// Copyright 2022 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLogConfigAdjust(t *testing.T) {
	cfg := &LogConfig{}
	cfg.Adjust()
	require.Equal(t, defaultLogLevel, cfg.Level)
	require.Equal(t, defaultLogFormat, cfg.Format)
	require.Equal(t, defaultMaxSize, cfg.MaxSize)

	cfg = &LogConfig{Level: "error", Format: "json", MaxSize: 64}
	cfg.Adjust()
	require.Equal(t, "error", cfg.Level)
	require.Equal(t, "json", cfg.Format)
	require.Equal(t, 64, cfg.MaxSize)
}

func TestLogConfigGetter(t *testing.T) {
	cfg := &LogConfig{Level: "debug", Format: "console"}
	cfg.Adjust()
	require.Equal(t, zapcore.DebugLevel, cfg.getLevel().Level())
	require.NotNil(t, cfg.getEncoder())
	require.NotNil(t, cfg.getSyncer())

	// bogus level falls back to info instead of failing setup
	cfg = &LogConfig{Level: "noisy"}
	require.Equal(t, zapcore.InfoLevel, cfg.getLevel().Level())
}

func TestGlobalLoggerNeverNil(t *testing.T) {
	require.NotNil(t, GetGlobalLogger())
	SetupLogger(&LogConfig{Level: "warn"})
	require.NotNil(t, GetGlobalLogger())
}
