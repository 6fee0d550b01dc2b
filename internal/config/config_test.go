// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code.hybscloud.com/conds/internal/config"
	"code.hybscloud.com/conds/internal/logging"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "log_level: debug\nwarn: deferred\nmetrics: true\n")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "deferred", cfg.Warn)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	cfg, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := config.Load(writeFile(t, "log_levle: debug\n"))
	assert.Error(t, err)
}

func TestLoad_RejectsBadLevels(t *testing.T) {
	_, err := config.Load(writeFile(t, "warn: sometimes\n"))
	assert.ErrorContains(t, err, "invalid warn level")

	_, err = config.Load(writeFile(t, "log_level: loud\n"))
	assert.ErrorContains(t, err, "invalid log level")
}

func TestOptions(t *testing.T) {
	cfg := config.Default()
	opts, err := cfg.Options(logging.NewNop())
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	cfg.Warn = "bogus"
	_, err = cfg.Options(logging.NewNop())
	assert.Error(t, err)
}
