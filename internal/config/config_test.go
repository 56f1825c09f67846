package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	fctx "github.com/ryogrid/ftsengine/internal/context"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err) // explicit path that doesn't exist is an error
	_ = cfg

	cfg, err = Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultPort, cfg.Port)
	require.Equal(t, fctx.EncodingUTF8, cfg.Encoding)
	require.Equal(t, DefaultMaxIdleWorkers, cfg.MaxIdleWorkers)
}

func TestLoadFromTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ftsengine.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = 12345
encoding = "s"
max_idle_workers = 8
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 12345, cfg.Port)
	require.Equal(t, fctx.EncodingSJIS, cfg.Encoding)
	require.Equal(t, 8, cfg.MaxIdleWorkers)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ftsengine.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = 1\n"), 0o644))

	changes := make(chan int, 4)
	stop := make(chan struct{})
	go Watch(path, stop, func(cfg *Config, err error) {
		if err == nil {
			changes <- cfg.Port
		}
	})
	defer close(stop)

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("port = 2\n"), 0o644))

	select {
	case port := <-changes:
		require.Equal(t, 2, port)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
