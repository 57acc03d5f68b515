package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RecoveryAshes/catalogcrawl/internal/catalog"
	"github.com/RecoveryAshes/catalogcrawl/internal/crawlers"
)

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
crawl:
  max_retries: 5
  retry_backoff: 250ms
  flush_every: 100
scroll:
  interval: 200ms
  threshold: 4
store:
  backend: sqlite
  dir: data
postprocess:
  endpoint: http://crop.local/api
logging:
  no_color: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Crawl.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Crawl.RetryBackoff)
	assert.Equal(t, 100, cfg.Crawl.FlushEvery)
	assert.Equal(t, "sqlite", cfg.Store.Backend)

	// 未配置的项保持默认值
	assert.Equal(t, 30*time.Second, cfg.Crawl.NavTimeout)
	assert.True(t, cfg.Crawl.ContinueOnError)
	assert.Equal(t, "page", cfg.Paginate.PageParam)
	assert.Equal(t, 20, cfg.PostProcess.Window)
	assert.Equal(t, 60*time.Second, cfg.PostProcess.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.LogConfig().NoColor)
	assert.Equal(t, 10, cfg.LogConfig().MaxSize)

	opts := cfg.StrategyOptions()
	assert.Equal(t, 200*time.Millisecond, opts.Stabilizer.Interval)
	assert.Equal(t, 4, opts.Stabilizer.Threshold)
	assert.Equal(t, float64(1000), opts.ScrollStep)
	assert.Equal(t, float64(-20), opts.Nudge)
	assert.Equal(t, 500, opts.MaxPages)

	assert.Equal(t, filepath.Join("data", "cropped_images.db.json"), cfg.ImageCachePath())
	assert.Equal(t, filepath.Join("data", "checkpoints"), cfg.CheckpointDir())
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("文件不存在", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("格式错误", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("crawl: [unclosed"), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestConfig_StrategyOptionsDefaults(t *testing.T) {
	opts := (&Config{}).StrategyOptions()
	def := crawlers.DefaultStrategyOptions()

	assert.Equal(t, def.PageParam, opts.PageParam)
	assert.Equal(t, def.MaxIterations, opts.MaxIterations)
	assert.Equal(t, def.Stabilizer.Threshold, opts.Stabilizer.Threshold)
}

func TestConfig_ImageCachePathOverride(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Dir: "db"}, PostProcess: PostProcessConfig{CacheFile: "/tmp/crops.json"}}
	assert.Equal(t, "/tmp/crops.json", cfg.ImageCachePath())
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	t.Run("json", func(t *testing.T) {
		store, err := OpenStore(StoreConfig{Backend: "json", Dir: dir})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &catalog.JSONStore{}, store)
	})

	t.Run("sqlite默认路径", func(t *testing.T) {
		store, err := OpenStore(StoreConfig{Backend: "SQLite", Dir: filepath.Join(dir, "nested")})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &catalog.SQLiteStore{}, store)
		assert.FileExists(t, filepath.Join(dir, "nested", "catalog.sqlite"))
	})

	t.Run("未知后端", func(t *testing.T) {
		_, err := OpenStore(StoreConfig{Backend: "badger", Dir: dir})
		assert.Error(t, err)
	})
}
