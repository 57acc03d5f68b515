package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/RecoveryAshes/catalogcrawl/internal/crawlers"
	"github.com/RecoveryAshes/catalogcrawl/internal/postprocess"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

// Config 应用程序配置
type Config struct {
	Crawl       CrawlConfig       `mapstructure:"crawl"`
	Scroll      ScrollConfig      `mapstructure:"scroll"`
	Paginate    PaginateConfig    `mapstructure:"paginate"`
	Store       StoreConfig       `mapstructure:"store"`
	PostProcess PostProcessConfig `mapstructure:"postprocess"`
	Resource    ResourceConfig    `mapstructure:"resource"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Report      ReportConfig      `mapstructure:"report"`
}

// CrawlConfig 爬取配置
type CrawlConfig struct {
	SitesFile        string        `mapstructure:"sites_file"`
	HeadersFile      string        `mapstructure:"headers_file"`
	Driver           string        `mapstructure:"driver"` // 非空时覆盖所有站点的驱动
	Headless         bool          `mapstructure:"headless"`
	ControlURL       string        `mapstructure:"control_url"`
	IgnoreCertErrors bool          `mapstructure:"ignore_cert_errors"`
	NavTimeout       time.Duration `mapstructure:"nav_timeout"`
	QuietTimeout     time.Duration `mapstructure:"quiet_timeout"`
	IdleWindow       time.Duration `mapstructure:"idle_window"`
	MaxRetries       int           `mapstructure:"max_retries"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	SiteDelay        time.Duration `mapstructure:"site_delay"`
	FlushEvery       int           `mapstructure:"flush_every"`
	ContinueOnError  bool          `mapstructure:"continue_on_error"`
	Resume           bool          `mapstructure:"resume"`
}

// ScrollConfig 无限滚动默认参数
type ScrollConfig struct {
	Step          float64       `mapstructure:"step"`
	Nudge         float64       `mapstructure:"nudge"`
	MaxIterations int           `mapstructure:"max_iterations"`
	Interval      time.Duration `mapstructure:"interval"`
	Threshold     int           `mapstructure:"threshold"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// PaginateConfig 分页默认参数
type PaginateConfig struct {
	PageParam       string `mapstructure:"page_param"`
	MaxPages        int    `mapstructure:"max_pages"`
	SkipFailedPages bool   `mapstructure:"skip_failed_pages"`
}

// StoreConfig 商品目录存储配置
type StoreConfig struct {
	Backend    string `mapstructure:"backend"` // json 或 sqlite
	Dir        string `mapstructure:"dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// PostProcessConfig 图片后处理配置
type PostProcessConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Endpoint   string        `mapstructure:"endpoint"`
	Window     int           `mapstructure:"window"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	Burst      int           `mapstructure:"burst"`
	MaxRetries int           `mapstructure:"max_retries"`
	CacheFile  string        `mapstructure:"cache_file"`
}

// ResourceConfig 资源监控配置
type ResourceConfig struct {
	SafetyReserveMemory int           `mapstructure:"safety_reserve_memory"` // MB
	CPULoadThreshold    int           `mapstructure:"cpu_load_threshold"`
	RecycleOnPressure   string        `mapstructure:"recycle_on_pressure"`
	MonitorInterval     time.Duration `mapstructure:"monitor_interval"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	NoColor  bool           `mapstructure:"no_color"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// ReportConfig 运行报告配置
type ReportConfig struct {
	Dir     string `mapstructure:"dir"`
	Summary bool   `mapstructure:"summary"`
}

// LoadConfig 加载配置文件,文件不存在时使用默认值
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".catalogcrawl"))
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.sites_file", "sites/index.json")
	v.SetDefault("crawl.headers_file", "configs/headers.yaml")
	v.SetDefault("crawl.driver", "")
	v.SetDefault("crawl.headless", true)
	v.SetDefault("crawl.control_url", "")
	v.SetDefault("crawl.ignore_cert_errors", false)
	v.SetDefault("crawl.nav_timeout", "30s")
	v.SetDefault("crawl.quiet_timeout", "10s")
	v.SetDefault("crawl.idle_window", "500ms")
	v.SetDefault("crawl.max_retries", crawlers.DefaultMaxRetries)
	v.SetDefault("crawl.retry_backoff", "2s")
	v.SetDefault("crawl.site_delay", "0s")
	v.SetDefault("crawl.flush_every", 0)
	v.SetDefault("crawl.continue_on_error", true)
	v.SetDefault("crawl.resume", false)

	v.SetDefault("scroll.step", 1000)
	v.SetDefault("scroll.nudge", -20)
	v.SetDefault("scroll.max_iterations", 200)
	v.SetDefault("scroll.interval", "1s")
	v.SetDefault("scroll.threshold", crawlers.DefaultStableThreshold)
	v.SetDefault("scroll.timeout", "5m")

	v.SetDefault("paginate.page_param", "page")
	v.SetDefault("paginate.max_pages", 500)
	v.SetDefault("paginate.skip_failed_pages", false)

	v.SetDefault("store.backend", "json")
	v.SetDefault("store.dir", "db")
	v.SetDefault("store.sqlite_path", "")

	v.SetDefault("postprocess.enabled", false)
	v.SetDefault("postprocess.endpoint", "")
	v.SetDefault("postprocess.window", postprocess.DefaultWindow)
	v.SetDefault("postprocess.timeout", "60s")
	v.SetDefault("postprocess.rate_limit", 0)
	v.SetDefault("postprocess.burst", 1)
	v.SetDefault("postprocess.max_retries", 0)
	v.SetDefault("postprocess.cache_file", "")

	v.SetDefault("resource.safety_reserve_memory", 512)
	v.SetDefault("resource.cpu_load_threshold", 200)
	v.SetDefault("resource.recycle_on_pressure", crawlers.PressureCritical)
	v.SetDefault("resource.monitor_interval", "5s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.log_dir", "logs")
	v.SetDefault("logging.no_color", false)
	v.SetDefault("logging.rotation.max_size", 10)
	v.SetDefault("logging.rotation.max_backups", 3)
	v.SetDefault("logging.rotation.max_age", 28)
	v.SetDefault("logging.rotation.compress", true)

	v.SetDefault("report.dir", "reports")
	v.SetDefault("report.summary", true)
}

// LogConfig 转换为日志配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
		NoColor:    c.Logging.NoColor,
	}
}

// StrategyOptions 转换为导航策略默认参数
func (c *Config) StrategyOptions() crawlers.StrategyOptions {
	opts := crawlers.DefaultStrategyOptions()
	if c.Crawl.QuietTimeout > 0 {
		opts.QuietTimeout = c.Crawl.QuietTimeout
	}
	if c.Paginate.PageParam != "" {
		opts.PageParam = c.Paginate.PageParam
	}
	if c.Paginate.MaxPages > 0 {
		opts.MaxPages = c.Paginate.MaxPages
	}
	opts.SkipFailedPages = c.Paginate.SkipFailedPages

	if c.Scroll.Step > 0 {
		opts.ScrollStep = c.Scroll.Step
	}
	opts.Nudge = c.Scroll.Nudge
	if c.Scroll.MaxIterations > 0 {
		opts.MaxIterations = c.Scroll.MaxIterations
	}
	if c.Scroll.Threshold > 0 {
		opts.Stabilizer.Threshold = c.Scroll.Threshold
	}
	opts.Stabilizer.Interval = c.Scroll.Interval
	if c.Scroll.Timeout > 0 {
		opts.Stabilizer.Timeout = c.Scroll.Timeout
	}
	return opts
}

// ImageCachePath 返回图片旁路缓存文件路径
func (c *Config) ImageCachePath() string {
	if c.PostProcess.CacheFile != "" {
		return c.PostProcess.CacheFile
	}
	return filepath.Join(c.Store.Dir, "cropped_images.db.json")
}

// CheckpointDir 返回检查点目录
func (c *Config) CheckpointDir() string {
	return filepath.Join(c.Store.Dir, "checkpoints")
}
