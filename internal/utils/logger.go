package utils

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 全局日志器,未初始化时为空操作
var Logger zerolog.Logger

const (
	MainLogFile  = "catalog_crawler.log"
	ErrorLogFile = "catalog_crawler_error.log"
)

// 爬取上下文字段,所有站点和入口页日志使用同一组键名
const (
	FieldApp   = "app"
	FieldRunID = "run_id"
	FieldSite  = "site"
	FieldRoot  = "root"
	FieldFacet = "facet"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string // trace, debug, info, warn, error
	LogDir     string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // 天
	Compress   bool

	NoColor bool      // 控制台输出不带颜色,重定向到文件时使用
	Console io.Writer // 为nil时使用标准输出
}

// DefaultLogConfig 默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		LogDir:     "logs",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

func (c LogConfig) rotatingFile(name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(c.LogDir, name),
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

// InitLogger 初始化全局日志器
// 控制台与主日志接收全部级别,错误日志只接收error及以上
func InitLogger(config LogConfig) error {
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return err
	}

	level, levelErr := zerolog.ParseLevel(config.Level)
	if levelErr != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	console := config.Console
	if console == nil {
		console = os.Stdout
	}

	writer := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{
			Out:          console,
			TimeFormat:   time.DateTime,
			NoColor:      config.NoColor,
			PartsExclude: []string{zerolog.CallerFieldName},
		},
		config.rotatingFile(MainLogFile),
		&FilteredWriter{Writer: config.rotatingFile(ErrorLogFile), MinLevel: zerolog.ErrorLevel},
	)

	Logger = zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Str(FieldApp, "catalogcrawl").
		Logger()
	log.Logger = Logger

	if levelErr != nil {
		Logger.Warn().Str("level", config.Level).Msg("无法识别的日志级别,使用info")
	}
	Logger.Debug().
		Str("level", level.String()).
		Str("log_dir", config.LogDir).
		Msg("日志系统初始化完成")

	return nil
}

// FilteredWriter 过滤写入器,仅写入指定级别及以上的日志
type FilteredWriter struct {
	Writer   io.Writer
	MinLevel zerolog.Level
}

// Write 实现io.Writer接口,无级别信息的写入直接丢弃
func (w *FilteredWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

// WriteLevel 带级别的写入
func (w *FilteredWriter) WriteLevel(level zerolog.Level, p []byte) (n int, err error) {
	if level >= w.MinLevel {
		return w.Writer.Write(p)
	}
	return len(p), nil
}

// WithSite 返回附带站点和运行ID字段的子日志器,runID为空时省略
func WithSite(site, runID string) zerolog.Logger {
	ctx := Logger.With().Str(FieldSite, site)
	if runID != "" {
		ctx = ctx.Str(FieldRunID, runID)
	}
	return ctx.Logger()
}

// WithRoot 在站点日志器上附加入口页字段,facet为空时省略
func WithRoot(parent zerolog.Logger, root, facet string) zerolog.Logger {
	ctx := parent.With().Str(FieldRoot, root)
	if facet != "" {
		ctx = ctx.Str(FieldFacet, facet)
	}
	return ctx.Logger()
}

func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Infof(format string, args ...interface{}) {
	Logger.Info().Msgf(format, args...)
}

// Error 记录带错误对象的错误日志
func Error(err error, msg string) {
	Logger.Error().Err(err).Msg(msg)
}

func Errorf(format string, args ...interface{}) {
	Logger.Error().Msgf(format, args...)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Warnf(format string, args ...interface{}) {
	Logger.Warn().Msgf(format, args...)
}

func Debugf(format string, args ...interface{}) {
	Logger.Debug().Msgf(format, args...)
}
