// Package config 加载站点索引和HTTP头部配置文件
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/viper"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

const (
	// DefaultHeadersFile 默认头部配置文件路径
	DefaultHeadersFile = "configs/headers.yaml"

	// MaxConfigFileSize 配置文件最大大小 (1MB)
	MaxConfigFileSize = 1 * 1024 * 1024
)

//go:embed headers_template.yaml
var defaultHeaderTemplate string

// HeaderConfigLoader 头部配置文件加载器
type HeaderConfigLoader struct {
	configPath string
}

// NewHeaderConfigLoader 创建头部配置文件加载器
func NewHeaderConfigLoader(configPath string) *HeaderConfigLoader {
	if configPath == "" {
		configPath = DefaultHeadersFile
	}
	return &HeaderConfigLoader{configPath: configPath}
}

// Path 返回配置文件路径
func (hcl *HeaderConfigLoader) Path() string {
	return hcl.configPath
}

// EnsureConfigExists 配置文件不存在时写入模板
func (hcl *HeaderConfigLoader) EnsureConfigExists() error {
	if _, err := os.Stat(hcl.configPath); !os.IsNotExist(err) {
		return nil
	}

	dir := filepath.Dir(hcl.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("无法创建配置目录 [%s]: %w", dir, err)
	}
	if err := os.WriteFile(hcl.configPath, []byte(defaultHeaderTemplate), 0644); err != nil {
		return fmt.Errorf("无法生成配置文件 [%s]: %w", hcl.configPath, err)
	}
	utils.Infof("已生成头部配置模板: %s", hcl.configPath)
	return nil
}

func (hcl *HeaderConfigLoader) validateFileSize() error {
	info, err := os.Stat(hcl.configPath)
	if err != nil {
		return fmt.Errorf("无法读取配置文件信息 [%s]: %w", hcl.configPath, err)
	}
	if info.Size() > MaxConfigFileSize {
		return &models.ConfigError{
			FilePath: hcl.configPath,
			Cause:    fmt.Errorf("配置文件过大: %d 字节 (最大 %d 字节)", info.Size(), MaxConfigFileSize),
		}
	}
	return nil
}

// LoadConfig 加载并解析头部配置
// 文件被其他进程锁定时返回空配置
func (hcl *HeaderConfigLoader) LoadConfig() (*models.HeaderConfig, error) {
	if err := hcl.EnsureConfigExists(); err != nil {
		return nil, err
	}
	if err := hcl.validateFileSize(); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(hcl.configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			utils.Warnf("配置文件被锁定 [%s], 使用默认头部", hcl.configPath)
			return &models.HeaderConfig{Headers: make(map[string]string)}, nil
		}
		return nil, &models.ConfigError{FilePath: hcl.configPath, Cause: err}
	}

	var cfg models.HeaderConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &models.ConfigError{FilePath: hcl.configPath, Cause: fmt.Errorf("配置绑定失败: %w", err)}
	}
	if cfg.Headers == nil {
		cfg.Headers = make(map[string]string)
	}
	return &cfg, nil
}
