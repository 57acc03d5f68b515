package core

import (
	"net/http"

	"github.com/RecoveryAshes/catalogcrawl/internal/config"
	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

const (
	// DefaultUserAgent 默认User-Agent
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/120.0.0.0 Safari/537.36"
)

// HeaderManager 管理请求头部,实现 models.HeaderProvider
// 优先级: 默认 < 配置文件 < 命令行
type HeaderManager struct {
	defaults http.Header
	config   http.Header
	cli      http.Header

	validator    *utils.HeaderValidator
	redactor     *utils.HeaderRedactor
	configLoader *config.HeaderConfigLoader
	loaded       bool
}

// NewHeaderManager 创建头部管理器,configFile为空时使用默认路径
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	cli, err := models.CliHeaders(cliHeaders).Parse()
	if err != nil {
		return nil, err
	}

	return &HeaderManager{
		defaults: http.Header{
			"User-Agent":      []string{DefaultUserAgent},
			"Accept":          []string{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Encoding": []string{"gzip, deflate, br"},
		},
		config:       make(http.Header),
		cli:          cli,
		validator:    utils.NewHeaderValidator(),
		redactor:     utils.NewHeaderRedactor(),
		configLoader: config.NewHeaderConfigLoader(configFile),
	}, nil
}

// LoadConfig 加载配置文件,已加载时跳过
func (hm *HeaderManager) LoadConfig() error {
	if hm.loaded {
		return nil
	}

	headerConfig, err := hm.configLoader.LoadConfig()
	if err != nil {
		utils.Errorf("加载HTTP头部配置失败: %v", err)
		return err
	}

	hm.config = make(http.Header)
	for name, value := range headerConfig.Headers {
		hm.config.Set(name, value)
	}
	hm.loaded = true

	if len(hm.config) > 0 {
		utils.Debugf("加载%d个HTTP头部配置: %s", len(hm.config), hm.redactor.RedactToString(hm.config))
	}
	return nil
}

// Validate 依次验证默认、配置文件、命令行头部
func (hm *HeaderManager) Validate() error {
	for _, layer := range []struct {
		name    string
		headers http.Header
	}{
		{"默认", hm.defaults},
		{"配置文件", hm.config},
		{"命令行", hm.cli},
	} {
		if err := hm.validator.Validate(layer.headers); err != nil {
			utils.Errorf("%s头部验证失败: %v", layer.name, err)
			return err
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并头部
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.config, hm.cli} {
		for name, values := range layer {
			result[name] = values
		}
	}
	return result
}

// SafeString 返回脱敏后的合并头部,用于日志
func (hm *HeaderManager) SafeString() string {
	return hm.redactor.RedactToString(hm.GetMergedHeaders())
}

// GetHeaders 实现 models.HeaderProvider 接口
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.LoadConfig(); err != nil {
		return nil, err
	}
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	return hm.GetMergedHeaders(), nil
}
