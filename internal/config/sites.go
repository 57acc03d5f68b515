package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

// DefaultSitesFile 默认站点索引路径
const DefaultSitesFile = "sites/index.json"

// LoadSites 加载站点索引
// .json 按JSON解析,.yaml/.yml 按YAML解析;每个站点都会被规范化,但不做校验,
// 无效站点在运行时单独失败
func LoadSites(path string) ([]models.SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: fmt.Errorf("读取站点索引失败: %w", err)}
	}
	if len(data) > MaxConfigFileSize {
		return nil, &models.ConfigError{FilePath: path, Cause: fmt.Errorf("站点索引过大: %d 字节", len(data))}
	}

	var sites []models.SiteConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &sites)
	default:
		err = json.Unmarshal(data, &sites)
	}
	if err != nil {
		return nil, &models.ConfigError{FilePath: path, Cause: fmt.Errorf("解析站点索引失败: %w", err)}
	}

	seen := make(map[string]bool, len(sites))
	for i := range sites {
		sites[i].Normalize()
		name := sites[i].Name
		if name != "" && seen[name] {
			return nil, &models.ConfigError{FilePath: path, Cause: fmt.Errorf("站点名称重复: %s", name)}
		}
		seen[name] = true
	}
	return sites, nil
}

// FilterSites 按名称选择站点
// name为空时返回全部站点;指定名称时只返回该站点,并忽略其done标记
func FilterSites(sites []models.SiteConfig, name string) ([]models.SiteConfig, error) {
	if name == "" {
		return sites, nil
	}
	for _, s := range sites {
		if s.Name == name {
			s.Done = false
			return []models.SiteConfig{s}, nil
		}
	}
	return nil, fmt.Errorf("站点不存在: %s", name)
}
