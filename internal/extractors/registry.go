// Package extractors 站点提取器注册表与通用选择器提取器
package extractors

import (
	"fmt"
	"sort"
	"sync"

	"github.com/RecoveryAshes/catalogcrawl/internal/crawlers"
	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

// Factory 根据站点配置构建提取器
type Factory func(site models.SiteConfig) (crawlers.Extractor, error)

// Registry 站点名到提取器的映射
// 未注册的站点使用由selectors构建的通用提取器
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register 注册站点专用提取器,同名覆盖
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names 返回已注册的站点名
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve 返回站点的提取器
func (r *Registry) Resolve(site models.SiteConfig) (crawlers.Extractor, error) {
	r.mu.RLock()
	f, ok := r.factories[site.Name]
	r.mu.RUnlock()

	if ok {
		ex, err := f(site)
		if err != nil {
			return nil, &models.ConfigError{Site: site.Name, Cause: fmt.Errorf("构建提取器失败: %w", err)}
		}
		return ex, nil
	}

	if site.Selectors.Item == "" {
		return nil, &models.ConfigError{Site: site.Name, Cause: fmt.Errorf("没有注册的提取器,且未配置selectors.item")}
	}
	return NewSelectorExtractor(site), nil
}
