package core

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/RecoveryAshes/catalogcrawl/internal/crawlers"
	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

// DriverFactory 为站点打开页面驱动
type DriverFactory interface {
	Open(ctx context.Context, site models.SiteConfig) (crawlers.Driver, error)
	Close() error
}

// DriverPool 按站点驱动类型创建驱动
// 浏览器在站点之间共享,首次需要时才启动
type DriverPool struct {
	cfg     *Config
	headers http.Header

	mu      sync.Mutex
	monitor *crawlers.ResourceMonitor
	browser *crawlers.BrowserManager
}

// NewDriverPool 创建驱动池
func NewDriverPool(cfg *Config, headers http.Header) *DriverPool {
	return &DriverPool{cfg: cfg, headers: headers}
}

// Open 实现DriverFactory接口
func (p *DriverPool) Open(ctx context.Context, site models.SiteConfig) (crawlers.Driver, error) {
	switch site.Driver {
	case models.DriverStatic:
		return crawlers.NewStaticDriver(crawlers.StaticDriverConfig{
			Timeout:          p.cfg.Crawl.NavTimeout,
			IgnoreCertErrors: p.cfg.Crawl.IgnoreCertErrors,
			Headers:          p.headers,
		})
	case models.DriverBrowser, "":
		return p.browserManager().Open(ctx)
	default:
		return nil, fmt.Errorf("未知的驱动类型: %q", site.Driver)
	}
}

func (p *DriverPool) browserManager() *crawlers.BrowserManager {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser == nil {
		rc := p.cfg.Resource
		p.monitor = crawlers.NewResourceMonitor(crawlers.ResourceMonitorConfig{
			SafetyReserveMemory: int64(rc.SafetyReserveMemory) * 1024 * 1024,
			CPULoadThreshold:    rc.CPULoadThreshold,
			RecycleOnPressure:   rc.RecycleOnPressure,
		})
		if rc.MonitorInterval > 0 {
			p.monitor.StartMonitoring(rc.MonitorInterval)
		}
		p.browser = crawlers.NewBrowserManager(crawlers.BrowserConfig{
			Headless:         p.cfg.Crawl.Headless,
			ControlURL:       p.cfg.Crawl.ControlURL,
			IgnoreCertErrors: p.cfg.Crawl.IgnoreCertErrors,
			NavTimeout:       p.cfg.Crawl.NavTimeout,
			IdleWindow:       p.cfg.Crawl.IdleWindow,
			Headers:          p.headers,
		}, p.monitor)
	}
	return p.browser
}

// BrowserRestarts 返回浏览器因资源压力重启的次数
func (p *DriverPool) BrowserRestarts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser == nil {
		return 0
	}
	return p.browser.Restarts()
}

// Close 实现DriverFactory接口
func (p *DriverPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.monitor != nil {
		p.monitor.StopMonitoring()
	}
	if p.browser != nil {
		return p.browser.Close()
	}
	return nil
}
