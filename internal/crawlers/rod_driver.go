package crawlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	Headless         bool
	ControlURL       string // 远程浏览器的DevTools地址,为空时本地启动
	IgnoreCertErrors bool
	NavTimeout       time.Duration
	IdleWindow       time.Duration // 无请求持续该时长视为网络空闲
	Headers          http.Header
}

// BrowserManager 浏览器生命周期管理
// 一个站点使用一个页面;站点之间内存压力过高时重启浏览器
type BrowserManager struct {
	config  BrowserConfig
	monitor *ResourceMonitor

	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	restarts int
}

// NewBrowserManager 创建浏览器管理器,monitor可为nil
func NewBrowserManager(config BrowserConfig, monitor *ResourceMonitor) *BrowserManager {
	if config.NavTimeout <= 0 {
		config.NavTimeout = 30 * time.Second
	}
	if config.IdleWindow <= 0 {
		config.IdleWindow = 500 * time.Millisecond
	}
	return &BrowserManager{config: config, monitor: monitor}
}

// launchBrowser 启动或连接浏览器
func (m *BrowserManager) launchBrowser() error {
	controlURL := m.config.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(m.config.Headless)
		if m.config.IgnoreCertErrors {
			l = l.Set("ignore-certificate-errors")
			utils.Debugf("浏览器启动参数: --ignore-certificate-errors")
		}

		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("启动浏览器失败: %w", err)
		}
		controlURL = u
		m.launcher = l
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("连接浏览器失败: %w", err)
	}
	m.browser = browser

	utils.Debugf("浏览器已启动: %s", controlURL)
	return nil
}

// closeBrowser 关闭浏览器,调用方需持有锁
func (m *BrowserManager) closeBrowser() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
		utils.Debugf("浏览器已关闭")
	}
	if m.launcher != nil {
		m.launcher.Cleanup()
		m.launcher = nil
	}
	return err
}

// Open 为一个站点打开新页面
func (m *BrowserManager) Open(ctx context.Context) (Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil && m.monitor != nil {
		if recycle, reason := m.monitor.ShouldRecycle(); recycle {
			utils.Warnf("资源压力(%s),重启浏览器", reason)
			if err := m.closeBrowser(); err != nil {
				utils.Warnf("关闭浏览器失败: %v", err)
			}
			m.restarts++
		}
	}

	if m.browser == nil {
		if err := m.launchBrowser(); err != nil {
			return nil, err
		}
	}

	page, err := m.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}

	if err := applyPageHeaders(page, m.config.Headers); err != nil {
		page.Close()
		return nil, err
	}

	return &RodDriver{
		page:       page,
		navTimeout: m.config.NavTimeout,
		idleWindow: m.config.IdleWindow,
	}, nil
}

// Restarts 返回因资源压力重启浏览器的次数
func (m *BrowserManager) Restarts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.restarts
}

// Close 关闭浏览器
func (m *BrowserManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeBrowser()
}

// applyPageHeaders 将自定义头部应用到页面
// User-Agent走专用接口;Accept-Encoding由浏览器自行协商
func applyPageHeaders(page *rod.Page, headers http.Header) error {
	var dict []string
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		switch strings.ToLower(name) {
		case "user-agent":
			if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: values[0]}); err != nil {
				return fmt.Errorf("设置User-Agent失败: %w", err)
			}
		case "accept-encoding":
		default:
			dict = append(dict, name, values[0])
		}
	}
	if len(dict) > 0 {
		if _, err := page.SetExtraHeaders(dict); err != nil {
			return fmt.Errorf("设置页面头部失败: %w", err)
		}
	}
	return nil
}

// RodDriver 基于rod的浏览器页面驱动
type RodDriver struct {
	page       *rod.Page
	navTimeout time.Duration
	idleWindow time.Duration
}

// Navigate 实现Driver接口
func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, d.navTimeout)
	defer cancel()

	p := d.page.Context(navCtx)

	// 必须在导航前订阅,只取主文档的响应
	status := 0
	waitResponse := p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return false
		}
		status = e.Response.Status
		return true
	})

	if err := p.Navigate(url); err != nil {
		return &models.NavigationError{URL: url, Cause: err}
	}
	if err := p.WaitLoad(); err != nil {
		return &models.NavigationError{URL: url, Cause: fmt.Errorf("等待页面加载失败: %w", err)}
	}
	waitResponse()
	return responseError(url, status)
}

// responseError 非成功状态码视为导航失败,0表示未收到主文档响应
func responseError(url string, status int) error {
	if status < http.StatusBadRequest {
		return nil
	}
	return &models.NavigationError{URL: url, Status: status, Cause: fmt.Errorf("%s", http.StatusText(status))}
}

// WaitForQuiet 实现Driver接口
// 超时返回context错误,调用方可忽略并继续
func (d *RodDriver) WaitForQuiet(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	wait := d.page.Context(waitCtx).WaitRequestIdle(d.idleWindow, nil, nil, nil)
	wait()
	return waitCtx.Err()
}

// QueryAll 实现Driver接口
func (d *RodDriver) QueryAll(ctx context.Context, selector string) ([]Handle, error) {
	els, err := d.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("查询元素失败 [%s]: %w", selector, err)
	}

	handles := make([]Handle, 0, len(els))
	for _, el := range els {
		handles = append(handles, &rodHandle{el: el})
	}
	return handles, nil
}

// ReadMetric 实现Driver接口
func (d *RodDriver) ReadMetric(ctx context.Context, metric Metric) (float64, error) {
	p := d.page.Context(ctx)

	var (
		res *proto.RuntimeRemoteObject
		err error
	)
	switch metric.Kind {
	case MetricItemCount:
		res, err = p.Eval(`(s) => document.querySelectorAll(s).length`, metric.Selector)
	case MetricScrollHeight:
		res, err = p.Eval(`() => document.documentElement.scrollHeight`)
	default:
		return 0, fmt.Errorf("读取%s指标: %w", metric.Kind, ErrUnsupported)
	}
	if err != nil {
		return 0, fmt.Errorf("读取页面指标失败: %w", err)
	}
	return res.Value.Num(), nil
}

// ScrollOrReveal 实现Driver接口
// 点击目标不存在时视为没有更多内容,不返回错误
func (d *RodDriver) ScrollOrReveal(ctx context.Context, action Action) error {
	if action.ClickSelector != "" {
		els, err := d.page.Context(ctx).Elements(action.ClickSelector)
		if err != nil {
			return fmt.Errorf("查询展开按钮失败: %w", err)
		}
		if els.Empty() {
			return nil
		}
		if err := els.First().Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("点击展开按钮失败: %w", err)
		}
		return nil
	}

	if err := d.page.Context(ctx).Mouse.Scroll(0, action.DeltaY, 1); err != nil {
		return fmt.Errorf("滚动页面失败: %w", err)
	}
	return nil
}

// Close 实现Driver接口
func (d *RodDriver) Close() error {
	return d.page.Close()
}

// rodHandle 浏览器元素句柄
type rodHandle struct {
	el *rod.Element
}

func (h *rodHandle) target(ctx context.Context, selector string) (*rod.Element, error) {
	el := h.el.Context(ctx)
	if selector == "" {
		return el, nil
	}
	found, err := el.Elements(selector)
	if err != nil {
		return nil, err
	}
	if found.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return found.First(), nil
}

// Text 实现Handle接口
func (h *rodHandle) Text(ctx context.Context, selector string) (string, error) {
	el, err := h.target(ctx, selector)
	if err != nil {
		return "", err
	}
	text, err := el.Text()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Attr 实现Handle接口
func (h *rodHandle) Attr(ctx context.Context, selector, name string) (string, error) {
	el, err := h.target(ctx, selector)
	if err != nil {
		return "", err
	}
	v, err := el.Attribute(name)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", fmt.Errorf("%w: %s[%s]", ErrNoMatch, selector, name)
	}
	return strings.TrimSpace(*v), nil
}
