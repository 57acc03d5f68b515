package crawlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

// fakeHandle 测试用元素句柄,键为选择器,属性键为 "选择器@属性"
type fakeHandle struct {
	texts map[string]string
	attrs map[string]string
}

func (h *fakeHandle) Text(_ context.Context, selector string) (string, error) {
	if v, ok := h.texts[selector]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoMatch, selector)
}

func (h *fakeHandle) Attr(_ context.Context, selector, name string) (string, error) {
	if v, ok := h.attrs[selector+"@"+name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s[%s]", ErrNoMatch, selector, name)
}

func handles(n int) []Handle {
	out := make([]Handle, n)
	for i := range out {
		out[i] = &fakeHandle{texts: map[string]string{"": fmt.Sprintf("item-%d", i+1)}}
	}
	return out
}

// fakeDriver 脚本化的页面驱动
type fakeDriver struct {
	mu sync.Mutex

	itemSelector  string
	emptySelector string

	// 分页: URL -> 商品数;空状态URL集合;导航失败次数
	pages    map[string]int
	empty    map[string]bool
	navFails map[string]int

	// 无限滚动: 依次返回的指标,用尽后重复最后一个
	metrics []float64
	items   int

	current     string
	navigated   []string
	scrolls     []Action
	metricReads int
	panicOnRead bool
}

func (d *fakeDriver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigated = append(d.navigated, url)
	if d.navFails[url] > 0 {
		d.navFails[url]--
		return &models.NavigationError{URL: url, Status: 503, Cause: fmt.Errorf("Service Unavailable")}
	}
	d.current = url
	return nil
}

func (d *fakeDriver) WaitForQuiet(_ context.Context, _ time.Duration) error {
	return nil
}

func (d *fakeDriver) QueryAll(_ context.Context, selector string) ([]Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch selector {
	case d.emptySelector:
		if d.empty[d.current] {
			return handles(1), nil
		}
		return nil, nil
	case "body":
		text := "catalog"
		if d.empty[d.current] {
			text = "No products were found"
		}
		return []Handle{&fakeHandle{texts: map[string]string{"": text}}}, nil
	case d.itemSelector:
		if d.pages != nil {
			return handles(d.pages[d.current]), nil
		}
		return handles(d.items), nil
	}
	return nil, nil
}

func (d *fakeDriver) ReadMetric(_ context.Context, _ Metric) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.panicOnRead {
		panic("渲染进程崩溃")
	}
	if len(d.metrics) == 0 {
		return 0, nil
	}
	idx := d.metricReads
	if idx >= len(d.metrics) {
		idx = len(d.metrics) - 1
	}
	d.metricReads++
	return d.metrics[idx], nil
}

func (d *fakeDriver) ScrollOrReveal(_ context.Context, action Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scrolls = append(d.scrolls, action)
	return nil
}

func (d *fakeDriver) Close() error {
	return nil
}
