package crawlers

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnsupported = errors.New("驱动不支持该操作")
	ErrNoMatch     = errors.New("选择器未匹配到元素")
)

// MetricKind 增长指标类型
type MetricKind string

const (
	MetricItemCount    MetricKind = "items"  // 匹配选择器的元素数量
	MetricScrollHeight MetricKind = "height" // 文档滚动高度(像素)
)

// Metric 描述要读取的增长指标
type Metric struct {
	Kind     MetricKind
	Selector string // MetricItemCount时使用
}

// Action 滚动或展开动作
// ClickSelector非空时点击该元素(如"加载更多"按钮),否则按DeltaY滚动
type Action struct {
	DeltaY        float64
	ClickSelector string
}

// Handle 页面元素句柄,对提取器不透明
// selector为空时作用于元素自身
type Handle interface {
	Text(ctx context.Context, selector string) (string, error)
	Attr(ctx context.Context, selector, name string) (string, error)
}

// Driver 页面驱动
// 同一个Driver实例在一个站点的所有入口页之间顺序复用,不支持并发导航
type Driver interface {
	Navigate(ctx context.Context, url string) error

	// WaitForQuiet 等待网络空闲,超时后直接返回
	WaitForQuiet(ctx context.Context, timeout time.Duration) error

	QueryAll(ctx context.Context, selector string) ([]Handle, error)
	ReadMetric(ctx context.Context, metric Metric) (float64, error)
	ScrollOrReveal(ctx context.Context, action Action) error
	Close() error
}
