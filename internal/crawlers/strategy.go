package crawlers

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

// Step 一次推进的结果
type Step struct {
	Items  []Handle
	Done   bool
	Reason string // 结束原因,仅Done时有意义
}

// NavState 单个入口页的导航状态,每个入口页新建,结束后丢弃
type NavState struct {
	Root models.RootPage

	// 分页
	Page int

	// 无限滚动
	Iteration int
	Detector  *Stabilizer
	started   bool

	Done bool
}

// NewNavState 创建入口页导航状态
func NewNavState(root models.RootPage) *NavState {
	return &NavState{Root: root, Page: 1}
}

// Strategy 导航策略
// Advance每次推进一步;返回错误时状态保持在当前位置,可直接重试
type Strategy interface {
	Kind() models.NavigationKind
	Advance(ctx context.Context, d Driver, st *NavState) (Step, error)
}

// Skipper 可选接口: 重试耗尽后跳过当前位置继续
type Skipper interface {
	SkipFailed(st *NavState) bool
}

// StrategyOptions 策略的全局默认参数
type StrategyOptions struct {
	QuietTimeout time.Duration

	// 分页
	PageParam       string
	MaxPages        int
	SkipFailedPages bool

	// 无限滚动
	ScrollStep    float64
	Nudge         float64
	MaxIterations int
	Stabilizer    StabilizerConfig
}

// DefaultStrategyOptions 默认策略参数
func DefaultStrategyOptions() StrategyOptions {
	return StrategyOptions{
		QuietTimeout:  10 * time.Second,
		PageParam:     "page",
		MaxPages:      500,
		ScrollStep:    1000,
		Nudge:         -20,
		MaxIterations: 200,
		Stabilizer: StabilizerConfig{
			Interval:  time.Second,
			Threshold: DefaultStableThreshold,
			Timeout:   5 * time.Minute,
		},
	}
}

// NewStrategy 根据站点配置构建导航策略,站点级配置覆盖全局默认值
func NewStrategy(site models.SiteConfig, opts StrategyOptions) (Strategy, error) {
	switch site.NavigationStrategy {
	case models.NavPaginated:
		p := &Paginated{
			ItemSelector:    site.Selectors.Item,
			EmptySelector:   site.Selectors.EmptyState,
			PageParam:       opts.PageParam,
			MaxPages:        opts.MaxPages,
			SkipFailedPages: opts.SkipFailedPages,
			QuietTimeout:    opts.QuietTimeout,
			Settle:          opts.Stabilizer,
		}
		p.Settle.Threshold = 0
		if o := site.Pagination; o != nil {
			if o.PageParam != "" {
				p.PageParam = o.PageParam
			}
			if o.MaxPages > 0 {
				p.MaxPages = o.MaxPages
			}
			p.EmptyText = o.EmptyText
			p.SkipFailedPages = p.SkipFailedPages || o.SkipFailedPages
			p.Settle.Threshold = o.SettleThreshold
		}
		if p.ItemSelector == "" {
			return nil, fmt.Errorf("分页策略缺少商品选择器")
		}
		return p, nil

	case models.NavInfiniteScroll:
		s := &InfiniteScroll{
			ItemSelector:  site.Selectors.Item,
			Metric:        MetricItemCount,
			Step:          opts.ScrollStep,
			Nudge:         opts.Nudge,
			MaxIterations: opts.MaxIterations,
			QuietTimeout:  opts.QuietTimeout,
			Stabilizer:    opts.Stabilizer,
		}
		if o := site.Scroll; o != nil {
			if o.Step > 0 {
				s.Step = o.Step
			}
			if o.Nudge != 0 {
				s.Nudge = o.Nudge
			}
			if o.MaxIterations > 0 {
				s.MaxIterations = o.MaxIterations
			}
			if o.Threshold > 0 {
				s.Stabilizer.Threshold = o.Threshold
			}
			if o.Metric == string(MetricScrollHeight) {
				s.Metric = MetricScrollHeight
			}
			s.RevealSelector = o.RevealSelector
		}
		if s.ItemSelector == "" {
			return nil, fmt.Errorf("无限滚动策略缺少商品选择器")
		}
		return s, nil

	default:
		return nil, fmt.Errorf("未知的导航策略: %q", site.NavigationStrategy)
	}
}
