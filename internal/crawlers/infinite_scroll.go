package crawlers

import (
	"context"
	"time"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

// InfiniteScroll 客户端无限滚动策略
// 每轮执行一次滚动/展开,然后把增长指标交给稳定性检测器;
// 稳定或达到最大轮数时返回页面上的全部商品
type InfiniteScroll struct {
	ItemSelector   string
	Metric         MetricKind
	RevealSelector string  // 非空时点击该元素代替滚动
	Step           float64 // 每轮滚动距离(像素)
	Nudge          float64 // 首次滚动前的反向微调(像素,负数)
	MaxIterations  int
	QuietTimeout   time.Duration
	Stabilizer     StabilizerConfig
}

// Kind 实现Strategy接口
func (s *InfiniteScroll) Kind() models.NavigationKind {
	return models.NavInfiniteScroll
}

// Advance 实现Strategy接口
func (s *InfiniteScroll) Advance(ctx context.Context, d Driver, st *NavState) (Step, error) {
	if st.Done {
		return Step{Done: true, Reason: "done"}, nil
	}
	if st.Detector == nil {
		st.Detector = NewStabilizer(s.Stabilizer)
	}

	if !st.started {
		if err := d.Navigate(ctx, st.Root.URL); err != nil {
			return Step{}, err
		}
		if err := d.WaitForQuiet(ctx, s.QuietTimeout); err != nil {
			utils.Debugf("等待网络空闲未完成,继续处理: %v", err)
		}
		// 部分懒加载只在滚动方向变化时触发
		if s.Nudge != 0 && s.RevealSelector == "" {
			if err := d.ScrollOrReveal(ctx, Action{DeltaY: s.Nudge}); err != nil {
				return Step{}, err
			}
		}
		st.started = true
	}

	if err := d.ScrollOrReveal(ctx, s.action()); err != nil {
		return Step{}, err
	}
	if err := d.WaitForQuiet(ctx, s.QuietTimeout); err != nil {
		utils.Debugf("等待网络空闲未完成,继续处理: %v", err)
	}
	if err := utils.SleepContext(ctx, s.Stabilizer.Interval); err != nil {
		return Step{}, err
	}

	value, err := d.ReadMetric(ctx, Metric{Kind: s.Metric, Selector: s.ItemSelector})
	if err != nil {
		return Step{}, err
	}

	st.Iteration++
	verdict := st.Detector.Observe(value)
	utils.Debugf("滚动第%d轮: 指标=%.0f 连续不变=%d", st.Iteration, value, verdict.Unchanged)

	reason := string(verdict.Reason)
	if !verdict.Stable {
		if s.MaxIterations <= 0 || st.Iteration < s.MaxIterations {
			return Step{}, nil
		}
		reason = "max_iterations"
		utils.Warnf("达到最大滚动轮数 %d, 使用已加载内容: %s", s.MaxIterations, st.Root.URL)
	}

	items, err := d.QueryAll(ctx, s.ItemSelector)
	if err != nil {
		return Step{}, err
	}
	st.Done = true
	utils.Infof("滚动结束(%s): %d轮, %d个商品", reason, st.Iteration, len(items))
	return Step{Items: items, Done: true, Reason: reason}, nil
}

func (s *InfiniteScroll) action() Action {
	if s.RevealSelector != "" {
		return Action{ClickSelector: s.RevealSelector}
	}
	return Action{DeltaY: s.Step}
}
