package crawlers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

// Paginated 服务端分页策略
// 第1页为入口URL本身,第n页在查询参数中设置页码;
// 遇到空状态信号或零商品即结束,页码只增不减
type Paginated struct {
	ItemSelector    string
	EmptySelector   string // 空状态元素选择器
	EmptyText       string // 页面正文包含该文本视为空状态
	PageParam       string
	MaxPages        int
	SkipFailedPages bool
	QuietTimeout    time.Duration
	Settle          StabilizerConfig // Threshold>0时查询前等待商品数稳定
}

// Kind 实现Strategy接口
func (p *Paginated) Kind() models.NavigationKind {
	return models.NavPaginated
}

// PageURL 构造第n页URL
func (p *Paginated) PageURL(root string, n int) (string, error) {
	if n <= 1 {
		return root, nil
	}
	u, err := url.Parse(root)
	if err != nil {
		return "", fmt.Errorf("解析入口URL失败: %w", err)
	}
	q := u.Query()
	q.Set(p.PageParam, strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Advance 实现Strategy接口
func (p *Paginated) Advance(ctx context.Context, d Driver, st *NavState) (Step, error) {
	if st.Done {
		return Step{Done: true, Reason: "done"}, nil
	}
	if st.Page < 1 {
		st.Page = 1
	}
	if p.MaxPages > 0 && st.Page > p.MaxPages {
		st.Done = true
		utils.Warnf("达到最大页数 %d, 停止翻页: %s", p.MaxPages, st.Root.URL)
		return Step{Done: true, Reason: "max_pages"}, nil
	}

	pageURL, err := p.PageURL(st.Root.URL, st.Page)
	if err != nil {
		return Step{}, err
	}

	utils.Debugf("请求第%d页: %s", st.Page, pageURL)
	if err := d.Navigate(ctx, pageURL); err != nil {
		return Step{}, err
	}
	if err := d.WaitForQuiet(ctx, p.QuietTimeout); err != nil {
		utils.Debugf("等待网络空闲未完成,继续处理: %v", err)
	}

	if p.Settle.Threshold > 0 {
		stab := NewStabilizer(p.Settle)
		verdict, err := stab.Await(ctx, func(ctx context.Context) (float64, error) {
			return d.ReadMetric(ctx, Metric{Kind: MetricItemCount, Selector: p.ItemSelector})
		})
		if err != nil {
			utils.Debugf("商品数稳定检测失败,继续处理: %v", err)
		} else {
			utils.Debugf("第%d页商品数稳定: %.0f (%s)", st.Page, verdict.Last, verdict.Reason)
		}
	}

	empty, err := p.isEmptyState(ctx, d)
	if err != nil {
		return Step{}, err
	}
	if empty {
		st.Done = true
		utils.Infof("第%d页为空状态,翻页结束", st.Page)
		return Step{Done: true, Reason: "empty_state"}, nil
	}

	items, err := d.QueryAll(ctx, p.ItemSelector)
	if err != nil {
		return Step{}, err
	}
	if len(items) == 0 {
		st.Done = true
		utils.Infof("第%d页没有商品,翻页结束", st.Page)
		return Step{Done: true, Reason: "no_items"}, nil
	}

	st.Page++
	return Step{Items: items}, nil
}

// SkipFailed 实现Skipper接口
func (p *Paginated) SkipFailed(st *NavState) bool {
	if !p.SkipFailedPages || st.Done {
		return false
	}
	utils.Warnf("跳过失败的第%d页: %s", st.Page, st.Root.URL)
	st.Page++
	return true
}

func (p *Paginated) isEmptyState(ctx context.Context, d Driver) (bool, error) {
	if p.EmptySelector != "" {
		found, err := d.QueryAll(ctx, p.EmptySelector)
		if err != nil {
			return false, err
		}
		if len(found) > 0 {
			return true, nil
		}
	}

	if p.EmptyText != "" {
		bodies, err := d.QueryAll(ctx, "body")
		if err != nil {
			return false, err
		}
		for _, b := range bodies {
			text, err := b.Text(ctx, "")
			if err != nil {
				continue
			}
			if strings.Contains(text, p.EmptyText) {
				return true, nil
			}
		}
	}
	return false, nil
}
