package postprocess

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

// DefaultWindow 每个窗口并发处理的图片数
const DefaultWindow = 20

// ImageService 图片处理服务
type ImageService interface {
	Process(ctx context.Context, imageURL string) (string, error)
}

// Stats 处理统计
type Stats struct {
	Total     int `json:"total"`     // 去重后的图片数
	Cached    int `json:"cached"`    // 已在缓存中
	Processed int `json:"processed"` // 本次写入缓存
	Empty     int `json:"empty"`     // 服务未返回结果
	Failed    int `json:"failed"`
}

// Processor 按窗口并发调用图片服务
// 每个窗口结束后保存缓存,中断后已完成的窗口不会重复提交
type Processor struct {
	service      ImageService
	cache        *Cache
	window       int
	showProgress bool
}

// NewProcessor 创建处理器,window<=0时使用DefaultWindow
func NewProcessor(service ImageService, cache *Cache, window int, showProgress bool) *Processor {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Processor{service: service, cache: cache, window: window, showProgress: showProgress}
}

// pendingImages 收集未缓存的图片URL,保持首次出现的顺序
func (p *Processor) pendingImages(products []models.Product, stats *Stats) []string {
	seen := make(map[string]bool)
	var pending []string
	for _, prod := range products {
		src := models.Deref(prod.ImageURL)
		if src == "" || seen[src] {
			continue
		}
		seen[src] = true
		stats.Total++
		if _, ok := p.cache.Get(src); ok {
			stats.Cached++
			continue
		}
		pending = append(pending, src)
	}
	return pending
}

// Run 处理一个商品目录中的全部图片
// 单张图片失败只计数;context结束时保存已完成的结果并返回错误
func (p *Processor) Run(ctx context.Context, products []models.Product) (Stats, error) {
	var stats Stats
	pending := p.pendingImages(products, &stats)
	if len(pending) == 0 {
		utils.Infof("没有需要处理的图片 (共%d张, 已缓存%d张)", stats.Total, stats.Cached)
		return stats, nil
	}

	utils.Infof("开始处理图片: 待处理%d张, 已缓存%d张, 窗口=%d", len(pending), stats.Cached, p.window)
	var bar interface{ Add(int) error }
	if p.showProgress {
		bar = utils.NewProgressBar(len(pending), "处理图片")
	}

	for start := 0; start < len(pending); start += p.window {
		end := min(start+p.window, len(pending))
		windowStats := p.runWindow(ctx, pending[start:end])

		stats.Processed += windowStats.Processed
		stats.Empty += windowStats.Empty
		stats.Failed += windowStats.Failed

		if err := p.cache.Save(); err != nil {
			return stats, err
		}
		if bar != nil {
			bar.Add(end - start)
		}
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("图片处理已中止: %w", err)
		}
	}

	utils.Infof("图片处理完成: 新增%d, 空结果%d, 失败%d", stats.Processed, stats.Empty, stats.Failed)
	return stats, nil
}

func (p *Processor) runWindow(ctx context.Context, batch []string) Stats {
	var (
		stats   Stats
		results = make([]string, len(batch))
		errs    = make([]error, len(batch))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.window)
	for i, src := range batch {
		i, src := i, src
		g.Go(func() error {
			results[i], errs[i] = p.service.Process(gctx, src)
			return nil
		})
	}
	_ = g.Wait()

	for i, src := range batch {
		switch {
		case errs[i] != nil:
			stats.Failed++
			utils.Warnf("处理图片失败 [%s]: %v", src, errs[i])
		case results[i] == "":
			stats.Empty++
		default:
			p.cache.Set(src, results[i])
			stats.Processed++
		}
	}
	return stats
}
