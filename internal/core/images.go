package core

import (
	"context"
	"fmt"
	"net/http"

	"github.com/RecoveryAshes/catalogcrawl/internal/catalog"
	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/postprocess"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

// ImageRunner 对站点商品目录执行图片后处理
// 所有站点共享同一个旁路缓存
type ImageRunner struct {
	store     catalog.Store
	processor *postprocess.Processor
	cache     *postprocess.Cache
}

// NewImageRunner 根据配置创建图片服务客户端并加载缓存
func NewImageRunner(cfg *Config, store catalog.Store, headers http.Header) (*ImageRunner, error) {
	client, err := postprocess.NewClient(postprocess.ClientConfig{
		Endpoint:   cfg.PostProcess.Endpoint,
		Timeout:    cfg.PostProcess.Timeout,
		RateLimit:  cfg.PostProcess.RateLimit,
		Burst:      cfg.PostProcess.Burst,
		MaxRetries: cfg.PostProcess.MaxRetries,
		Headers:    headers,
	})
	if err != nil {
		return nil, err
	}
	cache, err := postprocess.LoadCache(cfg.ImageCachePath())
	if err != nil {
		return nil, err
	}
	return newImageRunner(store, client, cache, cfg.PostProcess.Window, true), nil
}

func newImageRunner(store catalog.Store, service postprocess.ImageService, cache *postprocess.Cache, window int, showProgress bool) *ImageRunner {
	return &ImageRunner{
		store:     store,
		processor: postprocess.NewProcessor(service, cache, window, showProgress),
		cache:     cache,
	}
}

// ProcessProducts 处理一个站点的商品图片
func (r *ImageRunner) ProcessProducts(ctx context.Context, site models.SiteConfig, products []models.Product) (postprocess.Stats, error) {
	log := utils.WithSite(site.Name, "")
	stats, err := r.processor.Run(ctx, products)
	log.Info().
		Int("images", stats.Total).
		Int("cached", stats.Cached).
		Int("processed", stats.Processed).
		Int("empty", stats.Empty).
		Int("failed", stats.Failed).
		Msg("图片后处理完成")
	return stats, err
}

// AfterSite 返回供Orchestrator使用的站点完成回调
func (r *ImageRunner) AfterSite() SiteHook {
	return func(ctx context.Context, site models.SiteConfig, products []models.Product) error {
		_, err := r.ProcessProducts(ctx, site, products)
		return err
	}
}

// Run 读取各站点商品目录并处理图片,单个站点失败不影响其他站点
func (r *ImageRunner) Run(ctx context.Context, sites []models.SiteConfig) (postprocess.Stats, error) {
	var total postprocess.Stats
	var failed int

	for _, site := range sites {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		products, err := r.store.Load(ctx, site.DBFile)
		if err != nil {
			utils.Errorf("加载商品目录失败 [%s]: %v", site.Name, err)
			failed++
			continue
		}
		stats, err := r.ProcessProducts(ctx, site, products)
		total.Total += stats.Total
		total.Cached += stats.Cached
		total.Processed += stats.Processed
		total.Empty += stats.Empty
		total.Failed += stats.Failed
		if err != nil {
			return total, err
		}
	}

	utils.Infof("图片缓存共%d条", r.cache.Len())
	if failed > 0 {
		return total, fmt.Errorf("%d个站点的商品目录无法加载", failed)
	}
	return total, nil
}
