package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/RecoveryAshes/catalogcrawl/internal/catalog"
	"github.com/RecoveryAshes/catalogcrawl/internal/crawlers"
	"github.com/RecoveryAshes/catalogcrawl/internal/extractors"
	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

// SiteHook 站点完成后的附加处理,例如图片后处理
type SiteHook func(ctx context.Context, site models.SiteConfig, products []models.Product) error

// Orchestrator 站点爬取协调器
// 逐个站点、逐个入口页顺序执行,每个入口页完成后保存商品目录
type Orchestrator struct {
	cfg      *Config
	store    catalog.Store
	registry *extractors.Registry
	drivers  DriverFactory
	runID    string

	strategyOpts crawlers.StrategyOptions
	afterSite    SiteHook
}

// NewOrchestrator 创建协调器
func NewOrchestrator(cfg *Config, store catalog.Store, registry *extractors.Registry, drivers DriverFactory) *Orchestrator {
	return &Orchestrator{
		cfg:          cfg,
		store:        store,
		registry:     registry,
		drivers:      drivers,
		runID:        models.NewRunID(),
		strategyOpts: cfg.StrategyOptions(),
	}
}

// RunID 返回本次运行ID
func (o *Orchestrator) RunID() string {
	return o.runID
}

// SetAfterSite 设置站点完成后的附加处理
func (o *Orchestrator) SetAfterSite(hook SiteHook) {
	o.afterSite = hook
}

// RunAll 依次处理所有站点
// 单个站点的失败(包括panic)只记录在报告中,不影响后续站点
func (o *Orchestrator) RunAll(ctx context.Context, sites []models.SiteConfig) *models.RunReport {
	report := &models.RunReport{RunID: o.runID, StartTime: time.Now()}
	utils.Infof("🚀 开始运行 %s: %d个站点", o.runID, len(sites))

	for i, site := range sites {
		if ctx.Err() != nil {
			utils.Warnf("运行已取消,剩余%d个站点未处理", len(sites)-i)
			break
		}

		utils.Infof("==================== [%d/%d] %s ====================", i+1, len(sites), site.Name)

		if o.cfg.Crawl.Driver != "" {
			site.Driver = models.DriverKind(o.cfg.Crawl.Driver)
		}

		var result models.SiteResult
		if site.Done {
			utils.Infof("站点已标记完成,跳过: %s", site.Name)
			result = models.SiteResult{Name: site.Name, DBFile: site.DBFile, Status: models.SiteSkipped}
		} else {
			result = o.runSiteSafe(ctx, site)
		}
		report.Sites = append(report.Sites, result)

		if result.Status == models.SiteFailed {
			utils.Errorf("❌ 站点失败 [%s]: %v", site.Name, result.Errors)
			if !o.cfg.Crawl.ContinueOnError {
				utils.Warn("运行中止 (continue_on_error=false)")
				break
			}
		}

		if i < len(sites)-1 && o.cfg.Crawl.SiteDelay > 0 {
			if err := utils.SleepContext(ctx, o.cfg.Crawl.SiteDelay); err != nil {
				break
			}
		}
	}

	report.EndTime = time.Now()
	report.Duration = report.EndTime.Sub(report.StartTime).Seconds()
	utils.Infof("运行结束: 完成%d 部分%d 失败%d 跳过%d, 耗时%.1f秒",
		report.Count(models.SiteCompleted), report.Count(models.SitePartial),
		report.Count(models.SiteFailed), report.Count(models.SiteSkipped), report.Duration)
	return report
}

func (o *Orchestrator) runSiteSafe(ctx context.Context, site models.SiteConfig) (result models.SiteResult) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			utils.Errorf("站点处理panic [%s]: %v", site.Name, r)
			result.Name = site.Name
			result.DBFile = site.DBFile
			result.Status = models.SiteFailed
			result.Errors = append(result.Errors, fmt.Sprintf("panic: %v", r))
			result.StartedAt = started
			result.CompletedAt = time.Now()
			result.Duration = result.CompletedAt.Sub(started).Seconds()
		}
	}()
	return o.RunSite(ctx, site)
}

// siteRun 单个站点运行期间的状态
type siteRun struct {
	site   models.SiteConfig
	origin string
	log    zerolog.Logger

	products []models.Product
	stats    catalog.MergeStats
	result   *models.SiteResult
}

func (r *siteRun) fail(err error) {
	r.result.Errors = append(r.result.Errors, err.Error())
}

// RunSite 处理单个站点
func (o *Orchestrator) RunSite(ctx context.Context, site models.SiteConfig) models.SiteResult {
	result := models.SiteResult{Name: site.Name, DBFile: site.DBFile, StartedAt: time.Now()}
	finish := func(status models.SiteStatus) models.SiteResult {
		result.Status = status
		result.CompletedAt = time.Now()
		result.Duration = result.CompletedAt.Sub(result.StartedAt).Seconds()
		return result
	}

	run := &siteRun{site: site, result: &result, log: utils.WithSite(site.Name, o.runID)}

	if err := site.Validate(); err != nil {
		run.fail(err)
		return finish(models.SiteFailed)
	}
	strategy, err := crawlers.NewStrategy(site, o.strategyOpts)
	if err != nil {
		run.fail(&models.ConfigError{Site: site.Name, Cause: err})
		return finish(models.SiteFailed)
	}
	extractor, err := o.registry.Resolve(site)
	if err != nil {
		run.fail(err)
		return finish(models.SiteFailed)
	}

	existing, err := o.store.Load(ctx, site.DBFile)
	if err != nil {
		run.fail(fmt.Errorf("加载商品目录失败: %w", err))
		return finish(models.SiteFailed)
	}
	run.products = existing
	run.origin = site.BaseOrigin()
	result.Loaded = len(existing)
	run.log.Info().Int("loaded", len(existing)).Str("strategy", string(strategy.Kind())).Msg("开始处理站点")

	cpPath := filepath.Join(o.cfg.CheckpointDir(), models.CheckpointFilename(utils.SafeFileName(site.Name)))
	cp := o.loadCheckpoint(cpPath, site)

	driver, err := o.drivers.Open(ctx, site)
	if err != nil {
		run.fail(fmt.Errorf("打开页面驱动失败: %w", err))
		return finish(models.SiteFailed)
	}
	defer func() {
		if err := driver.Close(); err != nil {
			run.log.Warn().Err(err).Msg("关闭页面驱动失败")
		}
	}()

	pipeline := crawlers.NewPipeline(extractor, site.Name)
	clean := true

	for _, root := range site.RootPages {
		if ctx.Err() != nil {
			run.fail(ctx.Err())
			clean = false
			break
		}
		if cp.IsCompleted(root.URL) {
			run.log.Info().Str(utils.FieldRoot, root.URL).Msg("检查点显示已完成,跳过")
			result.Roots = append(result.Roots, models.RootResult{
				URL: root.URL, Facet: root.Facet, FinalState: models.StateDone, Resumed: true,
			})
			continue
		}

		rr := o.crawlRoot(ctx, run, driver, strategy, pipeline, root)

		if err := o.save(ctx, run); err != nil {
			rr.Partial = true
			rr.Error = err.Error()
		}
		result.Roots = append(result.Roots, rr)

		if rr.Partial {
			clean = false
			continue
		}
		cp.MarkCompleted(root.URL)
		if err := cp.SaveToFile(cpPath); err != nil {
			run.log.Warn().Err(err).Msg("保存检查点失败")
		}
	}

	result.Added = run.stats.Added
	result.Replaced = run.stats.Replaced
	result.Total = len(run.products)

	if o.afterSite != nil {
		if err := o.afterSite(ctx, site, run.products); err != nil {
			run.log.Warn().Err(err).Msg("站点附加处理失败")
			run.fail(err)
		}
	}

	status := models.SitePartial
	if clean {
		status = models.SiteCompleted
		if err := os.Remove(cpPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			run.log.Warn().Err(err).Msg("删除检查点失败")
		}
	}
	run.log.Info().
		Str("status", string(status)).
		Int("added", result.Added).
		Int("replaced", result.Replaced).
		Int("total", result.Total).
		Msg("站点处理结束")
	return finish(status)
}

func (o *Orchestrator) loadCheckpoint(path string, site models.SiteConfig) *models.Checkpoint {
	if o.cfg.Crawl.Resume {
		cp, err := models.LoadCheckpointFromFile(path)
		if err != nil {
			utils.Warnf("读取检查点失败 [%s], 从头开始: %v", path, err)
		} else if cp != nil {
			utils.Infof("从检查点恢复 [%s]: 已完成%d个入口页", site.Name, len(cp.CompletedRoots))
			cp.RunID = o.runID
			return cp
		}
	}
	now := time.Now()
	return &models.Checkpoint{RunID: o.runID, Site: site.Name, CreatedAt: now, UpdatedAt: now}
}

// crawlRoot 执行单个入口页的状态机
// START → NAVIGATING → EXTRACTING → MERGING → (NAVIGATING | DONE)
func (o *Orchestrator) crawlRoot(
	ctx context.Context,
	run *siteRun,
	driver crawlers.Driver,
	strategy crawlers.Strategy,
	pipeline *crawlers.Pipeline,
	root models.RootPage,
) (rr models.RootResult) {
	rr = models.RootResult{URL: root.URL, Facet: root.Facet, FinalState: models.StateStart}
	log := utils.WithRoot(run.log, root.URL, root.Facet)
	transition := func(s models.RootState) {
		if rr.FinalState != s {
			log.Debug().Str("from", string(rr.FinalState)).Str("state", string(s)).Msg("状态转换")
		}
		rr.FinalState = s
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("入口页处理panic: %v", r)
			rr.Partial = true
			rr.Error = fmt.Sprintf("panic: %v", r)
			rr.FinalState = models.StateDone
		}
	}()

	st := crawlers.NewNavState(root)
	retrier := crawlers.NewRetrier(o.cfg.Crawl.MaxRetries, o.cfg.Crawl.RetryBackoff)
	retrier.OnRetry = func(int, error) { transition(models.StateFailedRetrying) }

	// 本入口页内未落盘的记录数
	pending := 0

	for {
		transition(models.StateNavigating)
		var step crawlers.Step
		err := retrier.Do(ctx, fmt.Sprintf("推进 %s", root.URL), func(ctx context.Context) error {
			s, err := strategy.Advance(ctx, driver, st)
			if err != nil {
				return err
			}
			step = s
			return nil
		})
		if err != nil {
			if ctx.Err() == nil {
				if skipper, ok := strategy.(crawlers.Skipper); ok && skipper.SkipFailed(st) {
					log.Warn().Err(err).Msg("跳过失败位置继续")
					continue
				}
			}
			log.Error().Err(err).Msg("重试耗尽,以已收集数据结束入口页")
			rr.Partial = true
			rr.Error = err.Error()
			break
		}
		rr.Steps++

		if len(step.Items) > 0 {
			transition(models.StateExtracting)
			extracted := pipeline.Run(ctx, step.Items, root.Facet)
			rr.Extracted += len(extracted.Records)
			rr.Failed += extracted.Failed
			for _, e := range extracted.Errors {
				log.Debug().Err(e).Msg("元素提取失败")
			}

			transition(models.StateMerging)
			catalog.AssignIDs(extracted.Records, run.origin)
			merged, stats := catalog.Merge(run.products, extracted.Records)
			run.products = merged
			run.stats.Add(stats)
			log.Info().
				Int("items", len(step.Items)).
				Int("extracted", len(extracted.Records)).
				Int("failed", extracted.Failed).
				Int("added", stats.Added).
				Int("replaced", stats.Replaced).
				Msg("批次合并完成")

			pending += len(extracted.Records)
			if flush := o.cfg.Crawl.FlushEvery; flush > 0 && pending >= flush {
				if err := o.save(ctx, run); err != nil {
					log.Warn().Err(err).Msg("中途保存失败")
				} else {
					pending = 0
				}
			}
		}

		if step.Done {
			log.Info().Str("reason", step.Reason).Int("steps", rr.Steps).Msg("入口页结束")
			break
		}
	}

	transition(models.StateDone)
	return rr
}

// save 全量保存当前商品目录
func (o *Orchestrator) save(ctx context.Context, run *siteRun) error {
	if err := o.store.Save(ctx, run.site.DBFile, run.products); err != nil {
		err = fmt.Errorf("保存商品目录失败 [%s]: %w", run.site.DBFile, err)
		run.log.Error().Err(err).Msg("存储写入失败")
		run.fail(err)
		return err
	}
	run.log.Debug().Int("total", len(run.products)).Msg("商品目录已保存")
	return nil
}
