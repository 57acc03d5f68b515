package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/catalogcrawl/internal/config"
	"github.com/RecoveryAshes/catalogcrawl/internal/core"
	"github.com/RecoveryAshes/catalogcrawl/internal/extractors"
	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string
	sitesFile  string

	// HTTP头部参数
	headers []string

	// 爬取参数
	resume     bool
	driverKind string
	headless   bool
	noImages   bool

	// 加载后的配置,由PersistentPreRunE设置
	appConfig *core.Config
)

var rootCmd = &cobra.Command{
	Use:   "catalogcrawl [site]",
	Short: "商品目录爬取工具",
	Long: `catalogcrawl - 电商商品列表爬取、提取与增量合并工具

按站点索引逐个站点爬取商品列表页,支持:
  • 分页翻页与无限滚动两种导航策略
  • 浏览器驱动(go-rod)与静态驱动(Colly)
  • 内容寻址ID与增量合并,重复运行不产生重复记录
  • 检查点续爬
  • 远程图片裁剪后处理
  • 自定义HTTP请求头

示例:
  # 爬取站点索引中所有未完成的站点
  catalogcrawl crawl

  # 只爬取指定站点(忽略done标记)
  catalogcrawl crawl acme-fashion --resume

  # 使用自定义头部
  catalogcrawl crawl -H "Cookie: country=US" -H "Accept-Language: en-US"

  # 处理已有目录中的图片
  catalogcrawl images

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	Args:    cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		applyFlagOverrides(cmd, cfg)

		logConfig := cfg.LogConfig()
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}
		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		appConfig = cfg
		return nil
	},
	RunE: runCrawl,
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [site]",
	Short: "爬取站点商品目录",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCrawl,
}

var imagesCmd = &cobra.Command{
	Use:   "images [site]",
	Short: "对已保存的商品目录执行图片后处理",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runImages,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [site]",
	Short: "规范化已保存目录的URL并重算商品ID",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReindex,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	// 不需要加载配置
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("catalogcrawl %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

// applyFlagOverrides 命令行参数覆盖配置文件
func applyFlagOverrides(cmd *cobra.Command, cfg *core.Config) {
	flags := cmd.Flags()
	if sitesFile != "" {
		cfg.Crawl.SitesFile = sitesFile
	}
	if flags.Changed("resume") {
		cfg.Crawl.Resume = resume
	}
	if driverKind != "" {
		cfg.Crawl.Driver = driverKind
	}
	if flags.Changed("headless") {
		cfg.Crawl.Headless = headless
	}
	if noImages {
		cfg.PostProcess.Enabled = false
	}
}

// signalContext 收到中断信号时取消,当前入口页以已收集的数据结束
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			utils.Warnf("收到中断信号: %v, 正在保存已收集的数据...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// selectSites 加载站点索引并按可选的站点名称过滤
func selectSites(args []string) ([]models.SiteConfig, error) {
	sites, err := config.LoadSites(appConfig.Crawl.SitesFile)
	if err != nil {
		return nil, err
	}
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	return config.FilterSites(sites, name)
}

func loadHeaders() (*core.HeaderManager, error) {
	hm, err := core.NewHeaderManager(appConfig.Crawl.HeadersFile, headers)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	return hm, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	sites, err := selectSites(args)
	if err != nil {
		return err
	}

	hm, err := loadHeaders()
	if err != nil {
		return err
	}
	hdrs, err := hm.GetHeaders()
	if err != nil {
		return fmt.Errorf("HTTP头部配置无效: %w", err)
	}
	utils.Debugf("HTTP头部: %s", hm.SafeString())

	store, err := core.OpenStore(appConfig.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	pool := core.NewDriverPool(appConfig, hdrs)
	defer func() {
		if err := pool.Close(); err != nil {
			utils.Warnf("关闭浏览器失败: %v", err)
		}
	}()

	orchestrator := core.NewOrchestrator(appConfig, store, extractors.NewRegistry(), pool)
	if appConfig.PostProcess.Enabled {
		runner, err := core.NewImageRunner(appConfig, store, nil)
		if err != nil {
			return fmt.Errorf("创建图片处理器失败: %w", err)
		}
		orchestrator.SetAfterSite(runner.AfterSite())
	}

	report := orchestrator.RunAll(ctx, sites)
	if n := pool.BrowserRestarts(); n > 0 {
		utils.Infof("浏览器因资源压力重启%d次", n)
	}

	reporter := utils.NewReporter(appConfig.Report.Dir)
	if _, err := reporter.SaveRunReport(report); err != nil {
		utils.Errorf("保存运行报告失败: %v", err)
	}
	if appConfig.Report.Summary {
		reporter.PrintSummary(os.Stdout, report)
	}

	if failed := report.Count(models.SiteFailed); failed > 0 {
		return fmt.Errorf("%d个站点失败", failed)
	}
	utils.Info("✨ 爬取任务完成!")
	return nil
}

func runImages(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	sites, err := selectSites(args)
	if err != nil {
		return err
	}

	store, err := core.OpenStore(appConfig.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	runner, err := core.NewImageRunner(appConfig, store, nil)
	if err != nil {
		return fmt.Errorf("创建图片处理器失败: %w", err)
	}

	stats, err := runner.Run(ctx, sites)
	fmt.Printf("图片: %d, 已缓存: %d, 新处理: %d, 空结果: %d, 失败: %d\n",
		stats.Total, stats.Cached, stats.Processed, stats.Empty, stats.Failed)
	return err
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	sites, err := selectSites(args)
	if err != nil {
		return err
	}

	store, err := core.OpenStore(appConfig.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	results, err := core.ReindexAll(ctx, store, sites)
	for _, r := range results {
		fmt.Printf("%s: %d → %d\n", r.Site, r.Before, r.After)
	}
	return err
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVarP(&sitesFile, "sites", "s", "", "站点索引文件 (默认 "+config.DefaultSitesFile+")")
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")

	// 爬取参数,根命令与crawl子命令共用
	for _, c := range []*cobra.Command{rootCmd, crawlCmd} {
		c.Flags().BoolVar(&resume, "resume", false, "从检查点恢复,跳过已完成的入口页")
		c.Flags().StringVar(&driverKind, "driver", "", "覆盖所有站点的驱动 (browser|static)")
		c.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
		c.Flags().BoolVar(&noImages, "no-images", false, "本次运行跳过图片后处理")
	}

	rootCmd.AddCommand(crawlCmd, imagesCmd, reindexCmd, validateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
