package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/catalogcrawl/internal/config"
	"github.com/RecoveryAshes/catalogcrawl/internal/core"
	"github.com/RecoveryAshes/catalogcrawl/internal/crawlers"
	"github.com/RecoveryAshes/catalogcrawl/internal/extractors"
	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "验证站点索引与HTTP头部配置",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		utils.Info("🔍 验证HTTP头部配置...")
		hm, err := loadHeaders()
		if err != nil {
			return err
		}
		if _, err := hm.GetHeaders(); err != nil {
			return fmt.Errorf("头部配置验证失败: %w", err)
		}
		utils.Infof("✅ 当前有效的HTTP头部: %s", hm.SafeString())

		utils.Infof("🔍 验证站点索引: %s", appConfig.Crawl.SitesFile)
		sites, err := config.LoadSites(appConfig.Crawl.SitesFile)
		if err != nil {
			return err
		}

		invalid := ValidateSites(os.Stdout, sites, appConfig, extractors.NewRegistry())
		if invalid > 0 {
			return fmt.Errorf("%d个站点配置无效", invalid)
		}
		utils.Info("✅ 配置验证通过!")
		return nil
	},
}

// ValidateSites 校验每个站点能否构建导航策略和提取器,输出结果表并返回无效站点数
func ValidateSites(w io.Writer, sites []models.SiteConfig, cfg *core.Config, registry *extractors.Registry) int {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"站点", "策略", "驱动", "入口页", "状态"})

	invalid := 0
	for _, site := range sites {
		if cfg.Crawl.Driver != "" {
			site.Driver = models.DriverKind(cfg.Crawl.Driver)
		}

		status := "✅"
		if err := validateSite(site, cfg, registry); err != nil {
			status = "❌ " + err.Error()
			invalid++
		} else if site.Done {
			status = "✅ (done)"
		}
		t.AppendRow(table.Row{site.Name, site.NavigationStrategy, site.Driver, len(site.RootPages), status})
	}

	t.AppendFooter(table.Row{"合计", "", "", len(sites), fmt.Sprintf("无效%d", invalid)})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return invalid
}

func validateSite(site models.SiteConfig, cfg *core.Config, registry *extractors.Registry) error {
	if err := site.Validate(); err != nil {
		return err
	}
	if _, err := crawlers.NewStrategy(site, cfg.StrategyOptions()); err != nil {
		return err
	}
	_, err := registry.Resolve(site)
	return err
}
