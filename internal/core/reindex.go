package core

import (
	"context"
	"fmt"

	"github.com/RecoveryAshes/catalogcrawl/internal/catalog"
	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

// ReindexResult 单个站点的重建结果
type ReindexResult struct {
	Site   string
	Before int
	After  int
}

// Collapsed 返回因ID冲突合并掉的记录数
func (r ReindexResult) Collapsed() int {
	return r.Before - r.After
}

// ReindexSite 重新规范化站点商品目录的URL并重算ID,结果覆盖原目录
func ReindexSite(ctx context.Context, store catalog.Store, site models.SiteConfig) (ReindexResult, error) {
	result := ReindexResult{Site: site.Name}

	products, err := store.Load(ctx, site.DBFile)
	if err != nil {
		return result, fmt.Errorf("加载商品目录失败 [%s]: %w", site.DBFile, err)
	}
	result.Before = len(products)

	rebuilt := catalog.Reindex(products, site.BaseOrigin())
	result.After = len(rebuilt)

	if err := store.Save(ctx, site.DBFile, rebuilt); err != nil {
		return result, fmt.Errorf("保存商品目录失败 [%s]: %w", site.DBFile, err)
	}

	utils.Infof("✅ 重建ID完成 [%s]: %d → %d (合并%d条)", site.Name, result.Before, result.After, result.Collapsed())
	return result, nil
}

// ReindexAll 依次重建所有站点,返回遇到的第一个错误
func ReindexAll(ctx context.Context, store catalog.Store, sites []models.SiteConfig) ([]ReindexResult, error) {
	var results []ReindexResult
	var firstErr error
	for _, site := range sites {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		r, err := ReindexSite(ctx, store, site)
		if err != nil {
			utils.Errorf("重建ID失败 [%s]: %v", site.Name, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		results = append(results, r)
	}
	return results, firstErr
}
