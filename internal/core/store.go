package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/catalogcrawl/internal/catalog"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

// OpenStore 根据配置打开商品目录存储
func OpenStore(cfg StoreConfig) (catalog.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "json":
		utils.Debugf("使用JSON目录存储: %s", cfg.Dir)
		return catalog.NewJSONStore(cfg.Dir), nil

	case "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.Dir, "catalog.sqlite")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("创建存储目录失败: %w", err)
		}
		utils.Debugf("使用SQLite目录存储: %s", path)
		return catalog.OpenSQLiteStore(path)

	default:
		return nil, fmt.Errorf("未知的存储后端: %q", cfg.Backend)
	}
}
