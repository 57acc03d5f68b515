package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
)

// 最低Go版本 (次版本号)
const minGoMinor = 22

func main() {
	fmt.Println("==============================================")
	fmt.Println("  catalogcrawl 环境验证")
	fmt.Println("==============================================")
	fmt.Println()

	allOK := true

	// 检查Go版本
	goVersion := runtime.Version()
	if minor, ok := goMinor(goVersion); ok && minor < minGoMinor {
		fmt.Printf("❌ Go版本: %s (需要 go1.%d+)\n", goVersion, minGoMinor)
		allOK = false
	} else {
		fmt.Printf("✅ Go版本: %s\n", goVersion)
	}

	fmt.Printf("✅ 操作系统: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	// 检查本地浏览器,浏览器驱动需要
	if path, found := launcher.LookPath(); found {
		fmt.Printf("✅ Chromium: %s\n", path)
	} else {
		fmt.Println("⚠️  未找到本地Chromium - 浏览器驱动首次启动时会自动下载")
		fmt.Println("   仅使用静态驱动(driver: static)时可忽略")
	}

	// 检查项目结构
	fmt.Println()
	fmt.Println("检查项目结构...")
	requiredPaths := []string{
		"go.mod",
		"cmd/catalogcrawl",
		"internal/catalog",
		"internal/config",
		"internal/core",
		"internal/crawlers",
		"internal/extractors",
		"internal/postprocess",
		"internal/models",
		"internal/utils",
	}
	for _, p := range requiredPaths {
		if _, err := os.Stat(p); err == nil {
			fmt.Printf("✅ %s\n", p)
		} else {
			fmt.Printf("❌ %s 不存在\n", p)
			allOK = false
		}
	}

	// 站点索引可在首次运行前创建
	if _, err := os.Stat("sites/index.json"); err != nil {
		fmt.Println("⚠️  sites/index.json 不存在 - 运行前需创建站点索引或使用 --sites 指定")
	}

	fmt.Println()
	fmt.Println("==============================================")
	if allOK {
		fmt.Println("✅ 环境验证通过!")
		fmt.Println()
		fmt.Println("下一步:")
		fmt.Println("  1. 运行 'go build ./cmd/catalogcrawl' 构建项目")
		fmt.Println("  2. 运行 './catalogcrawl validate' 检查站点索引")
		fmt.Println("  3. 运行 './catalogcrawl crawl' 开始爬取")
		os.Exit(0)
	}
	fmt.Println("❌ 环境验证失败,请解决上述问题。")
	os.Exit(1)
}

// goMinor 从 "go1.22.3" 这样的版本号中取出次版本号
func goMinor(version string) (int, bool) {
	rest, ok := strings.CutPrefix(version, "go1.")
	if !ok {
		return 0, false
	}
	if i := strings.IndexAny(rest, ".rc-beta "); i >= 0 {
		rest = rest[:i]
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}
