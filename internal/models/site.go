package models

import (
	"fmt"
	"net/url"
	"strings"
)

// NavigationKind 导航策略类型
type NavigationKind string

const (
	NavPaginated      NavigationKind = "paginated"       // 服务端分页
	NavInfiniteScroll NavigationKind = "infinite_scroll" // 客户端无限滚动
)

// ParseNavigationKind 解析导航策略名称 (大小写及分隔符不敏感)
func ParseNavigationKind(s string) (NavigationKind, error) {
	normalized := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	switch normalized {
	case "paginated", "paginate", "pagination":
		return NavPaginated, nil
	case "infinitescroll", "scroll":
		return NavInfiniteScroll, nil
	default:
		return "", fmt.Errorf("未知的导航策略: %q", s)
	}
}

// DriverKind 页面驱动类型
type DriverKind string

const (
	DriverBrowser DriverKind = "browser" // rod浏览器渲染
	DriverStatic  DriverKind = "static"  // colly静态抓取
)

// RootPage 站点入口页
type RootPage struct {
	URL   string `json:"url" yaml:"url"`
	Facet string `json:"facet" yaml:"facet"` // 例如性别标签,附加到该入口页提取的每条记录
}

// Selectors 通用选择器提取器使用的CSS选择器
type Selectors struct {
	Item       string `json:"item" yaml:"item"`
	Title      string `json:"title" yaml:"title"`
	Link       string `json:"link" yaml:"link"`
	LinkAttr   string `json:"linkAttr" yaml:"linkAttr"`
	Image      string `json:"image" yaml:"image"`
	ImageAttr  string `json:"imageAttr" yaml:"imageAttr"`
	Price      string `json:"price" yaml:"price"`
	SKU        string `json:"sku" yaml:"sku"`
	SKUAttr    string `json:"skuAttr" yaml:"skuAttr"`
	EmptyState string `json:"emptyState" yaml:"emptyState"`
}

// PaginationOptions 分页策略的站点级覆盖项
type PaginationOptions struct {
	PageParam       string `json:"pageParam" yaml:"pageParam"`
	MaxPages        int    `json:"maxPages" yaml:"maxPages"`
	EmptyText       string `json:"emptyText" yaml:"emptyText"`
	SkipFailedPages bool   `json:"skipFailedPages" yaml:"skipFailedPages"`
	SettleThreshold int    `json:"settleThreshold" yaml:"settleThreshold"`
}

// ScrollOptions 无限滚动策略的站点级覆盖项
type ScrollOptions struct {
	Step           float64 `json:"step" yaml:"step"`
	Nudge          float64 `json:"nudge" yaml:"nudge"`
	MaxIterations  int     `json:"maxIterations" yaml:"maxIterations"`
	Threshold      int     `json:"threshold" yaml:"threshold"`
	Metric         string  `json:"metric" yaml:"metric"` // items 或 height
	RevealSelector string  `json:"revealSelector" yaml:"revealSelector"`
}

// SiteConfig 站点配置
type SiteConfig struct {
	Name               string         `json:"name" yaml:"name"`
	URL                string         `json:"url,omitempty" yaml:"url"`
	RootPages          []RootPage     `json:"rootPages" yaml:"rootPages"`
	RootURLs           []string       `json:"rootUrls,omitempty" yaml:"rootUrls"` // 旧格式: 无facet的入口URL列表
	NavigationStrategy NavigationKind `json:"navigationStrategy" yaml:"navigationStrategy"`
	DBFile             string         `json:"dbFile" yaml:"dbFile"`
	Done               bool           `json:"done" yaml:"done"`

	Driver     DriverKind         `json:"driver,omitempty" yaml:"driver"`
	Currency   string             `json:"currency,omitempty" yaml:"currency"`
	Selectors  Selectors          `json:"selectors" yaml:"selectors"`
	Pagination *PaginationOptions `json:"pagination,omitempty" yaml:"pagination"`
	Scroll     *ScrollOptions     `json:"scroll,omitempty" yaml:"scroll"`
}

// Normalize 规范化站点配置: 合并旧格式入口、统一策略名称
// 无法识别的策略名称原样保留,由Validate在该站点运行时拒绝
func (s *SiteConfig) Normalize() {
	for _, u := range s.RootURLs {
		s.RootPages = append(s.RootPages, RootPage{URL: u})
	}
	s.RootURLs = nil

	if s.NavigationStrategy != "" {
		if kind, err := ParseNavigationKind(string(s.NavigationStrategy)); err == nil {
			s.NavigationStrategy = kind
		}
	}

	if s.Driver == "" {
		s.Driver = DriverBrowser
	}
}

// Validate 验证站点配置
// 仅当整个配置无效时返回错误,此时该站点直接失败
func (s *SiteConfig) Validate() error {
	if s.Name == "" {
		return &ConfigError{Cause: fmt.Errorf("站点名称不能为空")}
	}
	if len(s.RootPages) == 0 {
		return &ConfigError{Site: s.Name, Cause: fmt.Errorf("至少需要一个入口页")}
	}
	for i, rp := range s.RootPages {
		if err := ValidateURL(rp.URL); err != nil {
			return &ConfigError{Site: s.Name, Cause: fmt.Errorf("第%d个入口页: %w", i+1, err)}
		}
	}
	if s.DBFile == "" {
		return &ConfigError{Site: s.Name, Cause: fmt.Errorf("dbFile不能为空")}
	}
	switch s.NavigationStrategy {
	case NavPaginated:
	case NavInfiniteScroll:
		if s.Driver == DriverStatic {
			return &ConfigError{Site: s.Name, Cause: fmt.Errorf("无限滚动策略需要浏览器驱动")}
		}
	default:
		return &ConfigError{Site: s.Name, Cause: fmt.Errorf("未知的导航策略: %q", s.NavigationStrategy)}
	}
	switch s.Driver {
	case DriverBrowser, DriverStatic:
	default:
		return &ConfigError{Site: s.Name, Cause: fmt.Errorf("未知的驱动类型: %q", s.Driver)}
	}
	if s.URL != "" {
		if err := ValidateURL(s.URL); err != nil {
			return &ConfigError{Site: s.Name, Cause: fmt.Errorf("站点URL: %w", err)}
		}
	}
	return nil
}

// BaseOrigin 返回站点源 (scheme://host),用于相对URL补全
// 优先使用站点URL,否则取第一个入口页
func (s *SiteConfig) BaseOrigin() string {
	candidates := []string{s.URL}
	for _, rp := range s.RootPages {
		candidates = append(candidates, rp.URL)
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		parsed, err := url.Parse(c)
		if err != nil || parsed.Host == "" {
			continue
		}
		return parsed.Scheme + "://" + parsed.Host
	}
	return ""
}
