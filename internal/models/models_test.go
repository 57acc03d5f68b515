package models

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com", false},
		{"带路径的URL", "https://example.com/path/to/resource", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
		{"无协议", "example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseNavigationKind(t *testing.T) {
	tests := []struct {
		input   string
		want    NavigationKind
		wantErr bool
	}{
		{"Paginated", NavPaginated, false},
		{"paginated", NavPaginated, false},
		{"InfiniteScroll", NavInfiniteScroll, false},
		{"infinite_scroll", NavInfiniteScroll, false},
		{"infinite-scroll", NavInfiniteScroll, false},
		{"carousel", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseNavigationKind(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseNavigationKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseNavigationKind(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSiteConfig_Validate(t *testing.T) {
	valid := func() SiteConfig {
		return SiteConfig{
			Name:               "canali",
			RootPages:          []RootPage{{URL: "https://www.canali.com/en/men", Facet: "men"}},
			NavigationStrategy: NavPaginated,
			DBFile:             "canali.json",
			Driver:             DriverStatic,
		}
	}

	tests := []struct {
		name    string
		mutate  func(s *SiteConfig)
		wantErr bool
	}{
		{"有效配置", func(s *SiteConfig) {}, false},
		{"缺少名称", func(s *SiteConfig) { s.Name = "" }, true},
		{"缺少入口页", func(s *SiteConfig) { s.RootPages = nil }, true},
		{"入口页URL无效", func(s *SiteConfig) { s.RootPages[0].URL = "canali.com" }, true},
		{"缺少dbFile", func(s *SiteConfig) { s.DBFile = "" }, true},
		{"未知策略", func(s *SiteConfig) { s.NavigationStrategy = "carousel" }, true},
		{"无限滚动配合静态驱动", func(s *SiteConfig) { s.NavigationStrategy = NavInfiniteScroll }, true},
		{"无限滚动配合浏览器驱动", func(s *SiteConfig) {
			s.NavigationStrategy = NavInfiniteScroll
			s.Driver = DriverBrowser
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("期望ConfigError, 实际 %T", err)
				}
			}
		})
	}
}

func TestSiteConfig_Normalize(t *testing.T) {
	s := SiteConfig{
		Name:               "zara",
		RootURLs:           []string{"https://www.zara.com/us/en/woman-l1.html"},
		NavigationStrategy: "InfiniteScroll",
	}
	s.Normalize()
	if len(s.RootPages) != 1 || s.RootPages[0].URL != "https://www.zara.com/us/en/woman-l1.html" {
		t.Errorf("旧格式入口未转换: %+v", s.RootPages)
	}
	if s.NavigationStrategy != NavInfiniteScroll {
		t.Errorf("策略 = %q, want %q", s.NavigationStrategy, NavInfiniteScroll)
	}
	if s.Driver != DriverBrowser {
		t.Errorf("默认驱动 = %q, want %q", s.Driver, DriverBrowser)
	}
}

func TestSiteConfig_BaseOrigin(t *testing.T) {
	tests := []struct {
		name string
		site SiteConfig
		want string
	}{
		{
			name: "优先站点URL",
			site: SiteConfig{URL: "https://www.cos.com/", RootPages: []RootPage{{URL: "https://shop.cos.com/men"}}},
			want: "https://www.cos.com",
		},
		{
			name: "回退到入口页",
			site: SiteConfig{RootPages: []RootPage{{URL: "https://www.jilsander.com/en-us/women?x=1"}}},
			want: "https://www.jilsander.com",
		},
		{
			name: "无可用URL",
			site: SiteConfig{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.site.BaseOrigin(); got != tt.want {
				t.Errorf("BaseOrigin() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckpoint_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoints", CheckpointFilename("cos"))

	missing, err := LoadCheckpointFromFile(path)
	if err != nil || missing != nil {
		t.Fatalf("不存在的检查点应返回(nil, nil), got (%v, %v)", missing, err)
	}

	cp := &Checkpoint{RunID: NewRunID(), Site: "cos"}
	cp.MarkCompleted("https://www.cos.com/men")
	cp.MarkCompleted("https://www.cos.com/men")
	if err := cp.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	loaded, err := LoadCheckpointFromFile(path)
	if err != nil {
		t.Fatalf("LoadCheckpointFromFile() error = %v", err)
	}
	if len(loaded.CompletedRoots) != 1 {
		t.Errorf("重复标记应去重, got %v", loaded.CompletedRoots)
	}
	if !loaded.IsCompleted("https://www.cos.com/men") {
		t.Error("入口页应标记为已完成")
	}
	if loaded.IsCompleted("https://www.cos.com/women") {
		t.Error("未完成的入口页不应标记为已完成")
	}
}

func TestCliHeaders_Parse(t *testing.T) {
	headers, err := CliHeaders{"User-Agent: Bot/1.0", "X-Token:abc"}.Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if headers.Get("User-Agent") != "Bot/1.0" || headers.Get("X-Token") != "abc" {
		t.Errorf("解析结果错误: %v", headers)
	}

	if _, err := (CliHeaders{"NoColon"}).Parse(); err == nil {
		t.Error("缺少冒号应返回错误")
	}
	if _, err := (CliHeaders{": value"}).Parse(); err == nil {
		t.Error("空名称应返回错误")
	}
}

func TestRunReport_Count(t *testing.T) {
	r := RunReport{Sites: []SiteResult{
		{Name: "a", Status: SiteCompleted},
		{Name: "b", Status: SiteFailed},
		{Name: "c", Status: SiteCompleted},
	}}
	if got := r.Count(SiteCompleted); got != 2 {
		t.Errorf("Count(completed) = %d, want 2", got)
	}
	if got := r.Count(SiteSkipped); got != 0 {
		t.Errorf("Count(skipped) = %d, want 0", got)
	}
}
