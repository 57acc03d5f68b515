package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/schollz/progressbar/v3"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

// Reporter 运行报告生成器
type Reporter struct {
	outputDir string
}

// NewReporter 创建报告生成器
func NewReporter(outputDir string) *Reporter {
	return &Reporter{outputDir: outputDir}
}

// SaveRunReport 保存运行报告,返回报告文件路径
func (r *Reporter) SaveRunReport(report *models.RunReport) (string, error) {
	if err := os.MkdirAll(r.outputDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	filename := fmt.Sprintf("run_%s.json", SafeFileName(report.RunID))
	if err := r.saveJSONReport(r.outputDir, filename, report); err != nil {
		return "", err
	}

	path := filepath.Join(r.outputDir, filename)
	Infof("✅ 报告已生成: %s", path)
	return path, nil
}

// saveJSONReport 保存JSON报告
func (r *Reporter) saveJSONReport(dir string, filename string, data interface{}) error {
	filepath := filepath.Join(dir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}

	if err := os.WriteFile(filepath, jsonData, 0644); err != nil {
		return fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", filepath)
	return nil
}

// PrintSummary 以表格形式输出各站点结果
func (r *Reporter) PrintSummary(w io.Writer, report *models.RunReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("运行 %s", report.RunID))
	t.AppendHeader(table.Row{"站点", "状态", "已有", "新增", "替换", "总数", "入口页", "耗时(秒)"})

	var added, replaced, total int
	for _, s := range report.Sites {
		t.AppendRow(table.Row{
			s.Name, s.Status, s.Loaded, s.Added, s.Replaced, s.Total,
			fmt.Sprintf("%d/%d", completedRoots(s.Roots), len(s.Roots)),
			fmt.Sprintf("%.1f", s.Duration),
		})
		added += s.Added
		replaced += s.Replaced
		total += s.Total
	}

	t.AppendFooter(table.Row{
		"合计",
		fmt.Sprintf("完成%d 部分%d 失败%d 跳过%d",
			report.Count(models.SiteCompleted), report.Count(models.SitePartial),
			report.Count(models.SiteFailed), report.Count(models.SiteSkipped)),
		"", added, replaced, total, "", fmt.Sprintf("%.1f", report.Duration),
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func completedRoots(roots []models.RootResult) int {
	n := 0
	for _, rr := range roots {
		if rr.FinalState == models.StateDone && !rr.Partial {
			n++
		}
	}
	return n
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
