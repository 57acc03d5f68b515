package models

import (
	"encoding/json"
	"time"
)

// RootState 入口页爬取状态
type RootState string

const (
	StateStart          RootState = "START"
	StateNavigating     RootState = "NAVIGATING"
	StateExtracting     RootState = "EXTRACTING"
	StateMerging        RootState = "MERGING"
	StateFailedRetrying RootState = "FAILED_RETRYING"
	StateDone           RootState = "DONE"
)

// SiteStatus 站点处理结果
type SiteStatus string

const (
	SiteCompleted SiteStatus = "completed" // 全部入口页完成
	SitePartial   SiteStatus = "partial"   // 部分入口页放弃或保存失败
	SiteFailed    SiteStatus = "failed"    // 配置无效或会话无法建立
	SiteSkipped   SiteStatus = "skipped"   // done=true
)

// RootResult 单个入口页结果
type RootResult struct {
	URL        string    `json:"url"`
	Facet      string    `json:"facet,omitempty"`
	FinalState RootState `json:"final_state"`
	Steps      int       `json:"steps"`     // 导航步数 (页数或滚动次数)
	Extracted  int       `json:"extracted"` // 成功提取记录数
	Failed     int       `json:"failed"`    // 提取失败条数
	Partial    bool      `json:"partial"`   // 重试耗尽后带部分数据结束
	Resumed    bool      `json:"resumed"`   // 从检查点跳过
	Error      string    `json:"error,omitempty"`
}

// SiteResult 单个站点结果
type SiteResult struct {
	Name        string       `json:"name"`
	DBFile      string       `json:"db_file"`
	Status      SiteStatus   `json:"status"`
	Loaded      int          `json:"loaded"`   // 加载时已有记录数
	Added       int          `json:"added"`    // 新增记录数
	Replaced    int          `json:"replaced"` // 原位替换记录数
	Total       int          `json:"total"`    // 最终记录数
	Roots       []RootResult `json:"roots"`
	Errors      []string     `json:"errors,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
	Duration    float64      `json:"duration"` // 秒
}

// RunReport 一次运行的报告
type RunReport struct {
	RunID     string       `json:"run_id"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Duration  float64      `json:"duration"` // 秒
	Sites     []SiteResult `json:"sites"`
}

// Count 按状态统计站点数量
func (r *RunReport) Count(status SiteStatus) int {
	n := 0
	for _, s := range r.Sites {
		if s.Status == status {
			n++
		}
	}
	return n
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *RunReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
