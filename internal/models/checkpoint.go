package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Checkpoint 站点检查点
// 记录已完成的入口页,用于中断后恢复
type Checkpoint struct {
	RunID          string    `json:"run_id"`
	Site           string    `json:"site"`
	CompletedRoots []string  `json:"completed_roots"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CheckpointFilename 生成检查点文件名,site应为已清理的安全名称
func CheckpointFilename(site string) string {
	return site + ".json"
}

// IsCompleted 判断入口页是否已完成
func (c *Checkpoint) IsCompleted(rootURL string) bool {
	return slices.Contains(c.CompletedRoots, rootURL)
}

// MarkCompleted 标记入口页完成
func (c *Checkpoint) MarkCompleted(rootURL string) {
	if !c.IsCompleted(rootURL) {
		c.CompletedRoots = append(c.CompletedRoots, rootURL)
	}
	c.UpdatedAt = time.Now()
}

// ToJSON 序列化为JSON
func (c *Checkpoint) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// SaveToFile 保存到文件
func (c *Checkpoint) SaveToFile(path string) error {
	data, err := c.ToJSON()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCheckpointFromFile 从文件加载,文件不存在时返回 (nil, nil)
func LoadCheckpointFromFile(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
