package catalog

import (
	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

// MergeStats 合并统计
type MergeStats struct {
	Added    int
	Replaced int
}

// Add 累加统计
func (s *MergeStats) Add(o MergeStats) {
	s.Added += o.Added
	s.Replaced += o.Replaced
}

// Merge 将新记录合并进已有目录
//   - ID已存在: 原位整体替换 (不做字段级合并)
//   - ID不存在: 追加到末尾
//
// 同一批次内重复ID后写优先;不在incoming中的记录保持不变。
// existing不会被修改。
func Merge(existing, incoming []models.Product) ([]models.Product, MergeStats) {
	var stats MergeStats

	result := make([]models.Product, len(existing), len(existing)+len(incoming))
	copy(result, existing)

	index := make(map[string]int, len(result))
	for i, p := range result {
		index[p.ID] = i
	}

	for _, p := range incoming {
		if pos, ok := index[p.ID]; ok {
			result[pos] = p
			stats.Replaced++
			continue
		}
		index[p.ID] = len(result)
		result = append(result, p)
		stats.Added++
	}

	return result, stats
}
