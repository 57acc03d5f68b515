// Package catalog 商品目录: 内容寻址ID、增量合并与持久化
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

// NormalizeURL 将URL补全为绝对形式
//   - "//host/x" 补全协议为 "https://host/x"
//   - "/x" 拼接站点源
//   - 其他值原样返回
func NormalizeURL(v *string, origin string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	switch {
	case s == "":
		return nil
	case strings.HasPrefix(s, "//"):
		s = "https:" + s
	case strings.HasPrefix(s, "/"):
		s = strings.TrimRight(origin, "/") + s
	}
	return &s
}

// ComputeID 计算记录的内容寻址ID
// 先规范化link和imageUrl并写回记录,再对 [link, imageUrl(, sku)] 做SHA-256
func ComputeID(p *models.Product, origin string) string {
	p.Link = NormalizeURL(p.Link, origin)
	p.ImageURL = NormalizeURL(p.ImageURL, origin)

	parts := []*string{p.Link, p.ImageURL}
	if p.SKU != nil {
		parts = append(parts, p.SKU)
	}

	// []*string 的JSON编码是确定的,nil编码为null
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AssignIDs 为一批记录计算ID
func AssignIDs(products []models.Product, origin string) {
	for i := range products {
		products[i].ID = ComputeID(&products[i], origin)
	}
}

// Reindex 重新规范化URL并计算ID,ID冲突的记录按后写优先合并
func Reindex(products []models.Product, origin string) []models.Product {
	rebuilt := make([]models.Product, len(products))
	copy(rebuilt, products)
	AssignIDs(rebuilt, origin)

	merged, _ := Merge(nil, rebuilt)
	return merged
}
