package models

import (
	"encoding/json"
	"strings"
)

// Product 商品记录
// ID由内容派生,其余字段均为提取器输出,缺失时为null
type Product struct {
	ID       string   `json:"id"`
	Title    *string  `json:"title"`
	Link     *string  `json:"link"`
	ImageURL *string  `json:"imageUrl"`
	Price    *float64 `json:"price"`
	Currency *string  `json:"currency"`
	SKU      *string  `json:"sku"`
	Gender   *string  `json:"gender"`
	SiteID   string   `json:"siteId,omitempty"`
}

// ToJSON 序列化为JSON
func (p *Product) ToJSON() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// String 返回便于日志输出的简短描述
func (p *Product) String() string {
	return p.ID + " " + Deref(p.Title)
}

// StringPtr 返回去除首尾空白后的字符串指针,空字符串返回nil
func StringPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Float64Ptr 返回浮点数指针
func Float64Ptr(f float64) *float64 {
	return &f
}

// Deref 解引用字符串指针,nil返回空字符串
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
