package extractors

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/catalogcrawl/internal/crawlers"
	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

var (
	ErrNoIdentity = errors.New("记录缺少链接和图片,无法生成标识")

	priceChars = regexp.MustCompile(`[^0-9.]`)

	currencySymbols = []struct {
		symbol string
		code   string
	}{
		{"US$", "USD"},
		{"$", "USD"},
		{"€", "EUR"},
		{"£", "GBP"},
		{"¥", "JPY"},
		{"CHF", "CHF"},
		{"kr", "SEK"},
	}
)

// SelectorExtractor 通用CSS选择器提取器
// 选择器未匹配的字段记为null;链接和图片都缺失时该元素提取失败
type SelectorExtractor struct {
	sel      models.Selectors
	currency string
}

// NewSelectorExtractor 根据站点配置创建选择器提取器
func NewSelectorExtractor(site models.SiteConfig) *SelectorExtractor {
	sel := site.Selectors
	if sel.LinkAttr == "" {
		sel.LinkAttr = "href"
	}
	if sel.ImageAttr == "" {
		sel.ImageAttr = "src"
	}
	return &SelectorExtractor{sel: sel, currency: strings.ToUpper(strings.TrimSpace(site.Currency))}
}

// Extract 实现crawlers.Extractor接口
func (e *SelectorExtractor) Extract(ctx context.Context, item crawlers.Handle, _ string) (*models.Product, error) {
	p := &models.Product{}

	if e.sel.Title != "" {
		title, err := optional(item.Text(ctx, e.sel.Title))
		if err != nil {
			return nil, fmt.Errorf("读取标题失败: %w", err)
		}
		p.Title = models.StringPtr(title)
	}

	// link选择器为空时读取元素自身的属性
	link, err := optional(item.Attr(ctx, e.sel.Link, e.sel.LinkAttr))
	if err != nil {
		return nil, fmt.Errorf("读取链接失败: %w", err)
	}
	p.Link = models.StringPtr(link)

	if e.sel.Image != "" {
		img, err := optional(item.Attr(ctx, e.sel.Image, e.sel.ImageAttr))
		if err != nil {
			return nil, fmt.Errorf("读取图片失败: %w", err)
		}
		p.ImageURL = models.StringPtr(firstSrcsetURL(img))
	}

	if e.sel.Price != "" {
		text, err := optional(item.Text(ctx, e.sel.Price))
		if err != nil {
			return nil, fmt.Errorf("读取价格失败: %w", err)
		}
		price, currency := ParsePrice(text)
		p.Price = price
		if e.currency != "" {
			currency = e.currency
		}
		p.Currency = models.StringPtr(currency)
	}

	if e.sel.SKU != "" || e.sel.SKUAttr != "" {
		var sku string
		if e.sel.SKUAttr != "" {
			sku, err = optional(item.Attr(ctx, e.sel.SKU, e.sel.SKUAttr))
		} else {
			sku, err = optional(item.Text(ctx, e.sel.SKU))
		}
		if err != nil {
			return nil, fmt.Errorf("读取SKU失败: %w", err)
		}
		p.SKU = models.StringPtr(sku)
	}

	if p.Link == nil && p.ImageURL == nil {
		return nil, ErrNoIdentity
	}
	return p, nil
}

// optional 将未匹配视为空值
func optional(v string, err error) (string, error) {
	if errors.Is(err, crawlers.ErrNoMatch) {
		return "", nil
	}
	return v, err
}

// firstSrcsetURL 从srcset形式的值中取第一个URL
func firstSrcsetURL(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, ','); i > 0 && strings.Contains(v[:i], " ") {
		v = v[:i]
	}
	if fields := strings.Fields(v); len(fields) > 0 {
		return fields[0]
	}
	return v
}

// ParsePrice 从价格文本中解析数值与币种
// 只保留数字和小数点;无法解析时价格为nil
func ParsePrice(text string) (*float64, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ""
	}

	currency := ""
	for _, cs := range currencySymbols {
		if strings.Contains(text, cs.symbol) {
			currency = cs.code
			break
		}
	}

	digits := strings.Trim(priceChars.ReplaceAllString(text, ""), ".")
	if digits == "" {
		return nil, currency
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil, currency
	}
	return models.Float64Ptr(v), currency
}
