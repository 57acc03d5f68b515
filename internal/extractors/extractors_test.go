package extractors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RecoveryAshes/catalogcrawl/internal/crawlers"
	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

// mapHandle 测试用句柄,属性键为 "选择器@属性"
type mapHandle map[string]string

func (h mapHandle) Text(_ context.Context, selector string) (string, error) {
	if v, ok := h[selector]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s", crawlers.ErrNoMatch, selector)
}

func (h mapHandle) Attr(_ context.Context, selector, name string) (string, error) {
	if v, ok := h[selector+"@"+name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: %s[%s]", crawlers.ErrNoMatch, selector, name)
}

type brokenHandle struct{}

func (brokenHandle) Text(context.Context, string) (string, error) {
	return "", errors.New("元素已从文档移除")
}

func (brokenHandle) Attr(context.Context, string, string) (string, error) {
	return "", errors.New("元素已从文档移除")
}

func testSite() models.SiteConfig {
	return models.SiteConfig{
		Name: "canali",
		Selectors: models.Selectors{
			Item:    "article.product",
			Title:   ".name",
			Link:    "a",
			Image:   "img",
			Price:   ".price",
			SKU:     "[data-sku]",
			SKUAttr: "data-sku",
		},
	}
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     *float64
		currency string
	}{
		{"美元带千分位", "$1,250.00", models.Float64Ptr(1250), "USD"},
		{"欧元", "€ 890", models.Float64Ptr(890), "EUR"},
		{"英镑带空白", "  £45.5 ", models.Float64Ptr(45.5), "GBP"},
		{"无币种", "129", models.Float64Ptr(129), ""},
		{"空文本", "", nil, ""},
		{"无数字", "Sold out", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, currency := ParsePrice(tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.currency, currency)
		})
	}
}

func TestSelectorExtractor_FullRecord(t *testing.T) {
	ex := NewSelectorExtractor(testSite())
	item := mapHandle{
		".name":               "Wool Suit",
		"a@href":              "/en/wool-suit-123.html",
		"img@src":             "//cdn.canali.com/suit.jpg",
		".price":              "$2,400.00",
		"[data-sku]@data-sku": "CN-123",
	}

	p, err := ex.Extract(context.Background(), item, "")
	require.NoError(t, err)
	assert.Equal(t, "Wool Suit", models.Deref(p.Title))
	assert.Equal(t, "/en/wool-suit-123.html", models.Deref(p.Link))
	assert.Equal(t, "//cdn.canali.com/suit.jpg", models.Deref(p.ImageURL))
	assert.Equal(t, 2400.0, *p.Price)
	assert.Equal(t, "USD", models.Deref(p.Currency))
	assert.Equal(t, "CN-123", models.Deref(p.SKU))
	assert.Empty(t, p.ID, "标识由合并引擎计算")
}

func TestSelectorExtractor_MissingFieldsAreNull(t *testing.T) {
	ex := NewSelectorExtractor(testSite())
	p, err := ex.Extract(context.Background(), mapHandle{"a@href": "/p/1"}, "")
	require.NoError(t, err)
	assert.Nil(t, p.Title)
	assert.Nil(t, p.ImageURL)
	assert.Nil(t, p.Price)
	assert.Nil(t, p.Currency)
	assert.Nil(t, p.SKU)
}

func TestSelectorExtractor_NoTitleSelector(t *testing.T) {
	site := testSite()
	site.Selectors.Title = ""
	ex := NewSelectorExtractor(site)

	// 空选择器指向元素自身,其文本不能当作标题
	p, err := ex.Extract(context.Background(), mapHandle{"": "Wool Suit $2,400.00 New", "a@href": "/p/1"}, "")
	require.NoError(t, err)
	assert.Nil(t, p.Title)
	assert.Equal(t, "/p/1", models.Deref(p.Link))
}

func TestSelectorExtractor_SiteCurrencyWins(t *testing.T) {
	site := testSite()
	site.Currency = "chf"
	ex := NewSelectorExtractor(site)

	p, err := ex.Extract(context.Background(), mapHandle{"a@href": "/p/1", ".price": "$99"}, "")
	require.NoError(t, err)
	assert.Equal(t, "CHF", models.Deref(p.Currency))
}

func TestSelectorExtractor_Srcset(t *testing.T) {
	site := testSite()
	site.Selectors.ImageAttr = "srcset"
	ex := NewSelectorExtractor(site)

	p, err := ex.Extract(context.Background(), mapHandle{
		"img@srcset": "https://cdn.example.com/a_400.jpg 400w, https://cdn.example.com/a_800.jpg 800w",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a_400.jpg", models.Deref(p.ImageURL))
}

func TestSelectorExtractor_Failures(t *testing.T) {
	ex := NewSelectorExtractor(testSite())

	_, err := ex.Extract(context.Background(), mapHandle{".name": "No link"}, "")
	assert.ErrorIs(t, err, ErrNoIdentity)

	_, err = ex.Extract(context.Background(), brokenHandle{}, "")
	assert.Error(t, err)
}

func TestRegistry_Resolve(t *testing.T) {
	r := NewRegistry()

	t.Run("未注册时使用选择器提取器", func(t *testing.T) {
		ex, err := r.Resolve(testSite())
		require.NoError(t, err)
		assert.IsType(t, &SelectorExtractor{}, ex)
	})

	t.Run("缺少商品选择器", func(t *testing.T) {
		_, err := r.Resolve(models.SiteConfig{Name: "bare"})
		var cfgErr *models.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "bare", cfgErr.Site)
	})

	t.Run("注册的提取器优先", func(t *testing.T) {
		custom := crawlers.ExtractorFunc(func(context.Context, crawlers.Handle, string) (*models.Product, error) {
			return &models.Product{Title: models.StringPtr("custom")}, nil
		})
		r.Register("canali", func(models.SiteConfig) (crawlers.Extractor, error) { return custom, nil })

		ex, err := r.Resolve(testSite())
		require.NoError(t, err)
		p, err := ex.Extract(context.Background(), mapHandle{}, "")
		require.NoError(t, err)
		assert.Equal(t, "custom", models.Deref(p.Title))
		assert.Equal(t, []string{"canali"}, r.Names())
	})

	t.Run("构建失败", func(t *testing.T) {
		r.Register("broken", func(models.SiteConfig) (crawlers.Extractor, error) {
			return nil, errors.New("缺少API密钥")
		})
		_, err := r.Resolve(models.SiteConfig{Name: "broken"})
		var cfgErr *models.ConfigError
		assert.ErrorAs(t, err, &cfgErr)
	})
}
