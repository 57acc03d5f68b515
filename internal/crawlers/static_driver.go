package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
	"github.com/gocolly/colly/v2"
	"golang.org/x/net/publicsuffix"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

// StaticDriverConfig 静态驱动配置
type StaticDriverConfig struct {
	Timeout          time.Duration
	IgnoreCertErrors bool
	Headers          http.Header
}

// StaticDriver 基于Colly的静态页面驱动,适用于服务端渲染的分页列表
// 不执行JavaScript,不支持滚动和高度指标
type StaticDriver struct {
	collector *colly.Collector
	headers   http.Header

	mu      sync.Mutex
	doc     *goquery.Document
	status  int
	lastErr error
}

// NewStaticDriver 创建静态驱动
func NewStaticDriver(cfg StaticDriverConfig) (*StaticDriver, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
	)
	c.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.IgnoreCertErrors,
		},
	})
	c.SetRequestTimeout(cfg.Timeout)

	// 同一站点翻页之间保持会话cookie
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("创建cookie jar失败: %w", err)
	}
	c.SetCookieJar(jar)

	d := &StaticDriver{collector: c, headers: cfg.Headers}

	c.OnRequest(func(r *colly.Request) {
		for name, values := range d.headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
	})

	c.OnResponse(func(r *colly.Response) {
		body, err := decompressResponse(r.Headers.Get("Content-Encoding"), r.Body)
		if err != nil {
			d.setResult(nil, r.StatusCode, fmt.Errorf("解压响应失败: %w", err))
			return
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			d.setResult(nil, r.StatusCode, fmt.Errorf("解析HTML失败: %w", err))
			return
		}
		doc.Url = r.Request.URL
		d.setResult(doc, r.StatusCode, nil)
	})

	c.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		d.setResult(nil, status, err)
	})

	utils.Debugf("静态驱动已创建: 超时=%s", cfg.Timeout)
	return d, nil
}

func (d *StaticDriver) setResult(doc *goquery.Document, status int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc = doc
	d.status = status
	d.lastErr = err
}

// Navigate 实现Driver接口
func (d *StaticDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return &models.NavigationError{URL: url, Cause: err}
	}

	d.setResult(nil, 0, nil)
	visitErr := d.collector.Visit(url)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lastErr != nil {
		return &models.NavigationError{URL: url, Status: d.status, Cause: d.lastErr}
	}
	if visitErr != nil {
		return &models.NavigationError{URL: url, Status: d.status, Cause: visitErr}
	}
	if d.doc == nil {
		return &models.NavigationError{URL: url, Status: d.status, Cause: fmt.Errorf("没有收到响应")}
	}
	return nil
}

// WaitForQuiet 实现Driver接口,静态页面加载完成即为空闲
func (d *StaticDriver) WaitForQuiet(ctx context.Context, _ time.Duration) error {
	return nil
}

func (d *StaticDriver) document() (*goquery.Document, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil, fmt.Errorf("尚未加载页面")
	}
	return d.doc, nil
}

// QueryAll 实现Driver接口
func (d *StaticDriver) QueryAll(_ context.Context, selector string) ([]Handle, error) {
	doc, err := d.document()
	if err != nil {
		return nil, err
	}

	var handles []Handle
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		handles = append(handles, &selectionHandle{sel: s})
	})
	return handles, nil
}

// ReadMetric 实现Driver接口,仅支持元素计数
func (d *StaticDriver) ReadMetric(_ context.Context, metric Metric) (float64, error) {
	if metric.Kind != MetricItemCount {
		return 0, fmt.Errorf("静态驱动读取%s指标: %w", metric.Kind, ErrUnsupported)
	}
	doc, err := d.document()
	if err != nil {
		return 0, err
	}
	return float64(doc.Find(metric.Selector).Length()), nil
}

// ScrollOrReveal 实现Driver接口
func (d *StaticDriver) ScrollOrReveal(_ context.Context, _ Action) error {
	return fmt.Errorf("静态驱动滚动页面: %w", ErrUnsupported)
}

// Close 实现Driver接口
func (d *StaticDriver) Close() error {
	d.setResult(nil, 0, nil)
	return nil
}

// selectionHandle goquery选择集句柄
type selectionHandle struct {
	sel *goquery.Selection
}

func (h *selectionHandle) target(selector string) (*goquery.Selection, error) {
	if selector == "" {
		return h.sel, nil
	}
	found := h.sel.Find(selector).First()
	if found.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, selector)
	}
	return found, nil
}

// Text 实现Handle接口
func (h *selectionHandle) Text(_ context.Context, selector string) (string, error) {
	s, err := h.target(selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(s.Text()), nil
}

// Attr 实现Handle接口
func (h *selectionHandle) Attr(_ context.Context, selector, name string) (string, error) {
	s, err := h.target(selector)
	if err != nil {
		return "", err
	}
	v, ok := s.Attr(name)
	if !ok {
		return "", fmt.Errorf("%w: %s[%s]", ErrNoMatch, selector, name)
	}
	return strings.TrimSpace(v), nil
}

// decompressResponse 根据Content-Encoding解压响应体
// Colly已自动解压的gzip响应不含gzip魔数,原样返回
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()
		return io.ReadAll(reader)

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}
