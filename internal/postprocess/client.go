// Package postprocess 远程图片后处理: 将商品图片提交到外部裁剪服务,结果写入旁路缓存
package postprocess

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/RecoveryAshes/catalogcrawl/internal/utils"
)

// ClientConfig 图片服务客户端配置
type ClientConfig struct {
	Endpoint   string
	Timeout    time.Duration
	RateLimit  float64 // 每秒请求数,<=0表示不限速
	Burst      int
	MaxRetries int
	Headers    http.Header
}

// Client 图片服务客户端
// 请求体 {"url": 源图片}, 响应体 {"imgUrl": 处理后图片}
type Client struct {
	http     *resty.Client
	endpoint string
}

type processRequest struct {
	URL string `json:"url"`
}

type processResponse struct {
	ImgURL string `json:"imgUrl"`
}

// NewClient 创建图片服务客户端
func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("图片服务地址未配置")
	}
	if err := utils.NewHeaderValidator().Validate(cfg.Headers); err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(time.Second).
		SetHeader("Content-Type", "application/json")
	for name, values := range cfg.Headers {
		if len(values) > 0 {
			rc.SetHeader(name, values[0])
		}
	}

	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
		rc.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	return &Client{http: rc, endpoint: cfg.Endpoint}, nil
}

// Process 提交一张图片,返回处理后的URL;服务未返回结果时为空字符串
func (c *Client) Process(ctx context.Context, imageURL string) (string, error) {
	var out processResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(processRequest{URL: imageURL}).
		SetResult(&out).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("请求图片服务失败: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("图片服务返回错误状态: %d", resp.StatusCode())
	}
	return strings.TrimSpace(out.ImgURL), nil
}
