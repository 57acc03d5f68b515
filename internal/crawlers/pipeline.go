package crawlers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
	"golang.org/x/sync/errgroup"
)

var errNilRecord = errors.New("提取器返回空记录")

// Extractor 站点提取器
// 必须可并发调用,且不依赖批次顺序
type Extractor interface {
	Extract(ctx context.Context, item Handle, facet string) (*models.Product, error)
}

// ExtractorFunc 函数形式的提取器
type ExtractorFunc func(ctx context.Context, item Handle, facet string) (*models.Product, error)

// Extract 实现Extractor接口
func (f ExtractorFunc) Extract(ctx context.Context, item Handle, facet string) (*models.Product, error) {
	return f(ctx, item, facet)
}

// ExtractResult 一批元素的提取结果
type ExtractResult struct {
	Records   []models.Product // 顺序不保证与输入一致
	Attempted int
	Failed    int
	Errors    []error
}

// Pipeline 提取流水线
// 每个元素在独立的失败边界内提取,单个失败只丢弃该元素
type Pipeline struct {
	extractor Extractor
	siteID    string
}

// NewPipeline 创建提取流水线
func NewPipeline(extractor Extractor, siteID string) *Pipeline {
	return &Pipeline{extractor: extractor, siteID: siteID}
}

// Run 并发提取所有元素,等待全部完成后返回
// facet非空时写入每条记录的gender字段
func (p *Pipeline) Run(ctx context.Context, items []Handle, facet string) ExtractResult {
	result := ExtractResult{Attempted: len(items)}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			rec, err := p.extractOne(ctx, i, item, facet)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, err)
				return nil
			}
			result.Records = append(result.Records, *rec)
			return nil
		})
	}
	_ = g.Wait()

	return result
}

func (p *Pipeline) extractOne(ctx context.Context, index int, item Handle, facet string) (rec *models.Product, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			err = &models.ExtractionError{Index: index, Cause: fmt.Errorf("提取器panic: %v", r)}
		}
	}()

	rec, err = p.extractor.Extract(ctx, item, facet)
	if err != nil {
		return nil, &models.ExtractionError{Index: index, Cause: err}
	}
	if rec == nil {
		return nil, &models.ExtractionError{Index: index, Cause: errNilRecord}
	}

	out := *rec
	if facet != "" {
		out.Gender = models.StringPtr(facet)
	}
	if out.SiteID == "" {
		out.SiteID = p.siteID
	}
	return &out, nil
}
