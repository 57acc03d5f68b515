package crawlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RecoveryAshes/catalogcrawl/internal/models"
)

// drive 反复推进直到结束,返回推进次数和最后一步
func drive(t *testing.T, s Strategy, d Driver, st *NavState, limit int) (int, Step) {
	t.Helper()
	for i := 1; i <= limit; i++ {
		step, err := s.Advance(context.Background(), d, st)
		require.NoError(t, err)
		if step.Done {
			return i, step
		}
	}
	t.Fatalf("推进%d次仍未结束", limit)
	return 0, Step{}
}

func newScroll(threshold, maxIter int) *InfiniteScroll {
	return &InfiniteScroll{
		ItemSelector:  "li.product",
		Metric:        MetricItemCount,
		Step:          1000,
		Nudge:         -20,
		MaxIterations: maxIter,
		Stabilizer:    StabilizerConfig{Threshold: threshold},
	}
}

func TestInfiniteScroll_StopsAtThreshold(t *testing.T) {
	for _, threshold := range []int{3, 5} {
		d := &fakeDriver{itemSelector: "li.product", metrics: []float64{24, 48}, items: 48}
		s := newScroll(threshold, 100)
		st := NewNavState(models.RootPage{URL: "https://www.zara.com/us/en/woman-l1.html"})

		iterations, step := drive(t, s, d, st, 100)

		// 两次增长采样 + threshold次不变采样
		assert.Equal(t, 2+threshold, iterations)
		assert.Equal(t, 2+threshold, d.metricReads)
		assert.Equal(t, string(ReasonNoChange), step.Reason)
		assert.Len(t, step.Items, 48)
	}
}

func TestInfiniteScroll_ForceStopsAtCap(t *testing.T) {
	growing := make([]float64, 500)
	for i := range growing {
		growing[i] = float64((i + 1) * 24)
	}
	d := &fakeDriver{itemSelector: "li.product", metrics: growing, items: 240}
	s := newScroll(3, 10)
	st := NewNavState(models.RootPage{URL: "https://www.balenciaga.com/en-us/women"})

	iterations, step := drive(t, s, d, st, 1000)

	assert.Equal(t, 10, iterations)
	assert.Equal(t, 10, d.metricReads)
	assert.Equal(t, "max_iterations", step.Reason)
	assert.Len(t, step.Items, 240)
}

func TestInfiniteScroll_NudgeOnce(t *testing.T) {
	d := &fakeDriver{itemSelector: "li.product", metrics: []float64{10}, items: 10}
	s := newScroll(2, 50)
	st := NewNavState(models.RootPage{URL: "https://www.jacquemus.com/en_us/women"})

	drive(t, s, d, st, 50)

	require.Len(t, d.navigated, 1, "每个入口页只导航一次")
	require.NotEmpty(t, d.scrolls)
	assert.Equal(t, Action{DeltaY: -20}, d.scrolls[0])
	for _, a := range d.scrolls[1:] {
		assert.Equal(t, Action{DeltaY: 1000}, a)
	}
}

func TestInfiniteScroll_RevealSelector(t *testing.T) {
	d := &fakeDriver{itemSelector: "li.product", metrics: []float64{10, 20, 20}, items: 20}
	s := newScroll(1, 50)
	s.RevealSelector = "button.load-more"
	st := NewNavState(models.RootPage{URL: "https://www.jilsander.com/en-us/women"})

	drive(t, s, d, st, 50)

	for _, a := range d.scrolls {
		assert.Equal(t, Action{ClickSelector: "button.load-more"}, a, "展开模式下不做反向微调")
	}
}

func TestInfiniteScroll_DoneIsSticky(t *testing.T) {
	d := &fakeDriver{itemSelector: "li.product", metrics: []float64{1}, items: 1}
	s := newScroll(1, 5)
	st := NewNavState(models.RootPage{URL: "https://example.com/list"})
	drive(t, s, d, st, 5)
	reads := d.metricReads

	step, err := s.Advance(context.Background(), d, st)
	require.NoError(t, err)
	assert.True(t, step.Done)
	assert.Equal(t, reads, d.metricReads)
}

func newPaginated() *Paginated {
	return &Paginated{
		ItemSelector:  "article.product",
		EmptySelector: ".empty-state",
		PageParam:     "page",
		MaxPages:      50,
	}
}

func TestPaginated_PageURL(t *testing.T) {
	p := newPaginated()
	tests := []struct {
		name string
		root string
		n    int
		want string
	}{
		{"第一页为入口本身", "https://www.canali.com/en/men/suits", 1, "https://www.canali.com/en/men/suits"},
		{"无查询参数", "https://www.canali.com/en/men/suits", 2, "https://www.canali.com/en/men/suits?page=2"},
		{"已有查询参数", "https://www.cos.com/en/men?sort=new", 3, "https://www.cos.com/en/men?page=3&sort=new"},
		{"覆盖已有页码", "https://www.cos.com/en/men?page=1", 4, "https://www.cos.com/en/men?page=4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.PageURL(tt.root, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaginated_StopsAtZeroItems(t *testing.T) {
	root := "https://www.canali.com/en/men"
	d := &fakeDriver{
		itemSelector: "article.product",
		pages: map[string]int{
			root:             12,
			root + "?page=2": 12,
			root + "?page=3": 5,
			root + "?page=4": 0,
			root + "?page=5": 12,
		},
	}
	p := newPaginated()
	st := NewNavState(models.RootPage{URL: root})

	total := 0
	for i := 0; i < 10; i++ {
		step, err := p.Advance(context.Background(), d, st)
		require.NoError(t, err)
		total += len(step.Items)
		if step.Done {
			assert.Equal(t, "no_items", step.Reason)
			break
		}
	}

	assert.Equal(t, 29, total)
	assert.Equal(t, []string{root, root + "?page=2", root + "?page=3", root + "?page=4"}, d.navigated)

	// 结束后不再请求后续页
	step, err := p.Advance(context.Background(), d, st)
	require.NoError(t, err)
	assert.True(t, step.Done)
	assert.Len(t, d.navigated, 4)
}

func TestPaginated_StopsAtEmptyState(t *testing.T) {
	root := "https://www.cos.com/en/women"
	d := &fakeDriver{
		itemSelector:  "article.product",
		emptySelector: ".empty-state",
		pages:         map[string]int{root: 8, root + "?page=2": 8},
		empty:         map[string]bool{root + "?page=2": true},
	}
	p := newPaginated()
	st := NewNavState(models.RootPage{URL: root})

	iterations, step := drive(t, p, d, st, 10)

	assert.Equal(t, 2, iterations)
	assert.Equal(t, "empty_state", step.Reason)
	assert.Empty(t, step.Items, "空状态页上的元素不应返回")
	assert.Len(t, d.navigated, 2)
}

func TestPaginated_StopsAtEmptyText(t *testing.T) {
	root := "https://www.canali.com/en/women"
	d := &fakeDriver{
		itemSelector: "article.product",
		pages:        map[string]int{root: 3, root + "?page=2": 3},
		empty:        map[string]bool{root + "?page=2": true},
	}
	p := newPaginated()
	p.EmptySelector = ""
	p.EmptyText = "No products were found"
	st := NewNavState(models.RootPage{URL: root})

	iterations, step := drive(t, p, d, st, 10)

	assert.Equal(t, 2, iterations)
	assert.Equal(t, "empty_state", step.Reason)
}

func TestPaginated_FailureKeepsPosition(t *testing.T) {
	root := "https://www.canali.com/en/men"
	d := &fakeDriver{
		itemSelector: "article.product",
		pages:        map[string]int{root: 4, root + "?page=2": 0},
		navFails:     map[string]int{root: 1},
	}
	p := newPaginated()
	st := NewNavState(models.RootPage{URL: root})

	_, err := p.Advance(context.Background(), d, st)
	require.Error(t, err)
	assert.Equal(t, 1, st.Page, "失败时页码不前进")

	step, err := p.Advance(context.Background(), d, st)
	require.NoError(t, err)
	assert.Len(t, step.Items, 4)
	assert.Equal(t, 2, st.Page)
}

func TestPaginated_SkipFailed(t *testing.T) {
	p := newPaginated()
	st := NewNavState(models.RootPage{URL: "https://example.com/list"})

	assert.False(t, p.SkipFailed(st), "未开启时不跳过")
	assert.Equal(t, 1, st.Page)

	p.SkipFailedPages = true
	assert.True(t, p.SkipFailed(st))
	assert.Equal(t, 2, st.Page)
}

func TestPaginated_MaxPages(t *testing.T) {
	root := "https://example.com/list"
	pages := map[string]int{root: 1}
	for i := 2; i <= 10; i++ {
		u, _ := newPaginated().PageURL(root, i)
		pages[u] = 1
	}
	d := &fakeDriver{itemSelector: "article.product", pages: pages}
	p := newPaginated()
	p.MaxPages = 3
	st := NewNavState(models.RootPage{URL: root})

	iterations, step := drive(t, p, d, st, 20)

	assert.Equal(t, 4, iterations)
	assert.Equal(t, "max_pages", step.Reason)
	assert.Len(t, d.navigated, 3)
}

func TestNewStrategy(t *testing.T) {
	opts := DefaultStrategyOptions()

	site := models.SiteConfig{
		Name:               "cos",
		NavigationStrategy: models.NavPaginated,
		Selectors:          models.Selectors{Item: "article", EmptyState: ".no-results"},
		Pagination:         &models.PaginationOptions{PageParam: "p", MaxPages: 7, EmptyText: "Nothing here"},
	}
	s, err := NewStrategy(site, opts)
	require.NoError(t, err)
	p, ok := s.(*Paginated)
	require.True(t, ok)
	assert.Equal(t, "p", p.PageParam)
	assert.Equal(t, 7, p.MaxPages)
	assert.Equal(t, ".no-results", p.EmptySelector)
	assert.Equal(t, "Nothing here", p.EmptyText)

	site = models.SiteConfig{
		Name:               "driesvannoten",
		NavigationStrategy: models.NavInfiniteScroll,
		Selectors:          models.Selectors{Item: ".product-tile"},
		Scroll:             &models.ScrollOptions{Threshold: 5, Metric: "height"},
	}
	s, err = NewStrategy(site, opts)
	require.NoError(t, err)
	sc, ok := s.(*InfiniteScroll)
	require.True(t, ok)
	assert.Equal(t, 5, sc.Stabilizer.Threshold)
	assert.Equal(t, MetricScrollHeight, sc.Metric)
	assert.Equal(t, opts.MaxIterations, sc.MaxIterations)

	site.Selectors.Item = ""
	_, err = NewStrategy(site, opts)
	assert.Error(t, err, "缺少商品选择器")
}
