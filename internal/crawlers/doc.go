// Package crawlers 提供商品列表页的导航、稳定性检测与并发提取
//
// # 概述
//
// 一个入口页的抓取由三部分组合完成:
//
//   - Driver: 页面驱动,负责导航、查询元素、读取增长指标、滚动或点击展开。
//     RodDriver基于go-rod驱动真实浏览器;StaticDriver基于Colly+goquery解析服务端渲染页面
//   - Strategy: 导航策略,每次Advance推进一步并返回新出现的商品元素。
//     Paginated按页码翻页;InfiniteScroll滚动直到Stabilizer判定内容不再增长
//   - Pipeline: 对一批元素并发调用站点提取器,单个元素失败只丢弃该元素
//
// 重试由Retrier负责: Advance失败后状态保持在当前位置,重试从同一页或同一轮继续。
//
// 使用示例:
//
//	strategy, err := NewStrategy(site, DefaultStrategyOptions())
//	st := NewNavState(site.RootPages[0])
//	retrier := NewRetrier(3, 2*time.Second)
//	pipeline := NewPipeline(extractor, site.Name)
//
//	for !st.Done {
//	    var step Step
//	    err := retrier.Do(ctx, "推进", func(ctx context.Context) (err error) {
//	        step, err = strategy.Advance(ctx, driver, st)
//	        return err
//	    })
//	    if err != nil { break }
//	    result := pipeline.Run(ctx, step.Items, st.Root.Facet)
//	    // 合并 result.Records
//	}
//
// # 稳定性检测
//
// Stabilizer统计增长指标与上一次采样相等的连续次数,达到阈值(默认3)判定稳定;
// 超过绝对超时也按稳定处理,此时使用已加载的内容。
//
// # 资源监控
//
// ResourceMonitor周期采样可用内存,BrowserManager在打开下一个站点页面前
// 根据压力等级决定是否重启浏览器:
//   - 可用内存 < 500MB: warning
//   - 可用内存 < 300MB: critical (默认回收等级)
//   - 可用内存 < 200MB: emergency
//
// # 并发安全
//
// Driver实例在一个站点内顺序使用;Pipeline的提取器需可并发调用。
package crawlers
