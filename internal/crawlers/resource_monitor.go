package crawlers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// 内存压力等级
const (
	PressureNormal    = "normal"
	PressureWarning   = "warning"
	PressureCritical  = "critical"
	PressureEmergency = "emergency"
)

// ResourceMonitor 系统资源监控器
// 职责: 周期采样系统可用内存和CPU,供浏览器管理器在站点之间决定是否重启浏览器
type ResourceMonitor struct {
	config ResourceMonitorConfig

	mu            sync.RWMutex
	totalMemory   uint64
	availMemory   uint64
	lastCPUUsage  float64
	lastSampledAt time.Time

	cancelFunc context.CancelFunc
	isRunning  bool
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	SafetyReserveMemory int64 // 安全保留内存(字节),从可用内存中扣除
	CPULoadThreshold    int   // CPU负载阈值(%),>=200视为禁用
	RecycleOnPressure   string
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	TotalMemory     uint64 // 系统总内存(字节)
	AvailableMemory int64  // 扣除安全保留后的可用内存(字节)
	CPUUsage        float64
	MemoryPressure  string
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.RecycleOnPressure == "" {
		config.RecycleOnPressure = PressureCritical
	}
	rm := &ResourceMonitor{config: config}
	rm.sample(false)

	log.Info().Msgf("系统总内存: %.2f GB", float64(rm.totalMemory)/(1024*1024*1024))
	return rm
}

// StartMonitoring 启动后台采样,重复调用无副作用
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rm.cancelFunc = cancel
	rm.isRunning = true

	go rm.monitoringLoop(ctx, interval)
}

func (rm *ResourceMonitor) monitoringLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rm.sample(true)
		}
	}
}

// sample 采样一次内存与CPU
func (rm *ResourceMonitor) sample(withCPU bool) {
	var total, avail uint64
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败,使用默认值")
		total, avail = 4*1024*1024*1024, 4*1024*1024*1024
	} else {
		total, avail = vmStat.Total, vmStat.Available
	}

	cpuUsage := 0.0
	if withCPU {
		// perCPU=false 返回所有核心的平均使用率
		percentages, err := cpu.Percent(100*time.Millisecond, false)
		if err != nil {
			log.Warn().Err(err).Msg("获取CPU使用率失败")
		} else if len(percentages) > 0 {
			cpuUsage = percentages[0]
		}
	}

	rm.mu.Lock()
	rm.totalMemory = total
	rm.availMemory = avail
	if withCPU {
		rm.lastCPUUsage = cpuUsage
	}
	rm.lastSampledAt = time.Now()
	rm.mu.Unlock()
}

// StopMonitoring 停止资源监控
func (rm *ResourceMonitor) StopMonitoring() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning && rm.cancelFunc != nil {
		rm.cancelFunc()
		rm.isRunning = false
		rm.cancelFunc = nil
	}
}

// GetMemoryStatus 获取当前内存状态
func (rm *ResourceMonitor) GetMemoryStatus() MemoryStatus {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	available := int64(rm.availMemory) - rm.config.SafetyReserveMemory
	return MemoryStatus{
		TotalMemory:     rm.totalMemory,
		AvailableMemory: available,
		CPUUsage:        rm.lastCPUUsage,
		MemoryPressure:  classifyPressure(available / (1024 * 1024)),
	}
}

// ShouldRecycle 判断是否应在下一个站点前重启浏览器
func (rm *ResourceMonitor) ShouldRecycle() (bool, string) {
	status := rm.GetMemoryStatus()
	if pressureRank(status.MemoryPressure) >= pressureRank(rm.config.RecycleOnPressure) {
		log.Warn().Msgf("内存压力%s(可用%dMB),将重启浏览器",
			status.MemoryPressure, status.AvailableMemory/(1024*1024))
		return true, status.MemoryPressure
	}
	if rm.config.CPULoadThreshold > 0 && rm.config.CPULoadThreshold < 200 &&
		status.CPUUsage > float64(rm.config.CPULoadThreshold) {
		log.Warn().Msgf("CPU负载过高(当前%.1f%%),将重启浏览器", status.CPUUsage)
		return true, "cpu"
	}
	return false, ""
}

// classifyPressure 按可用内存(MB)划分压力等级
func classifyPressure(availableMB int64) string {
	switch {
	case availableMB < 200:
		return PressureEmergency
	case availableMB < 300:
		return PressureCritical
	case availableMB < 500:
		return PressureWarning
	default:
		return PressureNormal
	}
}

func pressureRank(p string) int {
	switch p {
	case PressureWarning:
		return 1
	case PressureCritical:
		return 2
	case PressureEmergency:
		return 3
	default:
		return 0
	}
}
