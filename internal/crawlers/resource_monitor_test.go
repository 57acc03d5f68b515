package crawlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPressure(t *testing.T) {
	tests := []struct {
		availableMB int64
		want        string
	}{
		{4096, PressureNormal},
		{500, PressureNormal},
		{499, PressureWarning},
		{299, PressureCritical},
		{199, PressureEmergency},
		{-100, PressureEmergency},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyPressure(tt.availableMB), "可用内存 %dMB", tt.availableMB)
	}
}

func TestResourceMonitor_ShouldRecycle(t *testing.T) {
	// 保留量远超物理内存,必然处于紧急压力
	rm := NewResourceMonitor(ResourceMonitorConfig{SafetyReserveMemory: 1 << 50, CPULoadThreshold: 200})
	recycle, reason := rm.ShouldRecycle()
	assert.True(t, recycle)
	assert.Equal(t, PressureEmergency, reason)

	// 仅在紧急压力时回收,且保留量为负相当于放宽
	rm = NewResourceMonitor(ResourceMonitorConfig{
		SafetyReserveMemory: -(1 << 40),
		CPULoadThreshold:    200,
		RecycleOnPressure:   PressureEmergency,
	})
	recycle, _ = rm.ShouldRecycle()
	assert.False(t, recycle)
}
