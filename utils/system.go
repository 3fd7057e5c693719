package utils

import (
	"log"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo is a point-in-time snapshot of host resources, exposed on the
// status endpoint so an operator can see whether the box can afford another
// browser instance.
type SystemInfo struct {
	CPUCores       int     `json:"cpu_cores"`
	CPUPercent     float64 `json:"cpu_percent"`
	MemTotalMB     uint64  `json:"mem_total_mb"`
	MemUsedPercent float64 `json:"mem_used_percent"`
}

// CollectSystemInfo gathers CPU and memory usage. Failures are logged and
// leave the corresponding fields at zero; a status page should never error
// out because a probe did.
func CollectSystemInfo() SystemInfo {
	var info SystemInfo

	if cores, err := cpu.Counts(true); err == nil {
		info.CPUCores = cores
	} else {
		log.Printf("WARN: Could not detect CPU cores: %v", err)
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		info.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemTotalMB = vm.Total / (1024 * 1024)
		info.MemUsedPercent = vm.UsedPercent
	} else {
		log.Printf("WARN: Could not read memory stats: %v", err)
	}

	return info
}
