// Package server provides the HTTP server and routing for Argus.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/argus/internal/database"
	"github.com/aristath/argus/internal/scheduler"
)

// SystemInfoResponse is the payload for GET /api/system/info.
type SystemInfoResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	DiskPercent   float64 `json:"disk_percent"`
	DiskFreeGB    float64 `json:"disk_free_gb"`
	Goroutines    int     `json:"goroutines"`
}

// DBInfo describes one database file.
type DBInfo struct {
	Name       string  `json:"name"`
	SizeMB     float64 `json:"size_mb"`
	WALSizeMB  float64 `json:"wal_size_mb"`
	PageCount  int64   `json:"page_count"`
	FreePages  int64   `json:"free_pages"`
	StatsError string  `json:"stats_error,omitempty"`
}

// DatabaseStatsResponse is the payload for GET /api/system/database/stats.
type DatabaseStatsResponse struct {
	Databases   []DBInfo `json:"databases"`
	TotalSizeMB float64  `json:"total_size_mb"`
	LastChecked string   `json:"last_checked"`
}

// DiskUsageResponse is the payload for GET /api/system/disk.
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
	BackupsMB float64 `json:"backups_mb"`
	TotalMB   float64 `json:"total_mb"`
}

// JobsStatusResponse is the payload for GET /api/system/jobs.
type JobsStatusResponse struct {
	TotalRuns int                `json:"total_runs"`
	Runs      []scheduler.JobRun `json:"runs"`
}

// SystemHandlers serves the system monitoring endpoints.
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	backupDir string
	startedAt time.Time
	databases map[string]*database.DB
	history   *scheduler.JobHistoryRepository
}

// NewSystemHandlers creates the system monitoring handlers. history may be
// nil; the jobs endpoint then returns an empty run list.
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	backupDir string,
	databases map[string]*database.DB,
	history *scheduler.JobHistoryRepository,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		backupDir: backupDir,
		startedAt: time.Now(),
		databases: databases,
		history:   history,
	}
}

// HandleSystemInfo returns CPU, memory, disk and uptime statistics.
func (h *SystemHandlers) HandleSystemInfo(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system info")

	response := SystemInfoResponse{
		Status:        "healthy",
		Version:       "1.0.0",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}

	// Sampled over 100ms so the endpoint stays fast for pollers
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		response.CPUPercent = cpuPercent[0]
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		response.MemoryPercent = memStat.UsedPercent
		response.MemoryUsedMB = float64(memStat.Used) / 1024 / 1024
		response.MemoryTotalMB = float64(memStat.Total) / 1024 / 1024
	}

	diskStat, err := disk.Usage(h.dataDir)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get disk usage")
	} else {
		response.DiskPercent = diskStat.UsedPercent
		response.DiskFreeGB = float64(diskStat.Free) / 1024 / 1024 / 1024
	}

	h.writeJSON(w, response)
}

// HandleDatabaseStats returns per-database size statistics.
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting database stats")

	names := make([]string, 0, len(h.databases))
	for name := range h.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	infos := make([]DBInfo, 0, len(names))
	totalSizeMB := 0.0

	for _, name := range names {
		info := DBInfo{Name: name}
		stats, err := h.databases[name].GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			info.StatsError = err.Error()
		} else {
			info.SizeMB = float64(stats.SizeBytes) / 1024 / 1024
			info.WALSizeMB = float64(stats.WALSizeBytes) / 1024 / 1024
			info.PageCount = stats.PageCount
			info.FreePages = stats.FreelistCount
			totalSizeMB += info.SizeMB
		}
		infos = append(infos, info)
	}

	h.writeJSON(w, DatabaseStatsResponse{
		Databases:   infos,
		TotalSizeMB: totalSizeMB,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// HandleDiskUsage returns directory size statistics.
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting disk usage")

	dataDirSize := h.getDirSize(h.dataDir)
	backupsSize := h.getDirSize(h.backupDir)

	h.writeJSON(w, DiskUsageResponse{
		DataDirMB: dataDirSize,
		BackupsMB: backupsSize,
		TotalMB:   dataDirSize + backupsSize,
	})
}

// HandleJobsStatus returns recent scheduled job runs. Supports ?job= to
// filter by job name and ?limit= to cap the row count.
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting jobs status")

	runs := []scheduler.JobRun{}
	if h.history != nil {
		jobName := r.URL.Query().Get("job")
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				limit = parsed
			}
		}

		fetched, err := h.history.RecentRuns(jobName, limit)
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get job history")
		} else {
			runs = fetched
		}
	}

	h.writeJSON(w, JobsStatusResponse{
		TotalRuns: len(runs),
		Runs:      runs,
	})
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
