package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"cryptofolio/internal/database"
	"cryptofolio/internal/reliability"
)

// SystemHandlers serves process and host diagnostics.
type SystemHandlers struct {
	log           zerolog.Logger
	ledgerDB      *database.DB
	cacheDB       *database.DB
	backupService *reliability.BackupService
	startTime     time.Time
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(log zerolog.Logger, ledgerDB, cacheDB *database.DB, backupService *reliability.BackupService) *SystemHandlers {
	return &SystemHandlers{
		log:           log.With().Str("handler", "system").Logger(),
		ledgerDB:      ledgerDB,
		cacheDB:       cacheDB,
		backupService: backupService,
		startTime:     time.Now(),
	}
}

// RegisterRoutes registers all system routes
func (h *SystemHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/backups", h.HandleListBackups)
	})
}

// HandleSystemStatus returns host and process resource usage plus database
// statistics.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPct, memPct := h.systemStats()

	databases := make(map[string]interface{})
	for _, db := range []*database.DB{h.ledgerDB, h.cacheDB} {
		if db == nil {
			continue
		}
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", db.Name()).Msg("Failed to get database stats")
			continue
		}
		databases[db.Name()] = map[string]interface{}{
			"size_bytes":     stats.SizeBytes,
			"wal_size_bytes": stats.WALSizeBytes,
			"page_count":     stats.PageCount,
			"page_size":      stats.PageSize,
		}
	}

	response := map[string]interface{}{
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"cpu_percent":    cpuPct,
		"memory_percent": memPct,
		"goroutines":     runtime.NumGoroutine(),
		"databases":      databases,
	}

	if h.ledgerDB != nil {
		if usage, err := disk.Usage(h.ledgerDB.Path()); err == nil {
			response["disk_percent"] = usage.UsedPercent
			response["disk_free_bytes"] = usage.Free
		}
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleListBackups returns local and remote backup archives.
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backupService == nil {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}

	local, err := h.backupService.ListLocalBackups()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list local backups")
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to list backups"})
		return
	}

	remote, err := h.backupService.ListRemoteBackups(r.Context())
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to list remote backups")
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled": true,
		"local":   local,
		"remote":  remote,
	})
}

// systemStats samples CPU over a short window so the handler stays fast.
func (h *SystemHandlers) systemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
