package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the JSON summary served at /api/v1/system.
// Prometheus scrapes /metrics; this endpoint is for humans and dashboards.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	Lot           LotMetrics     `json:"lot"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// LotMetrics summarises occupancy.
type LotMetrics struct {
	Location      string  `json:"location"`
	Occupied      int     `json:"occupied"`
	AvailableBays int     `json:"available_bays"`
	OccupancyPct  float64 `json:"occupancy_pct"`
}

const bytesPerMB = 1024 * 1024

// handleSystemMetrics returns runtime, hub and occupancy statistics.
func (s *Server) handleSystemMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	status := s.lot.Snapshot()
	m := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / bytesPerMB,
			MemoryTotalMB: float64(memStats.TotalAlloc) / bytesPerMB,
			NumGC:         memStats.NumGC,
		},
		Lot: LotMetrics{
			Location:      status.Location,
			Occupied:      status.Occupied,
			AvailableBays: status.AvailableBays,
		},
	}

	// Over-capacity lots report above 100.
	if status.Capacity > 0 {
		m.Lot.OccupancyPct = float64(status.Occupied) / float64(status.Capacity) * 100
	}

	if s.hub != nil {
		m.WebSocket.ConnectedClients = s.hub.ClientCount()
	}

	respond(w, http.StatusOK, m)
}
