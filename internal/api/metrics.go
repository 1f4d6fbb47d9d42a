package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	QRC           QRCMetrics     `json:"qrc"`
	Groups        GroupMetrics   `json:"groups"`
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

// QRCMetrics contains QRC connection statistics.
type QRCMetrics struct {
	Connected  bool   `json:"connected"`
	RequestsTx uint64 `json:"requests_tx"`
	FramesRx   uint64 `json:"frames_rx"`
}

// GroupMetrics contains change-group statistics.
type GroupMetrics struct {
	Total        int   `json:"total"`
	AutoPolling  int   `json:"auto_polling"`
	CachedEvents int   `json:"cached_events"`
	PollFailures int64 `json:"poll_failures"`
}

// handleMetrics returns system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
	}

	if s.hub != nil {
		metrics.WebSocket.ConnectedClients = s.hub.ClientCount()
	}

	if s.qrc != nil {
		stats := s.qrc.GetStats()
		metrics.QRC = QRCMetrics{
			Connected:  s.qrc.IsConnected(),
			RequestsTx: stats.RequestsTx,
			FramesRx:   stats.FramesRx,
		}
	}

	for _, info := range s.groups.List() {
		metrics.Groups.Total++
		if info.HasAutoPoll {
			metrics.Groups.AutoPolling++
		}
		metrics.Groups.CachedEvents += s.events.GroupSize(info.ID)
		metrics.Groups.PollFailures += s.groups.ConsecutiveFailures(info.ID)
	}

	writeJSON(w, http.StatusOK, metrics)
}
