package api

import (
	"database/sql"
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics is the GET /metrics response.
type SystemMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          *MQTTMetrics     `json:"mqtt,omitempty"`
	Executor      ExecutorMetrics  `json:"executor"`
	Store         StoreMetrics     `json:"store"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
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

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// ExecutorMetrics summarises the run slot and queue.
type ExecutorMetrics struct {
	Busy        bool   `json:"busy"`
	ActiveRunID string `json:"active_run_id,omitempty"`
	Queued      int    `json:"queued"`
	History     int    `json:"history"`
}

// StoreMetrics counts stored definitions.
type StoreMetrics struct {
	Sequences       int `json:"sequences"`
	Schedules       int `json:"schedules"`
	ActiveSchedules int `json:"active_schedules"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// ConnectionState reports broker connectivity.
type ConnectionState interface {
	IsConnected() bool
}

// PoolStats exposes database/sql pool statistics.
type PoolStats interface {
	Stats() sql.DBStats
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
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
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Executor: ExecutorMetrics{
			Queued:  len(s.executor.Queued()),
			History: len(s.executor.History()),
		},
		Store: StoreMetrics{
			Sequences:       s.sequences.Count(),
			Schedules:       s.schedules.Count(),
			ActiveSchedules: len(s.schedules.ListActive(r.Context())),
		},
	}

	if run, ok := s.executor.Active(); ok {
		metrics.Executor.Busy = true
		metrics.Executor.ActiveRunID = run.ID
	}
	if s.mqtt != nil {
		metrics.MQTT = &MQTTMetrics{Connected: s.mqtt.IsConnected()}
	}
	if s.db != nil {
		st := s.db.Stats()
		metrics.Database = &DatabaseMetrics{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			Idle:            st.Idle,
			WaitCount:       st.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
