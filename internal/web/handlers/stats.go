package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/roll-call/internal/attendance"
	"github.com/kozaktomas/roll-call/internal/database"
)

const statsCacheTTL = time.Minute

// statsCache holds cached dashboard stats with expiry.
type statsCache struct {
	mu        sync.RWMutex
	data      *database.DashboardStats
	expiresAt time.Time
}

func (c *statsCache) get() (*database.DashboardStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil, false
	}
	return c.data, true
}

func (c *statsCache) set(data *database.DashboardStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = data
	c.expiresAt = time.Now().Add(statsCacheTTL)
}

func (c *statsCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}

// StatsHandler handles the dashboard statistics endpoint.
type StatsHandler struct {
	service *attendance.Service
	cache   statsCache
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(service *attendance.Service) *StatsHandler {
	return &StatsHandler{service: service}
}

// InvalidateCache clears the cached stats so the next request fetches fresh data.
func (h *StatsHandler) InvalidateCache() {
	h.cache.invalidate()
}

// Get returns the dashboard headline numbers.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.cache.get(); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		respondStorageError(w, err)
		return
	}
	h.cache.set(stats)
	respondJSON(w, http.StatusOK, stats)
}
