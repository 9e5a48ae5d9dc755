package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/config"
	"github.com/stemsi/recruitment-portal/internal/response"
)

const healthTimeout = 3 * time.Second

// HealthCheck pings one backing store.
type HealthCheck func(ctx context.Context) error

// SystemHandler reports dependency health and Go runtime figures.
type SystemHandler struct {
	rdb       *redis.Client
	checks    map[string]HealthCheck
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. rdb may be nil.
func NewSystemHandler(rdb *redis.Client, checks map[string]HealthCheck, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		checks:    checks,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type componentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Health godoc
// GET /health
// Pings every store concurrently. Any failure turns the response into 503.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		components = make([]componentHealth, 0, len(h.checks))
	)
	for name, check := range h.checks {
		wg.Add(1)
		go func(name string, check HealthCheck) {
			defer wg.Done()
			ch := componentHealth{Name: name, Status: "ok"}
			if err := check(ctx); err != nil {
				ch.Status = "down"
				ch.Error = err.Error()
				h.log.Warn().Err(err).Str("component_name", name).Msg("Health check failed")
			}
			mu.Lock()
			components = append(components, ch)
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	sort.Slice(components, func(i, j int) bool { return components[i].Name < components[j].Name })

	status, code := "ok", http.StatusOK
	for _, ch := range components {
		if ch.Status != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
			break
		}
	}
	response.Success(c, code, gin.H{"status": status, "components": components})
}

type runtimeMetrics struct {
	Uptime          string `json:"uptime"`
	Goroutines      int    `json:"goroutines"`
	HeapAlloc       uint64 `json:"heap_alloc"`
	HeapSys         uint64 `json:"heap_sys"`
	NumGC           uint32 `json:"num_gc"`
	GoVersion       string `json:"go_version"`
	NumCPU          int    `json:"num_cpu"`
	TabSwitchQueued int64  `json:"tab_switch_queued"`
}

// Runtime godoc
// GET /api/v1/admin/system
func (h *SystemHandler) Runtime(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	m := runtimeMetrics{
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  mem.HeapAlloc,
		HeapSys:    mem.HeapSys,
		NumGC:      mem.NumGC,
		GoVersion:  runtime.Version(),
		NumCPU:     runtime.NumCPU(),
	}

	if h.rdb != nil {
		n, err := h.rdb.LLen(c.Request.Context(), config.WorkerKey.PersistTabSwitchQueue).Result()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to read tab switch queue length")
		}
		m.TabSwitchQueued = n
	}

	response.Success(c, http.StatusOK, m)
}
