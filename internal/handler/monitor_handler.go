package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/recruitment-portal/internal/config"
	"github.com/stemsi/recruitment-portal/internal/response"
	"github.com/stemsi/recruitment-portal/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second
)

// MonitorHandler streams the live proctor feed to administrators.
type MonitorHandler struct {
	rdb            *redis.Client
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(rdb *redis.Client, monitorService *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// Snapshot godoc
// GET /api/v1/admin/monitor/snapshot
func (h *MonitorHandler) Snapshot(c *gin.Context) {
	snap, err := h.monitorService.Snapshot(c.Request.Context())
	if err != nil {
		failWith(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

// MonitorSSE godoc
// GET /api/v1/admin/monitor
// Sends a snapshot, then forwards every published test event.
func (h *MonitorHandler) MonitorSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	if !h.sendSnapshot(c, reqCtx, "snapshot") {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrPersistence)
		return
	}

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.TestMonitorChannel())
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()
	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Refreshes are skipped while nothing happens.
	dirty := false
	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	h.log.Info().Msg("Admin attached to live monitor SSE")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
			dirty = true

		case <-refreshTicker.C:
			if !dirty {
				continue
			}
			if h.sendSnapshot(c, reqCtx, "refresh") {
				dirty = false
			}

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes one snapshot event. It reports false when the status
// store could not be read.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parent context.Context, kind string) bool {
	ctx, cancel := context.WithTimeout(parent, refreshTimeout)
	defer cancel()

	snap, err := h.monitorService.Snapshot(ctx)
	if err != nil {
		h.log.Warn().Err(err).Str("kind", kind).Msg("Failed to build monitor snapshot")
		return false
	}

	c.SSEvent("message", map[string]interface{}{
		"type": kind,
		"data": snap,
	})
	c.Writer.Flush()
	return true
}
