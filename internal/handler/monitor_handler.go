package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prepnotes/mocktest-backend/internal/config"
	"github.com/prepnotes/mocktest-backend/internal/middleware"
	"github.com/prepnotes/mocktest-backend/internal/model"
	"github.com/prepnotes/mocktest-backend/internal/response"
	"github.com/prepnotes/mocktest-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// monitorRefreshInterval is how often the full progress snapshot is
	// recomputed and pushed, independent of live events.
	monitorRefreshInterval = 15 * time.Second
	// monitorKeepAliveInterval keeps intermediary proxies from closing
	// an otherwise quiet stream.
	monitorKeepAliveInterval = 30 * time.Second
	// monitorRefreshTimeout bounds one snapshot recomputation.
	monitorRefreshTimeout = 5 * time.Second
)

// MonitorHandler streams the live proctoring dashboard over SSE: a full
// snapshot on connect, per-candidate events as they happen, and periodic
// refreshes.
type MonitorHandler struct {
	monitorService *service.MonitorService
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(monitorService *service.MonitorService, rdb *redis.Client, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitorService: monitorService,
		rdb:            rdb,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// StreamProduct godoc
// GET /api/v1/admin/products/:product_id/monitor
// Server-Sent Events stream of one product's live exam floor.
func (h *MonitorHandler) StreamProduct(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	ctx := c.Request.Context()

	pubsub := h.rdb.Subscribe(ctx, config.CacheKey.ProductMonitorChannel(productID.String()))
	defer pubsub.Close()

	log := h.log.With().
		Str("product_id", productID.String()).
		Int("admin_id", claims.UserID).
		Logger()
	log.Info().Msg("monitor stream opened")
	defer log.Info().Msg("monitor stream closed")

	// Initial snapshot so the dashboard renders immediately.
	h.sendSnapshot(ctx, c, productID)

	refreshTicker := time.NewTicker(monitorRefreshInterval)
	defer refreshTicker.Stop()
	keepAliveTicker := time.NewTicker(monitorKeepAliveInterval)
	defer keepAliveTicker.Stop()

	events := pubsub.Channel()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-events:
			if !ok {
				return false
			}
			var ev model.MonitorEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Warn().Err(err).Msg("malformed monitor event on channel")
				return true
			}
			c.SSEvent("event", ev)
			return true
		case <-refreshTicker.C:
			h.sendSnapshot(ctx, c, productID)
			return true
		case <-keepAliveTicker.C:
			c.SSEvent("keep-alive", gin.H{"ts": time.Now().Unix()})
			return true
		}
	})
}

func (h *MonitorHandler) sendSnapshot(ctx context.Context, c *gin.Context, productID uuid.UUID) {
	refreshCtx, cancel := context.WithTimeout(ctx, monitorRefreshTimeout)
	defer cancel()

	snapshot, err := h.monitorService.GetCandidateProgress(refreshCtx, productID)
	if err != nil {
		h.log.Warn().Err(err).Str("product_id", productID.String()).Msg("snapshot refresh failed")
		return
	}

	c.SSEvent("snapshot", snapshot)
	c.Writer.Flush()
}
