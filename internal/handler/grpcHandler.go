package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"filetree-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Health runs dependency checks and publishes the result both over the gRPC
// health protocol and on an HTTP endpoint. The overall service "" is SERVING
// only while every check passes; each check is also published under its own name.
type Health struct {
	checks  map[string]Check
	server  *health.Server
	timeout time.Duration
}

func NewHealth(checks map[string]Check) *Health {
	h := &Health{
		checks:  checks,
		server:  health.NewServer(),
		timeout: 2 * time.Second,
	}
	h.server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	for name := range checks {
		h.server.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return h
}

// Server is the gRPC health service to register on a grpc.Server.
func (h *Health) Server() *health.Server {
	return h.server
}

// Probe runs every check once and returns the per-check result.
func (h *Health) Probe(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make(map[string]string, len(names))
	healthy := true
	for _, name := range names {
		status := healthpb.HealthCheckResponse_SERVING
		result[name] = "ok"
		if err := h.checks[name](ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			result[name] = err.Error()
			healthy = false
			logger.GetLogger(ctx).Warn("health check failed", zap.String("check", name), zap.Error(err))
		}
		h.server.SetServingStatus(name, status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", overall)
	return result, healthy
}

// Run probes every interval until ctx is done.
func (h *Health) Run(ctx context.Context, interval time.Duration) {
	h.Probe(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Probe(ctx)
		}
	}
}

// Shutdown marks everything NOT_SERVING so clients stop routing here.
func (h *Health) Shutdown() {
	h.server.Shutdown()
}

// HTTP answers GET /healthz with a fresh probe.
func (h *Health) HTTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, healthy := h.Probe(c.Request.Context())
		if !healthy {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": result})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": result})
	}
}
