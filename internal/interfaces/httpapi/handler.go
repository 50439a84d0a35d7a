package httpapi

import (
	"fmt"
	"net/http"

	"github.com/riskibarqy/aiqyn-learn/internal/platform/logging"
)

const (
	statusRunning = "AIQYN Bot is running!"
	statusHealthy = "healthy"
)

type rootStatusDTO struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type healthDTO struct {
	Status string `json:"status"`
}

type Handler struct {
	version string
	metrics http.Handler
	logger  *logging.Logger
}

// NewHandler builds the status handler. A nil metrics handler disables
// GET /metrics.
func NewHandler(version string, metrics http.Handler, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if version == "" {
		version = "1.0"
	}

	return &Handler{
		version: version,
		metrics: metrics,
		logger:  logger,
	}
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Root")
	defer span.End()

	writeJSON(ctx, w, http.StatusOK, rootStatusDTO{Status: statusRunning, Version: h.version})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeJSON(ctx, w, http.StatusOK, healthDTO{Status: statusHealthy})
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.NotFound")
	defer span.End()

	writeError(ctx, w, fmt.Errorf("%w: %s %s", errRouteNotFound, r.Method, r.URL.Path))
}
