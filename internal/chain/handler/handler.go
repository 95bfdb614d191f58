package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chainlead/internal/chain/service"
	"chainlead/pkg/platform/httputil"
	"chainlead/pkg/requestcontext"
)

// Service defines the interface for chain detection.
type Service interface {
	Detect(ctx context.Context, req service.Request) (*service.Result, error)
}

// Handler wires the detection endpoint to the chain service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a chain handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts chain endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/chains/detect", h.HandleDetect)
}

// HandleDetect handles POST /chains/detect. The body selects the mode:
// soldListingId, else a full street/city/state/zip address, else a batch scan.
func (h *Handler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[DetectRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	detection := req.Detection()

	result, err := h.service.Detect(ctx, detection)
	if err != nil {
		h.logger.ErrorContext(ctx, "chain detection failed",
			"request_id", requestID,
			"mode", detection.Mode,
			"listing_id", detection.ListingID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "chain detection completed",
		"request_id", requestID,
		"mode", detection.Mode,
		"chains_detected", len(result.Chains),
		"chains_persisted", result.ChainsPersisted,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
