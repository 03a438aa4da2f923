package handler

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"sweeper/internal/cleanup/service"
	apperrors "sweeper/pkg/errors"
	httputil "sweeper/pkg/http"
	"sweeper/pkg/logger"
	"sweeper/pkg/middleware"
	"sweeper/pkg/model"
)

// SweepHandler runs one sweep per request. GET and POST behave the same so
// that schedulers limited to either verb can trigger it.
type SweepHandler struct {
	svc service.SweepService
	log *logger.Logger
}

func NewSweepHandler(svc service.SweepService, log *logger.Logger) *SweepHandler {
	return &SweepHandler{svc: svc, log: log}
}

func (h *SweepHandler) Sweep(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := middleware.RequestID(r)

	result, err := h.svc.Run(r.Context(), requestID)
	if result == nil {
		if err == nil {
			err = errors.New("sweep returned no result")
		}
		h.writeError(w, apperrors.SweepFailed(err))
		return
	}

	status := http.StatusOK
	if result.Status == model.SweepStatusError {
		status = http.StatusInternalServerError
	}

	if err := httputil.WriteJSON(w, status, result); err != nil {
		h.log.Error("failed to write JSON response",
			"handler", "Sweep",
			"operation", "WriteJSON",
			"request_id", requestID,
			"error", err,
		)
	}
}

func (h *SweepHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := apperrors.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "error", writeErr)
	}
}

func (h *SweepHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/", h.Sweep)
	router.POST("/", h.Sweep)
}
