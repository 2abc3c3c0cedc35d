package http

import (
	"errors"
	"net/http"

	"zro-loans/internal/domain/application"
	"zro-loans/internal/infrastructure/metrics"
	"zro-loans/internal/usecase/status"

	"github.com/labstack/echo/v4"
)

// StatusHandler is the public, token-gated status gateway.
type StatusHandler struct {
	uc      *status.Usecase
	metrics *metrics.Metrics
}

func NewStatusHandler(uc *status.Usecase, m *metrics.Metrics) *StatusHandler {
	return &StatusHandler{uc: uc, metrics: m}
}

// Check answers 404 identically for an unknown id and a wrong token.
func (h *StatusHandler) Check(c echo.Context) error {
	var req status.CheckInput
	if err := c.Bind(&req); err != nil {
		h.metrics.StatusLookup("bad_request")
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	dto, err := h.uc.Check(c.Request().Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, status.ErrMissingFields):
		h.metrics.StatusLookup("bad_request")
		return errJSON(c, http.StatusBadRequest, "application_id and client_token are required")
	case errors.Is(err, application.ErrNotFound):
		h.metrics.StatusLookup("not_found")
		return errJSON(c, http.StatusNotFound, "Application not found")
	default:
		h.metrics.StatusLookup("error")
		return errJSON(c, http.StatusInternalServerError, "Failed to fetch application")
	}
	h.metrics.StatusLookup("ok")
	return c.JSON(http.StatusOK, dataResponse{Data: dto})
}
