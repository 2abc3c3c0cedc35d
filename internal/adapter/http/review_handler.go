package http

import (
	"errors"
	"net/http"

	"zro-loans/internal/auth"
	"zro-loans/internal/domain/application"
	"zro-loans/internal/infrastructure/metrics"
	"zro-loans/internal/usecase/review"

	"github.com/labstack/echo/v4"
)

type ReviewHandler struct {
	uc      *review.Usecase
	metrics *metrics.Metrics
}

func NewReviewHandler(uc *review.Usecase, m *metrics.Metrics) *ReviewHandler {
	return &ReviewHandler{uc: uc, metrics: m}
}

func principal(c echo.Context) auth.Principal {
	p, _ := auth.FromContext(c.Request().Context())
	return p
}

func (h *ReviewHandler) List(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context(), principal(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ReviewHandler) Approve(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return errJSON(c, http.StatusBadRequest, "missing id path param")
	}
	var req review.ApproveInput
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	dto, err := h.uc.Approve(c.Request().Context(), principal(c), id, req)
	h.metrics.Decision("approve", outcome(err))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dataResponse{Data: dto})
}

func (h *ReviewHandler) Reject(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return errJSON(c, http.StatusBadRequest, "missing id path param")
	}
	dto, err := h.uc.Reject(c.Request().Context(), principal(c), id)
	h.metrics.Decision("reject", outcome(err))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dataResponse{Data: dto})
}

func (h *ReviewHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return errJSON(c, http.StatusBadRequest, "missing id path param")
	}
	err := h.uc.Delete(c.Request().Context(), principal(c), id)
	h.metrics.Decision("delete", outcome(err))
	if err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, application.ErrAlreadyDecided), errors.Is(err, application.ErrNotTerminal):
		return "conflict"
	case errors.Is(err, application.ErrNotFound):
		return "not_found"
	case isValidation(err):
		return "invalid"
	default:
		return "error"
	}
}

// Map domain errors → HTTP codes
func (h *ReviewHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrForbidden):
		return errJSON(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, application.ErrNotFound):
		return errJSON(c, http.StatusNotFound, "application not found")
	case errors.Is(err, application.ErrAlreadyDecided):
		return errJSON(c, http.StatusConflict, "application already decided")
	case errors.Is(err, application.ErrNotTerminal):
		return errJSON(c, http.StatusConflict, err.Error())
	case isValidation(err):
		return validationFailed(c, err)
	case errors.Is(err, application.ErrStoreUnavailable):
		return errJSON(c, http.StatusServiceUnavailable, "application store unavailable")
	default:
		return errJSON(c, http.StatusInternalServerError, "internal error")
	}
}
