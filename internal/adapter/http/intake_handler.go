package http

import (
	"errors"
	"net/http"

	"zro-loans/internal/domain/application"
	"zro-loans/internal/infrastructure/metrics"
	"zro-loans/internal/usecase/intake"

	"github.com/labstack/echo/v4"
)

type IntakeHandler struct {
	uc      *intake.Usecase
	metrics *metrics.Metrics
}

func NewIntakeHandler(uc *intake.Usecase, m *metrics.Metrics) *IntakeHandler {
	return &IntakeHandler{uc: uc, metrics: m}
}

type createApplicationReq struct {
	FullName string `json:"full_name" validate:"notblank"`
	CPF      string `json:"cpf"       validate:"notblank"`
	Email    string `json:"email"     validate:"notblank,hasat"`
	LoanType string `json:"loan_type" validate:"loantype"`
}

func (h *IntakeHandler) CreateApplication(c echo.Context) error {
	var req createApplicationReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		h.metrics.Submission("invalid")
		return validationFailed(c, err)
	}
	dto, err := h.uc.Create(c.Request().Context(), intake.CreateApplicationInput{
		FullName: req.FullName,
		CPF:      req.CPF,
		Email:    req.Email,
		LoanType: req.LoanType,
	})
	switch {
	case err == nil:
	case isValidation(err):
		h.metrics.Submission("invalid")
		return validationFailed(c, err)
	case errors.Is(err, application.ErrStoreUnavailable):
		h.metrics.Submission("error")
		return errJSON(c, http.StatusServiceUnavailable, "Failed to submit application")
	default:
		h.metrics.Submission("error")
		return errJSON(c, http.StatusInternalServerError, "Failed to submit application")
	}
	h.metrics.Submission("ok")
	return c.JSON(http.StatusCreated, dataResponse{Data: dto})
}
