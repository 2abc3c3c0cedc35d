package http

import (
	"context"
	"errors"
	"net/http"

	"zro-loans/internal/domain/application"
	"zro-loans/internal/usecase/wizard"

	"github.com/labstack/echo/v4"
)

type WizardHandler struct{ uc *wizard.Usecase }

func NewWizardHandler(uc *wizard.Usecase) *WizardHandler { return &WizardHandler{uc: uc} }

type startWizardReq struct {
	LoanType string `json:"loan_type"`
}

type invalidLoanTypeResp struct {
	Error string `json:"error"`
	View  string `json:"view"`
	Home  string `json:"home"`
}

func (h *WizardHandler) Start(c echo.Context) error {
	var req startWizardReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.LoanType == "" {
		req.LoanType = c.QueryParam("type")
	}
	v, err := h.uc.Start(c.Request().Context(), req.LoanType)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, dataResponse{Data: v})
}

func (h *WizardHandler) Get(c echo.Context) error {
	v, err := h.uc.Get(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dataResponse{Data: v})
}

func (h *WizardHandler) UpdateDraft(c echo.Context) error {
	var d wizard.Draft
	if err := c.Bind(&d); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	v, err := h.uc.UpdateDraft(c.Request().Context(), c.Param("session_id"), d)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dataResponse{Data: v})
}

func (h *WizardHandler) Confirm(c echo.Context) error {
	return h.transition(c, h.uc.Confirm)
}

func (h *WizardHandler) Back(c echo.Context) error {
	return h.transition(c, h.uc.Back)
}

func (h *WizardHandler) Submit(c echo.Context) error {
	return h.transition(c, h.uc.Submit)
}

func (h *WizardHandler) transition(c echo.Context, step func(ctx context.Context, id string) (*wizard.View, error)) error {
	v, err := step(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dataResponse{Data: v})
}

func (h *WizardHandler) fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, application.ErrInvalidLoanType):
		return c.JSON(http.StatusBadRequest, invalidLoanTypeResp{Error: "invalid loan type", View: "invalid_loan_type", Home: "/"})
	case errors.Is(err, wizard.ErrSessionNotFound):
		return errJSON(c, http.StatusNotFound, "wizard session not found")
	case errors.Is(err, wizard.ErrWrongState), errors.Is(err, wizard.ErrBusy):
		return errJSON(c, http.StatusConflict, err.Error())
	case isValidation(err):
		return validationFailed(c, err)
	case errors.Is(err, application.ErrStoreUnavailable):
		return errJSON(c, http.StatusServiceUnavailable, "Failed to submit application")
	default:
		return errJSON(c, http.StatusServiceUnavailable, "wizard store unavailable")
	}
}
