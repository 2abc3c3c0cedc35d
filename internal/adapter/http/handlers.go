package http

import (
	"net/http"
	"time"

	"zro-loans/internal/domain/application"

	"github.com/labstack/echo/v4"
)

type Handler struct{}

func NewHandler() *Handler { return &Handler{} }

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

type loanTypeDTO struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// LoanTypes lists the products the intake form offers.
func (h *Handler) LoanTypes(c echo.Context) error {
	types := application.LoanTypes()
	out := make([]loanTypeDTO, 0, len(types))
	for _, t := range types {
		out = append(out, loanTypeDTO{Value: string(t), Label: t.Label()})
	}
	return c.JSON(http.StatusOK, dataResponse{Data: out})
}
