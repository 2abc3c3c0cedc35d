package http

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type Routes struct {
	Health *Handler
	Intake *IntakeHandler
	Status *StatusHandler
	Wizard *WizardHandler
	Review *ReviewHandler
	Feed   echo.HandlerFunc

	Idempotency  echo.MiddlewareFunc
	RateLimit    echo.MiddlewareFunc
	RequireAdmin echo.MiddlewareFunc
	Metrics      http.Handler
}

// NewEcho builds the server with the shared middleware chain.
func NewEcho(log *slog.Logger, observe echo.MiddlewareFunc) *echo.Echo {
	if log == nil {
		log = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()
	// clients talk to us directly; forwarded-for headers are client supplied
	e.IPExtractor = echo.ExtractIPDirect()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency, "request_id", v.RequestID}
			if v.Error != nil {
				log.LogAttrs(c.Request().Context(), slog.LevelError, "request", slog.Group("http", attrs...), slog.String("err", v.Error.Error()))
				return nil
			}
			log.LogAttrs(c.Request().Context(), slog.LevelInfo, "request", slog.Group("http", attrs...))
			return nil
		},
	}))
	// the status gateway is called from arbitrary client origins
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"authorization", "x-client-info", "apikey", "content-type", "ax-request-id", "ax-request-at"},
	}))
	if observe != nil {
		e.Use(observe)
	}
	return e
}

func Register(e *echo.Echo, r Routes) {
	chain := func(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
		out := make([]echo.MiddlewareFunc, 0, len(mws))
		for _, m := range mws {
			if m != nil {
				out = append(out, m)
			}
		}
		return out
	}

	e.GET("/health", r.Health.Health)
	if r.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(r.Metrics))
	}

	v1 := e.Group("/v1")
	v1.GET("/loan-types", r.Health.LoanTypes)
	v1.POST("/applications", r.Intake.CreateApplication, chain(r.Idempotency)...)
	v1.POST("/applications/status", r.Status.Check, chain(r.RateLimit)...)

	wz := v1.Group("/wizard")
	wz.POST("", r.Wizard.Start)
	wz.GET("/:session_id", r.Wizard.Get)
	wz.PUT("/:session_id/draft", r.Wizard.UpdateDraft)
	wz.POST("/:session_id/confirm", r.Wizard.Confirm)
	wz.POST("/:session_id/back", r.Wizard.Back)
	wz.POST("/:session_id/submit", r.Wizard.Submit)

	admin := v1.Group("/admin", chain(r.RequireAdmin)...)
	admin.GET("/applications", r.Review.List)
	admin.POST("/applications/:id/approve", r.Review.Approve)
	admin.POST("/applications/:id/reject", r.Review.Reject)
	admin.DELETE("/applications/:id", r.Review.Delete)
	if r.Feed != nil {
		admin.GET("/feed", r.Feed)
	}
}
