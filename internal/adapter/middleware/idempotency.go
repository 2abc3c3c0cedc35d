package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const (
	HeaderRequestID = "Ax-Request-Id"
	HeaderRequestAt = "Ax-Request-At"
	HeaderReplayed  = "Idempotent-Replayed"

	// a claim outlives any handler; a crashed request frees its key after this
	claimTTL     = 60 * time.Second
	maxClockSkew = 10 * time.Minute
	storeTimeout = 2 * time.Second
)

// capture tees the response so the final status and body can be stored.
type capture struct {
	http.ResponseWriter
	body bytes.Buffer
	code int
}

func (w *capture) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capture) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Idempotency makes a retried submission replay the first response instead of
// creating a second record. Entries are keyed by method, route template and
// Ax-Request-Id; a reused id with a different body is a conflict. 5xx results
// are dropped so the client may retry.
func Idempotency(rdb *redis.Client, ttl time.Duration, log *slog.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = slog.Default()
	}
	store := &replayStore{rdb: rdb, claimTTL: claimTTL, ttl: ttl}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			reqID, err := parseRequestID(req.Header.Get(HeaderRequestID))
			if err != nil {
				return c.JSON(http.StatusBadRequest, errBody(err.Error()))
			}
			now := time.Now().UTC()
			reqAt, err := parseRequestAt(req.Header.Get(HeaderRequestAt), now, maxClockSkew)
			if err != nil {
				return c.JSON(http.StatusBadRequest, errBody(err.Error()))
			}

			var body []byte
			if req.Body != nil {
				body, _ = io.ReadAll(req.Body)
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			sum := digest(body)
			key := replayKey(req.Method, routeOf(c), reqID)

			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()
			claimed, err := store.claim(ctx, key, submission{Pending: true, Digest: sum, RequestAt: reqAt, StoredAt: now})
			if err != nil {
				log.ErrorContext(req.Context(), "idempotency store unavailable", "err", err)
				return c.JSON(http.StatusServiceUnavailable, errBody("idempotency store unavailable"))
			}
			if !claimed {
				prev, err := store.get(ctx, key)
				if err != nil && !errors.Is(err, redis.Nil) {
					log.WarnContext(req.Context(), "idempotency load failed", "key", key, "err", err)
				}
				switch {
				case prev.Digest != "" && prev.Digest != sum:
					return c.JSON(http.StatusConflict, errBody("Ax-Request-Id reused with different body"))
				case prev.replayable():
					c.Response().Header().Set(HeaderReplayed, "true")
					return c.Blob(prev.Code, echo.MIMEApplicationJSON, prev.Body)
				default:
					return c.JSON(http.StatusConflict, errBody("request is already in progress"))
				}
			}

			w := &capture{ResponseWriter: c.Response().Writer, code: http.StatusOK}
			c.Response().Writer = w
			if err := next(c); err != nil {
				// render here so the stored entry holds the error response
				c.Error(err)
			}

			// request ctx may be gone by now
			saveCtx, saveCancel := context.WithTimeout(context.Background(), storeTimeout)
			defer saveCancel()
			if w.code >= http.StatusInternalServerError {
				if err := store.release(saveCtx, key); err != nil {
					log.WarnContext(req.Context(), "idempotency release failed", "key", key, "err", err)
				}
				return nil
			}
			final := submission{Code: w.code, Body: w.body.Bytes(), Digest: sum, RequestAt: reqAt, StoredAt: time.Now().UTC()}
			if err := store.complete(saveCtx, key, final); err != nil {
				log.WarnContext(req.Context(), "idempotency save failed", "key", key, "err", err)
			}
			return nil
		}
	}
}

func routeOf(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return c.Request().URL.Path
}

func errBody(msg string) map[string]string { return map[string]string{"error": msg} }
