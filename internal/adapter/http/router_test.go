package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"zro-loans/internal/adapter/middleware"
	"zro-loans/internal/adapter/repository/gormrepo"
	"zro-loans/internal/adapter/repository/redisrepo"
	"zro-loans/internal/auth"
	domain "zro-loans/internal/domain/application"
	"zro-loans/internal/testutil/feedmock"
	"zro-loans/internal/usecase/intake"
	"zro-loans/internal/usecase/review"
	"zro-loans/internal/usecase/status"
	"zro-loans/internal/usecase/wizard"
	"zro-loans/pkg/id"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stack struct {
	e        *echo.Echo
	db       *gorm.DB
	events   *feedmock.Publisher
	adminTok string
}

func newStack(t *testing.T) *stack {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&domain.LoanApplication{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := gormrepo.NewApplicationRepository(db)
	events := &feedmock.Publisher{}
	intakeUC := intake.NewUsecase(repo, events, quiet)
	statusUC := status.NewUsecase(repo, quiet)
	reviewUC := review.NewUsecase(repo, gormrepo.NewGormUoW(db), events, quiet)
	wizardUC := wizard.NewUsecase(redisrepo.NewWizardSessionStore(rdb, time.Hour), intakeUC, statusUC, quiet)

	v := auth.NewVerifier(testSecret)
	tok, err := v.Issue("ops@zro", auth.RoleAdmin, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	e := NewEcho(quiet, nil)
	Register(e, Routes{
		Health:       NewHandler(),
		Intake:       NewIntakeHandler(intakeUC, nil),
		Status:       NewStatusHandler(statusUC, nil),
		Wizard:       NewWizardHandler(wizardUC),
		Review:       NewReviewHandler(reviewUC, nil),
		Idempotency:  middleware.Idempotency(rdb, time.Minute, quiet),
		RateLimit:    middleware.RateLimit(middleware.NewIPRateLimiter(1000, 1000), quiet),
		RequireAdmin: middleware.RequireAdmin(v),
	})
	return &stack{e: e, db: db, events: events, adminTok: tok}
}

func (s *stack) do(t *testing.T, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, _ := json.Marshal(b)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *stack) admin() map[string]string {
	return map[string]string{echo.HeaderAuthorization: "Bearer " + s.adminTok}
}

func idempHeaders() map[string]string {
	return map[string]string{
		"Ax-Request-Id": id.NewID32(),
		"Ax-Request-At": time.Now().UTC().Format(time.RFC3339),
	}
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var env struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("bad json %q: %v", rec.Body.String(), err)
	}
	return env.Data
}

func (s *stack) submit(t *testing.T) intake.CreatedDTO {
	t.Helper()
	rec := s.do(t, stdhttp.MethodPost, "/v1/applications", map[string]string{
		"full_name": "Maria Souza", "cpf": "123.456.789-09", "email": "maria@example.com", "loan_type": "fgts",
	}, idempHeaders())
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("submit = %d %s", rec.Code, rec.Body.String())
	}
	return decodeData[intake.CreatedDTO](t, rec)
}

func (s *stack) check(t *testing.T, appID, token string) *httptest.ResponseRecorder {
	return s.do(t, stdhttp.MethodPost, "/v1/applications/status", map[string]string{
		"application_id": appID, "client_token": token,
	}, nil)
}

func TestEndToEnd_ApproveThenStatus(t *testing.T) {
	s := newStack(t)
	created := s.submit(t)
	if created.Status != "pending" || len(created.ClientToken) != 64 {
		t.Fatalf("created = %+v", created)
	}

	rec := s.check(t, created.ID, created.ClientToken)
	if rec.Code != stdhttp.StatusOK || decodeData[status.StatusDTO](t, rec).Status != "pending" {
		t.Fatalf("pending status = %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, stdhttp.MethodPost, "/v1/admin/applications/"+created.ID+"/approve", map[string]any{
		"approved_amount": 15000.50, "address": "Rua X", "age": 41, "birth_date": "1984-02-10",
		"mother_name": "Ana", "gender": "F", "cpf_status": "regular", "cns_number": "123",
	}, s.admin())
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("approve = %d %s", rec.Code, rec.Body.String())
	}

	rec = s.check(t, created.ID, created.ClientToken)
	got := decodeData[status.StatusDTO](t, rec)
	if got.Status != "approved" || got.ApprovedAmount == nil || *got.ApprovedAmount != 15000.5 {
		t.Fatalf("approved status = %+v", got)
	}
	if got.Address == nil || *got.Address != "Rua X" || got.Age == nil || *got.Age != 41 || got.CNSNumber == nil {
		t.Fatalf("kyc = %+v", got)
	}
	for _, leak := range []string{"full_name", "cpf\"", "email", "client_token", "Maria"} {
		if strings.Contains(rec.Body.String(), leak) {
			t.Fatalf("gateway body leaks %q: %s", leak, rec.Body.String())
		}
	}

	// decision is final
	rec = s.do(t, stdhttp.MethodPost, "/v1/admin/applications/"+created.ID+"/reject", nil, s.admin())
	if rec.Code != stdhttp.StatusConflict || !strings.Contains(rec.Body.String(), "application already decided") {
		t.Fatalf("reject after approve = %d %s", rec.Code, rec.Body.String())
	}
}

func TestEndToEnd_RejectThenStatus(t *testing.T) {
	s := newStack(t)
	created := s.submit(t)

	rec := s.do(t, stdhttp.MethodPost, "/v1/admin/applications/"+created.ID+"/reject", nil, s.admin())
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("reject = %d %s", rec.Code, rec.Body.String())
	}
	got := decodeData[status.StatusDTO](t, s.check(t, created.ID, created.ClientToken))
	if got.Status != "rejected" || got.ApprovedAmount != nil {
		t.Fatalf("rejected status = %+v", got)
	}
}

func TestGateway_IdenticalNotFound(t *testing.T) {
	s := newStack(t)
	created := s.submit(t)

	wrongToken := s.check(t, created.ID, strings.Repeat("f", 64))
	unknownID := s.check(t, id.NewApplicationID(), created.ClientToken)
	if wrongToken.Code != stdhttp.StatusNotFound || unknownID.Code != stdhttp.StatusNotFound {
		t.Fatalf("codes = %d, %d", wrongToken.Code, unknownID.Code)
	}
	if wrongToken.Body.String() != unknownID.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", wrongToken.Body.String(), unknownID.Body.String())
	}
	if !strings.Contains(wrongToken.Body.String(), `"Application not found"`) {
		t.Fatalf("body = %s", wrongToken.Body.String())
	}
}

func TestGateway_BadRequests(t *testing.T) {
	s := newStack(t)
	rec := s.check(t, "", "tok")
	if rec.Code != stdhttp.StatusBadRequest || !strings.Contains(rec.Body.String(), "application_id and client_token are required") {
		t.Fatalf("missing id = %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, stdhttp.MethodPost, "/v1/applications/status", `{"application_id":`, nil)
	if rec.Code != stdhttp.StatusBadRequest || !strings.Contains(rec.Body.String(), "invalid body") {
		t.Fatalf("broken json = %d %s", rec.Code, rec.Body.String())
	}
}

func TestGateway_CORSPreflight(t *testing.T) {
	s := newStack(t)
	rec := s.do(t, stdhttp.MethodOptions, "/v1/applications/status", nil, map[string]string{
		echo.HeaderOrigin:                      "https://client.example",
		echo.HeaderAccessControlRequestMethod:  stdhttp.MethodPost,
		echo.HeaderAccessControlRequestHeaders: "content-type, apikey",
	})
	if rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("preflight = %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
		t.Fatalf("allow-origin = %q", got)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowHeaders); !strings.Contains(got, "x-client-info") {
		t.Fatalf("allow-headers = %q", got)
	}
}

func TestAdmin_RequiresToken(t *testing.T) {
	s := newStack(t)
	rec := s.do(t, stdhttp.MethodGet, "/v1/admin/applications", nil, nil)
	if rec.Code != stdhttp.StatusUnauthorized {
		t.Fatalf("no token = %d", rec.Code)
	}
}

func TestAdmin_ListAndDelete(t *testing.T) {
	s := newStack(t)
	first := s.submit(t)
	second := s.submit(t)

	rec := s.do(t, stdhttp.MethodGet, "/v1/admin/applications", nil, s.admin())
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("list = %d %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "client_token") || strings.Contains(rec.Body.String(), first.ClientToken) {
		t.Fatalf("admin list leaks client token: %s", rec.Body.String())
	}
	var list review.ListDTO
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Stats.Total != 2 || list.Stats.Pending != 2 || len(list.Data) != 2 {
		t.Fatalf("list = %+v", list)
	}

	rec = s.do(t, stdhttp.MethodDelete, "/v1/admin/applications/"+second.ID, nil, s.admin())
	if rec.Code != stdhttp.StatusConflict {
		t.Fatalf("delete pending = %d %s", rec.Code, rec.Body.String())
	}
	s.do(t, stdhttp.MethodPost, "/v1/admin/applications/"+second.ID+"/reject", nil, s.admin())
	rec = s.do(t, stdhttp.MethodDelete, "/v1/admin/applications/"+second.ID, nil, s.admin())
	if rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("delete = %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, stdhttp.MethodPost, "/v1/admin/applications/"+second.ID+"/approve", map[string]any{"approved_amount": 1}, s.admin())
	if rec.Code != stdhttp.StatusNotFound || !strings.Contains(rec.Body.String(), "application not found") {
		t.Fatalf("approve deleted = %d %s", rec.Code, rec.Body.String())
	}

	types := []string{}
	for _, e := range s.events.Events() {
		types = append(types, string(e.Type))
	}
	if strings.Join(types, ",") != "INSERT,INSERT,UPDATE,DELETE" {
		t.Fatalf("events = %v", types)
	}
}

func TestIntake_IdempotentRetry(t *testing.T) {
	s := newStack(t)
	hdr := idempHeaders()
	body := map[string]string{"full_name": "Ana", "cpf": "1", "email": "a@b.c", "loan_type": "clt"}

	first := s.do(t, stdhttp.MethodPost, "/v1/applications", body, hdr)
	retry := s.do(t, stdhttp.MethodPost, "/v1/applications", body, hdr)
	if first.Code != stdhttp.StatusCreated || retry.Code != stdhttp.StatusCreated {
		t.Fatalf("codes = %d, %d", first.Code, retry.Code)
	}
	if first.Body.String() != retry.Body.String() {
		t.Fatalf("retry must replay the first response")
	}
	var n int64
	s.db.Model(&domain.LoanApplication{}).Count(&n)
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
}

func TestWizard_EndToEnd(t *testing.T) {
	s := newStack(t)

	rec := s.do(t, stdhttp.MethodPost, "/v1/wizard", map[string]string{"loan_type": "clt"}, nil)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("start = %d %s", rec.Code, rec.Body.String())
	}
	sid := decodeData[wizard.View](t, rec).SessionID
	base := "/v1/wizard/" + sid

	rec = s.do(t, stdhttp.MethodPut, base+"/draft", map[string]string{"full_name": "Ana", "cpf": "1", "email": "ana.example.com"}, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("draft = %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, stdhttp.MethodPost, base+"/confirm", nil, nil)
	if rec.Code != stdhttp.StatusUnprocessableEntity || !strings.Contains(rec.Body.String(), `"field":"email"`) {
		t.Fatalf("confirm without @ = %d %s", rec.Code, rec.Body.String())
	}
	if v := decodeData[wizard.View](t, s.do(t, stdhttp.MethodGet, base, nil, nil)); v.Step != wizard.StateCollecting {
		t.Fatalf("step = %s", v.Step)
	}

	s.do(t, stdhttp.MethodPut, base+"/draft", map[string]string{"full_name": "Ana", "cpf": "1", "email": "ana@example.com"}, nil)
	if rec = s.do(t, stdhttp.MethodPost, base+"/confirm", nil, nil); rec.Code != stdhttp.StatusOK {
		t.Fatalf("confirm = %d %s", rec.Code, rec.Body.String())
	}
	rec = s.do(t, stdhttp.MethodPost, base+"/submit", nil, nil)
	if rec.Code != stdhttp.StatusOK {
		t.Fatalf("submit = %d %s", rec.Code, rec.Body.String())
	}
	v := decodeData[wizard.View](t, rec)
	if v.Step != wizard.StateSubmitted || v.Status == nil || v.Status.Status != "pending" || v.Terminal {
		t.Fatalf("submitted view = %+v", v)
	}

	s.do(t, stdhttp.MethodPost, "/v1/admin/applications/"+v.ApplicationID+"/reject", nil, s.admin())
	v = decodeData[wizard.View](t, s.do(t, stdhttp.MethodGet, base, nil, nil))
	if !v.Terminal || v.Status.Status != "rejected" {
		t.Fatalf("terminal view = %+v", v)
	}
}

func TestWizard_InvalidLoanTypeAndUnknownSession(t *testing.T) {
	s := newStack(t)

	rec := s.do(t, stdhttp.MethodPost, "/v1/wizard", map[string]string{"loan_type": "mortgage"}, nil)
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("invalid type = %d", rec.Code)
	}
	var body invalidLoanTypeResp
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body != (invalidLoanTypeResp{Error: "invalid loan type", View: "invalid_loan_type", Home: "/"}) {
		t.Fatalf("body = %+v", body)
	}

	rec = s.do(t, stdhttp.MethodGet, "/v1/wizard/"+id.NewID32(), nil, nil)
	if rec.Code != stdhttp.StatusNotFound || !strings.Contains(rec.Body.String(), "wizard session not found") {
		t.Fatalf("unknown = %d %s", rec.Code, rec.Body.String())
	}
}

func TestLoanTypesRoute(t *testing.T) {
	s := newStack(t)
	rec := s.do(t, stdhttp.MethodGet, "/v1/loan-types", nil, nil)
	if rec.Code != stdhttp.StatusOK || !strings.Contains(rec.Body.String(), "Empréstimo FGTS") {
		t.Fatalf("loan types = %d %s", rec.Code, rec.Body.String())
	}
}

func TestGateway_RateLimitIgnoresForwardedFor(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEcho(quiet, nil)
	limited := middleware.RateLimit(middleware.NewIPRateLimiter(0.001, 1), quiet)
	e.POST("/v1/applications/status", func(c echo.Context) error { return c.NoContent(stdhttp.StatusNoContent) }, limited)

	throttled := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(stdhttp.MethodPost, "/v1/applications/status", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set(echo.HeaderXRealIP, fmt.Sprintf("198.51.100.%d", i))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code == stdhttp.StatusTooManyRequests {
			throttled++
		}
	}
	if throttled != 49 {
		t.Fatalf("throttled = %d, want 49 (one client, burst 1)", throttled)
	}
}
