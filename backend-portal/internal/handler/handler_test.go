package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/community-portal/backend-portal/internal/clock"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/domain"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/repository"
	"github.com/prohmpiriya/community-portal/backend-portal/internal/service"
	"github.com/prohmpiriya/community-portal/pkg/logger"
	"github.com/prohmpiriya/community-portal/pkg/middleware"
	"github.com/prohmpiriya/community-portal/pkg/response"
)

const testSecret = "test-secret-key-for-portal-handlers"

var baseTime = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

type testServer struct {
	router *gin.Engine
	store  *repository.Store
	clock  *clock.Manual

	adminToken string
}

type serverOption func(cfg *RouterConfig, checks map[string]Check)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	srv := &testServer{
		store: repository.NewMemoryStore().Store(),
		clock: clock.NewManual(baseTime),
	}
	deps := service.Deps{Store: srv.store, Clock: srv.clock, Logger: logger.NewNop()}
	audit := service.NewAuditLog(deps)
	events := service.NewEventLifecycleManager(deps, audit, nil)

	cfg := RouterConfig{
		JWT:    &middleware.JWTConfig{Secret: testSecret},
		Logger: logger.NewNop(),
	}
	checks := map[string]Check{"database": srv.store.Ping}
	for _, opt := range opts {
		opt(&cfg, checks)
	}

	srv.router = NewRouter(cfg, Handlers{
		Health:        NewHealthHandler(checks),
		Events:        NewEventHandler(events, srv.clock),
		Registrations: NewRegistrationHandler(service.NewRegistrationLedger(deps)),
		Users:         NewUserHandler(service.NewUserAccountStateMachine(deps, audit)),
		Audit:         NewAuditHandler(audit),
		Export:        NewExportHandler(service.NewExporter(deps)),
	})

	admin := srv.seedUser(t, "admin@example.com", domain.RoleAdmin, domain.UserApproved)
	srv.adminToken = token(t, admin)
	return srv
}

func (s *testServer) seedUser(t *testing.T, email string, role domain.Role, status domain.UserStatus) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:        uuid.New().String(),
		Name:      "User " + email,
		Email:     email,
		Role:      role,
		Status:    status,
		UserType:  string(role),
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
	require.NoError(t, s.store.Users.Create(context.Background(), u))
	return u
}

func token(t *testing.T, u *domain.User) string {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, "", time.Hour, u.ID, u.Email, string(u.Role))
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func (s *testServer) createEvent(t *testing.T, extra map[string]interface{}) string {
	t.Helper()
	body := map[string]interface{}{
		"title":                   "Badminton Cup",
		"description":             "Friendly tournament",
		"event_type":              "SPORTS",
		"start_date":              baseTime.Add(72 * time.Hour).Format(time.RFC3339),
		"end_date":                baseTime.Add(76 * time.Hour).Format(time.RFC3339),
		"venue":                   "Club house",
		"registration_required":   true,
		"registration_start_date": baseTime.Add(-time.Hour).Format(time.RFC3339),
		"registration_end_date":   baseTime.Add(48 * time.Hour).Format(time.RFC3339),
		"published":               true,
	}
	for k, v := range extra {
		body[k] = v
	}
	w := s.do(t, http.MethodPost, "/api/v1/events", s.adminToken, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var view struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, w, &view)
	require.NotEmpty(t, view.ID)
	return view.ID
}

func TestHealth(t *testing.T) {
	t.Run("health and ready", func(t *testing.T) {
		srv := newTestServer(t)
		assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/health", "", nil).Code)
		assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/ready", "", nil).Code)
	})

	t.Run("failing check", func(t *testing.T) {
		srv := newTestServer(t, func(_ *RouterConfig, checks map[string]Check) {
			checks["redis"] = func(context.Context) error { return errors.New("connection refused") }
		})
		w := srv.do(t, http.MethodGet, "/ready", "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		env := decode(t, w, nil)
		assert.Equal(t, "connection refused", env.Error.Details["redis"])
		assert.Equal(t, "ok", env.Error.Details["database"])
	})
}

func TestAuthentication(t *testing.T) {
	srv := newTestServer(t)
	resident := srv.seedUser(t, "ann@example.com", domain.RoleOwner, domain.UserApproved)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		status int
		code   string
	}{
		{name: "missing token", method: http.MethodGet, path: "/api/v1/events", status: http.StatusUnauthorized, code: "MISSING_TOKEN"},
		{name: "bad token", method: http.MethodGet, path: "/api/v1/events", token: "garbage", status: http.StatusUnauthorized, code: "INVALID_TOKEN"},
		{name: "resident on admin route", method: http.MethodGet, path: "/api/v1/users", token: token(t, resident), status: http.StatusForbidden, code: response.ErrCodeUnauthorized},
		{name: "resident reads events", method: http.MethodGet, path: "/api/v1/events", token: token(t, resident), status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := srv.do(t, tt.method, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decode(t, w, nil).Error.Code)
			}
		})
	}
}

func TestRegistrationFlow(t *testing.T) {
	srv := newTestServer(t)
	eventID := srv.createEvent(t, map[string]interface{}{"max_participants": 1})
	ann := token(t, srv.seedUser(t, "ann@example.com", domain.RoleOwner, domain.UserApproved))
	bob := token(t, srv.seedUser(t, "bob@example.com", domain.RoleTenant, domain.UserApproved))
	path := "/api/v1/events/" + eventID + "/registrations"

	w := srv.do(t, http.MethodPost, path, ann, map[string]interface{}{"additional_notes": "vegetarian"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg domain.Registration
	decode(t, w, &reg)
	assert.Equal(t, eventID, reg.EventID)

	w = srv.do(t, http.MethodPost, path, ann, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrCodeAlreadyRegistered, decode(t, w, nil).Error.Code)

	w = srv.do(t, http.MethodPost, path, bob, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.ErrCodeCapacityExceeded, decode(t, w, nil).Error.Code)

	w = srv.do(t, http.MethodGet, "/api/v1/events/"+eventID, bob, nil)
	var view struct {
		Status            string `json:"status"`
		RegistrationCount int    `json:"registration_count"`
	}
	decode(t, w, &view)
	assert.Equal(t, string(domain.StatusFull), view.Status)
	assert.Equal(t, 1, view.RegistrationCount)

	w = srv.do(t, http.MethodGet, "/api/v1/me/registrations", ann, nil)
	var mine []domain.Registration
	decode(t, w, &mine)
	require.Len(t, mine, 1)

	w = srv.do(t, http.MethodDelete, "/api/v1/registrations/"+reg.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodDelete, "/api/v1/registrations/"+reg.ID, ann, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = srv.do(t, http.MethodPost, path, bob, nil)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRegister_Errors(t *testing.T) {
	srv := newTestServer(t)
	teamEvent := srv.createEvent(t, map[string]interface{}{"participation_type": "TEAM"})
	ann := token(t, srv.seedUser(t, "ann@example.com", domain.RoleOwner, domain.UserApproved))
	pending := token(t, srv.seedUser(t, "pat@example.com", domain.RoleOwner, domain.UserPending))

	t.Run("unknown event", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/events/"+uuid.New().String()+"/registrations", ann, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("team without members carries field detail", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/events/"+teamEvent+"/registrations", ann,
			map[string]interface{}{"team_members": []map[string]string{{"name": "  "}}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode(t, w, nil)
		assert.Equal(t, response.ErrCodeValidationFailed, env.Error.Code)
		assert.Contains(t, env.Error.Details, "team_members")
	})

	t.Run("pending user", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/events/"+teamEvent+"/registrations", pending,
			map[string]interface{}{"team_members": []map[string]string{{"name": "Ann"}}})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("closed registration", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/events/"+teamEvent+"/close-registration", srv.adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w = srv.do(t, http.MethodPost, "/api/v1/events/"+teamEvent+"/registrations", ann,
			map[string]interface{}{"team_members": []map[string]string{{"name": "Ann"}}})
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, response.ErrCodeNotOpen, decode(t, w, nil).Error.Code)
	})
}

func TestRegister_RateLimited(t *testing.T) {
	limiter := middleware.NewLocalRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: 1,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
	})
	defer limiter.Stop()

	srv := newTestServer(t, func(cfg *RouterConfig, _ map[string]Check) {
		cfg.RegistrationLimiter = limiter
		cfg.RegistrationRPS = 1
	})
	eventID := srv.createEvent(t, nil)
	ann := token(t, srv.seedUser(t, "ann@example.com", domain.RoleOwner, domain.UserApproved))
	path := "/api/v1/events/" + eventID + "/registrations"

	assert.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, path, ann, nil).Code)
	w := srv.do(t, http.MethodPost, path, ann, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestEventAdmin(t *testing.T) {
	srv := newTestServer(t)
	eventID := srv.createEvent(t, nil)
	ann := token(t, srv.seedUser(t, "ann@example.com", domain.RoleOwner, domain.UserApproved))
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/v1/events/"+eventID+"/registrations", ann, nil).Code)

	t.Run("resident cannot create", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/events", ann, map[string]interface{}{"title": "x"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("empty update rejected", func(t *testing.T) {
		w := srv.do(t, http.MethodPatch, "/api/v1/events/"+eventID, srv.adminToken, map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("partial update", func(t *testing.T) {
		w := srv.do(t, http.MethodPatch, "/api/v1/events/"+eventID, srv.adminToken, map[string]interface{}{"title": "Badminton Open"})
		require.Equal(t, http.StatusOK, w.Code)
		var view domain.Event
		decode(t, w, &view)
		assert.Equal(t, "Badminton Open", view.Title)
		assert.Equal(t, "Club house", view.Venue)
	})

	t.Run("capacity below count conflicts", func(t *testing.T) {
		w := srv.do(t, http.MethodPatch, "/api/v1/events/"+eventID, srv.adminToken, map[string]interface{}{"max_participants": 1})
		assert.Equal(t, http.StatusOK, w.Code)
		w = srv.do(t, http.MethodPatch, "/api/v1/events/"+eventID, srv.adminToken, map[string]interface{}{"registration_required": false})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("delete with registrations conflicts", func(t *testing.T) {
		w := srv.do(t, http.MethodDelete, "/api/v1/events/"+eventID, srv.adminToken, nil)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, response.ErrCodeStateConflict, decode(t, w, nil).Error.Code)
	})

	t.Run("cancel reports affected registrants", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/events/"+eventID+"/cancel", srv.adminToken, map[string]string{"reason": "Rain"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var result service.CancelResult
		decode(t, w, &result)
		assert.Equal(t, 1, result.AffectedCount)
		assert.True(t, strings.HasPrefix(result.Event.Description, "[CANCELLED"))
		assert.False(t, result.Event.Published)
	})

	t.Run("cancelled event hidden from residents", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/events/"+eventID, ann, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = srv.do(t, http.MethodGet, "/api/v1/events", ann, nil)
		env := decode(t, w, nil)
		assert.Equal(t, int64(0), env.Meta.Total)
	})

	t.Run("audit trail", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/audit?entity_type=EVENT&entity_id="+eventID, srv.adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var entries []struct {
			Action string `json:"action"`
		}
		decode(t, w, &entries)
		actions := make([]string, len(entries))
		for i, e := range entries {
			actions[i] = e.Action
		}
		assert.Contains(t, actions, string(domain.ActionEventCreated))
		assert.Contains(t, actions, string(domain.ActionEventCancelled))
	})
}

func TestUserAdmin(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name":      "Pat",
		"email":     "Pat@Example.com",
		"password":  "s3cretpass",
		"user_type": "TENANT",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var pat domain.User
	decode(t, w, &pat)
	assert.Equal(t, domain.UserPending, pat.Status)
	assert.Equal(t, "pat@example.com", pat.Email)
	assert.NotContains(t, w.Body.String(), "password")

	t.Run("duplicate signup", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
			"name": "Pat", "email": "pat@example.com", "password": "s3cretpass",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("approve", func(t *testing.T) {
		w := srv.do(t, http.MethodPatch, "/api/v1/users/"+pat.ID+"/status", srv.adminToken, map[string]string{"status": "APPROVED"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var u domain.User
		decode(t, w, &u)
		assert.Equal(t, domain.UserApproved, u.Status)
		assert.NotNil(t, u.ApprovedBy)
	})

	t.Run("same status conflicts", func(t *testing.T) {
		w := srv.do(t, http.MethodPatch, "/api/v1/users/"+pat.ID+"/status", srv.adminToken, map[string]string{"status": "APPROVED"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("forced transition", func(t *testing.T) {
		w := srv.do(t, http.MethodPatch, "/api/v1/users/"+pat.ID+"/status", srv.adminToken, map[string]string{"status": "REJECTED"})
		require.Equal(t, http.StatusOK, w.Code)
		w = srv.do(t, http.MethodPatch, "/api/v1/users/"+pat.ID+"/status", srv.adminToken, map[string]interface{}{"status": "APPROVED"})
		assert.Equal(t, http.StatusConflict, w.Code)
		w = srv.do(t, http.MethodPatch, "/api/v1/users/"+pat.ID+"/status", srv.adminToken, map[string]interface{}{"status": "APPROVED", "force": true})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("admin cannot suspend self", func(t *testing.T) {
		claims, err := middleware.ParseToken(srv.adminToken, testSecret, "")
		require.NoError(t, err)
		w := srv.do(t, http.MethodPatch, "/api/v1/users/"+claims.Subject+"/status", srv.adminToken, map[string]string{"status": "SUSPENDED"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, response.ErrCodeSelfActionForbidden, decode(t, w, nil).Error.Code)
	})

	t.Run("role change", func(t *testing.T) {
		w := srv.do(t, http.MethodPatch, "/api/v1/users/"+pat.ID+"/role", srv.adminToken, map[string]string{"role": "OWNER"})
		require.Equal(t, http.StatusOK, w.Code)
		var u domain.User
		decode(t, w, &u)
		assert.Equal(t, domain.RoleOwner, u.Role)
	})

	t.Run("reset password", func(t *testing.T) {
		w := srv.do(t, http.MethodPost, "/api/v1/users/"+pat.ID+"/reset-password", srv.adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		var out struct {
			TemporaryPassword string `json:"temporary_password"`
		}
		decode(t, w, &out)
		assert.Len(t, out.TemporaryPassword, 12)
	})

	t.Run("list with filter", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/users?status=APPROVED&search=pat", srv.adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var users []domain.User
		env := decode(t, w, &users)
		require.Len(t, users, 1)
		assert.Equal(t, pat.ID, users[0].ID)
		assert.Equal(t, int64(1), env.Meta.Total)
	})

	t.Run("self read", func(t *testing.T) {
		patUser, err := srv.store.Users.GetByID(context.Background(), pat.ID)
		require.NoError(t, err)
		tok := token(t, patUser)
		assert.Equal(t, http.StatusOK, srv.do(t, http.MethodGet, "/api/v1/me", tok, nil).Code)
		other := srv.seedUser(t, "other@example.com", domain.RoleOwner, domain.UserApproved)
		assert.Equal(t, http.StatusForbidden, srv.do(t, http.MethodGet, "/api/v1/users/"+other.ID, tok, nil).Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := srv.do(t, http.MethodDelete, "/api/v1/users/"+pat.ID, srv.adminToken, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = srv.do(t, http.MethodGet, "/api/v1/users/"+pat.ID, srv.adminToken, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestExport(t *testing.T) {
	srv := newTestServer(t)
	eventID := srv.createEvent(t, nil)
	ann := srv.seedUser(t, "ann@example.com", domain.RoleOwner, domain.UserApproved)
	require.Equal(t, http.StatusCreated, srv.do(t, http.MethodPost, "/api/v1/events/"+eventID+"/registrations", token(t, ann), nil).Code)

	t.Run("registrations", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/events/"+eventID+"/registrations/export", srv.adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "registrations-badminton-cup-20260601.csv")
		lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[1], `"ann@example.com"`)
	})

	t.Run("users", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, "/api/v1/users/export?role=OWNER", srv.adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "users-20260601.csv")
		lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
		assert.Len(t, lines, 2)
	})

	t.Run("resident forbidden", func(t *testing.T) {
		w := srv.do(t, http.MethodGet, fmt.Sprintf("/api/v1/events/%s/registrations/export", eventID), token(t, ann), nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHandleError_MapsEveryKind(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.Unauthorized("x"), http.StatusForbidden},
		{domain.NotFound("x"), http.StatusNotFound},
		{domain.Validation("title", "x"), http.StatusBadRequest},
		{domain.CapacityExceeded("x"), http.StatusConflict},
		{domain.AlreadyRegistered("x"), http.StatusConflict},
		{domain.NotOpen("x"), http.StatusConflict},
		{domain.EventAlreadyStarted("x"), http.StatusConflict},
		{domain.StateConflict("x"), http.StatusConflict},
		{domain.SelfActionForbidden("x"), http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(domain.KindOf(tt.err)), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			handleError(c, tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.NotContains(t, w.Body.String(), "boom")
		})
	}
}
