package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	accounth "github.com/jwalitptl/clinic-api/internal/handler/account"
	audith "github.com/jwalitptl/clinic-api/internal/handler/audit"
	authh "github.com/jwalitptl/clinic-api/internal/handler/auth"
	consultationh "github.com/jwalitptl/clinic-api/internal/handler/consultation"
	doctorh "github.com/jwalitptl/clinic-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	patienth "github.com/jwalitptl/clinic-api/internal/handler/patient"
	prometheush "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository/memory"
	"github.com/jwalitptl/clinic-api/internal/service/account"
	"github.com/jwalitptl/clinic-api/internal/service/audit"
	authsvc "github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/internal/service/booking"
	"github.com/jwalitptl/clinic-api/internal/service/consultation"
	eventsvc "github.com/jwalitptl/clinic-api/internal/service/event"
	"github.com/jwalitptl/clinic-api/internal/service/patient"
	"github.com/jwalitptl/clinic-api/internal/service/schedule"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const monday = "2024-01-01"

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Details []string        `json:"details"`
	Data    json.RawMessage `json:"data"`
}

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
	store  *memory.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg, "test")
	events := eventsvc.NewService()
	auditSvc := audit.NewService(store.Audit())
	auditor := audit.NewAuditLogger(auditSvc, nil, false)
	jwtSvc := auth.NewJWTService("test-secret", time.Hour)

	hash, err := hasher.Hash("admin-pass")
	require.NoError(t, err)
	require.NoError(t, store.Accounts().Create(context.Background(), &model.Account{
		Username: "admin", Email: "admin@clinic.local", PasswordHash: hash,
		Role: model.RoleAdministrator, IsActive: true,
	}))

	authService := authsvc.NewService(store, jwtSvc, hasher, auditor)
	h := Handlers{
		Auth:         authh.NewHandler(authService),
		Account:      accounth.NewHandler(account.NewService(store, hasher, auditor)),
		Audit:        audith.NewHandler(auditSvc),
		Doctor:       doctorh.NewHandler(schedule.NewService(store, hasher, events, auditor, m, nil, schedule.Config{})),
		Patient:      patienth.NewHandler(patient.NewService(store, events, auditor)),
		Consultation: consultationh.NewHandler(booking.NewService(store, events, auditor, m, nil, 3), consultation.NewService(store, events, auditor, m)),
		Health:       health.NewHandler(store),
		Metrics:      prometheush.New(reg, "test"),
	}

	r, err := NewRouter(middleware.NewAuthMiddleware(authService), h, RouterConfig{
		Timeout:    5 * time.Second,
		CORSConfig: middleware.DefaultCORSConfig(),
	})
	require.NoError(t, err)
	r.Setup()

	return &testAPI{t: t, engine: r.Engine(), store: store}
}

func (a *testAPI) do(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w.Code, env
}

func (a *testAPI) login(username, password string) string {
	a.t.Helper()
	code, env := a.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(a.t, http.StatusOK, code, env.Message)
	var tokens model.TokenResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &tokens))
	return tokens.AccessToken
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func accountBody(username string) gin.H {
	return gin.H{
		"username":   username,
		"email":      username + "@clinic.local",
		"first_name": "First",
		"last_name":  "Last",
		"password":   "secret-pass",
	}
}

func TestClinicDayEndToEnd(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login("admin", "admin-pass")

	// Overlapping windows reject the whole doctor.
	code, env := api.do(http.MethodPost, "/api/v1/admin/doctors", admin, gin.H{
		"account": accountBody("overlap"),
		"windows": []gin.H{
			{"day": "MONDAY", "start_time": "08:00", "end_time": "10:00", "room": "A101"},
			{"day": "MONDAY", "start_time": "09:00", "end_time": "11:00", "room": "B202"},
		},
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Contains(t, strings.Join(env.Details, ";"), "overlap")
	code, _ = api.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "overlap", "password": "secret-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = api.do(http.MethodPost, "/api/v1/admin/doctors", admin, gin.H{
		"account": accountBody("drhouse"),
		"windows": []gin.H{{"day": "MONDAY", "start_time": "08:00", "end_time": "12:00", "room": "A101"}},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var doctor model.Doctor
	decodeData(t, env, &doctor)

	body := accountBody("desk")
	body["role"] = "reception"
	code, _ = api.do(http.MethodPost, "/api/v1/admin/accounts", admin, body)
	require.Equal(t, http.StatusCreated, code)
	desk := api.login("desk", "secret-pass")

	code, env = api.do(http.MethodPost, "/api/v1/reception/patients", desk, gin.H{
		"first_name":            "Ana",
		"last_name":             "Benitez",
		"phone":                 "0981000000",
		"identification_type":   "CI",
		"identification_number": "4567890",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var p model.Patient
	decodeData(t, env, &p)
	assert.Equal(t, model.DefaultCountry, p.Country)

	code, env = api.do(http.MethodGet, "/api/v1/reception/doctors/"+doctor.ID.String()+"/slots?date="+monday, desk, nil)
	require.Equal(t, http.StatusOK, code)
	var slots model.DaySlots
	decodeData(t, env, &slots)
	assert.True(t, slots.Attends)
	assert.Len(t, slots.Slots, 8)

	book := func(at string) (int, envelope) {
		return api.do(http.MethodPost, "/api/v1/reception/consultations", desk, gin.H{
			"doctor_id":  doctor.ID,
			"patient_id": p.ID,
			"date":       monday,
			"time":       at,
		})
	}

	code, env = book("09:00")
	require.Equal(t, http.StatusCreated, code, env.Message)
	var first model.Consultation
	decodeData(t, env, &first)
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, "a101", first.Room)
	assert.Equal(t, model.ConsultationStatusWaiting, first.Status)

	code, env = book("09:30")
	require.Equal(t, http.StatusCreated, code)
	var second model.Consultation
	decodeData(t, env, &second)
	assert.Equal(t, 2, second.Order)

	code, env = book("13:00")
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, booking.NotAvailableMessage, env.Message)

	code, env = api.do(http.MethodGet, "/api/v1/reception/doctors/"+doctor.ID.String()+"/slots?date="+monday, desk, nil)
	require.Equal(t, http.StatusOK, code)
	decodeData(t, env, &slots)
	assert.True(t, slots.Slots[2].Occupied)
	assert.True(t, slots.Slots[3].Occupied)
	assert.False(t, slots.Slots[0].Occupied)

	doc := api.login("drhouse", "secret-pass")
	path := "/api/v1/doctor/consultations/" + first.ID.String() + "/status"

	code, env = api.do(http.MethodPatch, path, doc, gin.H{"status": "attended", "clinical": gin.H{"temperature": 50, "respiratory_rate": 18, "pulse": 72}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Details, "temperature: must be between 30 and 45")

	code, env = api.do(http.MethodPatch, path, doc, gin.H{"status": "attended", "clinical": gin.H{"temperature": 36.7, "respiratory_rate": 18, "pulse": 72}})
	require.Equal(t, http.StatusOK, code, env.Message)
	var attended model.Consultation
	decodeData(t, env, &attended)
	assert.Equal(t, model.ConsultationStatusAttended, attended.Status)
	require.NotNil(t, attended.Temperature)
	assert.Equal(t, 36.7, *attended.Temperature)

	code, _ = api.do(http.MethodPatch, path, doc, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = api.do(http.MethodPost, "/api/v1/doctor/consultations/"+first.ID.String()+"/prescriptions", doc, gin.H{"medication": "Paracetamol 500mg"})
	assert.Equal(t, http.StatusCreated, code)

	code, _ = api.do(http.MethodPatch, "/api/v1/reception/consultations/"+second.ID.String()+"/status", desk, gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusOK, code)

	code, env = api.do(http.MethodGet, "/api/v1/admin/audit/logs?entity_type=consultation", admin, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, env.Data)
}

func TestRoleBoundaries(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login("admin", "admin-pass")

	body := accountBody("desk")
	body["role"] = "reception"
	code, _ := api.do(http.MethodPost, "/api/v1/admin/accounts", admin, body)
	require.Equal(t, http.StatusCreated, code)
	desk := api.login("desk", "secret-pass")

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"no token", "/api/v1/reception/patients", "", http.StatusUnauthorized},
		{"garbage token", "/api/v1/reception/patients", "nope", http.StatusUnauthorized},
		{"reception on admin", "/api/v1/admin/accounts", desk, http.StatusForbidden},
		{"reception on doctor", "/api/v1/doctor/consultations", desk, http.StatusForbidden},
		{"admin on reception", "/api/v1/reception/patients", admin, http.StatusOK},
		{"admin on doctor", "/api/v1/doctor/consultations", admin, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := api.do(http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, tt.want, code, env.Message)
		})
	}
}

func TestBindingErrorsAreValidation(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login("admin", "admin-pass")

	code, env := api.do(http.MethodPost, "/api/v1/admin/doctors", admin, gin.H{
		"account": accountBody("drwho"),
		"windows": []gin.H{{"day": "FUNDAY", "start_time": "08:00", "end_time": "12:00", "room": "A101"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.NotEmpty(t, env.Details)

	code, _ = api.do(http.MethodGet, "/api/v1/admin/accounts/not-a-uuid", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestWindowBatchReportsEveryProblem(t *testing.T) {
	api := newTestAPI(t)
	admin := api.login("admin", "admin-pass")

	code, env := api.do(http.MethodPost, "/api/v1/admin/doctors", admin, gin.H{
		"account": accountBody("drwho"),
		"windows": []gin.H{
			{"day": "FUNDAY", "start_time": "08:00", "end_time": "12:00", "room": "A101"},
			{"day": "MONDAY", "start_time": "08:00", "end_time": "12:00", "room": "A101"},
			{"day": "MONDAY", "start_time": "09:00", "end_time": "10:00", "room": "A101"},
			{"day": "TUESDAY", "start_time": "08:00", "end_time": "12:00", "room": strings.Repeat("B", 21)},
		},
	})
	require.Equal(t, http.StatusConflict, code, env.Message)
	assert.Equal(t, []string{
		`window 1: unknown day "FUNDAY"`,
		"window 4: room must be at most 20 characters",
		"windows 2 and 3 overlap on day MONDAY",
	}, env.Details)

	code, env = api.do(http.MethodPost, "/api/v1/admin/doctors", admin, gin.H{
		"account": accountBody("drwho"),
		"windows": []gin.H{{"day": "MONDAY", "start_time": "08:00", "end_time": "12:00", "room": "A101"}},
	})
	assert.Equal(t, http.StatusCreated, code, env.Message)
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	code, _ := api.do(http.MethodGet, "/api/v1/health/live", "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodGet, "/api/v1/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, code)

	w := httptest.NewRecorder()
	api.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}
