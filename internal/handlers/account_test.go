package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mattyz777/matt-conduit/internal/apperr"
	dom "github.com/mattyz777/matt-conduit/internal/domain"
	"github.com/mattyz777/matt-conduit/internal/dto"
	"github.com/mattyz777/matt-conduit/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- mock implementation ----

type mockAccountService struct {
	createFn       func(username, password string, age *int32, gender dom.Gender, email *string) (dom.Account, error)
	findByIDFn     func(id int64) (*dom.Account, error)
	updateFn       func(id int64, in service.UpdateInput) (dom.Account, error)
	deleteFn       func(id int64) error
	authenticateFn func(username, password string) (dom.Account, error)
}

func (m *mockAccountService) Create(_ context.Context, username, password string, age *int32, gender dom.Gender, email *string) (dom.Account, error) {
	if m.createFn != nil {
		return m.createFn(username, password, age, gender, email)
	}
	return dom.Account{}, fmt.Errorf("not configured")
}

func (m *mockAccountService) FindByID(_ context.Context, id int64) (*dom.Account, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(id)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockAccountService) Update(_ context.Context, id int64, in service.UpdateInput) (dom.Account, error) {
	if m.updateFn != nil {
		return m.updateFn(id, in)
	}
	return dom.Account{}, fmt.Errorf("not configured")
}

func (m *mockAccountService) Delete(_ context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(id)
	}
	return fmt.Errorf("not configured")
}

func (m *mockAccountService) Authenticate(_ context.Context, username, password string) (dom.Account, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(username, password)
	}
	return dom.Account{}, fmt.Errorf("not configured")
}

// ---- helpers ----

func newAccountTestRouter(svc AccountService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterAccountRoutes(r.Group("/api/v1"), NewAccountHandler(svc))
	return r
}

func doRequest(router *gin.Engine, method, url string, body any) *httptest.ResponseRecorder {
	var req *http.Request
	switch b := body.(type) {
	case nil:
		req, _ = http.NewRequest(method, url, nil)
	case string:
		req, _ = http.NewRequest(method, url, strings.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	default:
		raw, _ := json.Marshal(b)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(raw)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v; body: %s", err, w.Body.String())
	}
	return env
}

func sampleAccount(id int64) dom.Account {
	age := int32(30)
	email := "alice@x.com"
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return dom.Account{
		ID: id, Username: "alice", PasswordHash: "$2a$10$secretsecretsecretsecret",
		Age: &age, Gender: dom.GenderFemale, Email: &email, CreatedAt: now, UpdatedAt: now,
	}
}

// ---- tests ----

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindMalformedRequest, http.StatusBadRequest},
		{apperr.KindInvalidCredential, http.StatusUnauthorized},
		{apperr.KindAccountNotFound, http.StatusNotFound},
		{apperr.KindDuplicateUsername, http.StatusConflict},
		{apperr.KindHashingFailure, http.StatusInternalServerError},
		{apperr.KindDbFailure, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.kind); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestCreateAccount(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		createFn       func(string, string, *int32, dom.Gender, *string) (dom.Account, error)
		expectedStatus int
	}{
		{
			name: "success",
			body: map[string]any{"username": "alice", "password": "pw1", "age": 30, "gender": "Female", "email": "alice@x.com"},
			createFn: func(u, p string, age *int32, g dom.Gender, e *string) (dom.Account, error) {
				if u != "alice" || p != "pw1" || age == nil || *age != 30 || g != dom.GenderFemale || e == nil {
					return dom.Account{}, fmt.Errorf("unexpected args")
				}
				return sampleAccount(1), nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "success - optional fields absent",
			body: map[string]any{"username": "bob", "password": "pw", "gender": "male"},
			createFn: func(_, _ string, age *int32, _ dom.Gender, e *string) (dom.Account, error) {
				if age != nil || e != nil {
					return dom.Account{}, fmt.Errorf("expected nil optionals")
				}
				return sampleAccount(2), nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - malformed JSON",
			body:           `{"username":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - unknown gender",
			body:           map[string]any{"username": "alice", "password": "pw", "gender": "Other"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - missing gender",
			body:           map[string]any{"username": "alice", "password": "pw"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - invalid email",
			body:           map[string]any{"username": "alice", "password": "pw", "gender": "Male", "email": "nope"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - negative age",
			body:           map[string]any{"username": "alice", "password": "pw", "gender": "Male", "age": -1},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "conflict - duplicate username",
			body: map[string]any{"username": "alice", "password": "pw", "gender": "Male"},
			createFn: func(u, _ string, _ *int32, _ dom.Gender, _ *string) (dom.Account, error) {
				return dom.Account{}, apperr.DuplicateUsername(u)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "internal - storage failure",
			body: map[string]any{"username": "alice", "password": "pw", "gender": "Male"},
			createFn: func(string, string, *int32, dom.Gender, *string) (dom.Account, error) {
				return dom.Account{}, apperr.DbFailure("insert account", errors.New("connection refused"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountService{createFn: tt.createFn})
			w := doRequest(router, http.MethodPost, "/api/v1/accounts", tt.body)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected %d got %d; body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			env := decodeEnvelope(t, w)
			wantCode := tt.expectedStatus
			if wantCode == http.StatusOK {
				wantCode = 0
			}
			if env.Code != wantCode {
				t.Errorf("envelope code = %d, want %d", env.Code, wantCode)
			}
			if strings.Contains(w.Body.String(), `"password"`) {
				t.Errorf("response leaks password: %s", w.Body.String())
			}
		})
	}
}

func TestInternalErrorMessageIsGeneric(t *testing.T) {
	router := newAccountTestRouter(&mockAccountService{
		findByIDFn: func(int64) (*dom.Account, error) {
			return nil, apperr.DbFailure("find account by id", errors.New("pq: relation accounts does not exist"))
		},
	})
	w := doRequest(router, http.MethodGet, "/api/v1/accounts/1", nil)
	env := decodeEnvelope(t, w)
	if w.Code != http.StatusInternalServerError || env.Message != internalErrorMessage {
		t.Fatalf("got %d %q", w.Code, env.Message)
	}
	if strings.Contains(w.Body.String(), "relation") {
		t.Errorf("storage detail leaked: %s", w.Body.String())
	}
}

func TestGetAccount(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		findByIDFn     func(int64) (*dom.Account, error)
		expectedStatus int
	}{
		{
			name: "success",
			url:  "/api/v1/accounts/7",
			findByIDFn: func(id int64) (*dom.Account, error) {
				a := sampleAccount(id)
				return &a, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not found - absent account",
			url:            "/api/v1/accounts/7",
			findByIDFn:     func(int64) (*dom.Account, error) { return nil, nil },
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad request - non-numeric id",
			url:            "/api/v1/accounts/abc",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - zero id",
			url:            "/api/v1/accounts/0",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - negative id",
			url:            "/api/v1/accounts/-3",
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountService{findByIDFn: tt.findByIDFn})
			w := doRequest(router, http.MethodGet, tt.url, nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected %d got %d; body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var got dto.AccountResponse
			if err := json.Unmarshal(decodeEnvelope(t, w).Data, &got); err != nil {
				t.Fatalf("decode data: %v", err)
			}
			if got.ID != 7 || got.Username != "alice" || got.Gender != dom.GenderFemale {
				t.Errorf("unexpected account %+v", got)
			}
			if strings.Contains(w.Body.String(), "secret") {
				t.Errorf("response leaks hash: %s", w.Body.String())
			}
		})
	}
}

func TestUpdateAccount(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		body           any
		updateFn       func(int64, service.UpdateInput) (dom.Account, error)
		expectedStatus int
	}{
		{
			name:   "success - age only",
			method: http.MethodPatch,
			body:   `{"age": 31}`,
			updateFn: func(id int64, in service.UpdateInput) (dom.Account, error) {
				if !in.Age.Set || !in.Age.Valid || in.Age.Value != 31 || in.Email.Set || in.Username != nil || in.Password != nil {
					return dom.Account{}, fmt.Errorf("unexpected input %+v", in)
				}
				return sampleAccount(id), nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "success - email cleared with null via PUT",
			method: http.MethodPut,
			body:   `{"email": null}`,
			updateFn: func(id int64, in service.UpdateInput) (dom.Account, error) {
				if !in.Email.Set || in.Email.Valid || in.Age.Set {
					return dom.Account{}, fmt.Errorf("unexpected input %+v", in)
				}
				return sampleAccount(id), nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "success - password and gender",
			method: http.MethodPatch,
			body:   `{"password": "new", "gender": "Male"}`,
			updateFn: func(id int64, in service.UpdateInput) (dom.Account, error) {
				if in.Password == nil || *in.Password != "new" || in.Gender == nil || *in.Gender != dom.GenderMale {
					return dom.Account{}, fmt.Errorf("unexpected input %+v", in)
				}
				return sampleAccount(id), nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - invalid email",
			method:         http.MethodPatch,
			body:           `{"email": "not-an-email"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - unknown gender",
			method:         http.MethodPatch,
			body:           `{"gender": "Unknown"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - malformed JSON",
			method:         http.MethodPatch,
			body:           `{"age": }`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "not found",
			method: http.MethodPatch,
			body:   `{"age": 1}`,
			updateFn: func(id int64, _ service.UpdateInput) (dom.Account, error) {
				return dom.Account{}, apperr.AccountNotFound(id)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "conflict - username taken",
			method: http.MethodPatch,
			body:   `{"username": "bob"}`,
			updateFn: func(int64, service.UpdateInput) (dom.Account, error) {
				return dom.Account{}, apperr.DuplicateUsername("bob")
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:   "internal - hashing failure",
			method: http.MethodPatch,
			body:   `{"password": "x"}`,
			updateFn: func(int64, service.UpdateInput) (dom.Account, error) {
				return dom.Account{}, apperr.HashingFailure(errors.New("boom"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountService{updateFn: tt.updateFn})
			w := doRequest(router, tt.method, "/api/v1/accounts/5", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected %d got %d; body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		deleteFn       func(int64) error
		expectedStatus int
	}{
		{
			name:           "success",
			url:            "/api/v1/accounts/3",
			deleteFn:       func(int64) error { return nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "not found",
			url:            "/api/v1/accounts/3",
			deleteFn:       func(id int64) error { return apperr.AccountNotFound(id) },
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "bad request - invalid id",
			url:            "/api/v1/accounts/x",
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountService{deleteFn: tt.deleteFn})
			w := doRequest(router, http.MethodDelete, tt.url, nil)
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected %d got %d; body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if env := decodeEnvelope(t, w); string(env.Data) != "null" {
				t.Errorf("data = %s, want null", env.Data)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		authFn         func(string, string) (dom.Account, error)
		expectedStatus int
	}{
		{
			name:           "success",
			body:           map[string]string{"username": "alice", "password": "pw1"},
			authFn:         func(string, string) (dom.Account, error) { return sampleAccount(1), nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unauthorised - invalid credentials",
			body:           map[string]string{"username": "alice", "password": "bad"},
			authFn:         func(string, string) (dom.Account, error) { return dom.Account{}, apperr.InvalidCredential() },
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bad request - missing password",
			body:           map[string]string{"username": "alice"},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountService{authenticateFn: tt.authFn})
			w := doRequest(router, http.MethodPost, "/api/v1/accounts/login", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("expected %d got %d; body: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}
