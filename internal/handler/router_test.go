package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/staffman/internal/auth"
	"github.com/hitoshi/staffman/internal/metrics"
	"github.com/hitoshi/staffman/internal/middleware"
	"github.com/hitoshi/staffman/internal/model"
	"github.com/hitoshi/staffman/internal/token"
)

// mockPrincipalLoader はルーターテスト用のPrincipalLoader。
type mockPrincipalLoader struct {
	principals map[string]*model.Principal
}

func (m *mockPrincipalLoader) LoadPrincipal(ctx context.Context, username string) (*model.Principal, error) {
	return m.principals[username], nil
}

// mockHealthChecker は常に成功するヘルスチェッカー。
type mockHealthChecker struct{ err error }

func (m *mockHealthChecker) Ping() error { return m.err }

func newRouterCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("router-access-secret-0123456789a"),
		RefreshSecret: []byte("router-refresh-secret-0123456789"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return codec
}

func newTestRouter(t *testing.T) (http.Handler, *token.Codec) {
	t.Helper()
	codec := newRouterCodec(t)

	loader := &mockPrincipalLoader{
		principals: map[string]*model.Principal{
			"alice": {Username: "alice", Authorities: []string{"ROLE_USER"}},
			"admin": {Username: "admin", Authorities: []string{"ROLE_ADMIN"}},
		},
	}

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	authService := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*auth.LoginResult, error) {
			if username == "alice" && password == "Secret1" {
				return &auth.LoginResult{
					Principal:    loader.principals["alice"],
					AccessToken:  "access",
					RefreshToken: "refresh",
				}, nil
			}
			return nil, model.ErrInvalidCredentials
		},
	}

	employeeService := &mockEmployeeService{
		listFn: func(ctx context.Context) ([]*model.Employee, error) {
			return []*model.Employee{{ID: 1, Name: "Taro"}}, nil
		},
		updateFn: func(ctx context.Context, e *model.Employee) (*model.Employee, error) {
			return e, nil
		},
	}

	deps := &RouterDeps{
		HealthChecker:     &mockHealthChecker{},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,
		TokenParser:       codec,
		PrincipalLoader:   loader,
		AuthService:       authService,
		EmployeeService:   employeeService,
		Metrics:           collector,
		MetricsGatherer:   reg,
	}

	return NewRouter(deps), codec
}

func TestRouter_Health_ReachableWithoutAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_Metrics_ReachableWithoutAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestRouter_Login_ReachableWithoutAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"alice","password":"Secret1"}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

// ヘッダーなしの保護ルートアクセスはゲートを通過した後、
// RequirePrincipalが401で拒否すること
func TestRouter_ProtectedRoute_NoHeader_Returns401(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/employee/all", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}

	var body middleware.AuthErrorBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Message != "Full authentication is required to access this resource" {
		t.Errorf("message = %q, unexpected", body.Message)
	}
}

func TestRouter_ProtectedRoute_GarbageToken_Returns401(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/employee/all", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}

	var body middleware.AuthErrorBody
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "Unauthorized" {
		t.Errorf("error = %q, want %q", body.Error, "Unauthorized")
	}
}

func TestRouter_ProtectedRoute_ValidToken_Returns200(t *testing.T) {
	router, codec := newTestRouter(t)

	accessToken, err := codec.Mint("alice", []string{"ROLE_USER"}, token.KindAccess)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/employee/all", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

// トークン発行後に削除されたユーザーは404になること
func TestRouter_ProtectedRoute_DeletedUser_Returns404(t *testing.T) {
	router, codec := newTestRouter(t)

	accessToken, err := codec.Mint("ghost", []string{"ROLE_USER"}, token.KindAccess)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/employee/all", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
}

// 更新・削除は管理者ロールが必要であること
func TestRouter_AdminOnlyRoutes_RejectNonAdmin(t *testing.T) {
	router, codec := newTestRouter(t)

	userToken, err := codec.Mint("alice", []string{"ROLE_USER"}, token.KindAccess)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	tests := []struct {
		method string
		target string
		body   string
	}{
		{http.MethodPut, "/employee/update", `{"id":1,"name":"X"}`},
		{http.MethodDelete, "/employee/delete/1", ""},
	}

	for _, tt := range tests {
		var reqBody *strings.Reader
		if tt.body != "" {
			reqBody = strings.NewReader(tt.body)
		} else {
			reqBody = strings.NewReader("")
		}
		req := httptest.NewRequest(tt.method, tt.target, reqBody)
		req.Header.Set("Authorization", "Bearer "+userToken)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Result().StatusCode != http.StatusForbidden {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.target, w.Result().StatusCode, http.StatusForbidden)
		}
	}
}

func TestRouter_AdminOnlyRoutes_AllowAdmin(t *testing.T) {
	router, codec := newTestRouter(t)

	adminToken, err := codec.Mint("admin", []string{"ROLE_ADMIN"}, token.KindAccess)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/employee/update",
		strings.NewReader(`{"id":1,"name":"Renamed","email":"renamed@example.com"}`))
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

// CORSヘッダーが全ルートに付与されること
func TestRouter_CORSHeadersPresent(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if origin := w.Result().Header.Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", origin, "http://localhost:3000")
	}
}

// セキュリティヘッダーが付与されること
func TestRouter_SecurityHeadersPresent(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if v := w.Result().Header.Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", v, "nosniff")
	}
}
