package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/staffman/internal/auth"
	"github.com/hitoshi/staffman/internal/model"
)

// mockAuthService はAuthServiceInterfaceのテスト用モック。
type mockAuthService struct {
	registerFn func(ctx context.Context, username, password, role string) (*auth.RegisterResult, error)
	loginFn    func(ctx context.Context, username, password string) (*auth.LoginResult, error)
	refreshFn  func(ctx context.Context, refreshValue string) (*auth.RefreshResult, error)
}

func (m *mockAuthService) Register(ctx context.Context, username, password, role string) (*auth.RegisterResult, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, username, password, role)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*auth.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, username, password)
	}
	return nil, nil
}

func (m *mockAuthService) Refresh(ctx context.Context, refreshValue string) (*auth.RefreshResult, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, refreshValue)
	}
	return nil, nil
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return body
}

// --- Register ---

func TestRegister_Success_ReturnsToken(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, username, password, role string) (*auth.RegisterResult, error) {
			return &auth.RegisterResult{Username: username, AccessToken: "signed-token"}, nil
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"alice","password":"Secret1"}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	body := decodeBody(t, w)
	if body["username"] != "alice" {
		t.Errorf("username = %q, want %q", body["username"], "alice")
	}
	if body["token"] != "signed-token" {
		t.Errorf("token = %q, want %q", body["token"], "signed-token")
	}
	if body["message"] == "" {
		t.Error("expected 'message' field")
	}
}

func TestRegister_UsernameTaken_Returns400(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, username, password, role string) (*auth.RegisterResult, error) {
			return nil, model.ErrUsernameTaken
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"alice","password":"Secret1"}`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}

	body := decodeBody(t, w)
	if body["error"] != "Username already exists" {
		t.Errorf("error = %q, want %q", body["error"], "Username already exists")
	}
}

func TestRegister_BlankCredentials_Returns400(t *testing.T) {
	svc := &mockAuthService{
		registerFn: func(ctx context.Context, username, password, role string) (*auth.RegisterResult, error) {
			t.Fatal("service should not be called for blank credentials")
			return nil, nil
		},
	}
	h := NewAuthHandler(svc, nil)

	for _, payload := range []string{
		`{"username":"","password":"Secret1"}`,
		`{"username":"alice","password":""}`,
		`{"username":"   ","password":"Secret1"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(payload))
		w := httptest.NewRecorder()

		h.Register(w, req)

		if w.Result().StatusCode != http.StatusBadRequest {
			t.Errorf("payload %s: status = %d, want %d", payload, w.Result().StatusCode, http.StatusBadRequest)
		}
	}
}

func TestRegister_InvalidJSON_Returns400(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(`{not json`))
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
}

// --- Login ---

func TestLogin_Success_ReturnsTokensAndRoles(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*auth.LoginResult, error) {
			return &auth.LoginResult{
				Principal: &model.Principal{
					Username:    "alice",
					Authorities: []string{"ROLE_ADMIN"},
				},
				AccessToken:  "access-token",
				RefreshToken: "refresh-token",
			}, nil
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"alice","password":"Secret1"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	body := decodeBody(t, w)
	if body["token"] != "access-token" {
		t.Errorf("token = %q, want %q", body["token"], "access-token")
	}
	if body["refreshToken"] != "refresh-token" {
		t.Errorf("refreshToken = %q, want %q", body["refreshToken"], "refresh-token")
	}
	if body["username"] != "alice" {
		t.Errorf("username = %q, want %q", body["username"], "alice")
	}
	roles, ok := body["roles"].([]interface{})
	if !ok || len(roles) != 1 || roles[0] != "ROLE_ADMIN" {
		t.Errorf("roles = %v, want [ROLE_ADMIN]", body["roles"])
	}
}

func TestLogin_InvalidCredentials_Returns401(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*auth.LoginResult, error) {
			return nil, model.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"alice","password":"wrong"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}

	body := decodeBody(t, w)
	if body["error"] != "Invalid credentials" {
		t.Errorf("error = %q, want %q", body["error"], "Invalid credentials")
	}
}

// 内部障害時は詳細を漏らさず一般的な500を返すこと
func TestLogin_InternalError_Returns500WithoutDetail(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, username, password string) (*auth.LoginResult, error) {
			return nil, context.DeadlineExceeded
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"alice","password":"Secret1"}`))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}

	body := decodeBody(t, w)
	for _, v := range body {
		if s, ok := v.(string); ok && strings.Contains(s, "deadline") {
			t.Error("internal error detail must not leak to the client")
		}
	}
}

// --- Refresh ---

func TestRefresh_MissingHeader_Returns401(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	w := httptest.NewRecorder()

	h.Refresh(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}

	body := decodeBody(t, w)
	if body["error"] != "Missing refresh token" {
		t.Errorf("error = %q, want %q", body["error"], "Missing refresh token")
	}
}

func TestRefresh_UnknownToken_Returns401(t *testing.T) {
	svc := &mockAuthService{
		refreshFn: func(ctx context.Context, refreshValue string) (*auth.RefreshResult, error) {
			return nil, auth.ErrRefreshTokenInvalid
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer no-such-token")
	w := httptest.NewRecorder()

	h.Refresh(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}

	body := decodeBody(t, w)
	if body["error"] != "Invalid refresh token" {
		t.Errorf("error = %q, want %q", body["error"], "Invalid refresh token")
	}
}

func TestRefresh_ExpiredToken_Returns401(t *testing.T) {
	svc := &mockAuthService{
		refreshFn: func(ctx context.Context, refreshValue string) (*auth.RefreshResult, error) {
			return nil, auth.ErrRefreshTokenExpired
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	w := httptest.NewRecorder()

	h.Refresh(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}

	body := decodeBody(t, w)
	if body["error"] != "Refresh token expired" {
		t.Errorf("error = %q, want %q", body["error"], "Refresh token expired")
	}
}

func TestRefresh_ValidToken_ReturnsNewAccessToken(t *testing.T) {
	var receivedValue string
	svc := &mockAuthService{
		refreshFn: func(ctx context.Context, refreshValue string) (*auth.RefreshResult, error) {
			receivedValue = refreshValue
			return &auth.RefreshResult{
				AccessToken:  "new-access-token",
				RefreshToken: refreshValue,
			}, nil
		},
	}
	h := NewAuthHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.Header.Set("Authorization", "Bearer valid-refresh-value")
	w := httptest.NewRecorder()

	h.Refresh(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if receivedValue != "valid-refresh-value" {
		t.Errorf("service received %q, want %q", receivedValue, "valid-refresh-value")
	}

	body := decodeBody(t, w)
	if body["token"] != "new-access-token" {
		t.Errorf("token = %q, want %q", body["token"], "new-access-token")
	}
	if body["refreshToken"] != "valid-refresh-value" {
		t.Errorf("refreshToken = %q, want unchanged %q", body["refreshToken"], "valid-refresh-value")
	}
}
