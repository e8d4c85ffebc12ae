// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/staffman/internal/auth"
	"github.com/hitoshi/staffman/internal/metrics"
	"github.com/hitoshi/staffman/internal/middleware"
	"github.com/hitoshi/staffman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, password, role string) (*auth.RegisterResult, error)
	Login(ctx context.Context, username, password string) (*auth.LoginResult, error)
	Refresh(ctx context.Context, refreshValue string) (*auth.RefreshResult, error)
}

// AuthHandler は登録・ログイン・トークンリフレッシュのHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	metrics metrics.MetricsCollector // nilの場合は記録しない
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service: service,
		metrics: collector,
	}
}

// registerRequest はユーザー登録のリクエストボディ。
type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// loginRequest はログインのリクエストボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register は新規ユーザーを登録し、アクセストークンを返す。
// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	result, err := h.service.Register(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.ErrUsernameTaken.Message)
			return
		}
		slog.Error("registration failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRegistration()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message":  "User registered successfully",
		"username": result.Username,
		"token":    result.AccessToken,
	})
}

// Login は資格情報を検証し、アクセストークンとリフレッシュトークンを返す。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	start := time.Now()
	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if h.metrics != nil {
		h.metrics.RecordAuthLatency(time.Since(start))
	}
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordLogin(false)
		}
		if errors.Is(err, model.ErrInvalidCredentials) {
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.ErrInvalidCredentials.Message)
			return
		}
		// 内部障害の詳細はログのみに記録する
		slog.Error("login failed", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLogin(true)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"token":        result.AccessToken,
		"refreshToken": result.RefreshToken,
		"username":     result.Principal.Username,
		"roles":        result.Principal.Authorities,
	})
}

// Refresh はリフレッシュトークンと引き換えに新しいアクセストークンを返す。
// リフレッシュトークンはAuthorizationヘッダーのBearer値として提示される。
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshValue := bearerToken(r)
	if refreshValue == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, "Missing refresh token")
		return
	}

	result, err := h.service.Refresh(r.Context(), refreshValue)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrRefreshTokenInvalid):
			if h.metrics != nil {
				h.metrics.RecordRefresh("invalid")
			}
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, auth.ErrRefreshTokenInvalid.Message)
		case errors.Is(err, auth.ErrRefreshTokenExpired):
			if h.metrics != nil {
				h.metrics.RecordRefresh("expired")
			}
			middleware.WriteErrorResponse(w, http.StatusUnauthorized, auth.ErrRefreshTokenExpired.Message)
		default:
			slog.Error("token refresh failed", slog.String("error", err.Error()))
			middleware.WriteInternalServerError(w)
		}
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRefresh("success")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"token":        result.AccessToken,
		"refreshToken": result.RefreshToken,
	})
}

// bearerToken はAuthorizationヘッダーからBearerトークン値を取り出す。
// 見つからない場合は空文字を返す。
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
}
