// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/hitoshi/staffman/internal/model"
	"github.com/hitoshi/staffman/internal/token"
)

const bearerScheme = "Bearer"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストにPrincipalを格納するためのキー。
var principalContextKey = contextKey("principal")

// TokenParser はアクセストークンの検証に必要なインターフェース。
// token.Codecの部分集合として定義する。
type TokenParser interface {
	Parse(tokenString string, kind token.Kind) (*token.Claims, *token.ParseError)
}

// PrincipalLoader は検証済みトークンの主体からPrincipalを解決するインターフェース。
// auth.Serviceの部分集合として定義する。ユーザー不存在時は (nil, nil) を返すこと。
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, username string) (*model.Principal, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 解決したPrincipalをリクエストコンテキストに注入するミドルウェアを返す。
//
// ヘッダーが存在しないリクエストは未認証のまま通過させる（下流の
// RequirePrincipalが認証を要求する）。トークンが提示された場合は:
//   - 空トークン、解析失敗、主体なし → 401
//   - 主体のユーザーが削除済み → 404
//   - 上記以外の内部障害 → 403（内部詳細は漏らさない）
func NewBearerAuthMiddleware(parser TokenParser, loader PrincipalLoader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// ゲート内の予期せぬ障害は403に丸める
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("panic in bearer auth middleware",
						slog.Any("panic", rec),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					WriteAuthError(w, r, http.StatusForbidden, "Access denied")
				}
			}()

			// 1. Bearerトークンが提示されていなければ未認証のまま通過
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, bearerScheme) {
				next.ServeHTTP(w, r)
				return
			}

			// 2. スキームのみで中身が空のヘッダーは不正な資格情報
			rawToken := strings.TrimSpace(strings.TrimPrefix(header, bearerScheme))
			if rawToken == "" {
				WriteAuthError(w, r, http.StatusUnauthorized, "Malformed credential")
				return
			}

			// 3. アクセストークンとして検証
			claims, perr := parser.Parse(rawToken, token.KindAccess)
			if perr != nil {
				slog.Warn("access token rejected",
					slog.String("kind", string(perr.Kind)),
					slog.String("path", r.URL.Path),
				)
				WriteAuthError(w, r, http.StatusUnauthorized, parseFailureMessage(perr.Kind))
				return
			}

			// 4. 主体のないトークンは使用可能な識別情報を持たない
			if claims.Subject == "" {
				WriteAuthError(w, r, http.StatusUnauthorized, "Token carries no identity")
				return
			}

			// 5. 主体からPrincipalを解決（トークン発行後に削除されたユーザーを検出）
			principal, err := loader.LoadPrincipal(r.Context(), claims.Subject)
			if err != nil {
				slog.Error("failed to load principal",
					slog.String("error", err.Error()),
					slog.String("path", r.URL.Path),
				)
				WriteAuthError(w, r, http.StatusForbidden, "Access denied")
				return
			}
			if principal == nil {
				WriteAuthError(w, r, http.StatusNotFound, model.ErrPrincipalNotFound.Message)
				return
			}

			// 6. トークンの主体と現在有効なアカウントの一致を確認し、
			//    Principalをコンテキストに注入
			if principal.Username != claims.Subject {
				WriteAuthError(w, r, http.StatusUnauthorized, "Token subject mismatch")
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// parseFailureMessage はトークン解析失敗の分類をクライアント向けメッセージに変換する。
// 生の解析エラー文字列は決して返さない。
func parseFailureMessage(kind token.ErrKind) string {
	switch kind {
	case token.ErrKindExpired:
		return "Token has expired"
	case token.ErrKindInvalidSignature:
		return "Invalid token signature"
	case token.ErrKindUnsupported:
		return "Unsupported token"
	default:
		return "Malformed token"
	}
}

// PrincipalFromContext はリクエストコンテキストからPrincipalを取得する。
// Bearer認証ミドルウェアを通過した認証済みリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (*model.Principal, error) {
	principal, ok := ctx.Value(principalContextKey).(*model.Principal)
	if !ok || principal == nil {
		return nil, fmt.Errorf("principal not found in context")
	}
	return principal, nil
}

// ContextWithPrincipal はコンテキストにPrincipalを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, principal *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}
