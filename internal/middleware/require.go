package middleware

import "net/http"

// fullAuthRequiredMessage は未認証リクエストが保護ルートに到達した際のメッセージ。
const fullAuthRequiredMessage = "Full authentication is required to access this resource"

// NewRequirePrincipalMiddleware は認証済みPrincipalの存在を要求するミドルウェアを返す。
// Bearer認証ミドルウェアはヘッダーなしリクエストを通過させるため、
// 認証必須のルートグループにはこのミドルウェアを重ねる。
func NewRequirePrincipalMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := PrincipalFromContext(r.Context()); err != nil {
				WriteAuthError(w, r, http.StatusUnauthorized, fullAuthRequiredMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewRequireRoleMiddleware は指定ロールを持つPrincipalを要求するミドルウェアを返す。
// 未認証は401、認証済みだがロール不足は403を返す。
func NewRequireRoleMiddleware(role string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteAuthError(w, r, http.StatusUnauthorized, fullAuthRequiredMessage)
				return
			}
			if !principal.HasRole(role) {
				WriteAuthError(w, r, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
