package middleware

import (
	"encoding/json"
	"net/http"
	"time"
)

// AuthErrorBody は認証境界が返すエラーレスポンスの統一フォーマット。
// error にはHTTPステータステキスト、message には失敗理由を設定する。
type AuthErrorBody struct {
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// WriteAuthError は認証エラーエンベロープを書き込む。
// 生の内部エラー文字列は渡さず、分類済みのメッセージのみを渡すこと。
func WriteAuthError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(AuthErrorBody{
		Status:    statusCode,
		Error:     http.StatusText(statusCode),
		Message:   message,
		Path:      r.URL.Path,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// WriteErrorResponse は単一の error フィールドを持つJSONエラーレスポンスを書き込む。
// APIハンドラーのビジネスエラー（重複ユーザー名、資格情報不一致など）で使用する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   "Internal server error",
		"message": "An unexpected error occurred. Please try again later.",
	})
}
