package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/staffman/internal/metrics"
	"github.com/hitoshi/staffman/internal/middleware"
	"github.com/hitoshi/staffman/internal/model"
	"github.com/hitoshi/staffman/internal/token"
)

// adminRole は従業員の更新・削除に必要なロール。
const adminRole = model.RoleAdmin

// HealthChecker はヘルスチェックに必要なインターフェース。
// sql.DBがそのまま満たす。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	TokenParser       middleware.TokenParser
	PrincipalLoader   middleware.PrincipalLoader

	// サービス
	AuthService     AuthServiceInterface
	EmployeeService EmployeeServiceInterface

	// 観測
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS →
//	  （保護ルートのみ）BearerAuth → RequirePrincipal → RateLimit(General)
//
// 認証ルート（/api/auth/*）はBearerゲートの外に配置する。リフレッシュトークンは
// アクセストークンとして解析できないため、/api/auth/refreshもゲートを通さず
// ハンドラー自身がヘッダーを検査する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.Metrics != nil {
		r.Use(newStatusMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	// パース失敗の分類をメトリクスに記録するため、ゲートに渡すパーサーをラップする
	tokenParser := deps.TokenParser
	if deps.Metrics != nil {
		tokenParser = &meteredTokenParser{parser: deps.TokenParser, metrics: deps.Metrics}
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics)
	employeeHandler := NewEmployeeHandler(deps.EmployeeService)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		// ログインはブルートフォース対策の専用レート制限を通す
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RequirePrincipal → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(tokenParser, deps.PrincipalLoader))
		r.Use(middleware.NewRequirePrincipalMiddleware())
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/employee", func(r chi.Router) {
			r.Get("/all", employeeHandler.ListAll)
			r.Get("/find/{id}", employeeHandler.FindByID)
			r.Get("/status/{status}", employeeHandler.ListByStatus)
			r.Post("/add", employeeHandler.Add)

			// 更新・削除は管理者のみ
			r.With(middleware.NewRequireRoleMiddleware(adminRole)).Put("/update", employeeHandler.Update)
			r.With(middleware.NewRequireRoleMiddleware(adminRole)).Delete("/delete/{id}", employeeHandler.Delete)
		})
	})

	return r
}

// meteredTokenParser はパース失敗の分類をメトリクスへ記録するTokenParserラッパー。
type meteredTokenParser struct {
	parser  middleware.TokenParser
	metrics metrics.MetricsCollector
}

func (p *meteredTokenParser) Parse(tokenString string, kind token.Kind) (*token.Claims, *token.ParseError) {
	claims, perr := p.parser.Parse(tokenString, kind)
	if perr != nil {
		p.metrics.RecordTokenParseFailure(string(perr.Kind))
	}
	return claims, perr
}

// statusWriter はレスポンスのステータスコードを捕捉する。
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// newStatusMetricsMiddleware はHTTPステータスコード別のカウンタを記録する。
func newStatusMetricsMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			collector.RecordHTTPStatus(sw.status)
		})
	}
}

// newHealthHandler はDB接続を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.Ping(); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				middleware.WriteErrorResponse(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}
