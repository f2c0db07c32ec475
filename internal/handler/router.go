package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mwufi/cozypage2/internal/metrics"
	"github.com/mwufi/cozypage2/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	Ping() error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	TokenVerifier     middleware.TokenVerifier
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Collector         metrics.MetricsCollector
	Gatherer          prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	Refresher   CredentialRefresher
	AuthConfig  AuthHandlerConfig

	// Google APIプロキシ
	DriveService    DriveServiceInterface
	CalendarService CalendarServiceInterface
	GmailService    GmailServiceInterface

	// ToDo
	TodoService TodoServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Auth → RateLimit(General)
//
// OAuthフロー（/auth/google/*）、/health、/metricsは認証の外に配置する。
// Google APIプロキシのルートには専用のレート制限を追加で適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := slog.Default()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Collector))

	authHandler := NewAuthHandler(deps.AuthService, deps.Refresher, deps.AuthConfig)
	driveHandler := NewDriveHandler(deps.DriveService)
	calendarHandler := NewCalendarHandler(deps.CalendarService)
	gmailHandler := NewGmailHandler(deps.GmailService)
	todoHandler := NewTodoHandler(deps.TodoService)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// OAuthフロー
	r.Get("/auth/google/login", authHandler.Login)
	r.Get("/auth/google/callback", authHandler.Callback)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// セッション管理
		r.Post("/auth/refresh_token", authHandler.RefreshToken)
		r.Get("/auth/me", authHandler.Me)

		// ToDo管理
		r.Route("/todos", func(r chi.Router) {
			r.Get("/", todoHandler.List)
			r.Post("/", todoHandler.Create)
		})

		// Google APIプロキシ（専用レート制限を追加）
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.GoogleProxyMiddleware())

			r.Route("/drive", func(r chi.Router) {
				r.Get("/", driveHandler.ListFiles)
				r.Post("/docs", driveHandler.CreateDoc)
			})

			r.Route("/calendar", func(r chi.Router) {
				r.Get("/", calendarHandler.ListCalendars)
				r.Get("/events", calendarHandler.ListEvents)
				r.Post("/events", calendarHandler.CreateEvent)
			})

			r.Route("/gmail", func(r chi.Router) {
				r.Get("/messages", gmailHandler.ListMessages)
				r.Get("/messages/{id}", gmailHandler.GetMessage)
				r.Get("/labels", gmailHandler.ListLabels)
				r.Post("/drafts", gmailHandler.CreateDraft)
				r.Post("/drafts/reply", gmailHandler.CreateReplyDraft)
				r.Get("/threads", gmailHandler.ListThreads)
				r.Get("/threads/{id}", gmailHandler.GetThread)
			})
		})
	})

	return r
}

// newHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.Ping(); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
