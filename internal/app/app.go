// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/mwufi/cozypage2/internal/auth"
	"github.com/mwufi/cozypage2/internal/config"
	"github.com/mwufi/cozypage2/internal/credential"
	"github.com/mwufi/cozypage2/internal/database"
	"github.com/mwufi/cozypage2/internal/google"
	"github.com/mwufi/cozypage2/internal/handler"
	"github.com/mwufi/cozypage2/internal/llm/openai"
	"github.com/mwufi/cozypage2/internal/logger"
	"github.com/mwufi/cozypage2/internal/metrics"
	"github.com/mwufi/cozypage2/internal/middleware"
	"github.com/mwufi/cozypage2/internal/notify"
	"github.com/mwufi/cozypage2/internal/repository"
	"github.com/mwufi/cozypage2/internal/security"
	"github.com/mwufi/cozypage2/internal/todo"
	"github.com/mwufi/cozypage2/internal/workflow"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "cozypage")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BackendBaseURL),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorkflow:
		return runWorkflow(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	profileRepo := repository.NewPostgresProfileRepo(db)
	credRepo := repository.NewPostgresCredentialRepo(db)
	todoRepo := repository.NewPostgresTodoRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 認証サービスの初期化
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.BackendBaseURL + "/auth/google/callback",
	})
	tokens := auth.NewTokenManager(cfg.JWTSecretKey, cfg.SessionTokenTTL)
	states := auth.NewStateSigner(cfg.SessionSecret)
	authService := auth.NewService(oauthProvider, profileRepo, credRepo, tokens, states)

	// 5. トークンリフレッシュコーディネーターとGoogle APIプロキシの初期化
	coordinator := credential.NewCoordinator(credRepo, collector, credential.CoordinatorConfig{})
	factory := google.NewClientFactory(coordinator)
	sanitizer := security.NewContentSanitizer()

	driveService := google.NewDriveService(factory, collector)
	calendarService := google.NewCalendarService(factory, collector)
	gmailService := google.NewGmailService(factory, collector, sanitizer)

	// 6. ToDoサービスの初期化（完了ワークフローへの通知付き）
	notifier := notify.NewRestateClient(cfg.RestateURL, cfg.RestateAPIKey, collector)
	todoService := todo.NewService(todoRepo, notifier)

	// 7. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		// configのRateLimitGeneralはreq/min単位なのでreq/secに変換する
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		HealthChecker:     db,
		TokenVerifier:     tokens,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Collector:         collector,
		Gatherer:          registry,

		AuthService: authService,
		Refresher:   coordinator,
		AuthConfig: handler.AuthHandlerConfig{
			FrontendAppURL: cfg.FrontendAppURL,
			CookieSecure:   cfg.CookieSecure,
		},

		DriveService:    driveService,
		CalendarService: calendarService,
		GmailService:    gmailService,

		TodoService: todoService,
	}

	router := handler.NewRouter(deps)

	// 8. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorkflow はRestateワークフローエンドポイントモードで起動する。
// ToDo完了ハンドラーとAI応答ハンドラーを公開し、Restateランタイムからの
// 接続を待ち受ける。SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorkflow(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (workflow)")

	todoRepo := repository.NewPostgresTodoRepo(db)

	// 2. LLMクライアントの初期化（APIキーが設定されている場合のみ）
	var llm *openai.Client
	if cfg.OpenAIAPIKey != "" {
		llm, err = openai.NewClient(openai.Config{APIKey: cfg.OpenAIAPIKey})
		if err != nil {
			return fmt.Errorf("failed to initialize llm client: %w", err)
		}
	} else {
		slog.Warn("OPENAI_API_KEY not set, AI workflow service disabled")
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down workflow endpoint...")
		cancel()
	}()

	slog.Info("workflow endpoint starting",
		slog.String("addr", cfg.RestateListenAddr),
	)

	srv := workflow.NewServer(todoRepo, llm)
	if err := srv.Start(ctx, cfg.RestateListenAddr); err != nil {
		return fmt.Errorf("workflow endpoint failed: %w", err)
	}

	slog.Info("workflow endpoint stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
