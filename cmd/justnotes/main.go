package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/justnotes/internal/backend"
	"github.com/xxxsen/justnotes/internal/cache"
	"github.com/xxxsen/justnotes/internal/config"
	"github.com/xxxsen/justnotes/internal/db"
	"github.com/xxxsen/justnotes/internal/filestore"
	"github.com/xxxsen/justnotes/internal/handler"
	"github.com/xxxsen/justnotes/internal/job"
	"github.com/xxxsen/justnotes/internal/middleware"
	"github.com/xxxsen/justnotes/internal/model"
	"github.com/xxxsen/justnotes/internal/oauth"
	"github.com/xxxsen/justnotes/internal/schedule"
	"github.com/xxxsen/justnotes/internal/service"
	"github.com/xxxsen/justnotes/internal/session"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "justnotes",
		Short: "justnotes backend server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run justnotes server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply postgres migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cfg.Backend.Type != config.BackendPostgres {
				return fmt.Errorf("migrate needs backend.type=postgres, got %s", cfg.Backend.Type)
			}
			conn, err := openDatabase(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return conn.Close()
		},
	}

	var exportEmail string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "export the cached workspace of a user to the file store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			email := model.NormalizeEmail(exportEmail)
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			return runExport(cmd.Context(), cfg, email)
		},
	}
	exportCmd.Flags().StringVar(&exportEmail, "email", "", "user whose cached workspace is exported")

	rootCmd.AddCommand(runCmd, migrateCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", path))
	return cfg, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	conn, err := db.Open(cfg.Backend.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return conn, nil
}

func newBackendProvider(ctx context.Context, cfg *config.Config) (backend.Provider, func(), error) {
	switch cfg.Backend.Type {
	case config.BackendPostgres:
		conn, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		provider, err := backend.NewProvider(config.BackendPostgres, backend.PostgresArgs{DB: conn, AppURL: cfg.AppURL})
		if err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return provider, func() { _ = conn.Close() }, nil
	default:
		provider, err := backend.NewProvider(config.BackendDrive, backend.DriveArgs{Config: cfg.Backend.Drive})
		if err != nil {
			return nil, nil, err
		}
		return provider, func() {}, nil
	}
}

func newOAuthProviders(cfg *config.Config) map[string]oauth.Provider {
	providers := map[string]oauth.Provider{}
	client := &http.Client{Timeout: 10 * time.Second}
	items := []struct {
		name string
		conf config.OAuthProviderConfig
	}{
		{"google", cfg.OAuth.Google},
		{"github", cfg.OAuth.Github},
	}
	for _, item := range items {
		if !item.conf.Enabled() {
			continue
		}
		provider, err := oauth.NewProvider(item.name, oauth.ProviderArgs{Config: oauth.ProviderConfig{
			ClientID:     item.conf.ClientID,
			ClientSecret: item.conf.ClientSecret,
			RedirectURL:  item.conf.RedirectURL,
			Scopes:       item.conf.Scopes,
		}, Client: client})
		if err != nil {
			logutil.GetLogger(context.Background()).Error("init oauth provider failed", zap.String("provider", item.name), zap.Error(err))
			continue
		}
		providers[item.name] = provider
	}
	return providers
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("backend", cfg.Backend.Type),
		zap.String("cache", cfg.Cache.Type),
		zap.String("file_store", cfg.FileStore.Type),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, closeBackend, err := newBackendProvider(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init backend: %w", err)
	}
	defer closeBackend()

	kv, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer kv.Close()

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	providers := newOAuthProviders(cfg)
	if len(providers) == 0 {
		return fmt.Errorf("no oauth provider available")
	}
	sessions := session.NewManager(provider, kv, cfg.Session.MaxSessions, time.Duration(cfg.Session.TTLMinutes)*time.Minute)
	defer sessions.Close()

	jwtSecret := []byte(cfg.JWTSecret)
	authService := service.NewAuthService(sessions, providers, jwtSecret, time.Hour*time.Duration(cfg.JWTTTLHours))
	exportService := service.NewExportService(store)

	if cfg.ResyncSpec != "" {
		scheduler := schedule.NewCronScheduler(schedule.WithRunTimeout(10 * time.Minute))
		if err := scheduler.AddJob(job.NewResyncJob(sessions), cfg.ResyncSpec); err != nil {
			return fmt.Errorf("schedule resync: %w", err)
		}
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	deps := handler.RouterDeps{
		Auth:             handler.NewAuthHandler(authService, cfg.AppURL),
		Workspace:        handler.NewWorkspaceHandler(sessions),
		Folders:          handler.NewFolderHandler(),
		Notes:            handler.NewNoteHandler(),
		Export:           handler.NewExportHandler(exportService),
		Files:            handler.NewFileHandler(store),
		Sessions:         authService,
		JWTSecret:        jwtSecret,
		CommentRateLimit: time.Duration(cfg.CommentRateLimitSeconds) * time.Second,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/events", "/api/v1/files"})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runExport(ctx context.Context, cfg *config.Config, email string) error {
	kv, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer kv.Close()
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	snap := cache.NewUserMirror(kv, email).Load(ctx)
	if len(snap.Notes) == 0 && len(snap.Folders) == 0 {
		return fmt.Errorf("no cached workspace for %s", email)
	}
	exportService := service.NewExportService(store)
	res, err := exportService.Export(ctx, email, snap)
	if err != nil {
		return err
	}
	link, err := exportService.URL(ctx, res.Key, strings.TrimSuffix(cfg.AppURL, "/"))
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("workspace exported",
		zap.String("email", email),
		zap.String("key", res.Key),
		zap.Int("notes", res.Notes),
		zap.Int64("size", res.Size),
		zap.String("url", link),
	)
	return nil
}
