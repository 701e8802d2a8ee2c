package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/wassup/internal/config"
	"github.com/xxxsen/wassup/internal/db"
	"github.com/xxxsen/wassup/internal/filestore"
	"github.com/xxxsen/wassup/internal/handler"
	"github.com/xxxsen/wassup/internal/job"
	"github.com/xxxsen/wassup/internal/middleware"
	"github.com/xxxsen/wassup/internal/repo"
	"github.com/xxxsen/wassup/internal/repo/memrepo"
	"github.com/xxxsen/wassup/internal/schedule"
	"github.com/xxxsen/wassup/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "wassup",
		Short: "wassup account service",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run wassup server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

type repositories struct {
	users service.UserRepository
	otps  service.OTPRepository
	db    *sql.DB
}

func openRepositories(cfg config.DatabaseConfig) (*repositories, error) {
	if cfg.Driver == "memory" {
		logutil.GetLogger(context.Background()).Warn("using in-memory database, data is lost on restart")
		return &repositories{users: memrepo.NewUserRepo(), otps: memrepo.NewOTPRepo()}, nil
	}
	conn, err := db.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return &repositories{users: repo.NewUserRepo(conn), otps: repo.NewOTPRepo(conn), db: conn}, nil
}

func runServer(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logutil.GetLogger(ctx)

	if err := schedule.ValidateSpec(cfg.OTPCleanupSpec); err != nil {
		return err
	}
	repos, err := openRepositories(cfg.Database)
	if err != nil {
		return err
	}
	if repos.db != nil {
		defer repos.db.Close()
	}
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}
	log.Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("file_store", store.Type()),
	)

	jwtSecret := []byte(cfg.JWTSecret)
	sessionTTL := time.Hour * time.Duration(cfg.SessionTTLHours)
	resetTTL := time.Hour * time.Duration(cfg.ResetTTLHours)

	mailSender := service.NewEmailSender(cfg.Mail)
	avatars := service.NewAvatarUploader(store)
	otpService := service.NewOTPService(repos.otps, mailSender)
	authService := service.NewAuthService(repos.users, otpService, avatars, jwtSecret, sessionTTL)
	userService := service.NewUserService(repos.users, avatars)
	resetService := service.NewPasswordResetService(repos.users, mailSender, jwtSecret, resetTTL, cfg.ResetLinkBase)

	cookies := handler.CookieOptions{Secure: *cfg.CookieSecure, SessionTTL: sessionTTL, ResetTTL: resetTTL}
	uploads := handler.UploadOptions{Dir: cfg.UploadDir, Limit: cfg.UploadLimit}
	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService, otpService, cookies, uploads),
		Users:     handler.NewUserHandler(userService, resetService, cookies, uploads),
		Files:     handler.NewFileHandler(store),
		Session:   authService,
		Uploads:   uploads,
		RateLimit: time.Second * time.Duration(*cfg.RateLimitSeconds),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler(ctx)
	if err := scheduler.AddJob(job.NewOTPCleanupJob(otpService), cfg.OTPCleanupSpec); err != nil {
		return err
	}
	scheduler.Start()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error("server error", zap.Error(err))
			runErr = fmt.Errorf("serve http: %w", err)
		}
	}
	log.Info("server stopping...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	scheduler.Stop(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", zap.Error(err))
	}
	return runErr
}
