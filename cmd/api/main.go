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

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Jagan515/tms-server/internal/apperr"
	"github.com/Jagan515/tms-server/internal/config"
	"github.com/Jagan515/tms-server/internal/handler"
	"github.com/Jagan515/tms-server/internal/integrations/accounting"
	"github.com/Jagan515/tms-server/internal/models"
	"github.com/Jagan515/tms-server/internal/repository"
	"github.com/Jagan515/tms-server/internal/service"
	"github.com/Jagan515/tms-server/internal/store"
	"github.com/Jagan515/tms-server/internal/store/memory"
	"github.com/Jagan515/tms-server/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize storage
	var st store.Store
	switch cfg.DBDriver {
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		st = memory.NewStore(logger, cfg.DBTransactions)
	default:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		repo := repository.NewRepository(db, logger, cfg.DBTransactions)
		if err := repo.Migrate(context.Background()); err != nil {
			logger.Fatalf("Failed to migrate database: %v", err)
		}
		st = repo
	}
	if !st.Transactional() {
		logger.Warn("Multi-document transactions disabled, payments and enrollments run as best-effort writes")
	}

	// Initialize layers
	mailer := email.NewSender(cfg, logger)
	svc := service.NewService(st, mailer, logger, cfg)
	if err := seedDeveloper(svc, logger); err != nil {
		logger.Fatalf("Failed to seed developer account: %v", err)
	}
	receipts := accounting.NewReceiptExporter(cfg.HMACSecret, cfg.Location)
	h := handler.NewHandler(svc, receipts, logger)

	// Start background jobs
	c := cron.New(cron.WithLocation(cfg.Location))
	if err := svc.RegisterJobs(c); err != nil {
		logger.Fatalf("Failed to register jobs: %v", err)
	}
	c.Start()
	defer c.Stop()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, cfg.JWTSecret),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}

// seedDeveloper creates the bootstrap developer account when SEED_DEVELOPER_EMAIL is set
func seedDeveloper(svc *service.Service, logger *logrus.Logger) error {
	emailAddr := os.Getenv("SEED_DEVELOPER_EMAIL")
	if emailAddr == "" {
		return nil
	}
	_, err := svc.CreateUser(context.Background(), "Developer", emailAddr, os.Getenv("SEED_DEVELOPER_PASSWORD"), models.RoleDeveloper, nil)
	if apperr.IsValidation(err) {
		logger.Infof("Developer account not created: %v", err)
		return nil
	}
	return err
}
