package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/davidmcguire/audio-app/internal/config"
	"github.com/davidmcguire/audio-app/internal/db"
	"github.com/davidmcguire/audio-app/internal/gateway"
	httpHandlers "github.com/davidmcguire/audio-app/internal/http/handlers"
	httpRouter "github.com/davidmcguire/audio-app/internal/http/router"
	"github.com/davidmcguire/audio-app/internal/logger"
	"github.com/davidmcguire/audio-app/internal/mail"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/repository"
	"github.com/davidmcguire/audio-app/internal/scheduler"
	"github.com/davidmcguire/audio-app/internal/service"
	"github.com/davidmcguire/audio-app/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL, db.PoolSettings{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Платёжные шлюзы.
	gateways := map[models.PaymentMethod]gateway.Client{
		models.PaymentMethodStripe: gateway.NewStripeClient(cfg.StripeSecretKey),
	}
	if cfg.PayPalClientID != "" {
		gateways[models.PaymentMethodPayPal] = gateway.NewPayPalClient(cfg.PayPalClientID, cfg.PayPalClientSecret, cfg.PayPalBaseURL)
	}

	// Почта. При пустом SMTP_HOST письма отключены.
	var sender mail.Sender
	if smtpSender := mail.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom); smtpSender != nil {
		sender = smtpSender
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	requestRepo := repository.NewRequestRepository(dbConn)
	pricingRepo := repository.NewPricingRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo, userRepo, sender)
	pricingService := service.NewPricingService(pricingRepo)
	paymentService := service.NewPaymentService(gateways, paymentRepo, cfg.PlatformFeePercent, cfg.Currency)
	requestService := service.NewRequestService(requestRepo, pricingRepo, userRepo, paymentService, notificationService, cfg.ReviewWindow)
	disputeService := service.NewDisputeService(requestRepo, paymentRepo, userRepo, paymentService, notificationService)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()
	notificationService.SetHub(hub)

	// Планировщик автосписания по истёкшим срокам проверки.
	autoRelease := scheduler.New(requestRepo, requestService, cfg.AutoReleaseInterval)
	autoRelease.Start(ctx)
	defer autoRelease.Stop()

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	profileHandler := httpHandlers.NewProfileHandler(userRepo, pricingService)
	pricingHandler := httpHandlers.NewPricingHandler(pricingService)
	requestHandler := httpHandlers.NewRequestHandler(requestService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	adminHandler := httpHandlers.NewAdminHandler(disputeService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, authHandler, profileHandler, pricingHandler, requestHandler, notificationHandler, adminHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
