package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cancelBookingHandler "github.com/m04kA/SMC-RoomBookingService/internal/api/handlers/cancel_booking"
	confirmBookingHandler "github.com/m04kA/SMC-RoomBookingService/internal/api/handlers/confirm_booking"
	createBookingHandler "github.com/m04kA/SMC-RoomBookingService/internal/api/handlers/create_booking"
	createRoomHandler "github.com/m04kA/SMC-RoomBookingService/internal/api/handlers/create_room"
	deleteRoomHandler "github.com/m04kA/SMC-RoomBookingService/internal/api/handlers/delete_room"
	getBookingHandler "github.com/m04kA/SMC-RoomBookingService/internal/api/handlers/get_booking"
	getRoomHandler "github.com/m04kA/SMC-RoomBookingService/internal/api/handlers/get_room"
	getUserBookingsHandler "github.com/m04kA/SMC-RoomBookingService/internal/api/handlers/get_user_bookings"
	updateRoomHandler "github.com/m04kA/SMC-RoomBookingService/internal/api/handlers/update_room"
	"github.com/m04kA/SMC-RoomBookingService/internal/api/middleware"
	"github.com/m04kA/SMC-RoomBookingService/internal/config"
	"github.com/m04kA/SMC-RoomBookingService/internal/infra/queue/kafka"
	"github.com/m04kA/SMC-RoomBookingService/internal/infra/queue/local"
	bookingRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/booking"
	idempotencyRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/idempotency"
	roomRepo "github.com/m04kA/SMC-RoomBookingService/internal/infra/storage/room"
	"github.com/m04kA/SMC-RoomBookingService/internal/integrations/paymentgateway"
	bookingsService "github.com/m04kA/SMC-RoomBookingService/internal/service/bookings"
	idempotencyService "github.com/m04kA/SMC-RoomBookingService/internal/service/idempotency"
	roomsService "github.com/m04kA/SMC-RoomBookingService/internal/service/rooms"
	cancelBookingUC "github.com/m04kA/SMC-RoomBookingService/internal/usecase/cancel_booking"
	confirmBookingUC "github.com/m04kA/SMC-RoomBookingService/internal/usecase/confirm_booking"
	createBookingUC "github.com/m04kA/SMC-RoomBookingService/internal/usecase/create_booking"
	reconcileRefundsUC "github.com/m04kA/SMC-RoomBookingService/internal/usecase/reconcile_refunds"
	updateRoomUC "github.com/m04kA/SMC-RoomBookingService/internal/usecase/update_room"
	"github.com/m04kA/SMC-RoomBookingService/pkg/dbmetrics"
	"github.com/m04kA/SMC-RoomBookingService/pkg/logger"
	"github.com/m04kA/SMC-RoomBookingService/pkg/metrics"
	"github.com/m04kA/SMC-RoomBookingService/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-RoomBookingService...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Все репозитории работают через общий executor: с метриками или без
	var dbExec dbmetrics.DBExecutor = db
	var txBeginner txmanager.TxBeginner = txmanager.NewBeginner(db)

	if cfg.Metrics.Enabled {
		wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		dbExec = wrappedDB
		txBeginner = wrappedDB
		log.Info("Database metrics collection started")
	}

	// Инициализируем репозитории
	bookingRepository := bookingRepo.NewRepository(dbExec)
	roomRepository := roomRepo.NewRepository(dbExec)
	idempotencyRepository := idempotencyRepo.NewRepository(dbExec, time.Minute)

	// Transaction manager с повторами deadlock / serialization failure
	txMgr := txmanager.New(txBeginner, txmanager.Config{
		MaxAttempts:            cfg.TxRetry.MaxAttempts,
		DeadlockDelayMin:       time.Duration(cfg.TxRetry.DeadlockDelayMinMs) * time.Millisecond,
		DeadlockDelayMax:       time.Duration(cfg.TxRetry.DeadlockDelayMaxMs) * time.Millisecond,
		SerializationBaseDelay: time.Duration(cfg.TxRetry.SerializationBaseDelayMs) * time.Millisecond,
	}, log, metricsCollector)

	// Guard идемпотентности внешних возвратов
	guard := idempotencyService.NewService(
		idempotencyRepository,
		time.Duration(cfg.Refund.ResultTTLHours)*time.Hour,
		log,
	)

	// Клиент платежного шлюза
	gatewayClient := paymentgateway.NewClient(
		cfg.PaymentGateway.URL,
		time.Duration(cfg.PaymentGateway.Timeout)*time.Second,
		log,
	)
	log.Info("Payment gateway client initialized (url=%s, timeout=%ds)",
		cfg.PaymentGateway.URL, cfg.PaymentGateway.Timeout)

	// Диспетчер Phase 2: kafka или локальная горутина
	var refundDispatcher cancelBookingUC.RefundDispatcher
	var kafkaDispatcher *kafka.Dispatcher
	var localDispatcher *local.Dispatcher

	if cfg.Queue.Enabled {
		kafkaDispatcher = kafka.NewDispatcher(cfg.Queue.Brokers, cfg.Queue.RefundTopic, log)
		refundDispatcher = kafkaDispatcher
		log.Info("Kafka refund dispatcher initialized (brokers=%v, topic=%s)",
			cfg.Queue.Brokers, cfg.Queue.RefundTopic)
	} else {
		localDispatcher = local.NewDispatcher(time.Minute, log)
		refundDispatcher = localDispatcher
		log.Info("Queue disabled, refunds are processed in-process")
	}

	// Инициализируем use cases
	createBookingUseCase := createBookingUC.NewUseCase(
		bookingRepository,
		roomRepository,
		txMgr,
		log,
		metricsCollector,
	)

	cancelBookingUseCase := cancelBookingUC.NewUseCase(
		bookingRepository,
		roomRepository,
		txMgr,
		guard,
		gatewayClient,
		refundDispatcher,
		cancelBookingUC.Config{
			MaxAttempts: cfg.Refund.MaxAttempts,
			BaseDelay:   time.Duration(cfg.Refund.BaseDelayMs) * time.Millisecond,
		},
		log,
		metricsCollector,
	)

	// Use case отмены сам обрабатывает возвраты, которые диспетчирует
	if localDispatcher != nil {
		localDispatcher.Bind(cancelBookingUseCase)
	}

	confirmBookingUseCase := confirmBookingUC.NewUseCase(bookingRepository, txMgr, log)
	updateRoomUseCase := updateRoomUC.NewUseCase(roomRepository, log, metricsCollector)

	reconcileUseCase := reconcileRefundsUC.NewUseCase(
		bookingRepository,
		cancelBookingUseCase,
		idempotencyRepository,
		reconcileRefundsUC.Config{
			StaleAfter:       time.Duration(cfg.Reconciliation.StaleAfterSeconds) * time.Second,
			MaxTotalAttempts: cfg.Reconciliation.MaxTotalAttempts,
			BatchSize:        cfg.Reconciliation.BatchSize,
		},
		log,
		metricsCollector,
	)

	// Инициализируем сервисы
	bookingSvc := bookingsService.NewService(bookingRepository, log)
	roomSvc := roomsService.NewService(roomRepository, log)

	// Инициализируем handlers
	createBooking := createBookingHandler.NewHandler(createBookingUseCase, log)
	cancelBooking := cancelBookingHandler.NewHandler(cancelBookingUseCase, log)
	confirmBooking := confirmBookingHandler.NewHandler(confirmBookingUseCase, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	getUserBookings := getUserBookingsHandler.NewHandler(bookingSvc, log)
	createRoom := createRoomHandler.NewHandler(roomSvc, log)
	getRoom := getRoomHandler.NewHandler(roomSvc, log)
	updateRoom := updateRoomHandler.NewHandler(updateRoomUseCase, log)
	deleteRoom := deleteRoomHandler.NewHandler(updateRoomUseCase, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Просмотр комнаты
	api.HandleFunc("/rooms/{roomId}", getRoom.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// --- Бронирования ---
	// Создание бронирования
	protected.HandleFunc("/bookings", createBooking.Handle).Methods(http.MethodPost)

	// Получение бронирования по ID
	protected.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)

	// Подтверждение бронирования
	protected.HandleFunc("/bookings/{bookingId}/confirm", confirmBooking.Handle).Methods(http.MethodPost)

	// Отмена бронирования (с возвратом средств, если была оплата)
	protected.HandleFunc("/bookings/{bookingId}/cancel", cancelBooking.Handle).Methods(http.MethodPatch)

	// История бронирований пользователя
	protected.HandleFunc("/users/{userId}/bookings", getUserBookings.Handle).Methods(http.MethodGet)

	// --- Управление инвентарем комнат ---
	// Добавление комнаты
	protected.HandleFunc("/rooms", createRoom.Handle).Methods(http.MethodPost)

	// Изменение комнаты (optimistic locking)
	protected.HandleFunc("/rooms/{roomId}", updateRoom.Handle).Methods(http.MethodPut)

	// Удаление комнаты (optimistic locking)
	protected.HandleFunc("/rooms/{roomId}", deleteRoom.Handle).Methods(http.MethodDelete)

	// Фоновые процессы живут в своем контексте, не зависящем от HTTP запросов
	backgroundCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Kafka worker: обработка job'ов возврата
	var refundWorker *kafka.Worker
	if cfg.Queue.Enabled {
		refundWorker = kafka.NewWorker(
			cfg.Queue.Brokers,
			cfg.Queue.RefundTopic,
			cfg.Queue.GroupID,
			cancelBookingUseCase,
			log,
		)
		go func() {
			if err := refundWorker.Run(backgroundCtx); err != nil {
				log.Error("Refund worker stopped with error: %v", err)
			}
		}()
	}

	// Reconciliation: периодическое добивание зависших возвратов
	if cfg.Reconciliation.Enabled {
		interval := time.Duration(cfg.Reconciliation.IntervalSeconds) * time.Second
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-backgroundCtx.Done():
					return
				case <-ticker.C:
					if err := reconcileUseCase.Run(backgroundCtx); err != nil {
						log.Error("Reconciliation run failed: %v", err)
					}
				}
			}
		}()
		log.Info("Refund reconciliation enabled (interval=%s)", interval)
	}

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем фоновые процессы и сбор метрик
	stopBackground()
	if refundWorker != nil {
		if err := refundWorker.Close(); err != nil {
			log.Error("Failed to close refund worker: %v", err)
		}
	}
	if kafkaDispatcher != nil {
		if err := kafkaDispatcher.Close(); err != nil {
			log.Error("Failed to close kafka dispatcher: %v", err)
		}
	}
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
