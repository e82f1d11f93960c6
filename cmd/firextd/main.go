package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"firext-backend/config"
	"firext-backend/internal/api"
	"firext-backend/internal/auth"
	"firext-backend/internal/bus"
	"firext-backend/internal/db"
	"firext-backend/internal/hub"
	"firext-backend/internal/monitor"
	"firext-backend/internal/mw"
	"firext-backend/internal/notification"
	"firext-backend/internal/reconciler"
	"firext-backend/internal/session"
	"firext-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "firext ", log.LstdFlags)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Auth.Password == "" {
		logger.Fatalf("auth.password (or %s) must be set", config.EnvAuthPassword)
	}

	var webpushOptions *webpush.Options
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
	} else {
		logger.Println("VAPID keys are not configured; web push is disabled")
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	publisher, err := bus.NewPublisher(cfg.Bus.URL, cfg.Bus.SubjectPrefix)
	if err != nil {
		logger.Fatalf("failed to connect to bus: %v", err)
	}
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	watcher := store.NewWatcher(appStore, cfg.Monitor.PollInterval)
	go watcher.Run(ctx)
	logger.Println("data store initialized")

	dashboard := hub.NewHub()
	go dashboard.Run(ctx)

	var pushDB = gormDB
	if webpushOptions == nil {
		pushDB = nil
	}
	board := notification.NewBoard()
	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, pushDB, webpushOptions, board, dashboard, publisher)

	monitorSvc := monitor.NewService(watcher, appStore,
		reconciler.New(appStore, cfg.Monitor.Location),
		pool, dashboard, cfg.Monitor.Location)
	responseCache := mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)
	monitorSvc.FlushAfterProjections(responseCache)
	monitorDone := make(chan struct{})
	go func() {
		monitorSvc.Run(ctx)
		close(monitorDone)
	}()

	tracker := session.NewTracker(appStore, watcher)
	handler := api.NewHandler(api.Deps{
		Store:        appStore,
		Tracker:      tracker,
		Hub:          dashboard,
		Board:        board,
		Auth:         auth.NewAuthenticator(cfg.Auth.Password, cfg.Auth.SigningSecret),
		Webpush:      webpushOptions,
		Location:     cfg.Monitor.Location,
		CookieSecure: cfg.Server.CookieSecure,
		Cache:        responseCache,
	})
	router := api.NewRouter(cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	// Websocket sessions outlive Shutdown; cancelling ctx ends them.
	server.BaseContext = func(net.Listener) context.Context { return ctx }

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server Shutdown: %v", err)
	}

	// Detail sessions release their check records and in-flight led_state
	// writes finish before exit.
	cancel()
	stopped := make(chan struct{})
	go func() {
		<-monitorDone
		tracker.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		logger.Println("services did not stop before the shutdown deadline")
	}

	logger.Println("Server gracefully stopped")
}
