package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/crewdesk/realtime/internal/chat"
	"github.com/crewdesk/realtime/internal/config"
	"github.com/crewdesk/realtime/internal/hub"
	"github.com/crewdesk/realtime/internal/logger"
	"github.com/crewdesk/realtime/internal/push"
	"github.com/crewdesk/realtime/internal/storage"
)

func main() {
	config.LoadConfig()

	mainLog := log.NewWithOptions(os.Stdout, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Level:           log.DebugLevel,
		TimeFormat:      time.Kitchen,
	})

	appLogger := logger.New(logger.FromConfig(config.AppConfig.LogLevel, config.AppConfig.LogFormat))

	mainLog.Info("Setting Gin mode", "mode", config.AppConfig.GinMode)
	gin.SetMode(config.AppConfig.GinMode)

	// Server-side canonical message log.
	blobs, err := storage.NewBlobStore(config.AppConfig.DataDir)
	if err != nil {
		mainLog.Fatal("Failed to initialize blob storage", "error", err)
	}
	messageCache := chat.NewCache(blobs, appLogger)

	// Cross-instance room fan-out (optional).
	var bridge *hub.Bridge
	if config.AppConfig.NatsURL != "" {
		bridge, err = hub.NewBridge(config.AppConfig.NatsURL, appLogger)
		if err != nil {
			mainLog.Fatal("Failed to connect NATS bridge", "error", err)
		}
		defer bridge.Close()
	} else {
		mainLog.Info("NATS URL not set, running single-instance")
	}

	roomHub := hub.NewHub(bridge, appLogger)
	wsHandler := hub.NewHandler(roomHub, messageCache, appLogger)

	// Push dispatch (optional: requires a Firebase project).
	var pushHandler *push.Handler
	if config.AppConfig.FirebaseProjectID != "" {
		clients, err := push.NewClients(context.Background(), config.AppConfig.FirebaseProjectID, config.AppConfig.FirebaseCredJSON)
		if err != nil {
			mainLog.Fatal("Failed to initialize Firebase clients", "error", err)
		}
		defer clients.Close()

		dispatcher := push.NewDispatcher(clients.Messaging, appLogger, config.AppConfig.PushNotificationsEnabled)
		registry := push.NewTokenRegistry(clients.Firestore, appLogger)
		pushHandler = push.NewHandler(push.NewService(dispatcher, registry, appLogger))
	} else {
		mainLog.Warn("Firebase project not configured, push dispatch disabled")
	}

	router := gin.Default()

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "instance": logger.GetInstanceID()})
	})

	router.GET("/ws", wsHandler.ServeWS)

	if pushHandler != nil {
		internal := router.Group("/internal")
		{
			internal.POST("/push", pushHandler.Dispatch)
		}
	}

	port := ":" + config.AppConfig.Port
	mainLog.Info("🔁  realtime hub listening on " + port)

	srv := &http.Server{
		Addr:    port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLog.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	mainLog.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(config.AppConfig.ServerShutdownTimeoutSeconds)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		mainLog.Fatal("Server forced to shutdown", "error", err)
	}

	mainLog.Info("✅ Server exited")
}
