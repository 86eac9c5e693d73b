package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alphasafe/alphasafe-api/config"
	"github.com/alphasafe/alphasafe-api/notifications"
	"github.com/alphasafe/alphasafe-api/services"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat, "alphasafe-api")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// run serves the API until SIGINT or SIGTERM, or until the listener fails.
// Every client it opens is closed before it returns.
func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting AlphaSafe API",
		zap.String("env", cfg.GoEnv),
		zap.String("config_file", cfg.EnvFile),
	)

	if err := config.ConnectDatabase(cfg, logger); err != nil {
		return err
	}
	db := config.GetDB()
	if err := config.Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("database migration completed")

	dispatcher, closeNotifications, err := newDispatcher(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to configure notifications: %w", err)
	}
	dispatcher.Start()
	defer closeNotifications()

	var storage services.ObjectStorage
	if cfg.AWSS3Bucket != "" {
		s3Storage, err := services.NewS3Storage(context.Background(), cfg)
		if err != nil {
			return fmt.Errorf("failed to configure photo storage: %w", err)
		}
		storage = s3Storage
	} else {
		logger.Warn("AWS_S3_BUCKET not set, photo uploads are disabled")
	}

	app, err := newApplication(cfg, db, logger, dispatcher, storage)
	if err != nil {
		return fmt.Errorf("failed to initialise application: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var listenErr error
	select {
	case <-quit:
	case listenErr = <-serverErr:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	return listenErr
}

// newDispatcher routes email, push and the audit stream to the configured
// backends. Unconfigured channels are logged instead of delivered. The
// returned func drains the queue and then disconnects the backends.
func newDispatcher(cfg *config.Config, logger *zap.Logger) (*notifications.Dispatcher, func(), error) {
	var redisOpts *redis.Options
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		redisOpts = opts
	}

	dispatcher := notifications.NewDispatcher(logger, cfg.NotificationQueueSize)

	if cfg.ResendAPIKey != "" {
		dispatcher.Route(notifications.ChannelEmail,
			notifications.NewResendMailer(cfg.ResendBaseURL, cfg.ResendAPIKey, cfg.MailFrom, cfg.AppURL))
	} else {
		logger.Warn("RESEND_API_KEY not set, emails will only be logged")
		dispatcher.Route(notifications.ChannelEmail, notifications.NewLogSender(logger, cfg.AppURL))
	}

	var mqttClient mqtt.Client
	if cfg.MQTTBrokerURL != "" {
		client, err := notifications.ConnectMQTT(cfg.MQTTBrokerURL, "alphasafe-api")
		if err != nil {
			return nil, nil, err
		}
		mqttClient = client
		dispatcher.Route(notifications.ChannelPush,
			notifications.NewMQTTPusher(client, cfg.MQTTTopicPrefix, cfg.AppURL))
	} else {
		logger.Warn("MQTT_BROKER_URL not set, push notifications will only be logged")
		dispatcher.Route(notifications.ChannelPush, notifications.NewLogSender(logger, cfg.AppURL))
	}

	var redisClient *redis.Client
	if redisOpts != nil {
		redisClient = redis.NewClient(redisOpts)
		dispatcher.RouteAll(notifications.NewStreamPublisher(redisClient, cfg.NotificationStream))
	}

	closeAll := func() {
		dispatcher.Close()
		if mqttClient != nil {
			mqttClient.Disconnect(250)
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("failed to close redis client", zap.Error(err))
			}
		}
	}
	return dispatcher, closeAll, nil
}
