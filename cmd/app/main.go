package main

import (
	"BlinkRise/internal/config"
	"BlinkRise/pkg/log"
	"BlinkRise/pkg/redis"
	websocketPkg "BlinkRise/pkg/websocket"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// bootstrap loads .env and then builds the logger, which reads LOG_LEVEL
// and APP_ENV.
func bootstrap() *logrus.Logger {
	envErr := godotenv.Load()

	logger := log.NewLogger()
	if envErr != nil {
		logger.Warnf("No .env file loaded, using process environment: %v", envErr)
	}
	return logger
}

func main() {
	logger := bootstrap()

	validator := config.NewValidator()
	cfg, err := config.LoadConfig(validator)
	if err != nil {
		log.Fatal(log.Fields{"error": err.Error()}, "Failed to load configuration")
	}

	fiberApp := config.NewFiber(logger)

	faceMesh, err := websocketPkg.NewFaceMeshClient(logger, cfg.DetectorURL, websocketPkg.DefaultFaceMeshOptions())
	if err != nil {
		log.Fatal(log.Fields{"error": err.Error(), "url": cfg.DetectorURL}, "Invalid face mesh detector URL")
	}
	defer faceMesh.Close()

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithConfig(cfg),
		config.WithUtils(),
		config.WithFaceMesh(faceMesh),
		config.WithMiddleware(),
	}

	if cfg.RedisAddress != "" {
		redisServer := redis.New(logger, cfg.RedisAddress, cfg.RedisPassword, cfg.RedisDB)
		defer redisServer.Close()
		options = append(options, config.WithRedisServer(redisServer))
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Infof("Server started on port %s", cfg.AppPort)

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(5 * time.Second); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
