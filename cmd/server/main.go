package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/AlchemyApps/mindScript-sub006/internal/client"
	"github.com/AlchemyApps/mindScript-sub006/internal/config"
	"github.com/AlchemyApps/mindScript-sub006/internal/handler"
	"github.com/AlchemyApps/mindScript-sub006/internal/middleware"
	"github.com/AlchemyApps/mindScript-sub006/internal/model"
	"github.com/AlchemyApps/mindScript-sub006/internal/queue"
	"github.com/AlchemyApps/mindScript-sub006/internal/service"
	"github.com/AlchemyApps/mindScript-sub006/internal/synth"
	ws "github.com/AlchemyApps/mindScript-sub006/internal/websocket"
	"github.com/AlchemyApps/mindScript-sub006/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize job store
	store := queue.NewStore(redisClient, time.Duration(cfg.Worker.StalenessMinutes)*time.Minute)

	// Initialize speech clients
	elevenLabsClient := client.NewElevenLabsClient(&cfg.ElevenLabs)
	openAIClient := client.NewOpenAIClient(&cfg.OpenAI)

	// Initialize R2 client (optional - continues if not configured)
	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		var err error
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		}
	} else {
		log.Println("Info: R2 storage not configured, uploads will fail")
	}

	// Initialize synthesis engine
	synthesizers := map[model.Provider]synth.SpeechSynthesizer{
		model.ProviderElevenLabs: elevenLabsClient,
		model.ProviderOpenAI:     openAIClient,
	}
	var storage synth.ObjectStorage
	if r2Client != nil {
		storage = r2Client
	}
	engine := synth.NewEngine(synth.Options{
		SampleRate:           cfg.Audio.SampleRate,
		DefaultTargetLUFS:    cfg.Audio.TargetLUFS,
		PreviewSeconds:       cfg.Audio.PreviewSeconds,
		PreviewOffsetSeconds: cfg.Audio.PreviewOffsetSeconds,
		CrossfadeSeconds:     cfg.Audio.CrossfadeSeconds,
		MusicFadeSeconds:     cfg.Audio.MusicFadeSeconds,
	}, synthesizers, storage)

	// Initialize orchestrator
	orchestrator := worker.NewOrchestrator(store, engine, hub, cfg.Worker.BatchSize)

	// Initialize services
	renderService := service.NewRenderService(store)

	// Initialize handlers
	renderHandler := handler.NewRenderHandler(renderService, validate)
	workerHandler := handler.NewWorkerHandler(orchestrator, store, map[string]handler.ConfiguredChecker{
		string(model.ProviderElevenLabs): elevenLabsClient,
		string(model.ProviderOpenAI):     openAIClient,
	})

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-User-Id",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", workerHandler.Health)

	// API routes
	api := app.Group("/api", middleware.GatewayAuthMiddleware())

	// Render routes
	render := api.Group("/render")
	render.Post("/start", rateLimiter.RenderLimit(cfg.RateLimit.RenderPerHour), renderHandler.Start)
	render.Get("/status/:jobId", renderHandler.Status)
	render.Get("/result/:jobId", renderHandler.Result)

	// Internal worker trigger (called by the scheduler, not exposed via gateway)
	app.Post("/internal/worker/process", workerHandler.Process)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server and periodic tick scheduler
	go startWorkerServer(cfg, orchestrator)
	go startScheduler(cfg)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, orchestrator *worker.Orchestrator) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// Batch claims serialize inside the job store, one tick at a time
			// is enough.
			Concurrency: 1,
			LogLevel:    asynqLogLevel,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(worker.TaskTypeTick, orchestrator.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func startScheduler(cfg *config.Config) {
	tick := cfg.Worker.TickSeconds
	if tick <= 0 {
		tick = 30
	}

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		nil,
	)

	if _, err := scheduler.Register(fmt.Sprintf("@every %ds", tick), worker.NewTickTask()); err != nil {
		log.Printf("Scheduler registration error: %v", err)
		return
	}

	if err := scheduler.Run(); err != nil {
		log.Printf("Scheduler error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
