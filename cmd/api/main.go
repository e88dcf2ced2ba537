package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sd-tech/leetai-api/internal/config"
	"github.com/sd-tech/leetai-api/internal/database"
	"github.com/sd-tech/leetai-api/internal/events"
	"github.com/sd-tech/leetai-api/internal/handler"
	"github.com/sd-tech/leetai-api/internal/middleware"
	"github.com/sd-tech/leetai-api/internal/repository"
	"github.com/sd-tech/leetai-api/internal/router"
	"github.com/sd-tech/leetai-api/internal/service"
	"github.com/sd-tech/leetai-api/internal/worker"
	"github.com/sd-tech/leetai-api/pkg/ai"
	"github.com/sd-tech/leetai-api/pkg/judge"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, problem list caching disabled")
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, verdict events disabled")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}
	publisher := events.NewPublisher(natsConn, cfg.VerdictSubject, logger)

	limiter := judge.NewLimiter(cfg.JudgeMaxCalls, cfg.JudgeWindow, cfg.JudgeCallDelay)
	judgeClient := judge.NewClient(judge.Config{
		BaseURL:      cfg.JudgeBaseURL,
		AuthToken:    cfg.JudgeAuthToken,
		PollInterval: cfg.PollInterval,
	}, limiter, logger)

	var generator ai.Generator
	if cfg.OpenAIAPIKey != "" {
		openAI, err := ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.AIModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create AI generator: %v", err)
		}
		generator = openAI
	} else {
		logger.Warn().Msg("no OpenAI API key configured, AI features disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	problemRepo := repository.NewProblemRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	userRepo := repository.NewUserRepository(db)

	poolCtx, poolCancel := context.WithCancel(context.Background())
	defer poolCancel()

	pool := worker.New(cfg.EvalWorkers, cfg.EvalQueueSize, logger)
	pool.Start(poolCtx)

	evalService := service.NewEvalService(submissionRepo, problemRepo, judgeClient, publisher, logger, service.EvalConfig{
		Mock: cfg.DemoMock,
	})
	submissionService := service.NewSubmissionService(submissionRepo, problemRepo, userRepo, evalService, pool, generator, validate, logger)
	problemService := service.NewProblemService(problemRepo, judgeClient, generator, redisClient, cfg.ProblemCacheTTL, validate, logger)
	userService := service.NewUserService(userRepo, cfg.JWTSecret, service.AdminCredentials{
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ProblemHandler:    handler.NewProblemHandler(problemService, logger),
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		UserHandler:       handler.NewUserHandler(userService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, pool)
}

func waitForShutdown(app *fiber.App, pool *worker.Pool) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	pool.Stop()

	log.Println("server stopped")
}
