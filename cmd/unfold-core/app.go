package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/unfoldcro/unfold-core/internal/adapters/driven/auth"
	"github.com/unfoldcro/unfold-core/internal/adapters/driven/notify"
	"github.com/unfoldcro/unfold-core/internal/adapters/driven/postgres"
	postgresqueue "github.com/unfoldcro/unfold-core/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/unfoldcro/unfold-core/internal/adapters/driven/queue/redis"
	redisadapter "github.com/unfoldcro/unfold-core/internal/adapters/driven/redis"
	"github.com/unfoldcro/unfold-core/internal/adapters/driving/http"
	"github.com/unfoldcro/unfold-core/internal/config"
	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driven"
	"github.com/unfoldcro/unfold-core/internal/core/services"
	"github.com/unfoldcro/unfold-core/internal/worker"
)

// app holds the wired adapters and services shared by every run mode
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	db          *postgres.DB
	redisClient *redis.Client
	queue       driven.JobQueue

	services  http.Services
	scheduler *services.Scheduler
	worker    *worker.Worker
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// ===== PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}
	a.db = db

	if err := db.InitSchema(ctx); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	log.Println("PostgreSQL connected and schema initialized")

	// ===== Redis (optional) =====
	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		a.redisClient = redis.NewClient(opts)
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Println("Redis connected")
	}

	// ===== Stores =====
	userStore := postgres.NewUserStore(db)
	agencyStore := postgres.NewAgencyStore(db)
	projectStore := postgres.NewProjectStore(db)
	taskStore := postgres.NewTaskStore(db)
	activityStore := postgres.NewActivityStore(db)
	schedulerStore := postgres.NewSchedulerStore(db)

	// Sessions, the job queue and the scheduler lock prefer Redis and fall back to PostgreSQL
	var (
		sessionStore driven.SessionStore
		lock         driven.DistributedLock
	)
	if a.redisClient != nil {
		sessionStore = redisadapter.NewSessionStore(a.redisClient)
		lock = redisadapter.NewLock(a.redisClient)
		q, err := redisqueue.NewQueue(a.redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to create job queue: %w", err)
		}
		a.queue = q
		log.Println("Using Redis sessions, job queue and lock")
	} else {
		sessionStore = postgres.NewSessionStore(db)
		lock = postgres.NewAdvisoryLock(db)
		a.queue = postgresqueue.NewQueue(db.DB)
		log.Println("Using PostgreSQL sessions, job queue and advisory lock")
	}

	// ===== Services =====
	authAdapter := auth.NewAdapter(cfg.JWTSecret)
	dispatcher := notify.NewQueueDispatcher(a.queue)

	a.services = http.Services{
		Auth:     services.NewAuthService(userStore, sessionStore, authAdapter, cfg.TokenTTL),
		Users:    services.NewUserService(userStore, agencyStore, sessionStore, authAdapter),
		Agencies: services.NewAgencyService(agencyStore),
		Projects: services.NewProjectService(projectStore, agencyStore, activityStore, logger),
		Tasks: services.NewTaskService(services.TaskServiceConfig{
			Tasks:      taskStore,
			Projects:   projectStore,
			Users:      userStore,
			Activity:   activityStore,
			Dispatcher: dispatcher,
			Logger:     logger,
		}),
	}

	if cfg.SchedulerEnabled {
		a.scheduler = services.NewScheduler(services.SchedulerConfig{
			Store:        schedulerStore,
			JobQueue:     a.queue,
			Lock:         lock,
			Logger:       logger,
			LockRequired: cfg.SchedulerLockRequired,
		})
		if err := a.scheduler.EnsureSchedules(ctx, domain.DefaultSchedules(cfg.ReviewReminderInterval)); err != nil {
			a.close()
			return nil, fmt.Errorf("failed to register schedules: %w", err)
		}
		a.services.Schedules = a.scheduler
		log.Printf("Scheduler enabled (lock_required=%t)", cfg.SchedulerLockRequired)
	} else {
		log.Println("Scheduler disabled via SCHEDULER_ENABLED=false")
	}

	// ===== Worker =====
	var transport driven.NotificationTransport
	if cfg.SlackWebhookURL != "" {
		transport, err = notify.NewSlackTransport(cfg.SlackWebhookURL)
		if err != nil {
			a.close()
			return nil, err
		}
	} else {
		transport = notify.NewLogTransport(logger)
	}

	a.worker = worker.New(worker.Config{
		Queue:          a.queue,
		Transport:      transport,
		Reminders:      services.NewReminderService(taskStore, userStore, dispatcher, cfg.ReviewReminderAfter, logger),
		Scheduler:      a.scheduler,
		Logger:         logger,
		Concurrency:    cfg.WorkerConcurrency,
		DequeueTimeout: cfg.WorkerDequeueTimeout,
	})

	return a, nil
}

// runAPI serves HTTP until ctx is cancelled
func (a *app) runAPI(ctx context.Context) error {
	checks := map[string]http.Pinger{
		"postgres": a.db,
		"queue":    a.queue,
	}
	if a.redisClient != nil {
		checks["redis"] = redisPinger{a.redisClient}
	}

	server := http.NewServer(http.Config{
		Host:           "0.0.0.0",
		Port:           a.cfg.Port,
		Version:        version,
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
		Logger:         a.logger,
	}, a.services, checks)

	return server.Start(ctx)
}

// runWorker processes jobs until ctx is cancelled
func (a *app) runWorker(ctx context.Context) error {
	if err := a.startWorker(ctx); err != nil {
		return err
	}
	log.Println("Worker started, processing jobs...")

	<-ctx.Done()
	a.stopWorker()
	return nil
}

func (a *app) startWorker(ctx context.Context) error {
	if err := a.worker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	return nil
}

func (a *app) stopWorker() {
	log.Println("Stopping worker...")
	a.worker.Stop()
	log.Println("Worker stopped")
}

func (a *app) close() {
	if a.queue != nil {
		_ = a.queue.Close()
	}
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// redisPinger adapts a redis client to the readiness check
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
