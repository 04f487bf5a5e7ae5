package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unfoldcro/unfold-core/internal/core/domain"
	"github.com/unfoldcro/unfold-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// ScheduleAdmin exposes recurring schedules to administrators
type ScheduleAdmin interface {
	ListSchedules(ctx context.Context) ([]*domain.Schedule, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (*domain.Schedule, error)
	TriggerNow(ctx context.Context, id string) (*domain.Job, error)
}

// Services groups the driving ports served over HTTP
type Services struct {
	Auth     driving.AuthService
	Users    driving.UserService
	Agencies driving.AgencyService
	Projects driving.ProjectService
	Tasks    driving.TaskService

	// Schedules is optional; without it the schedule routes are not mounted
	Schedules ScheduleAdmin
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	authService     driving.AuthService
	userService     driving.UserService
	agencyService   driving.AgencyService
	projectService  driving.ProjectService
	taskService     driving.TaskService
	scheduleService ScheduleAdmin

	// Readiness checks, keyed by component name. Nil entries are skipped.
	checks map[string]Pinger
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server. checks are pinged by /ready.
func NewServer(cfg Config, svc Services, checks map[string]Pinger) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		authService:     svc.Auth,
		userService:     svc.Users,
		agencyService:   svc.Agencies,
		projectService:  svc.Projects,
		taskService:     svc.Tasks,
		scheduleService: svc.Schedules,
		checks:          checks,
	}

	s.setupRoutes()

	// Outermost first: metrics see the final status, recovery catches handler panics
	s.handler = MetricsMiddleware(
		NewLoggingMiddleware(logger).Handler(
			NewRecoveryMiddleware(logger).Handler(
				NewCORSMiddleware(cfg.AllowedOrigins).Handler(s.router))))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped request handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)
	authed := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}
	require := func(perm domain.Permission, h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequirePermission(perm)(h))
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", promhttp.Handler())

	// Auth endpoints (public)
	s.router.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	s.router.HandleFunc("POST /api/v1/auth/refresh", s.handleRefresh)

	// Setup endpoint (public, one-time use)
	s.router.HandleFunc("POST /api/v1/setup", s.handleSetup)

	s.router.Handle("POST /api/v1/auth/logout", authed(s.handleLogout))
	s.router.Handle("GET /api/v1/me", authed(s.handleGetMe))

	// User and agency management
	s.router.Handle("GET /api/v1/users", require(domain.PermManageUsers, s.handleListUsers))
	s.router.Handle("POST /api/v1/users", require(domain.PermManageUsers, s.handleCreateUser))
	s.router.Handle("PUT /api/v1/users/{id}", require(domain.PermManageUsers, s.handleUpdateUser))
	s.router.Handle("DELETE /api/v1/users/{id}", require(domain.PermManageUsers, s.handleDeleteUser))
	s.router.Handle("GET /api/v1/agencies", require(domain.PermManageUsers, s.handleListAgencies))
	s.router.Handle("POST /api/v1/agencies", require(domain.PermManageUsers, s.handleCreateAgency))

	// Projects. Visibility and submit rights are decided by the service.
	s.router.Handle("GET /api/v1/projects", authed(s.handleListProjects))
	s.router.Handle("POST /api/v1/projects", authed(s.handleSubmitProject))
	s.router.Handle("GET /api/v1/projects/{id}", authed(s.handleGetProject))
	s.router.Handle("PUT /api/v1/projects/{id}/status",
		require(domain.PermManageProjects, s.handleUpdateProjectStatus))
	s.router.Handle("GET /api/v1/projects/{id}/tasks", authed(s.handleListProjectTasks))
	s.router.Handle("POST /api/v1/projects/{id}/tasks",
		require(domain.PermManageTasks, s.handleCreateTask))

	// Tasks
	s.router.Handle("GET /api/v1/tasks", authed(s.handleListTasks))
	s.router.Handle("GET /api/v1/tasks/{id}", authed(s.handleGetTask))
	s.router.Handle("PATCH /api/v1/tasks/{id}", authed(s.handleUpdateTask))
	s.router.Handle("DELETE /api/v1/tasks/{id}", authed(s.handleDeleteTask))
	s.router.Handle("POST /api/v1/tasks/{id}/transition", authed(s.handleTransitionTask))
	s.router.Handle("PUT /api/v1/tasks/{id}/assignee",
		require(domain.PermManageTasks, s.handleAssignTask))
	s.router.Handle("GET /api/v1/tasks/{id}/activity", authed(s.handleTaskActivity))

	if s.scheduleService != nil {
		s.router.Handle("GET /api/v1/schedules", require(domain.PermManageUsers, s.handleListSchedules))
		s.router.Handle("PUT /api/v1/schedules/{id}", require(domain.PermManageUsers, s.handleUpdateSchedule))
		s.router.Handle("POST /api/v1/schedules/{id}/trigger",
			require(domain.PermManageUsers, s.handleTriggerSchedule))
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
