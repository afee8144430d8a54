package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"project-planner/logging"
	"project-planner/metrics"
	"project-planner/middleware"
	"project-planner/repositories"
	"project-planner/services"
	"project-planner/utils"

	"github.com/gorilla/mux"
)

// RouterConfig collects what the HTTP layer needs. AuthLimiter and Metrics
// are optional.
type RouterConfig struct {
	Store          *repositories.Store
	JWT            *services.JWTService
	BcryptCost     int
	AllowedOrigins []string
	AuthLimiter    *middleware.RateLimiter
	Metrics        *metrics.Metrics
}

// NewRouter wires every route and wraps the router in the request chain.
func NewRouter(cfg RouterConfig) http.Handler {
	userService := services.NewUserService(cfg.Store, cfg.JWT, cfg.BcryptCost)
	projectService := services.NewProjectService(cfg.Store)
	taskService := services.NewTaskService(cfg.Store)

	authHandler := NewAuthHandler(userService)
	projectHandler := NewProjectHandler(projectService)
	taskHandler := NewTaskHandler(taskService)

	auth := middleware.NewAuthenticator(cfg.JWT, cfg.Store.Users)
	access := middleware.NewAccess(projectService, taskService)

	limit := func(h http.HandlerFunc) http.Handler {
		if cfg.AuthLimiter == nil {
			return h
		}
		return cfg.AuthLimiter.Middleware(h)
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteError(w, utils.NotFound("Route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.WriteError(w, &utils.AppError{Status: http.StatusMethodNotAllowed, Message: "Method not allowed"})
	})
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeRaw(w, http.StatusOK, map[string]string{"message": "Task Planner API"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/health", healthHandler(cfg.Store)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Auth
	api.Handle("/auth/register", limit(authHandler.Register)).Methods(http.MethodPost)
	api.Handle("/auth/login", limit(authHandler.Login)).Methods(http.MethodPost)
	api.Handle("/auth/me", auth.Middleware(http.HandlerFunc(authHandler.Me))).Methods(http.MethodGet)

	// Projekti
	projects := api.PathPrefix("/projects").Subrouter()
	projects.Use(auth.Middleware)
	projects.HandleFunc("", projectHandler.ListProjects).Methods(http.MethodGet)
	projects.HandleFunc("", projectHandler.CreateProject).Methods(http.MethodPost)
	projects.Handle("/{id}", access.Project(services.AccessMember, http.HandlerFunc(projectHandler.GetProject))).Methods(http.MethodGet)
	projects.Handle("/{id}", access.Project(services.AccessOwner, http.HandlerFunc(projectHandler.UpdateProject))).Methods(http.MethodPatch)
	projects.Handle("/{id}", access.Project(services.AccessOwner, http.HandlerFunc(projectHandler.DeleteProject))).Methods(http.MethodDelete)
	projects.Handle("/{id}/tasks", access.Project(services.AccessMember, http.HandlerFunc(projectHandler.GetProjectTasks))).Methods(http.MethodGet)

	// Taskovi; bulk rute moraju ici pre /{id}
	tasks := api.PathPrefix("/tasks").Subrouter()
	tasks.Use(auth.Middleware)
	tasks.HandleFunc("", taskHandler.ListTasks).Methods(http.MethodGet)
	tasks.HandleFunc("", taskHandler.CreateTask).Methods(http.MethodPost)
	tasks.HandleFunc("/bulk", taskHandler.BulkUpdateTasks).Methods(http.MethodPatch)
	tasks.HandleFunc("/bulk", taskHandler.BulkDeleteTasks).Methods(http.MethodDelete)
	tasks.Handle("/{id}", access.Task(http.HandlerFunc(taskHandler.GetTask))).Methods(http.MethodGet)
	tasks.Handle("/{id}", access.Task(http.HandlerFunc(taskHandler.UpdateTask))).Methods(http.MethodPatch)
	tasks.Handle("/{id}", access.Task(http.HandlerFunc(taskHandler.DeleteTask))).Methods(http.MethodDelete)

	var h http.Handler = r
	h = middleware.CORS(cfg.AllowedOrigins)(h)
	h = middleware.RequestLogger(h)
	h = middleware.RequestID(h)
	h = middleware.Recover(h)
	return h
}

func healthHandler(store *repositories.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				logging.Logger.Errorf("Event ID: HEALTH_DB_UNAVAILABLE, Description: %v", err)
				writeRaw(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeRaw(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// writeRaw is for the two endpoints that predate the envelope.
func writeRaw(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
