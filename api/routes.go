package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garnizeh/wellbeing/internal/config"
	"github.com/garnizeh/wellbeing/pkg/models"
	"github.com/garnizeh/wellbeing/pkg/repository"
)

// Dependencies are the services the handlers are built from.
type Dependencies struct {
	Users     repository.UserRepo
	Questions repository.QuestionRepo
	Responses repository.ResponseRepo
	Analyzer  Analyzer
	Stats     StatisticsComputer
	DB        Pinger
	Cache     Pinger
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Dependencies) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := NewSystemHandler(deps.DB, deps.Cache)
	authHandler := NewAuthHandler(deps.Users, cfg.JWTSecret, cfg.TokenDuration)
	questionsHandler := NewQuestionsHandler(deps.Questions)
	responsesHandler := NewResponsesHandler(deps.Analyzer, deps.Responses)
	adminHandler := NewAdminHandler(deps.Responses, deps.Users, deps.Stats)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods(http.MethodGet)
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/admin/login", authHandler.AdminLogin).Methods(http.MethodPost)

	// Authenticated routes
	authed := r.NewRoute().Subrouter()
	authed.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	authed.HandleFunc("/auth/refresh", authHandler.Refresh).Methods(http.MethodPost)
	authed.HandleFunc("/questions", questionsHandler.ListQuestions).Methods(http.MethodGet)
	authed.HandleFunc("/responses", responsesHandler.Submit).Methods(http.MethodPost)
	authed.HandleFunc("/responses/analyze", responsesHandler.Analyze).Methods(http.MethodPost)
	authed.HandleFunc("/responses/history", responsesHandler.History).Methods(http.MethodGet)
	authed.HandleFunc("/responses/{id:[0-9]+}", responsesHandler.Show).Methods(http.MethodGet)

	// Admin routes
	admin := authed.PathPrefix("/admin").Subrouter()
	admin.Use(RequireRole(models.RoleAdmin))

	admin.HandleFunc("/responses", adminHandler.ListResponses).Methods(http.MethodGet)
	admin.HandleFunc("/responses/{id:[0-9]+}", adminHandler.ShowResponse).Methods(http.MethodGet)
	admin.HandleFunc("/statistics", adminHandler.Statistics).Methods(http.MethodGet)

	return r
}
