// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ettore-crm/internal/logging"
	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/service"
	"github.com/ettore-crm/internal/types"
	"github.com/ettore-crm/internal/validation"
)

// Service interfaces for dependency injection and testing

// LeadServiceInterface defines the owner-scoped lead operations
type LeadServiceInterface interface {
	CreateLead(ctx context.Context, ownerID string, fields models.LeadFields) (*models.Lead, error)
	GetLeadWithActivities(ctx context.Context, ownerID, leadID string) (*service.LeadDetail, error)
	ListLeads(ctx context.Context, ownerID string, filter models.LeadFilter) ([]*models.Lead, error)
	UpdateLead(ctx context.Context, ownerID, leadID string, update models.LeadUpdate) (*models.Lead, error)
	Stats(ctx context.Context, ownerID string) (*models.DashboardStats, error)
}

// WebhookServiceInterface defines webhook ingestion
type WebhookServiceInterface interface {
	Ingest(ctx context.Context, userID, apiKey string, fields models.LeadFields) (*models.Lead, error)
	Info(userID string) *service.WebhookInfo
}

// DraftServiceInterface defines draft generation and management
type DraftServiceInterface interface {
	GenerateForLead(ctx context.Context, ownerID string, req service.GenerateDraftRequest) (*service.DraftResult, error)
	ListDrafts(ctx context.Context, ownerID string, leadID *string) ([]*models.EmailDraft, error)
	UpdateDraft(ctx context.Context, ownerID, id string, update models.DraftUpdate) (*models.EmailDraft, error)
	DeleteDraft(ctx context.Context, ownerID, id string) error
}

// NotificationServiceInterface defines owner notifications
type NotificationServiceInterface interface {
	Send(ctx context.Context, ownerID string, kind types.NotificationType, leadID string, nctx service.NotificationContext) (bool, error)
	SendTest(ctx context.Context, ownerID string) bool
	List(ctx context.Context, ownerID string, unreadOnly bool) ([]*models.Notification, error)
	MarkRead(ctx context.Context, ownerID, id string) error
}

// AuthServiceInterface defines account sign-up and login
type AuthServiceInterface interface {
	SignUp(ctx context.Context, email, password string, displayName *string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// SettingsServiceInterface defines per-account settings
type SettingsServiceInterface interface {
	Get(ctx context.Context, ownerID string) (*models.UserSettings, error)
	Update(ctx context.Context, ownerID string, patch service.SettingsPatch) (*models.UserSettings, error)
	GenerateAPIKey(ctx context.Context, ownerID string) (string, error)
}

// Services bundles the services the server routes to
type Services struct {
	Leads         LeadServiceInterface
	Webhook       WebhookServiceInterface
	Drafts        DraftServiceInterface
	Notifications NotificationServiceInterface
	Auth          AuthServiceInterface
	Settings      SettingsServiceInterface
}

// Server represents the HTTP API server.
type Server struct {
	router        *mux.Router
	httpServer    *http.Server
	leads         LeadServiceInterface
	webhook       WebhookServiceInterface
	drafts        DraftServiceInterface
	notifications NotificationServiceInterface
	auth          AuthServiceInterface
	settings      SettingsServiceInterface
	validator     *validation.Validator
	sessions      *SessionManager
	rateLimiter   *RateLimiter
	config        *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// Per-client request budget. Zero disables the limiter.
	RequestsPerSecond float64
	Burst             int

	SessionSecret string
	SecureCookies bool
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, validator *validation.Validator, services Services) *Server {
	s := &Server{
		router:        mux.NewRouter(),
		leads:         services.Leads,
		webhook:       services.Webhook,
		drafts:        services.Drafts,
		notifications: services.Notifications,
		auth:          services.Auth,
		settings:      services.Settings,
		validator:     validator,
		sessions:      NewSessionManager(config.SessionSecret, config.SecureCookies),
		config:        config,
	}

	s.setupRouter()

	return s
}

// Handler returns the root handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	s.rateLimiter = NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// Order matters: the logger must wrap recovery so panics are logged with
	// the request id.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware(s.config.CORSOrigins))
	s.router.Use(RateLimitMiddleware(s.rateLimiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Account endpoints
	auth := s.router.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/signup", s.handleSignUp).Methods("POST")
	auth.HandleFunc("/login", s.handleLogin).Methods("POST")
	auth.HandleFunc("/logout", s.handleLogout).Methods("POST")
	auth.Handle("/me", s.requireAuth(s.handleMe)).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// Webhook endpoints authenticate with the account's API key
	api.HandleFunc("/webhook/leads", s.handleWebhookLead).Methods("POST")
	api.HandleFunc("/webhook/leads", s.handleWebhookInfo).Methods("GET")
	api.HandleFunc("/webhook/test", s.handleWebhookTest).Methods("POST")

	// Lead endpoints
	api.Handle("/leads", s.requireAuth(s.handleListLeads)).Methods("GET")
	api.Handle("/leads", s.requireAuth(s.handleCreateLead)).Methods("POST")
	api.Handle("/leads/{id}", s.requireAuth(s.handleGetLead)).Methods("GET")
	api.Handle("/leads/{id}", s.requireAuth(s.handleUpdateLead)).Methods("PATCH")

	// Draft endpoints
	api.Handle("/ai/generate-draft", s.requireAuth(s.handleGenerateDraft)).Methods("POST")
	api.Handle("/drafts", s.requireAuth(s.handleListDrafts)).Methods("GET")
	api.Handle("/drafts/{id}", s.requireAuth(s.handleUpdateDraft)).Methods("PATCH")
	api.Handle("/drafts/{id}", s.requireAuth(s.handleDeleteDraft)).Methods("DELETE")

	// Notification endpoints
	api.Handle("/notifications", s.requireAuth(s.handleListNotifications)).Methods("GET")
	api.Handle("/notifications/send", s.requireAuth(s.handleSendNotification)).Methods("POST")
	api.Handle("/notifications/test", s.requireAuth(s.handleTestNotification)).Methods("POST")
	api.Handle("/notifications/{id}/read", s.requireAuth(s.handleMarkNotificationRead)).Methods("POST")

	// Settings endpoints
	api.Handle("/user/settings", s.requireAuth(s.handleGetSettings)).Methods("GET")
	api.Handle("/user/settings", s.requireAuth(s.handleUpdateSettings)).Methods("PUT")
	api.Handle("/user/generate-api-key", s.requireAuth(s.handleGenerateAPIKey)).Methods("POST")

	api.Handle("/dashboard/stats", s.requireAuth(s.handleDashboardStats)).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "ettore",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.Infof("Starting API server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// PruneClients runs until ctx is done, dropping per-client limiters idle for
// longer than maxIdle every interval
func (s *Server) PruneClients(ctx context.Context, interval, maxIdle time.Duration) {
	if !s.rateLimiter.Enabled() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.rateLimiter.Prune(maxIdle); n > 0 {
				logging.WithField("removed", n).Debug("pruned idle client limiters")
			}
		}
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
