package server

import (
	"fmt"
	"os"
	"strings"

	"teampulse-backend/internal/common"
	"teampulse-backend/internal/config"
	"teampulse-backend/internal/handlers"
	"teampulse-backend/internal/models"
	"teampulse-backend/internal/summary"
	"teampulse-backend/internal/survey"

	"github.com/go-playground/validator"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// CustomValidator Source: https://echo.labstack.com/docs/request#validate-data
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		// Optionally, you could return the error to give each route more control over the status code
		return err
	}
	return nil
}

type SentryLogger struct {
	echo.Logger
}

func (l *SentryLogger) Error(i ...interface{}) {
	// Capture in Sentry
	if err, ok := i[0].(error); ok {
		handlers.CaptureError(err)
	} else {
		handlers.CaptureError(fmt.Errorf("%v", i...))
	}
	// Call original logger
	l.Logger.Error(i...)
}

type Server struct {
	common.ServerState
}

func New(cfg *config.Config) *Server {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}
	e.Logger = &SentryLogger{Logger: e.Logger}
	e.Logger.SetLevel(log.DEBUG)

	return &Server{
		common.ServerState{
			Echo:   e,
			Config: cfg,
		},
	}
}

func (s *Server) Initialize() error {
	if s.Config.Auth.SessionSecret == "" {
		s.Echo.Logger.Fatal("SESSION_SECRET environment variable is required")
	}
	if s.Config.Auth.AdminPassword == "" {
		s.Echo.Logger.Warn("ADMIN_PASSWORD not configured, admin endpoints will reject all requests")
	}

	// Initialize database
	s.setupDatabase()

	// Initialize JWT
	s.JwtIssuer = handlers.NewJwtAuth(s.Config.Auth.SessionSecret)

	// Load the questionnaire configuration
	s.loadQuestions()

	// Initialize AI summarizer
	s.setupSummarizer()

	// Setup routes
	s.setupRoutes()

	// Run Migrations
	s.runMigrations()

	s.setupMetrics()

	// Setup middleware -
	// Keep last to avoid Recover middleware and panic if something goes wrong on init
	s.setupMiddleware()

	return nil
}

func (s *Server) setupDatabase() {
	dsn := s.Config.Database.DSN
	if dsn == "" {
		s.Echo.Logger.Fatal("DATABASE_DSN environment variable is required")
	}

	var db *gorm.DB
	var err error

	// Detect database driver from DSN
	// SQLite DSNs typically start with "file:"
	if strings.HasPrefix(dsn, "file:") {
		// Use SQLite driver for testing
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)})
	} else {
		// Use PostgreSQL driver for production
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true, Logger: logger.Default.LogMode(logger.Silent)})
	}

	if err != nil {
		s.Echo.Logger.Fatal(err)
	}
	s.DB = db
}

func (s *Server) loadQuestions() {
	if path := s.Config.Survey.QuestionsFile; path != "" {
		qs, err := survey.LoadQuestions(path)
		if err != nil {
			s.Echo.Logger.Fatal(err)
		}
		s.Questions = qs
		s.Echo.Logger.Infof("Loaded question set %s from %s", qs.Version, path)
		return
	}
	s.Questions = survey.DefaultQuestions()
}

func (s *Server) setupSummarizer() {
	apiKey := s.Config.AI.APIKey
	if apiKey == "" {
		s.Echo.Logger.Warn("AI_API_KEY not configured, AI summaries will be disabled")
		return
	}

	s.Summarizer = summary.NewChatClient(
		s.Config.AI.BaseURL,
		apiKey,
		s.Config.AI.Model,
		s.Echo.Logger)
}

func (s *Server) runMigrations() {
	err := s.DB.AutoMigrate(
		&models.Campaign{},
		&models.TeamLeader{},
		&models.Code{},
		&models.Feedback{},
	)
	if err != nil {
		s.Echo.Logger.Fatal(err)
	}
}

func (s *Server) setupMiddleware() {
	s.Echo.Use(middleware.CORS())
	s.Echo.Use(middleware.Recover())
	// Try to add prometheus middleware, but don't panic if already registered (e.g., in tests)
	// This allows multiple test runs without panicking
	defer func() {
		if r := recover(); r != nil {
			if err, ok := r.(error); ok && err.Error() == "duplicate metrics collector registration attempted" {
				s.Echo.Logger.Warn("Prometheus middleware already registered, skipping")
			} else {
				panic(r)
			}
		}
	}()
	s.Echo.Use(echoprometheus.NewMiddleware("teampulse_backend"))
}

func (s *Server) setupMetrics() {
	if err := prometheus.Register(handlers.FeedbackSubmitted); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			s.Echo.Logger.Warnf("Failed to register feedback counter: %v", err)
		}
	}
}

func (s *Server) setupRoutes() {
	handlers.SetupSentry(s.Echo, s.Config)

	// Initialize handlers
	public := handlers.NewPublicHandler(s.DB, s.Config, s.JwtIssuer, s.Questions)
	admin := handlers.NewAdminHandler(s.DB, s.Config, s.Questions, s.Summarizer)

	// API routes group
	api := s.Echo.Group("/api")

	// Public API endpoints
	api.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})
	api.GET("/metrics", echoprometheus.NewHandler())

	// Participant endpoints
	api.POST("/redeem", public.RedeemCode)
	api.POST("/feedback", public.SubmitFeedback, s.JwtIssuer.Middleware())

	// Admin endpoints, gated by the shared-secret header
	adminAPI := api.Group("/admin", handlers.AdminAuthMiddleware(s.Config.Auth.AdminPassword))

	adminAPI.GET("/campaigns", admin.ListCampaigns)
	adminAPI.POST("/campaigns", admin.CreateCampaign)
	adminAPI.PATCH("/campaigns/:id", admin.UpdateCampaign)
	adminAPI.DELETE("/campaigns/:id", admin.DeleteCampaign)

	adminAPI.GET("/team-leaders", admin.ListTeamLeaders)
	adminAPI.POST("/team-leaders", admin.UpsertTeamLeader)
	adminAPI.DELETE("/team-leaders/:id", admin.DeactivateTeamLeader)

	adminAPI.POST("/codes", admin.GenerateCodes)
	adminAPI.GET("/codes", admin.ListCodes)

	adminAPI.GET("/campaigns/:id/overview", admin.GetOverview)
	adminAPI.GET("/campaigns/:id/team-leaders/:leaderID", admin.GetDetail)
	adminAPI.DELETE("/campaigns/:id/team-leaders/:leaderID/feedback", admin.DeleteFeedback)
	adminAPI.GET("/campaigns/:id/team-leaders/:leaderID/summary", admin.GetAISummary)
	adminAPI.GET("/compare", admin.CompareCycles)
}

func (s *Server) Start() error {
	serverURL := s.Config.Server.Host + ":" + s.Config.Server.Port

	if s.Config.Server.TLS.Enabled {
		if _, err := os.Stat(s.Config.Server.TLS.CertFile); os.IsNotExist(err) {
			s.Echo.Logger.Warn("TLS certificate file not found, falling back to HTTP")
			return s.Echo.Start(serverURL)
		}
		if _, err := os.Stat(s.Config.Server.TLS.KeyFile); os.IsNotExist(err) {
			s.Echo.Logger.Warn("TLS key file not found, falling back to HTTP")
			return s.Echo.Start(serverURL)
		}
		return s.Echo.StartTLS(serverURL, s.Config.Server.TLS.CertFile, s.Config.Server.TLS.KeyFile)
	}

	return s.Echo.Start(serverURL)
}
