package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Iron-Ham/cypher/internal/errors"
	"github.com/Iron-Ham/cypher/internal/logging"
	"github.com/Iron-Ham/cypher/internal/orchestrator"
)

// Version is reported by the root and health endpoints.
const Version = "1.0.0"

// Config configures the transport.
type Config struct {
	Addr        string
	CORSOrigins []string

	// Services names each collaborator binding for the health report,
	// e.g. {"generator": "anthropic", "cache": "redis"}.
	Services map[string]string
}

// Router holds the route groups so handlers can be registered per group.
type Router struct {
	Routes []*echo.Route
	Root   *echo.Group
	APIV1  *echo.Group
}

// Server exposes a Registry over HTTP and websocket.
type Server struct {
	Echo     *echo.Echo
	Router   *Router
	Config   Config
	Registry *orchestrator.Registry
	Logger   *logging.Logger

	startedAt time.Time
	env       Environment
}

// NewServer builds the echo instance and registers every route.
func NewServer(cfg Config, registry *orchestrator.Registry, logger *logging.Logger) (*Server, error) {
	if registry == nil {
		return nil, errors.NewValidationError("registry is required").WithField("registry")
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}

	s := &Server{
		Echo:      echo.New(),
		Config:    cfg,
		Registry:  registry,
		Logger:    logger.With("component", "api"),
		startedAt: time.Now(),
		env:       DetectEnvironment(),
	}
	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.HTTPErrorHandler = s.handleError

	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
	}))
	s.Echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.Logger.Debug("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds())
			return nil
		},
	}))

	s.initRouter()
	return s, nil
}

func (s *Server) initRouter() {
	s.Router = &Router{
		Root:  s.Echo.Group(""),
		APIV1: s.Echo.Group("/api/v1"),
	}

	s.Router.Routes = []*echo.Route{
		s.Router.Root.GET("/", s.getRoot),
		s.Router.Root.GET("/health", s.getHealth),

		s.Router.APIV1.POST("/sessions", s.postCreateSession),
		s.Router.APIV1.GET("/sessions/:id", s.getSession),
		s.Router.APIV1.POST("/sessions/:id/start", s.postStartSession),
		s.Router.APIV1.POST("/sessions/:id/end", s.postEndSession),
		s.Router.APIV1.POST("/sessions/:id/votes", s.postVote),
		s.Router.APIV1.POST("/sessions/:id/viewers/:observer", s.postViewer),
		s.Router.APIV1.DELETE("/sessions/:id/viewers/:observer", s.deleteViewer),
		s.Router.APIV1.GET("/sessions/:id/events", s.getEvents),
	}
}

// ServeHTTP lets the server be mounted or tested without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Echo.ServeHTTP(w, r)
}

// Start listens on Config.Addr until Shutdown is called.
func (s *Server) Start() error {
	s.Logger.Info("api listening", "addr", s.Config.Addr, "environment", s.env.Name())
	if err := s.Echo.Start(s.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "api server")
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
