package api

import (
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
)

// Environment describes where the process is running.
type Environment struct {
	Docker   bool `json:"docker"`
	CloudRun bool `json:"cloud_run"`
	Local    bool `json:"local"`
}

// Name returns a display name for the environment.
func (e Environment) Name() string {
	switch {
	case e.CloudRun:
		return "Cloud Run"
	case e.Docker:
		return "Docker"
	default:
		return "Local"
	}
}

// DetectEnvironment inspects the process environment.
func DetectEnvironment() Environment {
	return detectEnvironment(os.Getenv, func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	})
}

func detectEnvironment(getenv func(string) string, exists func(string) bool) Environment {
	env := Environment{
		Docker:   exists("/.dockerenv") || getenv("DOCKER_ENV") == "true",
		CloudRun: getenv("K_SERVICE") != "",
	}
	env.Local = !env.Docker && !env.CloudRun
	return env
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Environment  Environment       `json:"environment"`
	Services     map[string]string `json:"services"`
	LiveSessions int               `json:"live_sessions"`
	UptimeSecs   int64             `json:"uptime_seconds"`
}

func (s *Server) getHealth(c echo.Context) error {
	services := s.Config.Services
	if services == nil {
		services = map[string]string{}
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:       "healthy",
		Version:      Version,
		Environment:  s.env,
		Services:     services,
		LiveSessions: s.Registry.LiveCount(),
		UptimeSecs:   int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) getRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message":     "cypher battle engine",
		"environment": s.env.Name(),
		"version":     Version,
	})
}
