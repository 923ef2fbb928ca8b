package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bakkerme/chartbuzz/internal/twitter"
)

// Searcher is the collection entry point the API exposes. It never fails;
// a degraded source shows up as an empty post list.
type Searcher interface {
	Collect(ctx context.Context, query string) []twitter.Post
}

type Server struct {
	searcher Searcher
	logger   *slog.Logger
	echo     *echo.Echo
}

func NewServer(logger *slog.Logger, searcher Searcher) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// The chart frontend is served from a different origin.
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	server := &Server{
		searcher: searcher,
		logger:   logger,
		echo:     e,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.echo.POST("/api/tweets", s.handleSearchTweets)

	api := s.echo.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/status", s.handleStatus)
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleSearchTweets(c echo.Context) error {
	var req searchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "query is required"})
	}

	s.logger.Info("tweet search requested", slog.String("query", query))
	posts := s.searcher.Collect(c.Request().Context(), query)
	if posts == nil {
		posts = []twitter.Post{}
	}
	s.logger.Info("tweet search finished", slog.String("query", query), slog.Int("posts", len(posts)))

	return c.JSON(http.StatusOK, posts)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "chartbuzz",
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "running",
		"version": "0.1.0",
	})
}
