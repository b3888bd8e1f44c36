package ui

import (
	"context"
	"log"

	"nyassess/app"
	"nyassess/domain/assessment"
	"nyassess/ui/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AssessmentAPI is the ingestion boundary the handlers call.
type AssessmentAPI interface {
	LoadAggregate(ctx context.Context, subject, level string) (assessment.Payload, error)
	SchoolNames(ctx context.Context, subject string) ([]string, error)
	LoadSchool(ctx context.Context, subject, schoolName string) (assessment.Payload, error)
	Summary(ctx context.Context, req app.SummaryRequest) ([]assessment.YearSummary, error)
	CachedEntries() int
}

// Server represents the HTTP API server
type Server struct {
	router   *gin.Engine
	handler  *AssessmentHandler
	gatherer prometheus.Gatherer
}

// NewServer creates a server with gin's logger and recovery middleware. A
// nil gatherer serves the default Prometheus registry.
func NewServer(api AssessmentAPI, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		router:   gin.New(),
		handler:  NewAssessmentHandler(api),
		gatherer: gatherer,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Logger(), gin.Recovery(), middleware.RequestID())
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handler.HandleHealth)
	s.router.GET("/docs", s.handler.HandleDocs)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	api.GET("/assessments", s.handler.HandleAssessments)
	api.GET("/assessments/summary", s.handler.HandleSummary)
}

// Handler exposes the router, mainly for tests and custom listeners
func (s *Server) Handler() *gin.Engine {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	log.Printf("Starting assessment API on http://%s", addr)
	return s.router.Run(addr)
}
