package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/railzwaylabs/waterline/docs"
)

const readinessTimeout = 3 * time.Second

type ReadinessState string

const (
	ReadinessStateReady    ReadinessState = "ready"
	ReadinessStateNotReady ReadinessState = "not_ready"
	ReadinessStateSkipped  ReadinessState = "skipped"
)

type ReadinessCheck struct {
	ID     string         `json:"id"`
	Status ReadinessState `json:"status"`
	Error  string         `json:"error,omitempty"`
}

type ReadinessResponse struct {
	SystemState ReadinessState   `json:"system_state"`
	Checks      []ReadinessCheck `json:"checks"`
}

var errNotConfigured = errors.New("not configured")

func (s *Server) RegisterSystemRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/readyz", s.Readyz)
	s.engine.GET("/openapi.json", s.OpenAPI)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

// Healthz reports process liveness only.
func (s *Server) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz checks the database, redis (when configured) and the schema gate
// concurrently. Any failing check turns the response into a 503.
func (s *Server) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	type dependency struct {
		id  string
		run func(context.Context) error
	}
	deps := []dependency{
		{id: "database", run: s.pingDatabase},
		{id: "schema_gate", run: s.checkSchemaGate},
	}
	if s.redis != nil {
		deps = append(deps, dependency{id: "redis", run: func(ctx context.Context) error {
			return s.redis.Ping(ctx).Err()
		}})
	}

	checks := make([]ReadinessCheck, len(deps))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range deps {
		g.Go(func() error {
			err := p.run(gctx)
			check := ReadinessCheck{ID: p.id, Status: ReadinessStateReady}
			if err != nil {
				check.Status = ReadinessStateNotReady
				check.Error = err.Error()
			}
			checks[i] = check
			return err
		})
	}
	err := g.Wait()

	if s.redis == nil {
		checks = append(checks, ReadinessCheck{ID: "redis", Status: ReadinessStateSkipped})
	}

	resp := ReadinessResponse{SystemState: ReadinessStateReady, Checks: checks}
	if err != nil {
		resp.SystemState = ReadinessStateNotReady
		s.log.Warn("readiness check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) pingDatabase(ctx context.Context) error {
	if s.db == nil {
		return errNotConfigured
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Server) checkSchemaGate(ctx context.Context) error {
	if s.schemaGate == nil {
		return errNotConfigured
	}
	return s.schemaGate.MustBeActive(ctx)
}

// OpenAPI serves the registered swagger document.
func (s *Server) OpenAPI(c *gin.Context) {
	doc, err := swag.ReadDoc()
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
}
