// Package cronserver exposes the externally triggered job surface. Each
// cycle is one HTTP invocation that runs to completion or timeout; there
// is no long-lived background scheduler in the pipeline itself.
package cronserver

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/wnt/curvewatch/internal/lock"
	"github.com/wnt/curvewatch/internal/logger"
	"github.com/wnt/curvewatch/internal/metrics"
)

// SecretHeader carries the shared secret on trigger requests
const SecretHeader = "X-Cron-Secret"

const lockTTL = 5 * time.Minute

// JobFunc runs one job cycle and returns a human-readable summary
type JobFunc func(ctx context.Context) (string, error)

// Server routes cron trigger requests to registered jobs with
// single-flight per job name
type Server struct {
	engine   *gin.Engine
	jobs     map[string]JobFunc
	inflight map[string]*sync.Mutex
	locker   *lock.Locker
	status   *RunStatusStore
	secret   string
	logger   zerolog.Logger
}

// runResponse is the structured summary returned to the scheduler
type runResponse struct {
	Job     string `json:"job"`
	Status  string `json:"status"`
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

// New creates the cron trigger server. locker may be nil, in which case
// only the in-process guard applies.
func New(secret string, locker *lock.Locker, status *RunStatusStore, logger zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:   gin.New(),
		jobs:     make(map[string]JobFunc),
		inflight: make(map[string]*sync.Mutex),
		locker:   locker,
		status:   status,
		secret:   secret,
		logger:   logger.With().Str("component", "cron_server").Logger(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.POST("/cron/:job", s.authorize, s.trigger)

	return s
}

// Register adds a job under the given name
func (s *Server) Register(name string, fn JobFunc) {
	s.jobs[name] = fn
	s.inflight[name] = &sync.Mutex{}
}

// Handler exposes the underlying HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// authorize checks the shared secret header
func (s *Server) authorize(c *gin.Context) {
	provided := c.GetHeader(SecretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.secret)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid cron secret"})
		return
	}
	c.Next()
}

// trigger runs one job cycle. Single-flight: a job already running in
// this process (TryLock) or in another one (Redis lock) answers 409.
// Every completed run writes exactly one status row, success or not.
func (s *Server) trigger(c *gin.Context) {
	jobName := c.Param("job")
	log := logger.WithJob(s.logger, jobName)

	fn, ok := s.jobs[jobName]
	if !ok {
		c.JSON(http.StatusNotFound, runResponse{Job: jobName, Status: "unknown"})
		return
	}

	mu := s.inflight[jobName]
	if !mu.TryLock() {
		metrics.RecordCronRun(jobName, "locked")
		c.JSON(http.StatusConflict, runResponse{Job: jobName, Status: "already_running"})
		return
	}
	defer mu.Unlock()

	ctx := c.Request.Context()

	if s.locker != nil {
		acquired, err := s.locker.Acquire(ctx, jobName, lockTTL)
		if err != nil {
			log.Error().Err(err).Msg("Job lock acquisition failed")
			c.JSON(http.StatusInternalServerError, runResponse{Job: jobName, Status: "error", Error: err.Error()})
			return
		}
		if !acquired {
			metrics.RecordCronRun(jobName, "locked")
			c.JSON(http.StatusConflict, runResponse{Job: jobName, Status: "already_running"})
			return
		}
		defer s.locker.Release(context.WithoutCancel(ctx), jobName)
	}

	start := time.Now()
	summary, err := fn(ctx)
	elapsed := time.Since(start)

	if err != nil {
		metrics.RecordCronRun(jobName, "failed")
		log.Error().
			Err(err).
			Dur("elapsed", elapsed).
			Msg("Job run failed")

		if statusErr := s.status.RecordFailure(jobName, err.Error()); statusErr != nil {
			log.Error().Err(statusErr).Msg("Failed to record job failure")
		}

		c.JSON(http.StatusInternalServerError, runResponse{Job: jobName, Status: "failed", Error: err.Error()})
		return
	}

	metrics.RecordCronRun(jobName, "success")
	log.Info().
		Str("summary", summary).
		Dur("elapsed", elapsed).
		Msg("Job run succeeded")

	if statusErr := s.status.RecordSuccess(jobName, summary); statusErr != nil {
		log.Error().Err(statusErr).Msg("Failed to record job success")
	}

	c.JSON(http.StatusOK, runResponse{Job: jobName, Status: "ok", Summary: summary})
}
