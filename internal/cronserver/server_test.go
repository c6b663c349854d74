package cronserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnt/curvewatch/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CronRunStatus{}))

	return New(testSecret, nil, NewRunStatusStore(db), zerolog.Nop()), db
}

func triggerRequest(job, secret string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/cron/"+job, nil)
	if secret != "" {
		req.Header.Set(SecretHeader, secret)
	}
	return req
}

func TestTrigger(t *testing.T) {
	t.Run("missing secret is unauthorized", func(t *testing.T) {
		srv, _ := newTestServer(t)
		srv.Register("noop", func(ctx context.Context) (string, error) { return "", nil })

		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, triggerRequest("noop", ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong secret is unauthorized", func(t *testing.T) {
		srv, _ := newTestServer(t)
		srv.Register("noop", func(ctx context.Context) (string, error) { return "", nil })

		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, triggerRequest("noop", "wrong"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown job is not found", func(t *testing.T) {
		srv, _ := newTestServer(t)

		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, triggerRequest("no-such-job", testSecret))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("successful run reports the summary and records status", func(t *testing.T) {
		srv, db := newTestServer(t)
		srv.Register("refresh", func(ctx context.Context) (string, error) {
			return "tokens=42", nil
		})

		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, triggerRequest("refresh", testSecret))
		require.Equal(t, http.StatusOK, w.Code)

		var resp runResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "refresh", resp.Job)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "tokens=42", resp.Summary)

		var row models.CronRunStatus
		require.NoError(t, db.Where("job_name = ?", "refresh").First(&row).Error)
		require.NotNil(t, row.LastSuccessAt)
		assert.Equal(t, "tokens=42", row.LastSuccessSummary)
		assert.Nil(t, row.LastErrorAt)
	})

	t.Run("failed run answers 500 and keeps the last success", func(t *testing.T) {
		srv, db := newTestServer(t)

		fail := false
		srv.Register("flaky", func(ctx context.Context) (string, error) {
			if fail {
				return "", assert.AnError
			}
			return "all good", nil
		})

		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, triggerRequest("flaky", testSecret))
		require.Equal(t, http.StatusOK, w.Code)

		fail = true
		w = httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, triggerRequest("flaky", testSecret))
		require.Equal(t, http.StatusInternalServerError, w.Code)

		var row models.CronRunStatus
		require.NoError(t, db.Where("job_name = ?", "flaky").First(&row).Error)
		require.NotNil(t, row.LastErrorAt)
		assert.Equal(t, assert.AnError.Error(), row.LastErrorMessage)
		require.NotNil(t, row.LastSuccessAt, "a failure must not erase the last success")
		assert.Equal(t, "all good", row.LastSuccessSummary)

		var count int64
		require.NoError(t, db.Model(&models.CronRunStatus{}).Count(&count).Error)
		assert.Equal(t, int64(1), count, "one status row per job, always")
	})

	t.Run("concurrent trigger of a running job conflicts", func(t *testing.T) {
		srv, _ := newTestServer(t)

		started := make(chan struct{})
		release := make(chan struct{})
		srv.Register("slow", func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "done", nil
		})

		firstCode := make(chan int)
		go func() {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, triggerRequest("slow", testSecret))
			firstCode <- w.Code
		}()

		<-started
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, triggerRequest("slow", testSecret))
		assert.Equal(t, http.StatusConflict, w.Code)

		var resp runResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "already_running", resp.Status)

		close(release)
		assert.Equal(t, http.StatusOK, <-firstCode)
	})
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())
}
