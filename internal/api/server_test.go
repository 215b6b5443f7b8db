package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dunamismax/pixelgen/internal/domain"
	"github.com/dunamismax/pixelgen/internal/queue"
	"github.com/dunamismax/pixelgen/internal/ratelimit"
	"github.com/dunamismax/pixelgen/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeQueue struct {
	payloads []queue.RenderAnimationPayload
	err      error
}

func (q *fakeQueue) EnqueueRenderAnimation(_ context.Context, payload queue.RenderAnimationPayload) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.payloads = append(q.payloads, payload)
	return &asynq.TaskInfo{
		ID:            payload.JobID,
		Queue:         "animations",
		State:         asynq.TaskStatePending,
		NextProcessAt: payload.RequestedAt,
	}, nil
}

type fakeStorage struct {
	objects map[string]bool
}

func (s *fakeStorage) PresignedPutURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://minio.local/pixelgen/" + objectKey + "?sig=abc", nil
}

func (s *fakeStorage) ObjectExists(_ context.Context, objectKey string) (bool, error) {
	return s.objects[objectKey], nil
}

type fixedLimiter struct {
	decision ratelimit.Decision
	subjects []string
}

func (l *fixedLimiter) Allow(_ context.Context, subject string) (ratelimit.Decision, error) {
	l.subjects = append(l.subjects, subject)
	return l.decision, nil
}

type fixture struct {
	server  *Server
	queue   *fakeQueue
	storage *fakeStorage
	jobs    *store.MemoryJobStore
}

func newFixture(t *testing.T, limiter RateLimiter) fixture {
	t.Helper()
	f := fixture{
		queue:   &fakeQueue{},
		storage: &fakeStorage{objects: map[string]bool{}},
		jobs:    store.NewMemoryJobStore(),
	}
	f.server = NewServer(zaptest.NewLogger(t), Options{
		Queue:       f.queue,
		Jobs:        f.jobs,
		Storage:     f.storage,
		RateLimiter: limiter,
	})
	return f
}

func (f fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "user-1")
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

type createResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Upload struct {
		ObjectKey       string `json:"object_key"`
		PresignedPutURL string `json:"presigned_put_url"`
	} `json:"upload"`
	StartURL string `json:"start_url"`
}

func (f fixture) create(t *testing.T) createResponse {
	t.Helper()
	rec := f.do(http.MethodPost, "/v1/animations", `{"prompt":"a lighthouse","max_frames":12,"curves":{"zoom":"0:(1.0) 11:(1.2)"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp createResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateAnimationStoresNormalizedJob(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.create(t)

	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, domain.JobStatusCreated, resp.Status)
	assert.Equal(t, "uploads/"+resp.JobID+"/source", resp.Upload.ObjectKey)
	assert.Contains(t, resp.Upload.PresignedPutURL, resp.Upload.ObjectKey)
	assert.Equal(t, "/v1/animations/"+resp.JobID+"/start", resp.StartURL)

	job, ok, err := f.jobs.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Mode2D, job.Mode)
	assert.Equal(t, "Linear", job.Interpolation)
	assert.Equal(t, "reflect", job.BorderMode)
	assert.Equal(t, "0:(1.0) 11:(1.2)", job.Curves.Zoom)
	assert.Equal(t, domain.DefaultCurves.Angle, job.Curves.Angle)
}

func TestCreateAnimationRejectsInvalidRequests(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed", body: `{"prompt":`, want: "invalid JSON body"},
		{name: "missing prompt", body: `{"max_frames":3}`, want: "prompt is required"},
		{name: "too many frames", body: `{"prompt":"x","max_frames":10001}`, want: "max_frames"},
		{name: "bad mode", body: `{"prompt":"x","max_frames":3,"mode":"4d"}`, want: "unsupported mode"},
		{name: "bad curve", body: `{"prompt":"x","max_frames":3,"curves":{"angle":"nonsense"}}`, want: "curves.angle"},
		{name: "wrap in 3d", body: `{"prompt":"x","max_frames":3,"mode":"3d","border_mode":"wrap"}`, want: "wrap"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/v1/animations", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestStartAnimationRequiresUploadedSource(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.create(t)

	rec := f.do(http.MethodPost, resp.StartURL, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "source object is missing")
	assert.Empty(t, f.queue.payloads)
}

func TestStartAnimationEnqueuesRender(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.create(t)
	f.storage.objects[resp.Upload.ObjectKey] = true

	rec := f.do(http.MethodPost, resp.StartURL, "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	require.Len(t, f.queue.payloads, 1)
	assert.Equal(t, resp.JobID, f.queue.payloads[0].JobID)
	assert.Equal(t, resp.Upload.ObjectKey, f.queue.payloads[0].SourceKey)

	job, _, err := f.jobs.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, job.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.server.metrics.queueEnqueued.WithLabelValues("animations")))

	rec = f.do(http.MethodPost, resp.StartURL, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Len(t, f.queue.payloads, 1)
}

func TestStartAnimationConflictingEnqueue(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.create(t)
	f.storage.objects[resp.Upload.ObjectKey] = true
	f.queue.err = asynq.ErrTaskIDConflict

	rec := f.do(http.MethodPost, resp.StartURL, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already started")

	job, _, err := f.jobs.Get(context.Background(), resp.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCreated, job.Status)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.server.metrics.queueEnqueued.WithLabelValues("animations")))
}

func TestGetAnimation(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.create(t)

	rec := f.do(http.MethodGet, "/v1/animations/"+resp.JobID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var job domain.AnimationJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, resp.JobID, job.ID)
	assert.Equal(t, "a lighthouse", job.Prompt)

	rec = f.do(http.MethodGet, "/v1/animations/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimitRejectsWithRetryAfter(t *testing.T) {
	limiter := &fixedLimiter{decision: ratelimit.Decision{Allowed: false, RetryAfter: 1500 * time.Millisecond}}
	f := newFixture(t, limiter)

	rec := f.do(http.MethodPost, "/v1/animations", `{"prompt":"x","max_frames":3}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, []string{"user-1:/v1/animations"}, limiter.subjects)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.server.metrics.rateLimitRejected.WithLabelValues("/v1/animations")))

	rec = f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, limiter.subjects, 1)
}

func TestMetricsUseRouteTemplates(t *testing.T) {
	f := newFixture(t, nil)
	f.do(http.MethodGet, "/v1/animations/abc", "")

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/v1/animations/:id"`)
	assert.NotContains(t, rec.Body.String(), `route="/v1/animations/abc"`)
}
