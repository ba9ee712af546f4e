package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/enrichment-backend/internal/data/repos/testutil"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/jobs/queue"
	"github.com/yungbote/enrichment-backend/internal/platform/ctxutil"
)

type stubQueue struct {
	claims    []queue.ClaimRequest
	completes []queue.CompleteRequest
	job       *queue.ClaimedJob
	err       error
}

func (s *stubQueue) Claim(_ context.Context, req queue.ClaimRequest) (*queue.ClaimedJob, error) {
	s.claims = append(s.claims, req)
	return s.job, s.err
}

func (s *stubQueue) Complete(_ context.Context, req queue.CompleteRequest) (*types.Enrichment, error) {
	s.completes = append(s.completes, req)
	if s.err != nil {
		return nil, s.err
	}
	return &types.Enrichment{ID: req.EnrichmentID, Status: types.StatusWaitingForEnrichment}, nil
}

func newJobRouter(t *testing.T, q JobQueue, scopes ...string) (*gin.Engine, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	workerID := uuid.New()
	h := NewJobHandler(testutil.Logger(t), q)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := ctxutil.WithCaller(c.Request.Context(), &ctxutil.Caller{ID: workerID, Scopes: scopes})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.GET("/api/jobs/:stage/oldest", h.ClaimOldest)
	r.POST("/api/jobs/:stage/:enrichmentId", h.Complete)
	r.POST("/api/jobs/:stage/:enrichmentId/:versionId", h.Complete)
	return r, workerID
}

func TestClaimOldestRequiresCapability(t *testing.T) {
	q := &stubQueue{}
	r, _ := newJobRouter(t, q, "jobs:transcription")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs/translation/oldest", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if len(q.claims) != 0 {
		t.Fatalf("queue must not be read without capability")
	}
}

func TestClaimOldest(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		job    *queue.ClaimedJob
		status int
	}{
		{name: "unknown stage", path: "/api/jobs/dubbing/oldest", status: http.StatusBadRequest},
		{name: "empty queue", path: "/api/jobs/transcription/oldest", status: http.StatusNotFound},
		{
			name:   "claimed",
			path:   "/api/jobs/transcription/oldest?taskId=t-9&model=gpt&unspecified=true",
			job:    &queue.ClaimedJob{EnrichmentID: uuid.New(), Stage: types.StageTranscription, TaskID: "t-9"},
			status: http.StatusOK,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &stubQueue{job: tc.job}
			r, workerID := newJobRouter(t, q, "jobs:transcription")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.path, nil))
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
			if tc.job == nil {
				return
			}
			req := q.claims[0]
			if req.WorkerID != workerID || req.TaskID != "t-9" || req.Filter.Model != "gpt" || !req.Filter.Unspecified {
				t.Fatalf("unexpected claim request %+v", req)
			}
			var body queue.ClaimedJob
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.TaskID != "t-9" {
				t.Fatalf("unexpected body %s err=%v", w.Body.String(), err)
			}
		})
	}
}

func TestCompleteJob(t *testing.T) {
	q := &stubQueue{}
	r, workerID := newJobRouter(t, q, "jobs:transcription")
	enrichmentID, versionID := uuid.New(), uuid.New()

	body := `{"status":"OK","taskId":"t-1","language":"en","transcript":"hello"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/transcription/"+enrichmentID.String()+"/"+versionID.String(), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	got := q.completes[0]
	if got.EnrichmentID != enrichmentID || got.VersionID == nil || *got.VersionID != versionID {
		t.Fatalf("unexpected ids %+v", got)
	}
	if got.WorkerID != workerID || got.TaskID != "t-1" || got.Outcome != "OK" {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Payload == nil || got.Payload.Transcript == nil || *got.Payload.Transcript != "hello" {
		t.Fatalf("payload not decoded: %+v", got.Payload)
	}
}

func TestCompleteJobErrors(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		body   string
		err    error
		status int
	}{
		{name: "bad id", path: "/api/jobs/transcription/nope", body: `{}`, status: http.StatusBadRequest},
		{name: "bad body", path: "/api/jobs/transcription/" + uuid.NewString(), body: `{`, status: http.StatusBadRequest},
		{
			name:   "not owner",
			path:   "/api/jobs/transcription/" + uuid.NewString(),
			body:   `{"status":"OK","taskId":"x"}`,
			err:    types.NewError(types.CodeOwnershipMismatch, "queue.complete", "task mismatch", nil),
			status: http.StatusForbidden,
		},
		{
			name:   "missing",
			path:   "/api/jobs/transcription/" + uuid.NewString(),
			body:   `{"status":"OK","taskId":"x"}`,
			err:    types.NewError(types.CodeNotFound, "queue.complete", "enrichment not found", nil),
			status: http.StatusNotFound,
		},
		{name: "no capability", path: "/api/jobs/translation/" + uuid.NewString(), body: `{}`, status: http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := &stubQueue{err: tc.err}
			r, _ := newJobRouter(t, q, "jobs:transcription")
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}
}
