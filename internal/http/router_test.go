package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enrichment-backend/internal/data/repos"
	"github.com/yungbote/enrichment-backend/internal/data/repos/testutil"
	httpH "github.com/yungbote/enrichment-backend/internal/http/handlers"
	httpMW "github.com/yungbote/enrichment-backend/internal/http/middleware"
	"github.com/yungbote/enrichment-backend/internal/services"
)

func TestRouterGuards(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	auth := services.NewAuthService(log, repos.NewWorkerRepo(db, log), "router-test-secret", time.Minute)
	ctx := context.Background()
	if _, err := auth.CreateWorker(ctx, services.CreateWorkerInput{
		Name:         "transcriber",
		ClientID:     "transcriber-1",
		ClientSecret: "correct-horse-battery",
		Scopes:       []string{"jobs:transcription"},
	}); err != nil {
		t.Fatalf("CreateWorker: %v", err)
	}
	tok, err := auth.IssueToken(ctx, "transcriber-1", "correct-horse-battery")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	r := NewRouter(RouterConfig{
		Log:               log,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, auth),
		HealthHandler:     httpH.NewHealthHandler(nil),
		TokenHandler:      httpH.NewTokenHandler(auth),
		JobHandler:        httpH.NewJobHandler(log, nil),
		EnrichmentHandler: httpH.NewEnrichmentHandler(nil),
	})

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		token  string
		want   int
	}{
		{"health", http.MethodGet, "/healthcheck", "", "", http.StatusOK},
		{"claim without token", http.MethodGet, "/api/jobs/transcription/oldest", "", "", http.StatusUnauthorized},
		{"claim with garbage token", http.MethodGet, "/api/jobs/transcription/oldest", "", "garbage", http.StatusUnauthorized},
		{"claim other stage", http.MethodGet, "/api/jobs/translation/oldest", "", tok.AccessToken, http.StatusForbidden},
		{"create without scope", http.MethodPost, "/api/enrichments", `{}`, tok.AccessToken, http.StatusForbidden},
		{"read without scope", http.MethodGet, "/api/enrichments/" + "00000000-0000-0000-0000-000000000001", "", tok.AccessToken, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}
