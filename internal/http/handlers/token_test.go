package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/enrichment-backend/internal/data/repos"
	"github.com/yungbote/enrichment-backend/internal/data/repos/testutil"
	"github.com/yungbote/enrichment-backend/internal/services"
)

func TestIssueToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)
	auth := services.NewAuthService(log, repos.NewWorkerRepo(db, log), "handler-test-secret", time.Minute)
	if _, err := auth.CreateWorker(context.Background(), services.CreateWorkerInput{
		Name:         "transcriber",
		ClientID:     "transcriber-1",
		ClientSecret: "correct-horse-battery",
		Scopes:       []string{"jobs:transcription"},
	}); err != nil {
		t.Fatalf("CreateWorker: %v", err)
	}

	r := gin.New()
	r.POST("/api/token", NewTokenHandler(auth).IssueToken)

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"transcriber-1"},
		"client_secret": {"correct-horse-battery"},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var tok services.AccessToken
	if err := json.Unmarshal(w.Body.Bytes(), &tok); err != nil || tok.AccessToken == "" || tok.Scope != "jobs:transcription" {
		t.Fatalf("unexpected token %s err=%v", w.Body.String(), err)
	}

	cases := []struct {
		name string
		body string
		want int
	}{
		{"wrong secret", `{"client_id":"transcriber-1","client_secret":"wrong-secret-value"}`, http.StatusUnauthorized},
		{"unknown client", `{"client_id":"nobody","client_secret":"correct-horse-battery"}`, http.StatusUnauthorized},
		{"bad grant", `{"grant_type":"password","client_id":"transcriber-1"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/token", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, w.Code, w.Body.String())
			}
		})
	}
}
