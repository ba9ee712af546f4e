package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yungbote/enrichment-backend/internal/data/repos"
	"github.com/yungbote/enrichment-backend/internal/data/repos/testutil"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
)

type fixture struct {
	enrichments repos.EnrichmentRepo
	notifier    Notifier
}

func newFixture(t *testing.T, timeout time.Duration) (*fixture, func(status string, url string) *types.Enrichment) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	enrichments := repos.NewEnrichmentRepo(db, log)
	versions := repos.NewVersionRepo(db, log)
	f := &fixture{
		enrichments: enrichments,
		notifier:    NewWebhookNotifier(log, enrichments, versions, nil, nil, timeout),
	}
	seed := func(status string, url string) *types.Enrichment {
		e := testutil.SeedEnrichment(t, context.Background(), db, status, func(e *types.Enrichment) {
			e.NotificationWebhookURL = url
		})
		testutil.SeedVersion(t, context.Background(), db, e.ID, 1, 0)
		return e
	}
	return f, seed
}

func (f *fixture) reload(t *testing.T, e *types.Enrichment) *types.Enrichment {
	t.Helper()
	got, err := f.enrichments.GetByID(dbctx.Context{Ctx: context.Background()}, e.ID)
	if err != nil || got == nil {
		t.Fatalf("reload: %v", err)
	}
	return got
}

func TestNotifyDeliversOutcome(t *testing.T) {
	var body Outcome
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f, seed := newFixture(t, time.Second)
	cause := "bad media"
	e := seed(types.StatusFailure, srv.URL)
	e.FailureCause = &cause

	if code := f.notifier.Notify(context.Background(), e); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body.EnrichmentID != e.ID || body.Status != types.StatusFailure || body.FailureCause == nil || *body.FailureCause != cause {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.VersionID == nil {
		t.Fatalf("expected latest version id in body")
	}
	got := f.reload(t, e)
	if got.NotificationStatus == nil || *got.NotificationStatus != 200 || got.NotifiedAt == nil {
		t.Fatalf("expected recorded 200 with notified_at, got %+v", got)
	}
}

func TestNotifyRecordsFailureCodes(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer slow.Close()
	closed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	closedURL := closed.URL
	closed.Close()

	cases := []struct {
		name string
		url  string
		want int
	}{
		{name: "http error", url: failing.URL, want: http.StatusBadGateway},
		{name: "timeout", url: slow.URL, want: CodeTimeout},
		{name: "transport", url: closedURL, want: CodeTransport},
		{name: "invalid", url: "ftp://example.com/hook", want: CodeInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f, seed := newFixture(t, 100*time.Millisecond)
			e := seed(types.StatusSuccess, tc.url)
			if code := f.notifier.Notify(context.Background(), e); code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, code)
			}
			got := f.reload(t, e)
			if got.NotificationStatus == nil || *got.NotificationStatus != tc.want {
				t.Fatalf("expected recorded %d, got %v", tc.want, got.NotificationStatus)
			}
			if got.NotifiedAt != nil {
				t.Fatalf("notified_at must stay unset on failure")
			}
		})
	}
}

func TestNotifySkipsWithoutWebhook(t *testing.T) {
	f, seed := newFixture(t, time.Second)
	e := seed(types.StatusSuccess, "")
	if code := f.notifier.Notify(context.Background(), e); code != 0 {
		t.Fatalf("expected no delivery, got %d", code)
	}
	if got := f.reload(t, e); got.NotificationStatus != nil {
		t.Fatalf("expected no recorded status, got %v", *got.NotificationStatus)
	}
}
