package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/enrichment-backend/internal/clients/kafka"
	"github.com/yungbote/enrichment-backend/internal/data/repos"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/observability"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

// Local delivery codes recorded in place of an HTTP status.
const (
	CodeTransport      = -1
	CodeTimeout        = -2
	CodeInvalidRequest = -3
)

const DefaultTimeout = 10 * time.Second

// Notifier delivers the terminal outcome of an enrichment. Delivery
// failures are recorded on the enrichment and never returned to the
// pipeline.
type Notifier interface {
	Notify(ctx context.Context, e *types.Enrichment) int
}

// Outcome is the webhook body and the outcome event payload.
type Outcome struct {
	EnrichmentID uuid.UUID  `json:"enrichmentId"`
	Status       string     `json:"status"`
	FailureCause *string    `json:"failureCause"`
	VersionID    *uuid.UUID `json:"versionId"`
}

type webhookNotifier struct {
	log         *logger.Logger
	client      *http.Client
	enrichments repos.EnrichmentRepo
	versions    repos.VersionRepo
	publisher   kafka.Publisher
	metrics     *observability.Metrics
}

func NewWebhookNotifier(
	baseLog *logger.Logger,
	enrichments repos.EnrichmentRepo,
	versions repos.VersionRepo,
	publisher kafka.Publisher,
	metrics *observability.Metrics,
	timeout time.Duration,
) Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &webhookNotifier{
		log:         baseLog.With("service", "WebhookNotifier"),
		client:      &http.Client{Timeout: timeout},
		enrichments: enrichments,
		versions:    versions,
		publisher:   publisher,
		metrics:     metrics,
	}
}

// Notify posts the outcome to the webhook and records the result code;
// notified_at is stamped only on 200. It returns the recorded code, or 0
// when the enrichment has no webhook.
func (n *webhookNotifier) Notify(ctx context.Context, e *types.Enrichment) int {
	if e == nil {
		return 0
	}
	ctx, span := observability.StartSpan(ctx, "notify.deliver")
	defer span.End()

	outcome := Outcome{EnrichmentID: e.ID, Status: e.Status, FailureCause: e.FailureCause}
	versionID, err := n.versions.LatestID(dbctx.Context{Ctx: ctx}, e.ID)
	if err != nil {
		n.log.Warn("latest version lookup failed", "enrichment_id", e.ID, "error", err)
	}
	outcome.VersionID = versionID

	n.publish(ctx, outcome)

	target := strings.TrimSpace(e.NotificationWebhookURL)
	if target == "" {
		return 0
	}
	code := n.deliver(ctx, target, outcome)
	n.metrics.IncNotification(code)

	var notifiedAt *time.Time
	if code == http.StatusOK {
		now := time.Now().UTC()
		notifiedAt = &now
	} else {
		n.log.Warn("webhook delivery failed", "enrichment_id", e.ID, "status", e.Status, "code", code)
	}
	if err := n.enrichments.RecordNotification(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, e.ID, code, notifiedAt); err != nil {
		n.log.Error("record notification failed", "enrichment_id", e.ID, "code", code, "error", err)
	}
	return code
}

func (n *webhookNotifier) deliver(ctx context.Context, target string, outcome Outcome) int {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return CodeInvalidRequest
	}
	body, err := json.Marshal(outcome)
	if err != nil {
		return CodeInvalidRequest
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return CodeInvalidRequest
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode
}

func classifyTransportError(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}
	return CodeTransport
}

func (n *webhookNotifier) publish(ctx context.Context, outcome Outcome) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, outcome.EnrichmentID.String(), outcome); err != nil {
		n.log.Warn("outcome event publish failed", "enrichment_id", outcome.EnrichmentID, "error", err)
	}
}

// Recorder captures notifications in memory; tests use it to count
// deliveries.
type Recorder struct {
	mu       sync.Mutex
	notified []uuid.UUID
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(ctx context.Context, e *types.Enrichment) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, e.ID)
	return http.StatusOK
}

// Count returns how many times id was notified.
func (r *Recorder) Count(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.notified {
		if got == id {
			n++
		}
	}
	return n
}
