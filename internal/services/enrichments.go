package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/enrichment-backend/internal/data/aggregates"
	"github.com/yungbote/enrichment-backend/internal/data/repos"
	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/platform/blob"
	"github.com/yungbote/enrichment-backend/internal/platform/ctxutil"
	"github.com/yungbote/enrichment-backend/internal/platform/dbctx"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

const defaultPriority = 100

type EnrichmentService interface {
	Create(ctx context.Context, in CreateEnrichmentInput) (*CreatedEnrichment, error)
	MarkUploaded(ctx context.Context, id uuid.UUID) (*types.Enrichment, error)
	Get(ctx context.Context, id uuid.UUID) (*EnrichmentView, error)
	RequestTranslation(ctx context.Context, id uuid.UUID, language string) (*types.Enrichment, error)
	DeleteVersion(ctx context.Context, id, versionID uuid.UUID) error
}

type CreateEnrichmentInput struct {
	MediaType              string   `json:"mediaType"`
	Language               string   `json:"language"`
	Disciplines            []string `json:"disciplines"`
	MediaTypes             []string `json:"mediaTypes"`
	NotificationWebhookURL string   `json:"notificationWebhookUrl"`
	Priority               *int     `json:"priority"`
	AIEvaluationRequested  bool     `json:"aiEvaluation"`
	TranslateTo            string   `json:"translateTo"`
	AIModel                string   `json:"aiModel"`
	Infrastructure         string   `json:"infrastructure"`
	AIEvaluator            string   `json:"aiEvaluator"`
}

type CreatedEnrichment struct {
	Enrichment *types.Enrichment `json:"enrichment"`
	UploadURL  string            `json:"uploadUrl,omitempty"`
}

// EnrichmentView is an enrichment with its derived version references.
type EnrichmentView struct {
	Enrichment       *types.Enrichment        `json:"enrichment"`
	InitialVersionID *uuid.UUID               `json:"initialVersionId,omitempty"`
	LastVersionID    *uuid.UUID               `json:"lastVersionId,omitempty"`
	LatestVersion    *types.EnrichmentVersion `json:"latestVersion,omitempty"`
}

type enrichmentService struct {
	log         *logger.Logger
	tx          aggregates.TxRunner
	enrichments repos.EnrichmentRepo
	versions    repos.VersionRepo
	signer      blob.Signer
	now         func() time.Time
}

func NewEnrichmentService(
	log *logger.Logger,
	tx aggregates.TxRunner,
	enrichments repos.EnrichmentRepo,
	versions repos.VersionRepo,
	signer blob.Signer,
) EnrichmentService {
	return &enrichmentService{
		log:         log.With("service", "EnrichmentService"),
		tx:          tx,
		enrichments: enrichments,
		versions:    versions,
		signer:      signer,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func callerID(ctx context.Context) (uuid.UUID, error) {
	c := ctxutil.GetCaller(ctx)
	if c == nil || c.ID == uuid.Nil {
		return uuid.Nil, types.NewError(types.CodeUnauthorized, "enrichment", "missing caller", nil)
	}
	return c.ID, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func cleanTags(in []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(in))
	seen := map[string]bool{}
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func validWebhook(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (s *enrichmentService) Create(ctx context.Context, in CreateEnrichmentInput) (*CreatedEnrichment, error) {
	owner, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	var causes []string
	if strings.TrimSpace(in.MediaType) == "" {
		causes = append(causes, "mediaType is required")
	}
	webhook := strings.TrimSpace(in.NotificationWebhookURL)
	if webhook != "" && !validWebhook(webhook) {
		causes = append(causes, "notificationWebhookUrl must be an absolute http(s) URL")
	}
	priority := defaultPriority
	if in.Priority != nil {
		if *in.Priority < 0 {
			causes = append(causes, "priority must not be negative")
		}
		priority = *in.Priority
	}
	if err := types.ValidationFailed("enrichment.create", causes...); err != nil {
		return nil, err
	}

	id := uuid.New()
	e := &types.Enrichment{
		ID:                          id,
		CreatedBy:                   owner,
		Status:                      types.StatusUploadingMedia,
		Priority:                    priority,
		MediaKey:                    fmt.Sprintf("enrichments/%s/media", id),
		MediaType:                   strings.TrimSpace(in.MediaType),
		Language:                    strings.TrimSpace(in.Language),
		Disciplines:                 cleanTags(in.Disciplines),
		MediaTypes:                  cleanTags(in.MediaTypes),
		AIEvaluationRequested:       in.AIEvaluationRequested,
		TranslateTo:                 optional(in.TranslateTo),
		AIModel:                     optional(in.AIModel),
		Infrastructure:              optional(in.Infrastructure),
		AIEvaluator:                 optional(in.AIEvaluator),
		NotificationWebhookURL:      webhook,
		LatestEnrichmentRequestedAt: s.now(),
	}
	if err := s.enrichments.Create(dbctx.Context{Ctx: ctx}, e); err != nil {
		return nil, aggregates.MapError("enrichment.create", err)
	}
	out := &CreatedEnrichment{Enrichment: e}
	if s.signer != nil {
		u, err := s.signer.PresignPut(ctx, e.MediaKey, e.MediaType)
		if err != nil {
			return nil, types.Wrap(types.CodeRetryable, "enrichment.create.presign", err)
		}
		out.UploadURL = u
	}
	s.log.Info("Enrichment created", "enrichment_id", e.ID, "priority", e.Priority)
	return out, nil
}

// owned loads the enrichment and hides it from anyone but its creator.
func (s *enrichmentService) owned(dbc dbctx.Context, id uuid.UUID, forUpdate bool) (*types.Enrichment, error) {
	owner, err := callerID(dbc.Ctx)
	if err != nil {
		return nil, err
	}
	var e *types.Enrichment
	if forUpdate {
		e, err = s.enrichments.GetForUpdate(dbc, id)
	} else {
		e, err = s.enrichments.GetByID(dbc, id)
	}
	if err != nil {
		return nil, err
	}
	if e == nil || e.CreatedBy != owner {
		return nil, types.NewError(types.CodeNotFound, "enrichment", "enrichment not found", nil)
	}
	return e, nil
}

func (s *enrichmentService) MarkUploaded(ctx context.Context, id uuid.UUID) (*types.Enrichment, error) {
	var out *types.Enrichment
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		e, err := s.owned(dbc, id, true)
		if err != nil {
			return err
		}
		now := s.now()
		ok, err := s.enrichments.UpdateGuarded(dbc, e.ID, aggregates.Guard{
			Statuses: []string{types.StatusUploadingMedia},
		}, map[string]interface{}{
			"status":                         types.StatusWaitingForTranscription,
			"latest_enrichment_requested_at": now,
			"waiting_since":                  now,
		})
		if err != nil {
			return err
		}
		if err := aggregates.RequireCASSuccess(ok, types.CodeConflict, "enrichment.uploaded", "media was already reported as uploaded"); err != nil {
			return err
		}
		e.Status = types.StatusWaitingForTranscription
		e.LatestEnrichmentRequestedAt = now
		e.WaitingSince = &now
		out = e
		return nil
	})
	if err != nil {
		return nil, aggregates.MapError("enrichment.uploaded", err)
	}
	return out, nil
}

func (s *enrichmentService) Get(ctx context.Context, id uuid.UUID) (*EnrichmentView, error) {
	dbc := dbctx.Context{Ctx: ctx}
	e, err := s.owned(dbc, id, false)
	if err != nil {
		return nil, aggregates.MapError("enrichment.get", err)
	}
	view := &EnrichmentView{Enrichment: e}
	initial, err := s.versions.Initial(dbc, e.ID)
	if err != nil {
		return nil, aggregates.MapError("enrichment.get", err)
	}
	if initial != nil {
		view.InitialVersionID = &initial.ID
	}
	latest, err := s.versions.Latest(dbc, e.ID)
	if err != nil {
		return nil, aggregates.MapError("enrichment.get", err)
	}
	if latest != nil {
		view.LastVersionID = &latest.ID
		view.LatestVersion = latest
	}
	return view, nil
}

func (s *enrichmentService) RequestTranslation(ctx context.Context, id uuid.UUID, language string) (*types.Enrichment, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		return nil, types.ValidationFailed("enrichment.translate", "language is required")
	}
	d := types.MustDescribe(types.StageTranslation)
	var out *types.Enrichment
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		e, err := s.owned(dbc, id, true)
		if err != nil {
			return err
		}
		if e.Status != types.StatusSuccess {
			return types.NewError(types.CodeConflict, "enrichment.translate", "only a successful enrichment can be translated", nil)
		}
		latest, err := s.versions.LatestID(dbc, e.ID)
		if err != nil {
			return err
		}
		if latest == nil {
			return types.ValidationFailed("enrichment.translate", "enrichment has no version to translate")
		}
		now := s.now()
		// A new request restarts retry accounting for every stage.
		updates := map[string]interface{}{
			"status":                         d.Waiting,
			"translate_to":                   language,
			"latest_enrichment_requested_at": now,
			"waiting_since":                  now,
			"failure_cause":                  nil,
			"notification_status":            nil,
			"notified_at":                    nil,
		}
		for _, stage := range types.Stages() {
			updates[types.MustDescribe(stage).Column("retries")] = 0
		}
		ok, err := s.enrichments.UpdateGuarded(dbc, e.ID, aggregates.Guard{
			Statuses: []string{types.StatusSuccess},
		}, updates)
		if err != nil {
			return err
		}
		if err := aggregates.RequireCASSuccess(ok, types.CodeConflict, "enrichment.translate", "enrichment changed concurrently"); err != nil {
			return err
		}
		e.Status = d.Waiting
		e.TranslateTo = &language
		e.LatestEnrichmentRequestedAt = now
		e.WaitingSince = &now
		e.NotificationStatus = nil
		e.NotifiedAt = nil
		for _, stage := range types.Stages() {
			e.State(stage).Retries = 0
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, aggregates.MapError("enrichment.translate", err)
	}
	s.log.Info("Translation requested", "enrichment_id", id, "language", language)
	return out, nil
}

func (s *enrichmentService) DeleteVersion(ctx context.Context, id, versionID uuid.UUID) error {
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		e, err := s.owned(dbc, id, true)
		if err != nil {
			return err
		}
		v, err := s.versions.GetByID(dbc, versionID)
		if err != nil {
			return err
		}
		if v == nil || v.EnrichmentID != e.ID {
			return types.NewError(types.CodeNotFound, "enrichment.delete_version", "version not found", nil)
		}
		initial, err := s.versions.Initial(dbc, e.ID)
		if err != nil {
			return err
		}
		if initial != nil && initial.ID == v.ID {
			return types.ValidationFailed("enrichment.delete_version", "the initial version cannot be deleted")
		}
		if !types.IsTerminal(e.Status) {
			return types.NewError(types.CodeConflict, "enrichment.delete_version", "enrichment is still being processed", nil)
		}
		return s.versions.Delete(dbc, v.ID)
	})
	if err != nil {
		return aggregates.MapError("enrichment.delete_version", err)
	}
	s.log.Info("Version deleted", "enrichment_id", id, "version_id", versionID)
	return nil
}
