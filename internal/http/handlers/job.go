package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/enrichment-backend/internal/domain"
	"github.com/yungbote/enrichment-backend/internal/http/response"
	"github.com/yungbote/enrichment-backend/internal/jobs/queue"
	"github.com/yungbote/enrichment-backend/internal/platform/ctxutil"
	"github.com/yungbote/enrichment-backend/internal/platform/logger"
)

type JobQueue interface {
	Claim(ctx context.Context, req queue.ClaimRequest) (*queue.ClaimedJob, error)
	Complete(ctx context.Context, req queue.CompleteRequest) (*types.Enrichment, error)
}

type JobHandler struct {
	log  *logger.Logger
	jobs JobQueue
}

func NewJobHandler(log *logger.Logger, jobs JobQueue) *JobHandler {
	return &JobHandler{log: log.With("handler", "JobHandler"), jobs: jobs}
}

type completeJobRequest struct {
	Status       string `json:"status"`
	TaskID       string `json:"taskId"`
	FailureCause string `json:"failureCause"`
	queue.StagePayload
}

// stageFor parses the stage path parameter and checks the caller holds its
// capability. It writes the error response and returns false on failure.
func stageFor(c *gin.Context) (types.Stage, bool) {
	stage, err := types.ParseStage(c.Param("stage"))
	if err != nil {
		response.RespondErr(c, err)
		return "", false
	}
	d := types.MustDescribe(stage)
	if !ctxutil.HasCapability(c.Request.Context(), d.Capability) {
		response.Forbidden(c, "missing capability "+d.Capability)
		return "", false
	}
	return stage, true
}

// GET /api/jobs/:stage/oldest
func (h *JobHandler) ClaimOldest(c *gin.Context) {
	stage, ok := stageFor(c)
	if !ok {
		return
	}
	unspecified, _ := strconv.ParseBool(strings.TrimSpace(c.Query("unspecified")))
	job, err := h.jobs.Claim(c.Request.Context(), queue.ClaimRequest{
		Stage:    stage,
		WorkerID: ctxutil.GetCaller(c.Request.Context()).ID,
		TaskID:   c.Query("taskId"),
		Filter: types.WorkerFilter{
			Model:          c.Query("model"),
			Infrastructure: c.Query("infrastructure"),
			Evaluator:      c.Query("evaluator"),
			Unspecified:    unspecified,
		},
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	if job == nil {
		response.RespondError(c, http.StatusNotFound, "no_job", errNoJob)
		return
	}
	response.RespondOK(c, job)
}

// POST /api/jobs/:stage/:enrichmentId[/:versionId]
func (h *JobHandler) Complete(c *gin.Context) {
	stage, ok := stageFor(c)
	if !ok {
		return
	}
	enrichmentID, err := uuid.Parse(c.Param("enrichmentId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_enrichment_id", err)
		return
	}
	var versionID *uuid.UUID
	if raw := c.Param("versionId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_version_id", err)
			return
		}
		versionID = &id
	}
	var body completeJobRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	e, err := h.jobs.Complete(c.Request.Context(), queue.CompleteRequest{
		Stage:        stage,
		EnrichmentID: enrichmentID,
		VersionID:    versionID,
		WorkerID:     ctxutil.GetCaller(c.Request.Context()).ID,
		TaskID:       body.TaskID,
		Outcome:      body.Status,
		FailureCause: body.FailureCause,
		Payload:      &body.StagePayload,
	})
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrichmentId": e.ID, "status": e.Status})
}
