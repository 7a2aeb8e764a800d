package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jobapp "github.com/YKLee98/naver-sub003/internal/application/syncjob"
	"github.com/YKLee98/naver-sub003/internal/domain/shared"
	"github.com/YKLee98/naver-sub003/internal/domain/syncjob"
	"github.com/YKLee98/naver-sub003/internal/interfaces/http/dto"
)

// JobService is the orchestrator surface the API drives
type JobService interface {
	CreateJob(ctx context.Context, in jobapp.CreateJobInput) (*syncjob.SyncJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (*syncjob.SyncJob, error)
	ListJobs(ctx context.Context, filter syncjob.Filter) (shared.Paginated[syncjob.SyncJob], error)
	Cancel(ctx context.Context, id uuid.UUID) (*syncjob.SyncJob, error)
	Retry(ctx context.Context, id uuid.UUID) (*syncjob.SyncJob, error)
}

// SyncJobHandler handles sync job endpoints
type SyncJobHandler struct {
	BaseHandler
	jobs JobService
}

// NewSyncJobHandler creates a new SyncJobHandler
func NewSyncJobHandler(jobs JobService) *SyncJobHandler {
	return &SyncJobHandler{jobs: jobs}
}

// RegisterRoutes mounts /sync/jobs
func (h *SyncJobHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/sync/jobs")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id/retry", h.Retry)
}

// Create godoc
// @Summary      Start a sync job
// @Description  Persists a pending job and queues it. Poll GET /sync/jobs/{id} for progress.
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        request  body      dto.CreateJobRequest  true  "Job type and options"
// @Success      202      {object}  dto.Response{data=dto.JobResponse}
// @Failure      400      {object}  dto.Response
// @Router       /sync/jobs [post]
func (h *SyncJobHandler) Create(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	job, err := h.jobs.CreateJob(c.Request.Context(), jobapp.CreateJobInput{
		Type:    syncjob.Type(req.Type),
		Options: req.Options,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Accepted(c, dto.NewJobResponse(job))
}

// Get godoc
// @Summary      Get a sync job
// @Tags         sync
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  dto.Response{data=dto.JobResponse}
// @Failure      404  {object}  dto.Response
// @Router       /sync/jobs/{id} [get]
func (h *SyncJobHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "invalid job id")
		return
	}
	job, err := h.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewJobResponse(job))
}

// List godoc
// @Summary      List sync jobs
// @Tags         sync
// @Produce      json
// @Param        status     query     string  false  "Job status"
// @Param        type       query     string  false  "Job type"
// @Param        page       query     int     false  "Page"
// @Param        page_size  query     int     false  "Page size"
// @Success      200        {object}  dto.Response{data=[]dto.JobResponse}
// @Router       /sync/jobs [get]
func (h *SyncJobHandler) List(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	filter := syncjob.Filter{Filter: shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}}
	if req.Status != "" {
		s := syncjob.Status(req.Status)
		filter.Status = &s
	}
	if req.Type != "" {
		t := syncjob.Type(req.Type)
		filter.Type = &t
	}

	page, err := h.jobs.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	items := make([]dto.JobResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewJobResponse(&page.Items[i]))
	}
	h.SuccessWithMeta(c, items, page.Total, page.Page, page.PageSize, page.TotalPages)
}

// Cancel godoc
// @Summary      Cancel a pending or running job
// @Tags         sync
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  dto.Response{data=dto.JobResponse}
// @Failure      409  {object}  dto.Response
// @Router       /sync/jobs/{id}/cancel [post]
func (h *SyncJobHandler) Cancel(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "invalid job id")
		return
	}
	job, err := h.jobs.Cancel(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.NewJobResponse(job))
}

// Retry godoc
// @Summary      Retry the failed SKUs of a finished job
// @Tags         sync
// @Produce      json
// @Param        id   path      string  true  "Job ID"
// @Success      202  {object}  dto.Response{data=dto.JobResponse}
// @Failure      409  {object}  dto.Response
// @Router       /sync/jobs/{id}/retry [post]
func (h *SyncJobHandler) Retry(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "invalid job id")
		return
	}
	job, err := h.jobs.Retry(c.Request.Context(), id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Accepted(c, dto.NewJobResponse(job))
}
