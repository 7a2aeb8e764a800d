package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/YKLee98/naver-sub003/internal/domain/syncjob"
	"github.com/YKLee98/naver-sub003/internal/infrastructure/persistence/models"
)

// GormSyncJobRepository implements syncjob.Repository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// Create inserts a new job
func (r *GormSyncJobRepository) Create(ctx context.Context, job *syncjob.SyncJob) error {
	return r.db.WithContext(ctx).Create(models.SyncJobModelFromDomain(job)).Error
}

// Save overwrites the stored job, including progress and error list
func (r *GormSyncJobRepository) Save(ctx context.Context, job *syncjob.SyncJob) error {
	result := r.db.WithContext(ctx).Model(&models.SyncJobModel{}).
		Where("id = ?", job.ID).
		Select("*").
		Updates(models.SyncJobModelFromDomain(job))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(syncjob.ErrJobNotFound)
	}
	return nil
}

// FindByID finds a job by ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncjob.SyncJob, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err, syncjob.ErrJobNotFound)
	}
	return model.ToDomain(), nil
}

// List returns a page of jobs, newest first by default
func (r *GormSyncJobRepository) List(ctx context.Context, filter syncjob.Filter) ([]syncjob.SyncJob, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncJobModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", *filter.Since)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order(orderClause(filter.OrderBy, filter.OrderDir, SyncJobSortFields, "created_at"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.SyncJobModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toSyncJobs(rows), total, nil
}

// FindFinishedSince returns terminal jobs completed at or after since
func (r *GormSyncJobRepository) FindFinishedSince(ctx context.Context, since time.Time) ([]syncjob.SyncJob, error) {
	var rows []models.SyncJobModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", []syncjob.Status{syncjob.StatusCompleted, syncjob.StatusFailed, syncjob.StatusCancelled}).
		Where("completed_at >= ?", since).
		Order("completed_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toSyncJobs(rows), nil
}

// FindByStatus returns jobs in any of the given states, oldest first
func (r *GormSyncJobRepository) FindByStatus(ctx context.Context, statuses ...syncjob.Status) ([]syncjob.SyncJob, error) {
	var rows []models.SyncJobModel
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toSyncJobs(rows), nil
}

func toSyncJobs(rows []models.SyncJobModel) []syncjob.SyncJob {
	out := make([]syncjob.SyncJob, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

// Ensure interface compliance
var _ syncjob.Repository = (*GormSyncJobRepository)(nil)
