package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/infodoc-api/pkg/jobs"
)

// Cleanup job types.
const (
	JobDeleteObject = "object.delete"
	JobDeleteRow    = "row.delete"
)

type cleanupObjects interface {
	Delete(ctx context.Context, path string) error
}

type cleanupRows interface {
	Delete(ctx context.Context, id string) error
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// CleanupService retries rollbacks that failed inline: orphaned objects after a failed insert and
// orphaned rows after their object was already removed.
type CleanupService struct {
	objects cleanupObjects
	rows    cleanupRows
	queue   jobQueue
	logger  *zap.Logger
}

// NewCleanupService builds the service; attach a queue with Bind before scheduling.
func NewCleanupService(objects cleanupObjects, rows cleanupRows, logger *zap.Logger) *CleanupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CleanupService{objects: objects, rows: rows, logger: logger}
}

// Bind attaches the queue that runs Handle.
func (s *CleanupService) Bind(queue jobQueue) {
	s.queue = queue
}

// Handle executes one cleanup job.
func (s *CleanupService) Handle(ctx context.Context, job jobs.Job) error {
	target, ok := job.Payload.(string)
	if !ok || target == "" {
		s.logger.Error("cleanup job without target", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	switch job.Type {
	case JobDeleteObject:
		return s.objects.Delete(ctx, target)
	case JobDeleteRow:
		if err := s.rows.Delete(ctx, target); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return nil
	default:
		s.logger.Error("unknown cleanup job", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
}

// ScheduleObjectDelete queues removal of an object whose row insert failed.
func (s *CleanupService) ScheduleObjectDelete(path string, cause error) {
	s.schedule(JobDeleteObject, path, cause)
}

// ScheduleRowDelete queues removal of a row whose object is already gone.
func (s *CleanupService) ScheduleRowDelete(id string, cause error) {
	s.schedule(JobDeleteRow, id, cause)
}

// Dropped logs and counts a job that exhausted its retries.
func (s *CleanupService) Dropped(metrics *MetricsService) jobs.DropFunc {
	return func(job jobs.Job, err error) {
		metrics.RecordCleanupDropped(job.Type)
		s.logger.Error("cleanup abandoned, manual removal required",
			zap.String("type", job.Type), zap.Any("target", job.Payload), zap.Error(err))
	}
}

func (s *CleanupService) schedule(jobType, target string, cause error) {
	fields := []zap.Field{zap.String("type", jobType), zap.String("target", target), zap.Error(cause)}
	if s == nil || s.queue == nil {
		s.loggerOrNop().Error("cleanup queue unavailable, manual removal required", fields...)
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: target}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Error("enqueue cleanup failed", append(fields, zap.NamedError("enqueue_error", err))...)
		return
	}
	s.logger.Warn("cleanup scheduled", append(fields, zap.String("job_id", job.ID))...)
}

func (s *CleanupService) loggerOrNop() *zap.Logger {
	if s == nil || s.logger == nil {
		return zap.NewNop()
	}
	return s.logger
}
