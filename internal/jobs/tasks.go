package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/anikkhan0099/moviehubbd/internal/metadata"
	"github.com/anikkhan0099/moviehubbd/internal/models"
	"github.com/anikkhan0099/moviehubbd/internal/repository"
)

// ──────── Payloads ────────

type ImportPayload struct {
	TaskID  string    `json:"task_id"`
	TMDbID  int       `json:"tmdb_id"`
	Update  bool      `json:"update,omitempty"`
	Publish bool      `json:"publish,omitempty"`
	Author  uuid.UUID `json:"author"`
}

func (p ImportPayload) options() metadata.Options {
	return metadata.Options{Update: p.Update, Publish: p.Publish, Author: p.Author, TaskID: p.TaskID}
}

// Importer is the part of metadata.Importer the task handlers drive.
type Importer interface {
	ImportMovie(ctx context.Context, tmdbID int, opts metadata.Options) (*metadata.MovieResult, error)
	ImportSeries(ctx context.Context, tmdbID int, opts metadata.Options) (*metadata.SeriesResult, error)
}

// ImportTaskID is the deduplication key for an import of one TMDB record.
func ImportTaskID(taskType string, tmdbID int) string {
	return taskType + ":" + strconv.Itoa(tmdbID)
}

// EnqueueImport schedules an import and returns the task id clients can
// match against task:update events.
func (q *Queue) EnqueueImport(taskType string, p ImportPayload) (string, error) {
	if taskType != TaskImportMovie && taskType != TaskImportSeries {
		return "", fmt.Errorf("unknown import task %q", taskType)
	}
	p.TaskID = ImportTaskID(taskType, p.TMDbID)
	return q.EnqueueUnique(taskType, p, p.TaskID, asynq.MaxRetry(3))
}

// ──────── Import handler ────────

type ImportHandler struct {
	taskType string
	importer Importer
	log      *logrus.Entry
}

func NewImportHandler(taskType string, im Importer, log *logrus.Entry) *ImportHandler {
	return &ImportHandler{taskType: taskType, importer: im, log: log}
}

func (h *ImportHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p ImportPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal: %v: %w", err, asynq.SkipRetry)
	}
	var err error
	switch h.taskType {
	case TaskImportMovie:
		_, err = h.importer.ImportMovie(ctx, p.TMDbID, p.options())
	case TaskImportSeries:
		_, err = h.importer.ImportSeries(ctx, p.TMDbID, p.options())
	default:
		return fmt.Errorf("unknown import task %q: %w", h.taskType, asynq.SkipRetry)
	}
	if err == nil {
		return nil
	}
	h.log.WithError(err).WithFields(logrus.Fields{"task_type": h.taskType, "tmdb_id": p.TMDbID}).Error("import task failed")
	if permanent(err) {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return err
}

// permanent reports failures a retry cannot fix.
func permanent(err error) bool {
	return errors.Is(err, repository.ErrConflict) ||
		errors.Is(err, metadata.ErrNotFound) ||
		errors.Is(err, metadata.ErrNoAPIKey) ||
		models.IsValidation(err)
}

// ──────── Register all handlers ────────

func RegisterHandlers(q *Queue, im Importer, log *logrus.Entry) {
	q.RegisterHandler(TaskImportMovie, NewImportHandler(TaskImportMovie, im, log))
	q.RegisterHandler(TaskImportSeries, NewImportHandler(TaskImportSeries, im, log))
}
